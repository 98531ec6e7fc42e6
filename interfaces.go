package babbage

import (
	"context"
	"encoding/json"
)

// ============================================================================
// Wallet Capability
// ============================================================================

// PublicKeyGetter derives public keys. The fee hydrator only needs this
// subset of the wallet.
type PublicKeyGetter interface {
	GetPublicKey(ctx context.Context, args GetPublicKeyArgs, originator string) (*GetPublicKeyResult, error)
}

// HmacCreator computes wallet HMACs, used for wallet-bound nonces
type HmacCreator interface {
	CreateHmac(ctx context.Context, args CreateHmacArgs, originator string) (*CreateHmacResult, error)
}

// Wallet is the BRC-100 wallet interface. FundedWallet both consumes and
// implements it.
type Wallet interface {
	PublicKeyGetter
	HmacCreator

	RevealCounterpartyKeyLinkage(ctx context.Context, args RevealCounterpartyKeyLinkageArgs, originator string) (*RevealCounterpartyKeyLinkageResult, error)
	RevealSpecificKeyLinkage(ctx context.Context, args RevealSpecificKeyLinkageArgs, originator string) (*RevealSpecificKeyLinkageResult, error)
	Encrypt(ctx context.Context, args EncryptArgs, originator string) (*EncryptResult, error)
	Decrypt(ctx context.Context, args DecryptArgs, originator string) (*DecryptResult, error)
	VerifyHmac(ctx context.Context, args VerifyHmacArgs, originator string) (*VerifyHmacResult, error)
	CreateSignature(ctx context.Context, args CreateSignatureArgs, originator string) (*CreateSignatureResult, error)
	VerifySignature(ctx context.Context, args VerifySignatureArgs, originator string) (*VerifySignatureResult, error)

	CreateAction(ctx context.Context, args CreateActionArgs, originator string) (*CreateActionResult, error)
	SignAction(ctx context.Context, args SignActionArgs, originator string) (*SignActionResult, error)
	AbortAction(ctx context.Context, args AbortActionArgs, originator string) (*AbortActionResult, error)
	ListActions(ctx context.Context, args ListActionsArgs, originator string) (*ListActionsResult, error)
	InternalizeAction(ctx context.Context, args InternalizeActionArgs, originator string) (*InternalizeActionResult, error)

	ListOutputs(ctx context.Context, args ListOutputsArgs, originator string) (*ListOutputsResult, error)
	RelinquishOutput(ctx context.Context, args RelinquishOutputArgs, originator string) (*RelinquishOutputResult, error)

	AcquireCertificate(ctx context.Context, args AcquireCertificateArgs, originator string) (*CertificateResult, error)
	ListCertificates(ctx context.Context, args ListCertificatesArgs, originator string) (*ListCertificatesResult, error)
	ProveCertificate(ctx context.Context, args ProveCertificateArgs, originator string) (*ProveCertificateResult, error)
	RelinquishCertificate(ctx context.Context, args RelinquishCertificateArgs, originator string) (*RelinquishCertificateResult, error)
	DiscoverByIdentityKey(ctx context.Context, args DiscoverByIdentityKeyArgs, originator string) (*DiscoverCertificatesResult, error)
	DiscoverByAttributes(ctx context.Context, args DiscoverByAttributesArgs, originator string) (*DiscoverCertificatesResult, error)

	IsAuthenticated(ctx context.Context, args any, originator string) (*AuthenticatedResult, error)
	WaitForAuthentication(ctx context.Context, args any, originator string) (*AuthenticatedResult, error)
	GetHeight(ctx context.Context, args any, originator string) (*GetHeightResult, error)
	GetHeaderForHeight(ctx context.Context, args GetHeaderArgs, originator string) (*GetHeaderResult, error)
	GetNetwork(ctx context.Context, args any, originator string) (*GetNetworkResult, error)
	GetVersion(ctx context.Context, args any, originator string) (*GetVersionResult, error)
}

// ============================================================================
// Messaging Relay
// ============================================================================

// Message is a single relay message addressed to a recipient's mailbox
type Message struct {
	MessageID  string          `json:"messageId,omitempty"`
	Recipient  string          `json:"recipient"`
	MessageBox string          `json:"messageBox"`
	Body       json.RawMessage `json:"body"`
}

// MessageRelay delivers messages to another identity's inbox
type MessageRelay interface {
	SendMessage(ctx context.Context, msg Message) error
}

// ============================================================================
// Funding
// ============================================================================

// FundingOutcome is how a funding interaction ended
type FundingOutcome int

const (
	// OutcomeCancel means the user gave up; the original error is returned
	OutcomeCancel FundingOutcome = iota
	// OutcomeRetry means the shortfall is believed covered
	OutcomeRetry
	// OutcomeTimedOut means a purchase never completed in time
	OutcomeTimedOut
)

func (o FundingOutcome) String() string {
	switch o {
	case OutcomeRetry:
		return "retry"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "cancel"
	}
}

// FundingRequest describes an action that failed for lack of funds
type FundingRequest struct {
	ActionDescription string
	Shortfall         uint64
	Cause             error
}

// Funder runs an interactive top-up for a failed action. Only OutcomeRetry
// causes the action to be attempted again.
type Funder interface {
	Fund(ctx context.Context, req FundingRequest) (FundingOutcome, error)
}

// FunderFunc adapts a function to the Funder interface
type FunderFunc func(ctx context.Context, req FundingRequest) (FundingOutcome, error)

func (f FunderFunc) Fund(ctx context.Context, req FundingRequest) (FundingOutcome, error) {
	return f(ctx, req)
}

// ============================================================================
// Wallet Unavailable Presentation
// ============================================================================

// WalletUnavailableNotice is what the user is shown when no usable wallet is
// connected
type WalletUnavailableNotice struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	CTAText   string `json:"ctaText"`
	CTAHref   string `json:"ctaHref"`
	Operation string `json:"operation,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// WalletUnavailablePresenter renders the wallet unavailable notice
type WalletUnavailablePresenter interface {
	PresentWalletUnavailable(ctx context.Context, notice WalletUnavailableNotice)
}

// WalletAvailablePresenter is implemented by presenters that take the notice
// down once the wallet answers again
type WalletAvailablePresenter interface {
	DismissWalletUnavailable(ctx context.Context)
}
