package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	babbage "github.com/babbage/go"
)

// ============================================================================
// Wallet Substrate Client
// ============================================================================

// DefaultWalletURL is where a locally running wallet listens
const DefaultWalletURL = "http://localhost:3321"

// WalletClientConfig configures the wallet substrate client
type WalletClientConfig struct {
	// URL is the base URL of the wallet (optional)
	URL string

	// Originator is sent when a call does not name one (optional)
	Originator string

	// HTTPClient is the HTTP client to use (optional)
	HTTPClient *http.Client

	// AuthProvider provides authentication headers (optional)
	AuthProvider AuthProvider

	// Timeout for requests (optional, defaults to 30s)
	Timeout time.Duration
}

// WalletClient calls a BRC-100 wallet over its HTTP JSON substrate. Every
// operation is a POST to /<operation> with the originator in the Originator
// header. It implements babbage.Wallet.
type WalletClient struct {
	t          *transport
	originator string
}

var _ babbage.Wallet = (*WalletClient)(nil)

// NewWalletClient creates a wallet substrate client
func NewWalletClient(config *WalletClientConfig) *WalletClient {
	if config == nil {
		config = &WalletClientConfig{}
	}
	return &WalletClient{
		t:          newTransport(config.URL, DefaultWalletURL, config.HTTPClient, config.Timeout, config.AuthProvider),
		originator: config.Originator,
	}
}

// walletErrorBody is the error document a wallet returns
type walletErrorBody struct {
	Status              string                 `json:"status"`
	Code                string                 `json:"code"`
	Description         string                 `json:"description"`
	Message             string                 `json:"message"`
	MoreSatoshisNeeded  *uint64                `json:"moreSatoshisNeeded"`
	TotalSatoshisNeeded *uint64                `json:"totalSatoshisNeeded"`
	Details             map[string]interface{} `json:"details"`
}

// invoke calls op and decodes the result into R
func invoke[R any](ctx context.Context, c *WalletClient, op babbage.Operation, args interface{}, originator string) (*R, error) {
	if originator == "" {
		originator = c.originator
	}
	var headers map[string]string
	if originator != "" {
		headers = map[string]string{"Originator": originator}
	}
	if args == nil {
		args = struct{}{}
	}

	body, err := c.t.postJSON(ctx, "/"+string(op), args, headers)
	if err != nil {
		return nil, walletError(op, body, err)
	}

	var result R
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", op, err)
	}
	return &result, nil
}

// walletError turns a transport failure into the error the wallet meant
func walletError(op babbage.Operation, body []byte, err error) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		log.Debugf("Wallet unreachable for %s: %v", op, reqErr.Err)
		return babbage.NewWalletError(babbage.ErrCodeWalletNotConnected,
			fmt.Sprintf("wallet unreachable: %v", reqErr.Err), nil)
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || len(body) == 0 {
		return err
	}
	if validateResponse(walletErrorSchema, body) != nil {
		return err
	}

	var werr walletErrorBody
	if json.Unmarshal(body, &werr) != nil {
		return err
	}

	message := werr.Message
	if message == "" {
		message = werr.Description
	}

	if werr.MoreSatoshisNeeded != nil {
		ife := &babbage.InsufficientFundsError{MoreSatoshisNeeded: *werr.MoreSatoshisNeeded}
		if werr.TotalSatoshisNeeded != nil {
			ife.TotalSatoshisNeeded = *werr.TotalSatoshisNeeded
		}
		return ife
	}
	return babbage.NewWalletError(werr.Code, message, werr.Details)
}

func (c *WalletClient) GetPublicKey(ctx context.Context, args babbage.GetPublicKeyArgs, originator string) (*babbage.GetPublicKeyResult, error) {
	return invoke[babbage.GetPublicKeyResult](ctx, c, babbage.OpGetPublicKey, args, originator)
}

func (c *WalletClient) CreateHmac(ctx context.Context, args babbage.CreateHmacArgs, originator string) (*babbage.CreateHmacResult, error) {
	return invoke[babbage.CreateHmacResult](ctx, c, babbage.OpCreateHmac, args, originator)
}

func (c *WalletClient) RevealCounterpartyKeyLinkage(ctx context.Context, args babbage.RevealCounterpartyKeyLinkageArgs, originator string) (*babbage.RevealCounterpartyKeyLinkageResult, error) {
	return invoke[babbage.RevealCounterpartyKeyLinkageResult](ctx, c, babbage.OpRevealCounterpartyKeyLinkage, args, originator)
}

func (c *WalletClient) RevealSpecificKeyLinkage(ctx context.Context, args babbage.RevealSpecificKeyLinkageArgs, originator string) (*babbage.RevealSpecificKeyLinkageResult, error) {
	return invoke[babbage.RevealSpecificKeyLinkageResult](ctx, c, babbage.OpRevealSpecificKeyLinkage, args, originator)
}

func (c *WalletClient) Encrypt(ctx context.Context, args babbage.EncryptArgs, originator string) (*babbage.EncryptResult, error) {
	return invoke[babbage.EncryptResult](ctx, c, babbage.OpEncrypt, args, originator)
}

func (c *WalletClient) Decrypt(ctx context.Context, args babbage.DecryptArgs, originator string) (*babbage.DecryptResult, error) {
	return invoke[babbage.DecryptResult](ctx, c, babbage.OpDecrypt, args, originator)
}

func (c *WalletClient) VerifyHmac(ctx context.Context, args babbage.VerifyHmacArgs, originator string) (*babbage.VerifyHmacResult, error) {
	return invoke[babbage.VerifyHmacResult](ctx, c, babbage.OpVerifyHmac, args, originator)
}

func (c *WalletClient) CreateSignature(ctx context.Context, args babbage.CreateSignatureArgs, originator string) (*babbage.CreateSignatureResult, error) {
	return invoke[babbage.CreateSignatureResult](ctx, c, babbage.OpCreateSignature, args, originator)
}

func (c *WalletClient) VerifySignature(ctx context.Context, args babbage.VerifySignatureArgs, originator string) (*babbage.VerifySignatureResult, error) {
	return invoke[babbage.VerifySignatureResult](ctx, c, babbage.OpVerifySignature, args, originator)
}

func (c *WalletClient) CreateAction(ctx context.Context, args babbage.CreateActionArgs, originator string) (*babbage.CreateActionResult, error) {
	return invoke[babbage.CreateActionResult](ctx, c, babbage.OpCreateAction, args, originator)
}

func (c *WalletClient) SignAction(ctx context.Context, args babbage.SignActionArgs, originator string) (*babbage.SignActionResult, error) {
	return invoke[babbage.SignActionResult](ctx, c, babbage.OpSignAction, args, originator)
}

func (c *WalletClient) AbortAction(ctx context.Context, args babbage.AbortActionArgs, originator string) (*babbage.AbortActionResult, error) {
	return invoke[babbage.AbortActionResult](ctx, c, babbage.OpAbortAction, args, originator)
}

func (c *WalletClient) ListActions(ctx context.Context, args babbage.ListActionsArgs, originator string) (*babbage.ListActionsResult, error) {
	return invoke[babbage.ListActionsResult](ctx, c, babbage.OpListActions, args, originator)
}

func (c *WalletClient) InternalizeAction(ctx context.Context, args babbage.InternalizeActionArgs, originator string) (*babbage.InternalizeActionResult, error) {
	return invoke[babbage.InternalizeActionResult](ctx, c, babbage.OpInternalizeAction, args, originator)
}

func (c *WalletClient) ListOutputs(ctx context.Context, args babbage.ListOutputsArgs, originator string) (*babbage.ListOutputsResult, error) {
	return invoke[babbage.ListOutputsResult](ctx, c, babbage.OpListOutputs, args, originator)
}

func (c *WalletClient) RelinquishOutput(ctx context.Context, args babbage.RelinquishOutputArgs, originator string) (*babbage.RelinquishOutputResult, error) {
	return invoke[babbage.RelinquishOutputResult](ctx, c, babbage.OpRelinquishOutput, args, originator)
}

func (c *WalletClient) AcquireCertificate(ctx context.Context, args babbage.AcquireCertificateArgs, originator string) (*babbage.CertificateResult, error) {
	return invoke[babbage.CertificateResult](ctx, c, babbage.OpAcquireCertificate, args, originator)
}

func (c *WalletClient) ListCertificates(ctx context.Context, args babbage.ListCertificatesArgs, originator string) (*babbage.ListCertificatesResult, error) {
	return invoke[babbage.ListCertificatesResult](ctx, c, babbage.OpListCertificates, args, originator)
}

func (c *WalletClient) ProveCertificate(ctx context.Context, args babbage.ProveCertificateArgs, originator string) (*babbage.ProveCertificateResult, error) {
	return invoke[babbage.ProveCertificateResult](ctx, c, babbage.OpProveCertificate, args, originator)
}

func (c *WalletClient) RelinquishCertificate(ctx context.Context, args babbage.RelinquishCertificateArgs, originator string) (*babbage.RelinquishCertificateResult, error) {
	return invoke[babbage.RelinquishCertificateResult](ctx, c, babbage.OpRelinquishCertificate, args, originator)
}

func (c *WalletClient) DiscoverByIdentityKey(ctx context.Context, args babbage.DiscoverByIdentityKeyArgs, originator string) (*babbage.DiscoverCertificatesResult, error) {
	return invoke[babbage.DiscoverCertificatesResult](ctx, c, babbage.OpDiscoverByIdentityKey, args, originator)
}

func (c *WalletClient) DiscoverByAttributes(ctx context.Context, args babbage.DiscoverByAttributesArgs, originator string) (*babbage.DiscoverCertificatesResult, error) {
	return invoke[babbage.DiscoverCertificatesResult](ctx, c, babbage.OpDiscoverByAttributes, args, originator)
}

func (c *WalletClient) IsAuthenticated(ctx context.Context, args any, originator string) (*babbage.AuthenticatedResult, error) {
	return invoke[babbage.AuthenticatedResult](ctx, c, babbage.OpIsAuthenticated, args, originator)
}

func (c *WalletClient) WaitForAuthentication(ctx context.Context, args any, originator string) (*babbage.AuthenticatedResult, error) {
	return invoke[babbage.AuthenticatedResult](ctx, c, babbage.OpWaitForAuthentication, args, originator)
}

func (c *WalletClient) GetHeight(ctx context.Context, args any, originator string) (*babbage.GetHeightResult, error) {
	return invoke[babbage.GetHeightResult](ctx, c, babbage.OpGetHeight, args, originator)
}

func (c *WalletClient) GetHeaderForHeight(ctx context.Context, args babbage.GetHeaderArgs, originator string) (*babbage.GetHeaderResult, error) {
	return invoke[babbage.GetHeaderResult](ctx, c, babbage.OpGetHeaderForHeight, args, originator)
}

func (c *WalletClient) GetNetwork(ctx context.Context, args any, originator string) (*babbage.GetNetworkResult, error) {
	return invoke[babbage.GetNetworkResult](ctx, c, babbage.OpGetNetwork, args, originator)
}

func (c *WalletClient) GetVersion(ctx context.Context, args any, originator string) (*babbage.GetVersionResult, error) {
	return invoke[babbage.GetVersionResult](ctx, c, babbage.OpGetVersion, args, originator)
}
