package funding

import (
	"context"
	"fmt"
	"time"
)

// ============================================================================
// Purchase Service
// ============================================================================

// StatusAcknowledged is the completion status of a delivered purchase
const StatusAcknowledged = "bitcoin-payment-acknowledged"

// Quote is the result of starting a shopping session
type Quote struct {
	SatoshisPerUSD  float64   `json:"satoshisPerUSD"`
	MinimumSatoshis uint64    `json:"minimumSatoshis"`
	MaximumSatoshis uint64    `json:"maximumSatoshis"`
	QuoteID         string    `json:"quoteId"`
	ValidUntil      time.Time `json:"quoteValidUntil"`

	// PendingReferences are purchases started earlier and not yet delivered
	PendingReferences []string `json:"pendingTxs"`
}

// InitiateBuyRequest starts a purchase
type InitiateBuyRequest struct {
	NumberOfSatoshis            uint64 `json:"numberOfSatoshis"`
	QuoteID                     string `json:"quoteId"`
	CustomerAcceptsPaymentTerms string `json:"customerAcceptsPaymentTerms"`
}

// Purchase is a started purchase awaiting card payment
type Purchase struct {
	Reference string `json:"reference"`

	// ClientSecret is the payment confirmation handle for the card processor
	ClientSecret string `json:"clientSecret"`
}

// CompletionStatus is the delivery state of a purchase
type CompletionStatus struct {
	Status   string `json:"status"`
	Satoshis uint64 `json:"satoshis,omitempty"`
}

// Acknowledged reports whether the purchase was delivered
func (s *CompletionStatus) Acknowledged() bool {
	return s.Status == StatusAcknowledged && s.Satoshis > 0
}

// Shop is the purchase service
type Shop interface {
	StartShopping(ctx context.Context) (*Quote, error)
	InitiateBuy(ctx context.Context, req InitiateBuyRequest) (*Purchase, error)
	CompleteBuy(ctx context.Context, reference string) (*CompletionStatus, error)
}

// ============================================================================
// Card Payment
// ============================================================================

// ConfirmRequest asks the card processor to confirm a purchase
type ConfirmRequest struct {
	ClientSecret string
	Reference    string
	USD          int
	Satoshis     uint64
}

// PaymentConfirmer collects and confirms the card payment. It returns nil
// only once the processor reports success.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, req ConfirmRequest) error
}

// ConfirmFunc adapts a function to the PaymentConfirmer interface
type ConfirmFunc func(ctx context.Context, req ConfirmRequest) error

func (f ConfirmFunc) ConfirmPayment(ctx context.Context, req ConfirmRequest) error {
	return f(ctx, req)
}

// ============================================================================
// Dialog
// ============================================================================

// StatusKind classifies a status line shown in the dialog
type StatusKind int

const (
	StatusLoading StatusKind = iota
	StatusRecovering
	StatusRecovered
	StatusStillPending
	StatusRecoveryFailed
	StatusFunded
	StatusLimit
	StatusNoOptions
	StatusPreparing
	StatusConfirming
	StatusDelivering
	StatusAdded
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusLoading:
		return "loading"
	case StatusRecovering:
		return "recovering"
	case StatusRecovered:
		return "recovered"
	case StatusStillPending:
		return "still_pending"
	case StatusRecoveryFailed:
		return "recovery_failed"
	case StatusFunded:
		return "funded"
	case StatusLimit:
		return "limit"
	case StatusNoOptions:
		return "no_options"
	case StatusPreparing:
		return "preparing"
	case StatusConfirming:
		return "confirming"
	case StatusDelivering:
		return "delivering"
	case StatusAdded:
		return "added"
	default:
		return "error"
	}
}

// MarshalText encodes the kind by name
func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name
func (k *StatusKind) UnmarshalText(text []byte) error {
	for kind := StatusLoading; kind <= StatusError; kind++ {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown status kind %q", text)
}

// Status is one update of the funding dialog
type Status struct {
	Kind      StatusKind `json:"kind"`
	Text      string     `json:"text"`
	Satoshis  uint64     `json:"satoshis,omitempty"`
	Needed    uint64     `json:"needed"`
	Reference string     `json:"reference,omitempty"`
}

// AmountOption is one purchasable amount
type AmountOption struct {
	USD      int    `json:"usd"`
	Satoshis uint64 `json:"satoshis"`
}

// AmountPrompt asks the user to pick an amount
type AmountPrompt struct {
	Options        []AmountOption `json:"options"`
	Needed         uint64         `json:"needed"`
	SatoshisPerUSD float64        `json:"satoshisPerUSD"`
	ValidMinutes   int            `json:"validMinutes"`
}

// RetryPrompt offers to check again on a paid purchase whose delivery could
// not be confirmed
type RetryPrompt struct {
	Reference  string `json:"reference"`
	Text       string `json:"text"`
	ActionText string `json:"actionText"`
}

// Intro is the opening content of a funding dialog
type Intro struct {
	Title             string `json:"title"`
	Text              string `json:"text"`
	ActionDescription string `json:"actionDescription,omitempty"`
	CancelText        string `json:"cancelText"`
}

// Dialog is an open funding dialog
type Dialog interface {
	// ShowStatus replaces the status line
	ShowStatus(status Status)

	// SelectAmount blocks until the user picks one of the options
	SelectAmount(ctx context.Context, prompt AmountPrompt) (AmountOption, error)

	// RetryDelivery shows prompt and blocks until the user asks to check
	// the purchase again
	RetryDelivery(ctx context.Context, prompt RetryPrompt) error

	// Cancelled is closed when the user cancels the dialog
	Cancelled() <-chan struct{}

	// Close dismisses the dialog
	Close()
}

// DialogOpener opens funding dialogs
type DialogOpener interface {
	Open(ctx context.Context, intro Intro) (Dialog, error)
}
