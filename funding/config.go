package funding

import (
	"errors"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
)

const (
	// DefaultPollInterval is the delay between completion polls
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxPollAttempts bounds completion polling to about five minutes
	DefaultMaxPollAttempts = 150

	// DefaultResolveDelay lets the user read the outcome before the dialog closes
	DefaultResolveDelay = 2 * time.Second

	// DefaultTermsAcceptance is sent with every purchase
	DefaultTermsAcceptance = "I Accept"
)

// DefaultUSDOptions are the dollar amounts offered for purchase
var DefaultUSDOptions = []int{1, 2, 5, 10}

// Texts are the user facing strings of the funding flows
type Texts struct {
	Title            string
	IntroText        string
	PostPurchaseText string
	BuySatsText      string
	RetryText        string
	CancelText       string
	BuySatsURL       string
}

// DefaultTexts returns the default funding texts
func DefaultTexts() Texts {
	return Texts{
		Title:            "Not enough sats",
		IntroText:        "Top up your wallet, then click “Retry” to finish the action.",
		PostPurchaseText: "If you’ve bought sats, click “Retry” to complete the action.",
		BuySatsText:      "Buy Sats",
		RetryText:        "Retry",
		CancelText:       "Cancel Action",
		BuySatsURL:       "https://satoshis.babbage.systems",
	}
}

// merge fills empty fields of t from defaults
func (t Texts) merge(defaults Texts) Texts {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Texts{
		Title:            pick(t.Title, defaults.Title),
		IntroText:        pick(t.IntroText, defaults.IntroText),
		PostPurchaseText: pick(t.PostPurchaseText, defaults.PostPurchaseText),
		BuySatsText:      pick(t.BuySatsText, defaults.BuySatsText),
		RetryText:        pick(t.RetryText, defaults.RetryText),
		CancelText:       pick(t.CancelText, defaults.CancelText),
		BuySatsURL:       pick(t.BuySatsURL, defaults.BuySatsURL),
	}
}

// Config configures a ShopFunder
type Config struct {
	// Shop is the purchase service (required)
	Shop Shop

	// Payments confirms card payments (required)
	Payments PaymentConfirmer

	// Dialogs opens the funding dialog (required)
	Dialogs DialogOpener

	// Clock is used for quote validity and delays (optional)
	Clock clock.Clock

	// NewTicker creates the completion polling ticker (optional)
	NewTicker func(interval time.Duration) ticker.Ticker

	// PollInterval between completion polls (optional, defaults to 2s)
	PollInterval time.Duration

	// MaxPollAttempts before a purchase times out (optional, defaults to 150)
	MaxPollAttempts int

	// ResolveDelay before resolving to retry (optional, defaults to 2s)
	ResolveDelay time.Duration

	// USDOptions offered to the user (optional, defaults to 1, 2, 5 and 10)
	USDOptions []int

	// TermsAcceptance sent with each purchase (optional, defaults to "I Accept")
	TermsAcceptance string

	// Texts overrides dialog strings (optional)
	Texts Texts
}

var (
	errMissingShop     = errors.New("funding config requires a shop")
	errMissingPayments = errors.New("funding config requires a payment confirmer")
	errMissingDialogs  = errors.New("funding config requires a dialog opener")
)

// withDefaults validates c and fills unset fields
func (c Config) withDefaults() (Config, error) {
	switch {
	case c.Shop == nil:
		return c, errMissingShop
	case c.Payments == nil:
		return c, errMissingPayments
	case c.Dialogs == nil:
		return c, errMissingDialogs
	}

	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}
	if c.NewTicker == nil {
		c.NewTicker = func(interval time.Duration) ticker.Ticker {
			return ticker.New(interval)
		}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = DefaultMaxPollAttempts
	}
	if c.ResolveDelay <= 0 {
		c.ResolveDelay = DefaultResolveDelay
	}
	if len(c.USDOptions) == 0 {
		c.USDOptions = DefaultUSDOptions
	}
	if c.TermsAcceptance == "" {
		c.TermsAcceptance = DefaultTermsAcceptance
	}
	c.Texts = c.Texts.merge(DefaultTexts())
	return c, nil
}
