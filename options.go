package babbage

import (
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/lightningnetwork/lnd/clock"
)

// UnavailablePolicy decides what happens to a call after the wallet
// unavailable notice has been presented
type UnavailablePolicy int

const (
	// PolicyRethrow returns the original error to the caller
	PolicyRethrow UnavailablePolicy = iota

	// PolicySuspend holds the call in StateSuspended until its context ends.
	// Only an external action (a reload, a new context) releases it.
	PolicySuspend
)

func (p UnavailablePolicy) String() string {
	if p == PolicySuspend {
		return "suspend"
	}
	return "rethrow"
}

// TxDecoder turns finalized transaction bytes into a transaction
type TxDecoder func(raw []byte) (*transaction.Transaction, error)

// Default wallet unavailable notice texts
const (
	DefaultUnavailableTitle   = "This action requires a BRC-100 wallet"
	DefaultUnavailableMessage = "Connect a BRC-100 compatible wallet (MetaNet). Install one, then return to retry."
	DefaultUnavailableCTAText = "Get a Wallet"
	DefaultUnavailableCTAHref = "https://GetMetanet.com"
)

// config holds resolved construction options
type config struct {
	developerIdentity string
	developerSatoshis uint64

	funder    Funder
	presenter WalletUnavailablePresenter
	policy    UnavailablePolicy
	fallbacks map[Operation]struct{}

	relay         MessageRelay
	pending       PendingStore
	pendingTTL    time.Duration
	nonces        NonceSource
	decoder       TxDecoder
	clock         clock.Clock
	notifyTimeout time.Duration
	notice        WalletUnavailableNotice
	observer      StateObserver
	originator    string
}

func defaultConfig() *config {
	return &config{
		policy:        PolicyRethrow,
		fallbacks:     make(map[Operation]struct{}),
		pendingTTL:    DefaultPendingTTL,
		notifyTimeout: DefaultNotifyTimeout,
		notice: WalletUnavailableNotice{
			Title:   DefaultUnavailableTitle,
			Message: DefaultUnavailableMessage,
			CTAText: DefaultUnavailableCTAText,
			CTAHref: DefaultUnavailableCTAHref,
		},
	}
}

// Option configures a FundedWallet
type Option func(*config)

// WithDeveloperFee adds a developer fee output to every action. It only
// takes effect for a valid 66 character identity key and a positive amount.
func WithDeveloperFee(identity string, satoshis uint64) Option {
	return func(c *config) {
		c.developerIdentity = identity
		c.developerSatoshis = satoshis
	}
}

// WithFunder sets the funding interaction run on insufficient funds. Without
// one, insufficient funds errors are returned as is.
func WithFunder(funder Funder) Option {
	return func(c *config) {
		c.funder = funder
	}
}

// WithWalletUnavailablePresenter sets who renders the wallet unavailable notice
func WithWalletUnavailablePresenter(presenter WalletUnavailablePresenter) Option {
	return func(c *config) {
		c.presenter = presenter
	}
}

// WithWalletUnavailablePolicy chooses between suspending and returning the error
func WithWalletUnavailablePolicy(policy UnavailablePolicy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithReadOnlyFallbacks makes the given read-only operations return a
// placeholder result when the wallet is unavailable. With no arguments every
// operation with a placeholder is enabled.
func WithReadOnlyFallbacks(ops ...Operation) Option {
	return func(c *config) {
		if len(ops) == 0 {
			ops = FallbackOperations()
		}
		for _, op := range ops {
			if _, ok := placeholders[op]; ok {
				c.fallbacks[op] = struct{}{}
			}
		}
	}
}

// WithMessageRelay sets the relay used to notify fee recipients
func WithMessageRelay(relay MessageRelay) Option {
	return func(c *config) {
		c.relay = relay
	}
}

// WithPendingStore replaces the in-memory store of fee outputs awaiting signature
func WithPendingStore(store PendingStore) Option {
	return func(c *config) {
		c.pending = store
	}
}

// WithPendingTTL sets how long the default store keeps unsigned fee outputs
func WithPendingTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.pendingTTL = ttl
	}
}

// WithNonceSource replaces the wallet bound nonce source
func WithNonceSource(src NonceSource) Option {
	return func(c *config) {
		c.nonces = src
	}
}

// WithTxDecoder replaces the decoder for finalized transaction bytes
func WithTxDecoder(decoder TxDecoder) Option {
	return func(c *config) {
		c.decoder = decoder
	}
}

// WithClock sets the clock used for expiry and timing
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.clock = clk
	}
}

// WithNotifyTimeout bounds each payment notification delivery
func WithNotifyTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.notifyTimeout = timeout
	}
}

// WithWalletUnavailableText overrides the notice texts. Empty values keep
// the defaults.
func WithWalletUnavailableText(title, message, ctaText, ctaHref string) Option {
	return func(c *config) {
		if title != "" {
			c.notice.Title = title
		}
		if message != "" {
			c.notice.Message = message
		}
		if ctaText != "" {
			c.notice.CTAText = ctaText
		}
		if ctaHref != "" {
			c.notice.CTAHref = ctaHref
		}
	}
}

// WithStateObserver receives every orchestrator state transition
func WithStateObserver(observer StateObserver) Option {
	return func(c *config) {
		c.observer = observer
	}
}

// WithNonceOriginator sets the originator used for nonce HMAC requests
func WithNonceOriginator(originator string) Option {
	return func(c *config) {
		c.originator = originator
	}
}
