package babbage

import (
	"errors"
	"regexp"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrorKind is the recovery class of a wallet error
type ErrorKind int

const (
	// KindUnrelated errors are returned to the caller untouched
	KindUnrelated ErrorKind = iota
	// KindWalletUnavailable means the wallet is absent, locked or unauthenticated
	KindWalletUnavailable
	// KindInsufficientFunds means the wallet cannot cover the action
	KindInsufficientFunds
)

func (k ErrorKind) String() string {
	switch k {
	case KindWalletUnavailable:
		return "wallet_unavailable"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unrelated"
	}
}

// Classification is the result of classifying one error
type Classification struct {
	Kind ErrorKind

	// Reason is the code or message that identified a wallet unavailable error
	Reason string

	// Shortfall is the number of satoshis missing, when the wallet said so
	Shortfall fn.Option[uint64]
}

var (
	noWalletPattern          = regexp.MustCompile(`(?i)no wallet available.*install a wallet`)
	insufficientFundsPattern = regexp.MustCompile(`(?i)insufficient funds`)

	unavailableCodes = map[string]struct{}{
		ErrCodeWalletNotConnected:   {},
		ErrCodeAuthenticationFailed: {},
		ErrCodeWalletLocked:         {},
	}
)

// Classify labels an error. Structured codes are consulted first and the
// error message is matched against known phrasings as a fallback.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindUnrelated}
	}

	var code string
	var coder errorCoder
	if errors.As(err, &coder) {
		code = normalizeCode(coder.ErrorCode())
	}
	message := err.Error()

	if _, ok := unavailableCodes[code]; ok {
		return Classification{Kind: KindWalletUnavailable, Reason: code}
	}

	if noWalletPattern.MatchString(message) {
		return Classification{Kind: KindWalletUnavailable, Reason: message}
	}

	var fundsErr *InsufficientFundsError
	if errors.As(err, &fundsErr) {
		return Classification{
			Kind:      KindInsufficientFunds,
			Shortfall: fn.Some(fundsErr.MoreSatoshisNeeded),
		}
	}

	if code == ErrCodeInsufficientFunds || insufficientFundsPattern.MatchString(message) {
		return Classification{
			Kind:      KindInsufficientFunds,
			Shortfall: shortfallFromDetails(err),
		}
	}

	return Classification{Kind: KindUnrelated}
}

// shortfallFromDetails reads moreSatoshisNeeded from WalletError details
func shortfallFromDetails(err error) fn.Option[uint64] {
	var walletErr *WalletError
	if !errors.As(err, &walletErr) || walletErr.Details == nil {
		return fn.None[uint64]()
	}

	switch v := walletErr.Details["moreSatoshisNeeded"].(type) {
	case float64:
		if v > 0 {
			return fn.Some(uint64(v))
		}
	case int:
		if v > 0 {
			return fn.Some(uint64(v))
		}
	case int64:
		if v > 0 {
			return fn.Some(uint64(v))
		}
	case uint64:
		if v > 0 {
			return fn.Some(v)
		}
	}
	return fn.None[uint64]()
}
