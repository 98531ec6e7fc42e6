package babbage

import (
	"errors"
	"fmt"
	"strings"
)

// WalletError is a wallet-specific error carrying a machine readable code
type WalletError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the structured code of the error
func (e *WalletError) ErrorCode() string {
	return e.Code
}

// Wallet error codes recognised by the classifier. Wallets may also report
// them with a WERR_ or ERR_ prefix.
const (
	ErrCodeWalletNotConnected   = "WALLET_NOT_CONNECTED"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeWalletLocked         = "WALLET_LOCKED"
	ErrCodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
)

// NewWalletError creates a new wallet error
func NewWalletError(code, message string, details map[string]interface{}) *WalletError {
	return &WalletError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// InsufficientFundsError is returned by wallets that know how many satoshis
// the failed action was short by.
type InsufficientFundsError struct {
	TotalSatoshisNeeded uint64 `json:"totalSatoshisNeeded"`
	MoreSatoshisNeeded  uint64 `json:"moreSatoshisNeeded"`
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in the available inputs to cover the cost of the "+
		"required outputs and the transaction fee (%d more satoshis are needed, for a total of %d)",
		e.MoreSatoshisNeeded, e.TotalSatoshisNeeded)
}

// ErrorCode returns the structured code of the error
func (e *InsufficientFundsError) ErrorCode() string {
	return "WERR_" + ErrCodeInsufficientFunds
}

// KeyDerivationError reports a failed or malformed fee key derivation. It is
// fatal to the action that triggered it and never retried.
type KeyDerivationError struct {
	Counterparty string
	Err          error
}

func (e *KeyDerivationError) Error() string {
	return fmt.Sprintf("failed to derive fee key for counterparty %s: %v", e.Counterparty, e.Err)
}

func (e *KeyDerivationError) Unwrap() error {
	return e.Err
}

var (
	// ErrScriptCollision is returned when an injected fee output would share
	// its locking script with another output of the same action, or with a
	// fee output still awaiting signature.
	ErrScriptCollision = errors.New("fee output locking script collides with another output")

	// ErrWalletSuspended is joined with the original error when an action
	// held in the suspended state is released by its context.
	ErrWalletSuspended = errors.New("action suspended until the wallet becomes available")

	// ErrDeveloperIsBase is returned when the developer fee identity equals
	// the base fee identity.
	ErrDeveloperIsBase = errors.New("developer fee identity must differ from the base fee identity")
)

// errorCoder is implemented by errors that carry a structured code
type errorCoder interface {
	ErrorCode() string
}

// normalizeCode strips WERR_/ERR_ prefixes and upper-cases the code
func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.TrimPrefix(code, "WERR_")
	code = strings.TrimPrefix(code, "ERR_")
	return code
}
