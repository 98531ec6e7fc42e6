package babbage

import (
	"context"
	"time"
)

// ============================================================================
// Hook Context Types
// ============================================================================

// CreateActionContext is passed to create action hooks. Args is the request
// after fee outputs were added.
type CreateActionContext struct {
	Ctx        context.Context
	Args       CreateActionArgs
	Originator string
	Nonce      DerivationNonce
	Attempt    int
	Timestamp  time.Time
}

// CreateActionResultContext contains a successful create action and its context
type CreateActionResultContext struct {
	CreateActionContext
	Result   *CreateActionResult
	Deferred bool
	Duration time.Duration
}

// WalletUnavailableContext describes an operation that found no usable wallet
type WalletUnavailableContext struct {
	Ctx       context.Context
	Operation string
	Reason    string
	Error     error
	Policy    UnavailablePolicy
}

// FundingResolvedContext describes the end of a funding interaction
type FundingResolvedContext struct {
	Ctx      context.Context
	Request  FundingRequest
	Outcome  FundingOutcome
	Error    error
	Duration time.Duration
}

// NotifyContext describes a delivered payment notification
type NotifyContext struct {
	Recipient string
	Token     PaymentToken
	Duration  time.Duration
}

// NotifyFailureContext describes a payment notification that could not be
// delivered
type NotifyFailureContext struct {
	NotifyContext
	Error error
}

// ============================================================================
// Hook Result Types
// ============================================================================

// BeforeHookResult represents the result of a "before" hook.
// If Abort is true, the action is aborted with the given Reason.
type BeforeHookResult struct {
	Abort  bool
	Reason string
}

// ============================================================================
// Hook Function Types
// ============================================================================

// BeforeCreateActionHook runs after fee outputs are added and before the wallet is called
type BeforeCreateActionHook func(CreateActionContext) (*BeforeHookResult, error)

// AfterCreateActionHook runs after the wallet accepts an action
type AfterCreateActionHook func(CreateActionResultContext) error

// OnWalletUnavailableHook runs whenever an operation finds no usable wallet
type OnWalletUnavailableHook func(WalletUnavailableContext) error

// OnFundingResolvedHook runs when a funding interaction completes
type OnFundingResolvedHook func(FundingResolvedContext) error

// AfterNotifyHook runs after a payment notification was delivered
type AfterNotifyHook func(NotifyContext) error

// OnNotifyFailureHook runs after a payment notification failed
type OnNotifyFailureHook func(NotifyFailureContext) error

// hookSet holds registered hooks. Hook errors are logged and ignored.
type hookSet struct {
	beforeCreateAction  []BeforeCreateActionHook
	afterCreateAction   []AfterCreateActionHook
	onWalletUnavailable []OnWalletUnavailableHook
	onFundingResolved   []OnFundingResolvedHook
	afterNotify         []AfterNotifyHook
	onNotifyFailure     []OnNotifyFailureHook
}

// ============================================================================
// Hook Registration Methods
// ============================================================================

// OnBeforeCreateAction registers a hook to execute before each wallet create call
func (w *FundedWallet) OnBeforeCreateAction(hook BeforeCreateActionHook) *FundedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks.beforeCreateAction = append(w.hooks.beforeCreateAction, hook)
	return w
}

// OnAfterCreateAction registers a hook to execute after a successful create call
func (w *FundedWallet) OnAfterCreateAction(hook AfterCreateActionHook) *FundedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks.afterCreateAction = append(w.hooks.afterCreateAction, hook)
	return w
}

// OnWalletUnavailable registers a hook to execute when no usable wallet is found
func (w *FundedWallet) OnWalletUnavailable(hook OnWalletUnavailableHook) *FundedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks.onWalletUnavailable = append(w.hooks.onWalletUnavailable, hook)
	return w
}

// OnFundingResolved registers a hook to execute when a funding interaction ends
func (w *FundedWallet) OnFundingResolved(hook OnFundingResolvedHook) *FundedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks.onFundingResolved = append(w.hooks.onFundingResolved, hook)
	return w
}

// OnAfterNotify registers a hook to execute after a payment notification is sent
func (w *FundedWallet) OnAfterNotify(hook AfterNotifyHook) *FundedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks.afterNotify = append(w.hooks.afterNotify, hook)
	return w
}

// OnNotifyFailure registers a hook to execute when a payment notification fails
func (w *FundedWallet) OnNotifyFailure(hook OnNotifyFailureHook) *FundedWallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hooks.onNotifyFailure = append(w.hooks.onNotifyFailure, hook)
	return w
}

// snapshotHooks copies the registered hooks so they can run without the lock
func (w *FundedWallet) snapshotHooks() hookSet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return hookSet{
		beforeCreateAction:  append([]BeforeCreateActionHook(nil), w.hooks.beforeCreateAction...),
		afterCreateAction:   append([]AfterCreateActionHook(nil), w.hooks.afterCreateAction...),
		onWalletUnavailable: append([]OnWalletUnavailableHook(nil), w.hooks.onWalletUnavailable...),
		onFundingResolved:   append([]OnFundingResolvedHook(nil), w.hooks.onFundingResolved...),
		afterNotify:         append([]AfterNotifyHook(nil), w.hooks.afterNotify...),
		onNotifyFailure:     append([]OnNotifyFailureHook(nil), w.hooks.onNotifyFailure...),
	}
}
