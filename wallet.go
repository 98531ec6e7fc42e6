package babbage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/babbage/go/beef"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ActionState is a step of the orchestrator state machine for one call
type ActionState int

const (
	StateCreating ActionState = iota
	StateFunding
	StateRetrying
	StateSuspended
	StateDone
	StateFailed
)

func (s ActionState) String() string {
	switch s {
	case StateCreating:
		return "creating"
	case StateFunding:
		return "funding"
	case StateRetrying:
		return "retrying"
	case StateSuspended:
		return "suspended"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

// StateObserver is told about every state transition of every call
type StateObserver func(op Operation, state ActionState)

// ActionAbortedError is returned when a before hook aborts an action
type ActionAbortedError struct {
	Reason string
}

func (e *ActionAbortedError) Error() string {
	return fmt.Sprintf("action aborted by hook: %s", e.Reason)
}

// ErrNilWallet is returned by New without a wallet
var ErrNilWallet = errors.New("a wallet is required")

// FundedWallet wraps a BRC-100 wallet. CreateAction adds fee outputs and
// recovers from missing wallets and missing funds; SignAction settles fee
// outputs of deferred actions. Every other operation passes through with
// the same wallet unavailable handling.
type FundedWallet struct {
	mu sync.RWMutex

	wallet   Wallet
	hydrator *hydrator
	pending  PendingStore
	notifier *notifier
	decoder  TxDecoder
	clock    clock.Clock

	funder    Funder
	presenter WalletUnavailablePresenter
	policy    UnavailablePolicy
	fallbacks map[Operation]struct{}
	notice    WalletUnavailableNotice
	observer  StateObserver

	hooks hookSet

	suspended   atomic.Int32
	noticeShown atomic.Bool
}

var _ Wallet = (*FundedWallet)(nil)

// New wraps wallet. An invalid developer fee is ignored; a developer fee
// paying the base identity is rejected.
func New(wallet Wallet, opts ...Option) (*FundedWallet, error) {
	if wallet == nil {
		return nil, ErrNilWallet
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.clock == nil {
		cfg.clock = clock.NewDefaultClock()
	}
	if cfg.nonces == nil {
		cfg.nonces = &WalletNonceSource{Wallet: wallet, Originator: cfg.originator}
	}
	if cfg.decoder == nil {
		cfg.decoder = beef.DecodeTransaction
	}
	if cfg.pending == nil {
		cfg.pending = NewMemoryPendingStore(cfg.pendingTTL, cfg.clock)
	}

	developer, err := resolveDeveloper(cfg.developerIdentity, cfg.developerSatoshis)
	if err != nil {
		return nil, err
	}

	w := &FundedWallet{
		wallet: wallet,
		hydrator: &hydrator{
			wallet:    wallet,
			nonces:    cfg.nonces,
			base:      FeeRecipient{Amount: BaseFeeSatoshis, Identity: BaseFeeIdentity},
			developer: developer,
		},
		pending:   cfg.pending,
		decoder:   cfg.decoder,
		clock:     cfg.clock,
		funder:    cfg.funder,
		presenter: cfg.presenter,
		policy:    cfg.policy,
		fallbacks: cfg.fallbacks,
		notice:    cfg.notice,
		observer:  cfg.observer,
	}
	w.notifier = newNotifier(cfg.relay, cfg.notifyTimeout, cfg.clock, w.snapshotHooks)

	return w, nil
}

// resolveDeveloper validates the developer fee settings
func resolveDeveloper(identity string, satoshis uint64) (fn.Option[FeeRecipient], error) {
	if identity == "" && satoshis == 0 {
		return fn.None[FeeRecipient](), nil
	}
	if satoshis == 0 || !IsIdentityKey(identity) {
		log.Warnf("Ignoring developer fee: need a 66 character identity key and a positive amount")
		return fn.None[FeeRecipient](), nil
	}
	if identity == BaseFeeIdentity {
		return fn.None[FeeRecipient](), ErrDeveloperIsBase
	}
	return fn.Some(FeeRecipient{Amount: satoshis, Identity: identity}), nil
}

// Unwrap returns the wrapped wallet
func (w *FundedWallet) Unwrap() Wallet {
	return w.wallet
}

// Suspended returns the number of calls currently held in StateSuspended
func (w *FundedWallet) Suspended() int {
	return int(w.suspended.Load())
}

// PendingFeeOutputs returns the number of fee outputs awaiting signature
func (w *FundedWallet) PendingFeeOutputs() int {
	return w.pending.Len()
}

// Close waits for in-flight payment notifications and stops sending new ones
func (w *FundedWallet) Close() {
	w.notifier.stop()
}

func (w *FundedWallet) transition(op Operation, state ActionState) {
	log.Tracef("%s -> %s", op, state)
	if w.observer != nil {
		w.observer(op, state)
	}
}

// ============================================================================
// Create Action
// ============================================================================

// CreateAction adds the fee outputs to args and creates the action. On
// insufficient funds the funder runs once and, if it reports a retry, the
// action is attempted exactly one more time. Errors that are not recovered
// are returned unchanged.
func (w *FundedWallet) CreateAction(ctx context.Context, args CreateActionArgs, originator string) (*CreateActionResult, error) {
	w.transition(OpCreateAction, StateCreating)

	result, hydration, err := w.createOnce(ctx, args, originator, 1)
	if err == nil {
		w.answered(ctx)
		w.transition(OpCreateAction, StateDone)
		return result, nil
	}

	var kdErr *KeyDerivationError
	if errors.As(err, &kdErr) || errors.Is(err, ErrScriptCollision) {
		if Classify(err).Kind == KindWalletUnavailable {
			return nil, w.unavailable(ctx, OpCreateAction, Classify(err), err)
		}
		w.transition(OpCreateAction, StateFailed)
		return nil, err
	}

	class := Classify(err)
	switch class.Kind {
	case KindWalletUnavailable:
		return nil, w.unavailable(ctx, OpCreateAction, class, err)

	case KindInsufficientFunds:
		w.transition(OpCreateAction, StateFunding)
		if w.fund(ctx, args, hydration, class, err) != OutcomeRetry {
			w.transition(OpCreateAction, StateFailed)
			return nil, err
		}

		w.transition(OpCreateAction, StateRetrying)
		result, _, retryErr := w.createOnce(ctx, args, originator, 2)
		if retryErr != nil {
			retryClass := Classify(retryErr)
			if retryClass.Kind == KindWalletUnavailable {
				return nil, w.unavailable(ctx, OpCreateAction, retryClass, retryErr)
			}
			log.Infof("Retry of %q failed, not funding again: %v", args.Description, retryErr)
			w.transition(OpCreateAction, StateFailed)
			return nil, retryErr
		}
		w.answered(ctx)
		w.transition(OpCreateAction, StateDone)
		return result, nil

	default:
		w.transition(OpCreateAction, StateFailed)
		return nil, err
	}
}

// createOnce hydrates args and makes a single create call
func (w *FundedWallet) createOnce(ctx context.Context, args CreateActionArgs, originator string, attempt int) (*CreateActionResult, *Hydration, error) {
	hydration, err := w.hydrator.hydrate(ctx, args, originator)
	if err != nil {
		return nil, nil, err
	}
	if err := w.checkPending(hydration); err != nil {
		return nil, nil, err
	}

	hooks := w.snapshotHooks()
	actionCtx := CreateActionContext{
		Ctx:        ctx,
		Args:       hydration.Args,
		Originator: originator,
		Nonce:      hydration.Nonce,
		Attempt:    attempt,
		Timestamp:  w.clock.Now(),
	}

	for _, hook := range hooks.beforeCreateAction {
		res, err := hook(actionCtx)
		if err != nil {
			log.Debugf("Before create action hook error: %v", err)
			continue
		}
		if res != nil && res.Abort {
			return nil, hydration, &ActionAbortedError{Reason: res.Reason}
		}
	}

	start := w.clock.Now()
	result, err := w.wallet.CreateAction(ctx, hydration.Args, originator)
	if err != nil {
		return nil, hydration, err
	}
	if result == nil {
		result = &CreateActionResult{}
	}

	deferred := result.SignableTransaction != nil
	if deferred {
		w.trackDeferred(hydration, result.SignableTransaction.Reference)
	} else {
		w.notifyImmediate(hydration, result.Tx)
	}

	resultCtx := CreateActionResultContext{
		CreateActionContext: actionCtx,
		Result:              result,
		Deferred:            deferred,
		Duration:            w.clock.Now().Sub(start),
	}
	for _, hook := range hooks.afterCreateAction {
		if err := hook(resultCtx); err != nil {
			log.Debugf("After create action hook error: %v", err)
		}
	}

	return result, hydration, nil
}

// fund runs the funder for an insufficient funds error
func (w *FundedWallet) fund(ctx context.Context, args CreateActionArgs, hydration *Hydration, class Classification, cause error) FundingOutcome {
	if w.funder == nil {
		log.Infof("No funder configured, returning insufficient funds for %q", args.Description)
		return OutcomeCancel
	}

	shortfall := class.Shortfall.UnwrapOrFunc(func() uint64 {
		if hydration != nil {
			return hydration.TotalSatoshis()
		}
		return 0
	})

	req := FundingRequest{
		ActionDescription: args.Description,
		Shortfall:         shortfall,
		Cause:             cause,
	}

	log.Infof("Funding %q, %d satoshis short", args.Description, shortfall)

	start := w.clock.Now()
	outcome, err := w.funder.Fund(ctx, req)
	if err != nil {
		log.Warnf("Funding of %q ended with %v: %v", args.Description, outcome, err)
	} else {
		log.Infof("Funding of %q resolved: %v", args.Description, outcome)
	}

	resolved := FundingResolvedContext{
		Ctx:      ctx,
		Request:  req,
		Outcome:  outcome,
		Error:    err,
		Duration: w.clock.Now().Sub(start),
	}
	for _, hook := range w.snapshotHooks().onFundingResolved {
		if hookErr := hook(resolved); hookErr != nil {
			log.Debugf("Funding resolved hook error: %v", hookErr)
		}
	}

	return outcome
}

// ============================================================================
// Sign and Abort
// ============================================================================

// SignAction signs a deferred action and notifies the recipients of its fee
// outputs
func (w *FundedWallet) SignAction(ctx context.Context, args SignActionArgs, originator string) (*SignActionResult, error) {
	result, err := w.wallet.SignAction(ctx, args, originator)
	if err != nil {
		return nil, w.handleErr(ctx, OpSignAction, err)
	}
	w.answered(ctx)
	if result != nil {
		w.resolveSigned(args.Reference, result.Tx)
	}
	return result, nil
}

// AbortAction aborts a deferred action and forgets its pending fee outputs
func (w *FundedWallet) AbortAction(ctx context.Context, args AbortActionArgs, originator string) (*AbortActionResult, error) {
	result, err := w.wallet.AbortAction(ctx, args, originator)
	if err != nil {
		return nil, w.handleErr(ctx, OpAbortAction, err)
	}
	w.answered(ctx)
	if dropped := w.pending.DropReference(args.Reference); dropped > 0 {
		log.Debugf("Dropped %d pending fee outputs of aborted action %s", dropped, args.Reference)
	}
	return result, nil
}

// ============================================================================
// Wallet Unavailable Handling
// ============================================================================

// handleErr applies the wallet unavailable policy to err. Any other error is
// returned as is.
func (w *FundedWallet) handleErr(ctx context.Context, op Operation, err error) error {
	class := Classify(err)
	if class.Kind != KindWalletUnavailable {
		return err
	}
	return w.unavailable(ctx, op, class, err)
}

// unavailable presents the notice and then rethrows or suspends
func (w *FundedWallet) unavailable(ctx context.Context, op Operation, class Classification, err error) error {
	w.announceUnavailable(ctx, op, class, err)

	if w.policy != PolicySuspend {
		w.transition(op, StateFailed)
		return err
	}
	return w.suspend(ctx, op, err)
}

// announceUnavailable runs hooks and the presenter
func (w *FundedWallet) announceUnavailable(ctx context.Context, op Operation, class Classification, err error) {
	log.Infof("Wallet unavailable during %s: %s", op, class.Reason)

	hookCtx := WalletUnavailableContext{
		Ctx:       ctx,
		Operation: string(op),
		Reason:    class.Reason,
		Error:     err,
		Policy:    w.policy,
	}
	for _, hook := range w.snapshotHooks().onWalletUnavailable {
		if hookErr := hook(hookCtx); hookErr != nil {
			log.Debugf("Wallet unavailable hook error: %v", hookErr)
		}
	}

	if w.presenter != nil {
		notice := w.notice
		notice.Operation = string(op)
		notice.Reason = class.Reason
		w.presenter.PresentWalletUnavailable(ctx, notice)
		w.noticeShown.Store(true)
	}
}

// answered dismisses a shown notice after the wallet served a call
func (w *FundedWallet) answered(ctx context.Context) {
	if !w.noticeShown.CompareAndSwap(true, false) {
		return
	}
	if dismisser, ok := w.presenter.(WalletAvailablePresenter); ok {
		log.Debugf("Wallet available again, dismissing notice")
		dismisser.DismissWalletUnavailable(ctx)
	}
}

// suspend holds the call until ctx ends. There is no in-process way out.
func (w *FundedWallet) suspend(ctx context.Context, op Operation, err error) error {
	w.suspended.Add(1)
	defer w.suspended.Add(-1)

	w.transition(op, StateSuspended)
	log.Infof("Suspending %s until the wallet becomes available", op)

	<-ctx.Done()
	return errors.Join(ErrWalletSuspended, err)
}
