package funding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	babbage "github.com/babbage/go"
)

// ShopFunder tops up the wallet by buying satoshis from the purchase service.
// Each call to Fund runs one funding session in its own dialog.
type ShopFunder struct {
	cfg Config
}

// NewShopFunder creates a funder from cfg
func NewShopFunder(cfg Config) (*ShopFunder, error) {
	resolved, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &ShopFunder{cfg: resolved}, nil
}

// Fund runs a funding session for req. It returns OutcomeRetry once the
// delivered satoshis cover the shortfall, OutcomeTimedOut when a paid purchase
// is never acknowledged, and OutcomeCancel otherwise.
func (f *ShopFunder) Fund(ctx context.Context, req babbage.FundingRequest) (babbage.FundingOutcome, error) {
	dialog, err := f.cfg.Dialogs.Open(ctx, Intro{
		Title:             f.cfg.Texts.Title,
		Text:              f.cfg.Texts.IntroText,
		ActionDescription: req.ActionDescription,
		CancelText:        f.cfg.Texts.CancelText,
	})
	if err != nil {
		return babbage.OutcomeCancel, fmt.Errorf("failed to open funding dialog: %w", err)
	}
	defer dialog.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		id:          uuid.NewString(),
		cfg:         f.cfg,
		dialog:      dialog,
		description: req.ActionDescription,
		needed:      req.Shortfall,
	}
	go s.watchCancel(ctx, cancel)

	log.Infof("Funding session %s started, %d satoshis needed", s.id, s.needed)

	outcome, err := s.run(ctx)
	if err != nil && s.cancelledByUser.Load() {
		outcome, err = babbage.OutcomeCancel, ErrUserCancelled
	}

	log.Infof("Funding session %s resolved: %s", s.id, outcome)
	return outcome, err
}

// ============================================================================
// Session
// ============================================================================

// session is the state of one funding dialog. needed only ever decreases.
type session struct {
	id          string
	cfg         Config
	dialog      Dialog
	description string
	needed      uint64

	// currentReference is a paid purchase whose delivery is not yet
	// confirmed
	currentReference string

	cancelledByUser atomic.Bool
}

// watchCancel cancels the session context when the user dismisses the dialog
func (s *session) watchCancel(ctx context.Context, cancel context.CancelFunc) {
	select {
	case <-s.dialog.Cancelled():
		s.cancelledByUser.Store(true)
		cancel()
	case <-ctx.Done():
	}
}

func (s *session) run(ctx context.Context) (babbage.FundingOutcome, error) {
	quote, err := s.loadQuote(ctx)
	if err != nil {
		return s.stall(ctx, err)
	}

	s.recoverPending(ctx, quote.PendingReferences)
	if err := ctx.Err(); err != nil {
		return babbage.OutcomeCancel, err
	}

	if s.needed == 0 {
		s.show(Status{
			Kind: StatusFunded,
			Text: fmt.Sprintf("You now have enough satoshis to %s.", s.actionText()),
		})
		return s.resolveRetry(ctx)
	}

	if s.needed > quote.MaximumSatoshis {
		s.show(Status{
			Kind: StatusLimit,
			Text: fmt.Sprintf("Your current limit of %d satoshis prevents you from being able "+
				"to retry this action. Please pursue other funding options for your wallet. "+
				"An additional %d satoshis are required.", quote.MaximumSatoshis, s.needed),
		})
	}

	for {
		var delivered uint64
		if s.currentReference != "" {
			// A paid purchase is resumed before anything new is bought.
			if err := s.dialog.RetryDelivery(ctx, RetryPrompt{
				Reference: s.currentReference,
				Text: fmt.Sprintf("Your payment for purchase %s succeeded, but the "+
					"delivery of your satoshis could not be confirmed.", s.currentReference),
				ActionText: "Check again",
			}); err != nil {
				return babbage.OutcomeCancel, err
			}
			delivered, err = s.awaitDelivery(ctx, s.currentReference)
		} else {
			if expired(quote, s.cfg.Clock.Now()) {
				log.Warnf("Funding session %s: quote %s expired, reloading", s.id, quote.QuoteID)
				quote, err = s.loadQuote(ctx)
				if err != nil {
					return s.stall(ctx, err)
				}
			}
			delivered, err = s.selectAndPurchase(ctx, quote)
		}

		switch {
		case errors.Is(err, errNoOptions):
			return babbage.OutcomeCancel, ErrNoPurchaseOptions
		case errors.Is(err, ErrCompletionTimeout):
			return babbage.OutcomeTimedOut, err
		case ctx.Err() != nil:
			return babbage.OutcomeCancel, ctx.Err()
		case err != nil:
			log.Warnf("Funding session %s: %v", s.id, err)
			s.show(Status{Kind: StatusError, Text: err.Error(), Reference: s.currentReference})
			continue
		}

		s.needed = subtract(s.needed, delivered)
		if s.needed == 0 {
			s.show(Status{
				Kind:     StatusAdded,
				Text:     fmt.Sprintf("Success! +%d satoshis added", delivered),
				Satoshis: delivered,
			})
			return s.resolveRetry(ctx)
		}

		s.show(Status{
			Kind: StatusAdded,
			Text: fmt.Sprintf("Success! %d satoshis added. You now need %d more satoshis.",
				delivered, s.needed),
			Satoshis: delivered,
		})
	}
}

// errNoOptions ends the session once the reason was shown
var errNoOptions = errors.New("no purchase options")

// selectAndPurchase offers the amounts for the current need and buys the
// chosen one
func (s *session) selectAndPurchase(ctx context.Context, q *Quote) (uint64, error) {
	options := AmountOptions(q, s.cfg.USDOptions, s.needed)
	if len(options) == 0 {
		s.show(Status{
			Kind: StatusNoOptions,
			Text: "You are unable to purchase more satoshis at this time.",
		})
		if err := s.sleep(ctx, s.cfg.ResolveDelay); err != nil {
			return 0, err
		}
		return 0, errNoOptions
	}

	choice, err := s.dialog.SelectAmount(ctx, AmountPrompt{
		Options:        options,
		Needed:         s.needed,
		SatoshisPerUSD: q.SatoshisPerUSD,
		ValidMinutes:   validMinutes(q, s.cfg.Clock.Now()),
	})
	if err != nil {
		return 0, err
	}
	return s.purchase(ctx, q, choice)
}

func (s *session) loadQuote(ctx context.Context) (*Quote, error) {
	s.show(Status{Kind: StatusLoading, Text: "Loading purchase options…"})

	quote, err := s.cfg.Shop.StartShopping(ctx)
	if err != nil {
		return nil, &PurchaseServiceError{Op: "startShopping", Err: err}
	}
	log.Debugf("Funding session %s: quote %s at %.2f sats/USD, limits %d..%d, %d pending",
		s.id, quote.QuoteID, quote.SatoshisPerUSD, quote.MinimumSatoshis,
		quote.MaximumSatoshis, len(quote.PendingReferences))
	return quote, nil
}

// recoverPending completes purchases left over from earlier sessions. A
// failure is reported to the user and does not stop the session.
func (s *session) recoverPending(ctx context.Context, references []string) {
	if len(references) == 0 {
		return
	}
	s.show(Status{Kind: StatusRecovering, Text: "Processing previous purchases…"})

	for _, ref := range references {
		if ctx.Err() != nil {
			return
		}

		status, err := s.cfg.Shop.CompleteBuy(ctx, ref)
		switch {
		case err != nil:
			log.Warnf("Funding session %s: failed to complete pending purchase %s: %v", s.id, ref, err)
			s.show(Status{
				Kind:      StatusRecoveryFailed,
				Text:      fmt.Sprintf("Prior purchase with reference %s could not be processed.", ref),
				Reference: ref,
			})
		case status.Satoshis > 0:
			s.needed = subtract(s.needed, status.Satoshis)
			s.show(Status{
				Kind:      StatusRecovered,
				Text:      fmt.Sprintf("Processed prior purchase of %d satoshis.", status.Satoshis),
				Satoshis:  status.Satoshis,
				Reference: ref,
			})
		default:
			s.show(Status{
				Kind:      StatusStillPending,
				Text:      fmt.Sprintf("Prior purchase with reference %s is still pending.", ref),
				Reference: ref,
			})
		}
	}
}

// purchase buys choice and waits for delivery, returning the satoshis the
// shop acknowledged
func (s *session) purchase(ctx context.Context, quote *Quote, choice AmountOption) (uint64, error) {
	s.show(Status{Kind: StatusPreparing, Text: "Preparing payment…"})

	buy, err := s.cfg.Shop.InitiateBuy(ctx, InitiateBuyRequest{
		NumberOfSatoshis:            choice.Satoshis,
		QuoteID:                     quote.QuoteID,
		CustomerAcceptsPaymentTerms: s.cfg.TermsAcceptance,
	})
	if err != nil {
		return 0, &PurchaseServiceError{Op: "initiateBuy", Err: err}
	}

	s.show(Status{
		Kind:      StatusConfirming,
		Text:      "Confirming with your bank…",
		Reference: buy.Reference,
	})
	err = s.cfg.Payments.ConfirmPayment(ctx, ConfirmRequest{
		ClientSecret: buy.ClientSecret,
		Reference:    buy.Reference,
		USD:          choice.USD,
		Satoshis:     choice.Satoshis,
	})
	if err != nil {
		return 0, fmt.Errorf("payment failed: %w", err)
	}
	s.currentReference = buy.Reference

	s.show(Status{
		Kind:      StatusDelivering,
		Text:      "Payment successful! Delivering satoshis…",
		Reference: buy.Reference,
	})
	return s.awaitDelivery(ctx, buy.Reference)
}

// awaitDelivery polls the shop until the purchase is acknowledged. The first
// poll is immediate, later polls follow the ticker.
func (s *session) awaitDelivery(ctx context.Context, reference string) (uint64, error) {
	t := s.cfg.NewTicker(s.cfg.PollInterval)
	t.Resume()
	defer t.Stop()

	for attempt := 1; ; attempt++ {
		status, err := s.cfg.Shop.CompleteBuy(ctx, reference)
		if err != nil {
			return 0, &PurchaseServiceError{Op: "completeBuy", Reference: reference, Err: err}
		}
		if status.Acknowledged() {
			log.Infof("Funding session %s: purchase %s delivered %d satoshis",
				s.id, reference, status.Satoshis)
			s.currentReference = ""
			return status.Satoshis, nil
		}
		if attempt >= s.cfg.MaxPollAttempts {
			log.Warnf("Funding session %s: purchase %s not acknowledged after %d polls",
				s.id, reference, attempt)
			return 0, ErrCompletionTimeout
		}

		s.show(Status{
			Kind:      StatusDelivering,
			Text:      "Delivering satoshis…",
			Reference: reference,
		})

		select {
		case <-t.Ticks():
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// stall shows err and keeps the dialog open until the user cancels. Service
// failures are never retried automatically.
func (s *session) stall(ctx context.Context, err error) (babbage.FundingOutcome, error) {
	log.Warnf("Funding session %s: %v", s.id, err)
	s.show(Status{Kind: StatusError, Text: fmt.Sprintf("Error: %v", err)})

	<-ctx.Done()
	return babbage.OutcomeCancel, err
}

func (s *session) resolveRetry(ctx context.Context) (babbage.FundingOutcome, error) {
	if err := s.sleep(ctx, s.cfg.ResolveDelay); err != nil {
		return babbage.OutcomeCancel, err
	}
	return babbage.OutcomeRetry, nil
}

func (s *session) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-s.cfg.Clock.TickAfter(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) show(status Status) {
	status.Needed = s.needed
	s.dialog.ShowStatus(status)
}

func (s *session) actionText() string {
	if s.description == "" {
		return "complete this action"
	}
	return s.description
}
