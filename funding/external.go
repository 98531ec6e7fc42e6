package funding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	babbage "github.com/babbage/go"
)

// LinkPrompt is one step of the external funding flow: a message and a single
// action button
type LinkPrompt struct {
	Text       string `json:"text"`
	ActionText string `json:"actionText"`

	// URL is set while the button still leads to the buy page
	URL string `json:"url,omitempty"`
}

// LinkDialog is an open external funding dialog
type LinkDialog interface {
	// Await shows prompt and blocks until the action button is pressed
	Await(ctx context.Context, prompt LinkPrompt) error

	// Cancelled is closed when the user cancels the dialog
	Cancelled() <-chan struct{}

	// Close dismisses the dialog
	Close()
}

// LinkDialogOpener opens external funding dialogs
type LinkDialogOpener interface {
	OpenLink(ctx context.Context, intro Intro) (LinkDialog, error)
}

// URLOpener opens the buy page for the user
type URLOpener interface {
	OpenURL(ctx context.Context, url string) error
}

// ExternalConfig configures an ExternalFunder
type ExternalConfig struct {
	// Dialogs opens the dialog (required)
	Dialogs LinkDialogOpener

	// Browser opens the buy page (optional)
	Browser URLOpener

	// Texts overrides dialog strings (optional)
	Texts Texts
}

// ExternalFunder sends the user to buy satoshis elsewhere and retries once
// they come back
type ExternalFunder struct {
	dialogs LinkDialogOpener
	browser URLOpener
	texts   Texts
}

// NewExternalFunder creates an external funder
func NewExternalFunder(cfg ExternalConfig) (*ExternalFunder, error) {
	if cfg.Dialogs == nil {
		return nil, errMissingDialogs
	}
	return &ExternalFunder{
		dialogs: cfg.Dialogs,
		browser: cfg.Browser,
		texts:   cfg.Texts.merge(DefaultTexts()),
	}, nil
}

// Fund shows the buy link. The first press opens the buy page and switches
// the dialog to retry mode, the second press resolves OutcomeRetry.
func (f *ExternalFunder) Fund(ctx context.Context, req babbage.FundingRequest) (babbage.FundingOutcome, error) {
	dialog, err := f.dialogs.OpenLink(ctx, Intro{
		Title:             f.texts.Title,
		Text:              f.texts.IntroText,
		ActionDescription: req.ActionDescription,
		CancelText:        f.texts.CancelText,
	})
	if err != nil {
		return babbage.OutcomeCancel, fmt.Errorf("failed to open funding dialog: %w", err)
	}
	defer dialog.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cancelled atomic.Bool
	go func() {
		select {
		case <-dialog.Cancelled():
			cancelled.Store(true)
			cancel()
		case <-ctx.Done():
		}
	}()

	outcome, err := f.run(ctx, dialog)
	if err != nil && cancelled.Load() {
		return babbage.OutcomeCancel, ErrUserCancelled
	}
	return outcome, err
}

func (f *ExternalFunder) run(ctx context.Context, dialog LinkDialog) (babbage.FundingOutcome, error) {
	err := dialog.Await(ctx, LinkPrompt{
		Text:       f.texts.IntroText,
		ActionText: f.texts.BuySatsText,
		URL:        f.texts.BuySatsURL,
	})
	if err != nil {
		return babbage.OutcomeCancel, err
	}

	if f.browser != nil {
		if err := f.browser.OpenURL(ctx, f.texts.BuySatsURL); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("Failed to open %s: %v", f.texts.BuySatsURL, err)
		}
	}

	err = dialog.Await(ctx, LinkPrompt{
		Text:       f.texts.PostPurchaseText,
		ActionText: f.texts.RetryText,
	})
	if err != nil {
		return babbage.OutcomeCancel, err
	}

	log.Infof("External funding resolved: retry")
	return babbage.OutcomeRetry, nil
}
