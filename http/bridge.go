package http

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	babbage "github.com/babbage/go"
	"github.com/babbage/go/funding"
)

// ============================================================================
// Funding Bridge
// ============================================================================

// ErrDialogBusy is returned when a funding dialog is opened while another is
// still showing
var ErrDialogBusy = errors.New("a funding dialog is already open")

// FundingBridge lets a browser front-end render the funding dialogs. The
// session side sees ordinary dialogs; the browser polls GET /funding for the
// current state and answers through the POST routes.
//
// It implements funding.DialogOpener, funding.LinkDialogOpener,
// funding.URLOpener and both wallet notice presenter interfaces.
type FundingBridge struct {
	mu      sync.Mutex
	current *bridgeDialog
	notice  *babbage.WalletUnavailableNotice
	openURL string

	engine *gin.Engine
}

var (
	_ funding.DialogOpener               = (*FundingBridge)(nil)
	_ funding.LinkDialogOpener           = (*FundingBridge)(nil)
	_ funding.URLOpener                  = (*FundingBridge)(nil)
	_ babbage.WalletUnavailablePresenter = (*FundingBridge)(nil)
	_ babbage.WalletAvailablePresenter   = (*FundingBridge)(nil)
)

// NewFundingBridge creates a bridge with its routes registered on a fresh
// gin engine
func NewFundingBridge() *FundingBridge {
	b := &FundingBridge{}

	engine := gin.New()
	engine.Use(gin.Recovery())
	b.Register(engine)
	b.engine = engine

	return b
}

// Handler returns the bridge's HTTP handler
func (b *FundingBridge) Handler() http.Handler {
	return b.engine
}

// Register adds the bridge routes to r
func (b *FundingBridge) Register(r gin.IRouter) {
	r.GET("/funding", b.handleState)
	r.POST("/funding/select", b.handleSelect)
	r.POST("/funding/action", b.handleAction)
	r.POST("/funding/cancel", b.handleCancel)
	r.GET("/wallet/notice", b.handleNotice)
}

// Open shows a shop funding dialog
func (b *FundingBridge) Open(_ context.Context, intro funding.Intro) (funding.Dialog, error) {
	return b.open(intro)
}

// OpenLink shows an external funding dialog
func (b *FundingBridge) OpenLink(_ context.Context, intro funding.Intro) (funding.LinkDialog, error) {
	return b.open(intro)
}

func (b *FundingBridge) open(intro funding.Intro) (*bridgeDialog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil {
		return nil, ErrDialogBusy
	}

	d := &bridgeDialog{
		id:        uuid.NewString(),
		bridge:    b,
		intro:     intro,
		choices:   make(chan funding.AmountOption, 1),
		actions:   make(chan struct{}, 1),
		cancelled: make(chan struct{}),
	}
	b.current = d
	b.openURL = ""

	log.Infof("Funding dialog %s opened", d.id)
	return d, nil
}

// OpenURL asks the browser to open url
func (b *FundingBridge) OpenURL(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.openURL = url
	return nil
}

// PresentWalletUnavailable publishes the notice on GET /wallet/notice
func (b *FundingBridge) PresentWalletUnavailable(_ context.Context, notice babbage.WalletUnavailableNotice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notice = &notice
}

// DismissWalletUnavailable takes the notice down
func (b *FundingBridge) DismissWalletUnavailable(context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notice = nil
}

func (b *FundingBridge) dialog() *bridgeDialog {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *FundingBridge) release(d *bridgeDialog) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == d {
		b.current = nil
		b.openURL = ""
		log.Infof("Funding dialog %s closed", d.id)
	}
}

// ============================================================================
// HTTP Handlers
// ============================================================================

// DialogState is the body of GET /funding
type DialogState struct {
	Open    bool                  `json:"open"`
	ID      string                `json:"id,omitempty"`
	Intro   *funding.Intro        `json:"intro,omitempty"`
	Status  *funding.Status       `json:"status,omitempty"`
	Prompt  *funding.AmountPrompt `json:"prompt,omitempty"`
	Link    *funding.LinkPrompt   `json:"link,omitempty"`
	Retry   *funding.RetryPrompt  `json:"retry,omitempty"`
	OpenURL string                `json:"openUrl,omitempty"`
}

// SelectRequest is the body of POST /funding/select
type SelectRequest struct {
	USD int `json:"usd" binding:"required"`
}

func (b *FundingBridge) handleState(c *gin.Context) {
	b.mu.Lock()
	d, openURL := b.current, b.openURL
	b.mu.Unlock()

	if d == nil {
		c.JSON(http.StatusOK, DialogState{})
		return
	}

	state := d.snapshot()
	state.OpenURL = openURL
	c.JSON(http.StatusOK, state)
}

func (b *FundingBridge) handleSelect(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	d := b.dialog()
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no funding dialog is open"})
		return
	}

	opt, err := d.choose(req.USD)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, opt)
}

func (b *FundingBridge) handleAction(c *gin.Context) {
	d := b.dialog()
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no funding dialog is open"})
		return
	}
	if err := d.press(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (b *FundingBridge) handleCancel(c *gin.Context) {
	d := b.dialog()
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no funding dialog is open"})
		return
	}
	d.cancel()
	c.Status(http.StatusNoContent)
}

func (b *FundingBridge) handleNotice(c *gin.Context) {
	b.mu.Lock()
	notice := b.notice
	b.mu.Unlock()

	if notice == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, notice)
}

// ============================================================================
// Bridged Dialog
// ============================================================================

var (
	errNoPrompt      = errors.New("no amount is being asked for")
	errUnknownAmount = errors.New("amount is not one of the offered options")
	errNoLink        = errors.New("no action is awaited")
)

// bridgeDialog is one dialog shown through the bridge. A pending prompt is
// answered at most once: the answering handler clears it under mu.
type bridgeDialog struct {
	id     string
	bridge *FundingBridge
	intro  funding.Intro

	mu     sync.Mutex
	status *funding.Status
	prompt *funding.AmountPrompt
	link   *funding.LinkPrompt
	retry  *funding.RetryPrompt

	choices    chan funding.AmountOption
	actions    chan struct{}
	cancelled  chan struct{}
	cancelOnce sync.Once
}

func (d *bridgeDialog) ShowStatus(status funding.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = &status
}

func (d *bridgeDialog) SelectAmount(ctx context.Context, prompt funding.AmountPrompt) (funding.AmountOption, error) {
	d.mu.Lock()
	d.prompt = &prompt
	d.mu.Unlock()

	select {
	case opt := <-d.choices:
		return opt, nil
	case <-ctx.Done():
		d.mu.Lock()
		d.prompt = nil
		select {
		case <-d.choices:
		default:
		}
		d.mu.Unlock()
		return funding.AmountOption{}, ctx.Err()
	}
}

func (d *bridgeDialog) Await(ctx context.Context, prompt funding.LinkPrompt) error {
	d.mu.Lock()
	d.link = &prompt
	d.mu.Unlock()

	select {
	case <-d.actions:
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		d.link = nil
		select {
		case <-d.actions:
		default:
		}
		d.mu.Unlock()
		return ctx.Err()
	}
}

// RetryDelivery is answered through POST /funding/action like a link prompt
func (d *bridgeDialog) RetryDelivery(ctx context.Context, prompt funding.RetryPrompt) error {
	d.mu.Lock()
	d.retry = &prompt
	d.mu.Unlock()

	select {
	case <-d.actions:
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		d.retry = nil
		select {
		case <-d.actions:
		default:
		}
		d.mu.Unlock()
		return ctx.Err()
	}
}

func (d *bridgeDialog) Cancelled() <-chan struct{} {
	return d.cancelled
}

func (d *bridgeDialog) Close() {
	d.bridge.release(d)
}

func (d *bridgeDialog) cancel() {
	d.cancelOnce.Do(func() {
		log.Infof("Funding dialog %s cancelled by user", d.id)
		close(d.cancelled)
	})
}

func (d *bridgeDialog) choose(usd int) (funding.AmountOption, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.prompt == nil {
		return funding.AmountOption{}, errNoPrompt
	}
	for _, opt := range d.prompt.Options {
		if opt.USD == usd {
			d.prompt = nil
			d.choices <- opt
			return opt, nil
		}
	}
	return funding.AmountOption{}, errUnknownAmount
}

func (d *bridgeDialog) press() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.link == nil && d.retry == nil {
		return errNoLink
	}
	d.link, d.retry = nil, nil
	d.actions <- struct{}{}
	return nil
}

func (d *bridgeDialog) snapshot() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()

	intro := d.intro
	return DialogState{
		Open:   true,
		ID:     d.id,
		Intro:  &intro,
		Status: d.status,
		Prompt: d.prompt,
		Link:   d.link,
		Retry:  d.retry,
	}
}
