package funding

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
)

// mockShop is a purchase service driven by function fields
type mockShop struct {
	startShopping func(ctx context.Context) (*Quote, error)
	initiateBuy   func(ctx context.Context, req InitiateBuyRequest) (*Purchase, error)
	completeBuy   func(ctx context.Context, reference string) (*CompletionStatus, error)

	mu       sync.Mutex
	buys     []InitiateBuyRequest
	polls    []string
	sessions int
}

func (m *mockShop) StartShopping(ctx context.Context) (*Quote, error) {
	m.mu.Lock()
	m.sessions++
	m.mu.Unlock()

	if m.startShopping != nil {
		return m.startShopping(ctx)
	}
	return testQuote(), nil
}

func (m *mockShop) InitiateBuy(ctx context.Context, req InitiateBuyRequest) (*Purchase, error) {
	m.mu.Lock()
	m.buys = append(m.buys, req)
	n := len(m.buys)
	m.mu.Unlock()

	if m.initiateBuy != nil {
		return m.initiateBuy(ctx, req)
	}
	return &Purchase{Reference: fmt.Sprintf("ref-%d", n), ClientSecret: "secret"}, nil
}

func (m *mockShop) CompleteBuy(ctx context.Context, reference string) (*CompletionStatus, error) {
	m.mu.Lock()
	m.polls = append(m.polls, reference)
	m.mu.Unlock()

	if m.completeBuy != nil {
		return m.completeBuy(ctx, reference)
	}
	return &CompletionStatus{Status: "pending"}, nil
}

func (m *mockShop) buyRequests() []InitiateBuyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]InitiateBuyRequest(nil), m.buys...)
}

func (m *mockShop) pollReferences() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.polls...)
}

func (m *mockShop) pollCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.polls)
}

// deliverFor acknowledges whatever amount was bought under each reference
func (m *mockShop) deliverFor(ctx context.Context, reference string) (*CompletionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, buy := range m.buys {
		if reference == fmt.Sprintf("ref-%d", i+1) {
			return &CompletionStatus{Status: StatusAcknowledged, Satoshis: buy.NumberOfSatoshis}, nil
		}
	}
	return &CompletionStatus{Status: "pending"}, nil
}

func testQuote() *Quote {
	return &Quote{
		SatoshisPerUSD:  1000,
		MinimumSatoshis: 100,
		MaximumSatoshis: 100000,
		QuoteID:         "quote-1",
	}
}

type mockPayments struct {
	confirm func(ctx context.Context, req ConfirmRequest) error

	calls atomic.Int32
}

func (m *mockPayments) ConfirmPayment(ctx context.Context, req ConfirmRequest) error {
	m.calls.Add(1)
	if m.confirm != nil {
		return m.confirm(ctx, req)
	}
	return nil
}

// mockDialog records everything the session shows
type mockDialog struct {
	selectAmount  func(ctx context.Context, prompt AmountPrompt) (AmountOption, error)
	retryDelivery func(ctx context.Context, prompt RetryPrompt) error
	onStatus      func(status Status)

	mu        sync.Mutex
	intro     Intro
	statuses  []Status
	prompts   []AmountPrompt
	retries   []RetryPrompt
	cancelled chan struct{}
	cancelOne sync.Once
	closed    atomic.Bool
}

func newMockDialog() *mockDialog {
	return &mockDialog{cancelled: make(chan struct{})}
}

func (d *mockDialog) Open(ctx context.Context, intro Intro) (Dialog, error) {
	d.mu.Lock()
	d.intro = intro
	d.mu.Unlock()
	return d, nil
}

func (d *mockDialog) ShowStatus(status Status) {
	d.mu.Lock()
	d.statuses = append(d.statuses, status)
	d.mu.Unlock()

	if d.onStatus != nil {
		d.onStatus(status)
	}
}

func (d *mockDialog) SelectAmount(ctx context.Context, prompt AmountPrompt) (AmountOption, error) {
	d.mu.Lock()
	d.prompts = append(d.prompts, prompt)
	d.mu.Unlock()

	if d.selectAmount != nil {
		return d.selectAmount(ctx, prompt)
	}
	return prompt.Options[0], nil
}

func (d *mockDialog) RetryDelivery(ctx context.Context, prompt RetryPrompt) error {
	d.mu.Lock()
	d.retries = append(d.retries, prompt)
	d.mu.Unlock()

	if d.retryDelivery != nil {
		return d.retryDelivery(ctx, prompt)
	}
	return nil
}

func (d *mockDialog) Cancelled() <-chan struct{} {
	return d.cancelled
}

func (d *mockDialog) Close() {
	d.closed.Store(true)
}

func (d *mockDialog) cancel() {
	d.cancelOne.Do(func() { close(d.cancelled) })
}

func (d *mockDialog) recordedStatuses() []Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Status(nil), d.statuses...)
}

func (d *mockDialog) recordedPrompts() []AmountPrompt {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]AmountPrompt(nil), d.prompts...)
}

func (d *mockDialog) recordedRetries() []RetryPrompt {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RetryPrompt(nil), d.retries...)
}

func (d *mockDialog) hasStatus(kind StatusKind) bool {
	for _, s := range d.recordedStatuses() {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// mockTickers hands out lnd force tickers and publishes each one to the test
type mockTickers struct {
	created chan *ticker.Force
}

func newMockTickers() *mockTickers {
	return &mockTickers{created: make(chan *ticker.Force, 8)}
}

func (m *mockTickers) New(time.Duration) ticker.Ticker {
	// A long interval leaves only forced ticks.
	t := ticker.NewForce(time.Hour)
	m.created <- t
	return t
}
