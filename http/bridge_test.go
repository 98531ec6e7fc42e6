package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	babbage "github.com/babbage/go"
	"github.com/babbage/go/funding"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, b *FundingBridge, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)
	return w
}

func state(t *testing.T, b *FundingBridge) DialogState {
	t.Helper()

	w := serve(t, b, http.MethodGet, "/funding", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var s DialogState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

// waitFor polls the bridge state until cond holds
func waitFor(t *testing.T, b *FundingBridge, cond func(DialogState) bool) DialogState {
	t.Helper()

	var s DialogState
	require.Eventually(t, func() bool {
		s = state(t, b)
		return cond(s)
	}, 5*time.Second, 5*time.Millisecond)
	return s
}

func TestBridgeNoDialog(t *testing.T) {
	b := NewFundingBridge()

	require.False(t, state(t, b).Open)
	require.Equal(t, http.StatusNotFound, serve(t, b, http.MethodPost, "/funding/cancel", nil).Code)
	require.Equal(t, http.StatusNotFound, serve(t, b, http.MethodPost, "/funding/action", nil).Code)
	require.Equal(t, http.StatusNoContent, serve(t, b, http.MethodGet, "/wallet/notice", nil).Code)
}

func TestBridgeSelectAmount(t *testing.T) {
	b := NewFundingBridge()
	ctx := context.Background()

	dialog, err := b.Open(ctx, funding.Intro{Title: "Not enough sats"})
	require.NoError(t, err)

	_, err = b.Open(ctx, funding.Intro{})
	require.ErrorIs(t, err, ErrDialogBusy)

	dialog.ShowStatus(funding.Status{Kind: funding.StatusLoading, Text: "Loading", Needed: 900})

	chosen := make(chan funding.AmountOption, 1)
	go func() {
		opt, err := dialog.SelectAmount(ctx, funding.AmountPrompt{
			Options: []funding.AmountOption{{USD: 1, Satoshis: 1000}, {USD: 2, Satoshis: 2000}},
			Needed:  900,
		})
		if err == nil {
			chosen <- opt
		}
	}()

	s := waitFor(t, b, func(s DialogState) bool { return s.Prompt != nil })
	require.True(t, s.Open)
	require.Equal(t, "Not enough sats", s.Intro.Title)
	require.Equal(t, funding.StatusLoading, s.Status.Kind)
	require.Len(t, s.Prompt.Options, 2)

	require.Equal(t, http.StatusConflict,
		serve(t, b, http.MethodPost, "/funding/select", SelectRequest{USD: 7}).Code)
	require.Equal(t, http.StatusBadRequest,
		serve(t, b, http.MethodPost, "/funding/select", map[string]string{"usd": "two"}).Code)

	w := serve(t, b, http.MethodPost, "/funding/select", SelectRequest{USD: 2})
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case opt := <-chosen:
		require.Equal(t, funding.AmountOption{USD: 2, Satoshis: 2000}, opt)
	case <-time.After(5 * time.Second):
		t.Fatal("selection was not delivered")
	}

	// The prompt was answered, a second answer is refused.
	require.Equal(t, http.StatusConflict,
		serve(t, b, http.MethodPost, "/funding/select", SelectRequest{USD: 1}).Code)

	dialog.Close()
	require.False(t, state(t, b).Open)
}

func TestBridgeCancel(t *testing.T) {
	b := NewFundingBridge()

	dialog, err := b.Open(context.Background(), funding.Intro{})
	require.NoError(t, err)

	require.Equal(t, http.StatusNoContent, serve(t, b, http.MethodPost, "/funding/cancel", nil).Code)
	select {
	case <-dialog.Cancelled():
	default:
		t.Fatal("dialog not cancelled")
	}

	// Cancelling twice is harmless.
	require.Equal(t, http.StatusNoContent, serve(t, b, http.MethodPost, "/funding/cancel", nil).Code)
}

func TestBridgeDrivesExternalFunder(t *testing.T) {
	b := NewFundingBridge()
	funder, err := NewBridgedExternalFunder(b, funding.Texts{})
	require.NoError(t, err)

	type result struct {
		outcome babbage.FundingOutcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := funder.Fund(context.Background(), babbage.FundingRequest{Shortfall: 100})
		done <- result{outcome, err}
	}()

	texts := funding.DefaultTexts()

	s := waitFor(t, b, func(s DialogState) bool { return s.Link != nil })
	require.Equal(t, texts.BuySatsText, s.Link.ActionText)
	require.Equal(t, http.StatusNoContent, serve(t, b, http.MethodPost, "/funding/action", nil).Code)

	s = waitFor(t, b, func(s DialogState) bool {
		return s.Link != nil && s.Link.ActionText == texts.RetryText
	})
	require.Equal(t, texts.BuySatsURL, s.OpenURL)
	require.Equal(t, http.StatusNoContent, serve(t, b, http.MethodPost, "/funding/action", nil).Code)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, babbage.OutcomeRetry, r.outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("external funding did not resolve")
	}
	require.False(t, state(t, b).Open)
}

func TestBridgePresentsWalletUnavailable(t *testing.T) {
	b := NewFundingBridge()
	b.PresentWalletUnavailable(context.Background(), babbage.WalletUnavailableNotice{
		Title:     babbage.DefaultUnavailableTitle,
		CTAHref:   babbage.DefaultUnavailableCTAHref,
		Operation: "createAction",
	})

	w := serve(t, b, http.MethodGet, "/wallet/notice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var notice babbage.WalletUnavailableNotice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notice))
	require.Equal(t, "createAction", notice.Operation)
	require.Equal(t, babbage.DefaultUnavailableCTAHref, notice.CTAHref)

	b.DismissWalletUnavailable(context.Background())
	require.Equal(t, http.StatusNoContent, serve(t, b, http.MethodGet, "/wallet/notice", nil).Code)
}

func TestBridgeRetryDelivery(t *testing.T) {
	b := NewFundingBridge()
	ctx := context.Background()

	dialog, err := b.Open(ctx, funding.Intro{})
	require.NoError(t, err)
	defer dialog.Close()

	require.Equal(t, http.StatusConflict, serve(t, b, http.MethodPost, "/funding/action", nil).Code)

	done := make(chan error, 1)
	go func() {
		done <- dialog.RetryDelivery(ctx, funding.RetryPrompt{
			Reference:  "ref-1",
			ActionText: "Check again",
		})
	}()

	s := waitFor(t, b, func(s DialogState) bool { return s.Retry != nil })
	require.Equal(t, "ref-1", s.Retry.Reference)
	require.Nil(t, s.Prompt)
	require.Equal(t, http.StatusNoContent, serve(t, b, http.MethodPost, "/funding/action", nil).Code)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("retry was not delivered")
	}
	require.Nil(t, state(t, b).Retry)
}

func TestBridgeDrivesShopFunder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/startShopping":
			w.Write([]byte(`{"satoshisPerUSD":1000,"minimumSatoshis":100,"maximumSatoshis":100000,"quoteId":"q1","pendingTxs":[]}`))
		case "/initiateBuy":
			var req funding.InitiateBuyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
				req.NumberOfSatoshis != 2000 || req.QuoteID != "q1" {
				t.Errorf("unexpected initiateBuy request %+v: %v", req, err)
			}
			w.Write([]byte(`{"reference":"ref-1","clientSecret":"secret"}`))
		case "/completeBuy":
			w.Write([]byte(`{"status":"bitcoin-payment-acknowledged","satoshis":2000}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	confirmed := make(chan funding.ConfirmRequest, 1)
	payments := funding.ConfirmFunc(func(_ context.Context, req funding.ConfirmRequest) error {
		confirmed <- req
		return nil
	})

	b := NewFundingBridge()
	funder, err := NewBridgedShopFunder(&ShopConfig{URL: server.URL}, payments, b)
	require.NoError(t, err)

	type result struct {
		outcome babbage.FundingOutcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := funder.Fund(context.Background(), babbage.FundingRequest{
			ActionDescription: "Pay for article",
			Shortfall:         1500,
		})
		done <- result{outcome, err}
	}()

	s := waitFor(t, b, func(s DialogState) bool { return s.Prompt != nil })
	require.Equal(t, "Pay for article", s.Intro.ActionDescription)
	require.Equal(t, uint64(1500), s.Prompt.Needed)
	require.Equal(t, 2, s.Prompt.Options[0].USD)

	require.Equal(t, http.StatusOK,
		serve(t, b, http.MethodPost, "/funding/select", SelectRequest{USD: 2}).Code)

	select {
	case req := <-confirmed:
		require.Equal(t, "ref-1", req.Reference)
		require.Equal(t, "secret", req.ClientSecret)
	case <-time.After(5 * time.Second):
		t.Fatal("payment was never confirmed")
	}

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, babbage.OutcomeRetry, r.outcome)
	case <-time.After(10 * time.Second):
		t.Fatal("funding session never resolved")
	}
	require.False(t, state(t, b).Open)
}
