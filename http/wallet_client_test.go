package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	babbage "github.com/babbage/go"
)

func TestWalletClientGetPublicKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getPublicKey", r.URL.Path)
		require.Equal(t, "app.example.com", r.Header.Get("Originator"))

		var args map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		require.Equal(t, "1 2", args["keyID"])
		require.Equal(t, []interface{}{float64(2), "3241645161d8"}, args["protocolID"])

		w.Write([]byte(`{"publicKey":"02aa"}`))
	}))
	defer server.Close()

	client := NewWalletClient(&WalletClientConfig{URL: server.URL, Originator: "default.example.com"})
	result, err := client.GetPublicKey(context.Background(), babbage.GetPublicKeyArgs{
		KeyDerivationArgs: babbage.KeyDerivationArgs{
			ProtocolID:   babbage.FeeProtocol,
			KeyID:        "1 2",
			Counterparty: "02bb",
		},
	}, "app.example.com")
	require.NoError(t, err)
	require.Equal(t, "02aa", result.PublicKey)
}

func TestWalletClientDefaultOriginator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getNetwork", r.URL.Path)
		require.Equal(t, "default.example.com", r.Header.Get("Originator"))
		w.Write([]byte(`{"network":"testnet"}`))
	}))
	defer server.Close()

	client := NewWalletClient(&WalletClientConfig{URL: server.URL, Originator: "default.example.com"})
	result, err := client.GetNetwork(context.Background(), nil, "")
	require.NoError(t, err)
	require.Equal(t, babbage.NetworkTestnet, result.Network)
}

func TestWalletClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewWalletClient(&WalletClientConfig{URL: url})
	_, err := client.GetHeight(context.Background(), nil, "")

	class := babbage.Classify(err)
	require.Equal(t, babbage.KindWalletUnavailable, class.Kind)
}

func TestWalletClientInsufficientFunds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{
			"status": "error",
			"code": "ERR_INSUFFICIENT_FUNDS",
			"description": "Insufficient funds in the available inputs",
			"moreSatoshisNeeded": 1200,
			"totalSatoshisNeeded": 5000
		}`))
	}))
	defer server.Close()

	client := NewWalletClient(&WalletClientConfig{URL: server.URL})
	_, err := client.CreateAction(context.Background(), babbage.CreateActionArgs{Description: "test"}, "")

	var ife *babbage.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	require.Equal(t, uint64(1200), ife.MoreSatoshisNeeded)
	require.Equal(t, uint64(5000), ife.TotalSatoshisNeeded)

	class := babbage.Classify(err)
	require.Equal(t, babbage.KindInsufficientFunds, class.Kind)
	require.Equal(t, uint64(1200), class.Shortfall.UnwrapOr(0))
}

func TestWalletClientCodedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"WERR_WALLET_LOCKED","message":"unlock first"}`))
	}))
	defer server.Close()

	client := NewWalletClient(&WalletClientConfig{URL: server.URL})
	_, err := client.ListOutputs(context.Background(), babbage.ListOutputsArgs{Basket: "default"}, "")

	var werr *babbage.WalletError
	require.ErrorAs(t, err, &werr)
	require.Equal(t, "WERR_WALLET_LOCKED", werr.Code)
	require.Equal(t, "unlock first", werr.Message)
	require.Equal(t, babbage.KindWalletUnavailable, babbage.Classify(err).Kind)
}

func TestWalletClientUnstructuredError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`disk full`))
	}))
	defer server.Close()

	client := NewWalletClient(&WalletClientConfig{URL: server.URL})
	_, err := client.Encrypt(context.Background(), babbage.EncryptArgs{}, "")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, babbage.KindUnrelated, babbage.Classify(err).Kind)
}

func TestNewFundedWalletOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"1.2.3"}`))
	}))
	defer server.Close()

	wallet, err := NewFundedWallet(&WalletClientConfig{URL: server.URL})
	require.NoError(t, err)
	defer wallet.Close()

	version, err := wallet.GetVersion(context.Background(), nil, "")
	require.NoError(t, err)
	require.Equal(t, "1.2.3", version.Version)
}

func TestWalletClientRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"height": 800000}`))
	}))
	defer server.Close()

	client := NewWalletClient(&WalletClientConfig{URL: server.URL})
	client.t.retryDelay = time.Millisecond

	result, err := client.GetHeight(context.Background(), nil, "")
	require.NoError(t, err)
	require.EqualValues(t, 800000, result.Height)
	require.EqualValues(t, 3, calls.Load())
}

func TestWalletClientRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewWalletClient(&WalletClientConfig{URL: server.URL})
	client.t.retryDelay = time.Millisecond

	_, err := client.GetHeight(context.Background(), nil, "")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	require.EqualValues(t, rateLimitRetries, calls.Load())
}
