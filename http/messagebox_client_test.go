package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	babbage "github.com/babbage/go"
)

func TestMessageBoxClientSendMessage(t *testing.T) {
	var got sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	client := NewMessageBoxClient(&MessageBoxConfig{URL: server.URL})
	err := client.SendMessage(context.Background(), babbage.Message{
		MessageID:  "m-1",
		Recipient:  "02abc",
		MessageBox: babbage.PaymentMessageBox,
		Body:       json.RawMessage(`{"amount":10}`),
	})
	require.NoError(t, err)

	require.Equal(t, "m-1", got.Message.MessageID)
	require.Equal(t, "02abc", got.Message.Recipient)
	require.Equal(t, "payment_inbox", got.Message.MessageBox)
	require.JSONEq(t, `{"amount":10}`, got.Message.Body)
}

func TestMessageBoxClientRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","description":"unknown recipient"}`))
	}))
	defer server.Close()

	client := NewMessageBoxClient(&MessageBoxConfig{URL: server.URL})
	err := client.SendMessage(context.Background(), babbage.Message{MessageID: "m-2"})
	require.ErrorContains(t, err, "unknown recipient")
}

func TestMessageBoxClientDefaults(t *testing.T) {
	client := NewMessageBoxClient(nil)
	require.Equal(t, DefaultMessageBoxURL, client.t.url)
}

func TestMessageBoxClientSignedByWallet(t *testing.T) {
	var identityCalls atomic.Int32
	walletServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getPublicKey":
			identityCalls.Add(1)
			var args map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&args); err != nil || args["identityKey"] != true {
				t.Errorf("unexpected getPublicKey args: %v %v", args, err)
			}
			w.Write([]byte(`{"publicKey":"02aa"}`))
		case "/createSignature":
			w.Write([]byte(`{"signature":[1,2,3]}`))
		default:
			t.Errorf("unexpected wallet call %s", r.URL.Path)
		}
	}))
	defer walletServer.Close()

	var signed atomic.Int32
	relayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderIdentityKey) == "02aa" &&
			r.Header.Get(HeaderNonce) != "" &&
			r.Header.Get(HeaderSignature) == "010203" {
			signed.Add(1)
		}
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer relayServer.Close()

	wallet := NewWalletClient(&WalletClientConfig{URL: walletServer.URL})
	client := NewMessageBoxClient(&MessageBoxConfig{
		URL:          relayServer.URL,
		AuthProvider: NewWalletAuthProvider(wallet, "app.example.com"),
	})

	for _, id := range []string{"m-1", "m-2"} {
		require.NoError(t, client.SendMessage(context.Background(), babbage.Message{MessageID: id}))
	}
	require.EqualValues(t, 2, signed.Load())
	require.EqualValues(t, 1, identityCalls.Load())
}

func TestMessageBoxClientSigningFailure(t *testing.T) {
	walletServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := walletServer.URL
	walletServer.Close()

	var calls atomic.Int32
	relayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer relayServer.Close()

	client := NewMessageBoxClient(&MessageBoxConfig{
		URL:          relayServer.URL,
		AuthProvider: NewWalletAuthProvider(NewWalletClient(&WalletClientConfig{URL: url}), ""),
	})
	err := client.SendMessage(context.Background(), babbage.Message{MessageID: "m-1"})
	require.ErrorContains(t, err, "identity key")
	require.Zero(t, calls.Load())
}
