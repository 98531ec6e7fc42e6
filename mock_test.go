package babbage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// testPubKey returns a deterministic public key for seed
func testPubKey(seed string) *btcec.PublicKey {
	sum := sha256.Sum256([]byte(seed))
	_, pub := btcec.PrivKeyFromBytes(sum[:])
	return pub
}

// testIdentity returns a valid identity key for seed
func testIdentity(seed string) string {
	return hex.EncodeToString(testPubKey(seed).SerializeCompressed())
}

// rawTx serializes a transaction paying each output
func rawTx(t *testing.T, outputs []CreateActionOutput) []byte {
	t.Helper()

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{1}, 0), nil, nil))
	for _, out := range outputs {
		script, err := hex.DecodeString(out.LockingScript)
		require.NoError(t, err)
		tx.AddTxOut(wire.NewTxOut(int64(out.Satoshis), script))
	}

	var buf bytes.Buffer
	require.NoError(t, tx.SerializeNoWitness(&buf))
	return buf.Bytes()
}

// Mock wallet for testing. Unset funcs fall back to working defaults, and
// fail is returned by every operation without a func.
type mockWallet struct {
	t *testing.T

	createAction func(ctx context.Context, args CreateActionArgs, attempt int) (*CreateActionResult, error)
	signAction   func(ctx context.Context, args SignActionArgs) (*SignActionResult, error)
	getPublicKey func(ctx context.Context, args GetPublicKeyArgs) (*GetPublicKeyResult, error)
	createHmac   func(ctx context.Context, args CreateHmacArgs) (*CreateHmacResult, error)
	fail         error

	mu          sync.Mutex
	creates     []CreateActionArgs
	keyRequests []GetPublicKeyArgs
	aborted     []string
	signed      map[string][]CreateActionOutput
}

func newMockWallet(t *testing.T) *mockWallet {
	return &mockWallet{t: t, signed: make(map[string][]CreateActionOutput)}
}

// deferSigning makes CreateAction return a signable reference and
// SignAction finalize the recorded outputs
func (m *mockWallet) deferSigning(reference string) {
	m.createAction = func(_ context.Context, args CreateActionArgs, _ int) (*CreateActionResult, error) {
		m.mu.Lock()
		m.signed[reference] = args.Outputs
		m.mu.Unlock()
		return &CreateActionResult{
			SignableTransaction: &SignableTransaction{Reference: reference, Tx: []byte{0x01}},
		}, nil
	}
	m.signAction = func(_ context.Context, args SignActionArgs) (*SignActionResult, error) {
		m.mu.Lock()
		outputs := m.signed[args.Reference]
		m.mu.Unlock()
		return &SignActionResult{Txid: "signed", Tx: rawTx(m.t, outputs)}, nil
	}
}

func (m *mockWallet) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.creates)
}

func (m *mockWallet) lastCreate() CreateActionArgs {
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(m.t, m.creates)
	return m.creates[len(m.creates)-1]
}

func (m *mockWallet) GetPublicKey(ctx context.Context, args GetPublicKeyArgs, _ string) (*GetPublicKeyResult, error) {
	m.mu.Lock()
	m.keyRequests = append(m.keyRequests, args)
	m.mu.Unlock()

	if m.getPublicKey != nil {
		return m.getPublicKey(ctx, args)
	}
	if m.fail != nil {
		return nil, m.fail
	}
	seed := string(args.Counterparty) + "|" + args.KeyID
	return &GetPublicKeyResult{PublicKey: testIdentity(seed)}, nil
}

func (m *mockWallet) CreateHmac(ctx context.Context, args CreateHmacArgs, _ string) (*CreateHmacResult, error) {
	if m.createHmac != nil {
		return m.createHmac(ctx, args)
	}
	if m.fail != nil {
		return nil, m.fail
	}
	sum := sha256.Sum256(args.Data)
	return &CreateHmacResult{Hmac: sum[:]}, nil
}

func (m *mockWallet) CreateAction(ctx context.Context, args CreateActionArgs, _ string) (*CreateActionResult, error) {
	m.mu.Lock()
	m.creates = append(m.creates, args)
	attempt := len(m.creates)
	m.mu.Unlock()

	if m.createAction != nil {
		return m.createAction(ctx, args, attempt)
	}
	if m.fail != nil {
		return nil, m.fail
	}
	return &CreateActionResult{Txid: "txid", Tx: rawTx(m.t, args.Outputs)}, nil
}

func (m *mockWallet) SignAction(ctx context.Context, args SignActionArgs, _ string) (*SignActionResult, error) {
	if m.signAction != nil {
		return m.signAction(ctx, args)
	}
	return nil, m.fail
}

func (m *mockWallet) AbortAction(_ context.Context, args AbortActionArgs, _ string) (*AbortActionResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.mu.Lock()
	m.aborted = append(m.aborted, args.Reference)
	m.mu.Unlock()
	return &AbortActionResult{Aborted: true}, nil
}

func (m *mockWallet) RevealCounterpartyKeyLinkage(context.Context, RevealCounterpartyKeyLinkageArgs, string) (*RevealCounterpartyKeyLinkageResult, error) {
	return &RevealCounterpartyKeyLinkageResult{}, m.fail
}

func (m *mockWallet) RevealSpecificKeyLinkage(context.Context, RevealSpecificKeyLinkageArgs, string) (*RevealSpecificKeyLinkageResult, error) {
	return &RevealSpecificKeyLinkageResult{}, m.fail
}

func (m *mockWallet) Encrypt(_ context.Context, args EncryptArgs, _ string) (*EncryptResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &EncryptResult{Ciphertext: args.Plaintext}, nil
}

func (m *mockWallet) Decrypt(_ context.Context, args DecryptArgs, _ string) (*DecryptResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &DecryptResult{Plaintext: args.Ciphertext}, nil
}

func (m *mockWallet) VerifyHmac(context.Context, VerifyHmacArgs, string) (*VerifyHmacResult, error) {
	return &VerifyHmacResult{Valid: true}, m.fail
}

func (m *mockWallet) CreateSignature(context.Context, CreateSignatureArgs, string) (*CreateSignatureResult, error) {
	return &CreateSignatureResult{}, m.fail
}

func (m *mockWallet) VerifySignature(context.Context, VerifySignatureArgs, string) (*VerifySignatureResult, error) {
	return &VerifySignatureResult{Valid: true}, m.fail
}

func (m *mockWallet) ListActions(context.Context, ListActionsArgs, string) (*ListActionsResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &ListActionsResult{TotalActions: 1, Actions: []Action{{Txid: "txid"}}}, nil
}

func (m *mockWallet) InternalizeAction(context.Context, InternalizeActionArgs, string) (*InternalizeActionResult, error) {
	return &InternalizeActionResult{Accepted: true}, m.fail
}

func (m *mockWallet) ListOutputs(context.Context, ListOutputsArgs, string) (*ListOutputsResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &ListOutputsResult{TotalOutputs: 1, Outputs: []Output{{Satoshis: 42, Outpoint: "txid.0"}}}, nil
}

func (m *mockWallet) RelinquishOutput(context.Context, RelinquishOutputArgs, string) (*RelinquishOutputResult, error) {
	return &RelinquishOutputResult{Relinquished: true}, m.fail
}

func (m *mockWallet) AcquireCertificate(context.Context, AcquireCertificateArgs, string) (*CertificateResult, error) {
	return &CertificateResult{}, m.fail
}

func (m *mockWallet) ListCertificates(context.Context, ListCertificatesArgs, string) (*ListCertificatesResult, error) {
	return &ListCertificatesResult{}, m.fail
}

func (m *mockWallet) ProveCertificate(context.Context, ProveCertificateArgs, string) (*ProveCertificateResult, error) {
	return &ProveCertificateResult{}, m.fail
}

func (m *mockWallet) RelinquishCertificate(context.Context, RelinquishCertificateArgs, string) (*RelinquishCertificateResult, error) {
	return &RelinquishCertificateResult{Relinquished: true}, m.fail
}

func (m *mockWallet) DiscoverByIdentityKey(context.Context, DiscoverByIdentityKeyArgs, string) (*DiscoverCertificatesResult, error) {
	return &DiscoverCertificatesResult{}, m.fail
}

func (m *mockWallet) DiscoverByAttributes(context.Context, DiscoverByAttributesArgs, string) (*DiscoverCertificatesResult, error) {
	return &DiscoverCertificatesResult{}, m.fail
}

func (m *mockWallet) IsAuthenticated(context.Context, any, string) (*AuthenticatedResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &AuthenticatedResult{Authenticated: true}, nil
}

func (m *mockWallet) WaitForAuthentication(context.Context, any, string) (*AuthenticatedResult, error) {
	return &AuthenticatedResult{Authenticated: true}, m.fail
}

func (m *mockWallet) GetHeight(context.Context, any, string) (*GetHeightResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &GetHeightResult{Height: 800000}, nil
}

func (m *mockWallet) GetHeaderForHeight(context.Context, GetHeaderArgs, string) (*GetHeaderResult, error) {
	return &GetHeaderResult{}, m.fail
}

func (m *mockWallet) GetNetwork(context.Context, any, string) (*GetNetworkResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &GetNetworkResult{Network: NetworkTestnet}, nil
}

func (m *mockWallet) GetVersion(context.Context, any, string) (*GetVersionResult, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return &GetVersionResult{Version: "1.0.0"}, nil
}

var _ Wallet = (*mockWallet)(nil)

// Mock relay recording every message
type mockRelay struct {
	sendMessage func(ctx context.Context, msg Message) error

	mu   sync.Mutex
	sent []Message
}

func (r *mockRelay) SendMessage(ctx context.Context, msg Message) error {
	r.mu.Lock()
	r.sent = append(r.sent, msg)
	r.mu.Unlock()

	if r.sendMessage != nil {
		return r.sendMessage(ctx, msg)
	}
	return nil
}

func (r *mockRelay) messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Mock presenter recording every notice
type mockPresenter struct {
	mu        sync.Mutex
	notices   []WalletUnavailableNotice
	dismissed int
}

func (p *mockPresenter) PresentWalletUnavailable(_ context.Context, notice WalletUnavailableNotice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice)
}

func (p *mockPresenter) DismissWalletUnavailable(context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed++
}

func (p *mockPresenter) dismissCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dismissed
}

func (p *mockPresenter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.notices)
}

// sequentialNonces hands out nonce-1, nonce-2, ...
func sequentialNonces() NonceSource {
	var mu sync.Mutex
	n := 0
	return NonceFunc(func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("nonce-%d", n), nil
	})
}
