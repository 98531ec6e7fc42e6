package http

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	babbage "github.com/babbage/go"
)

// Request signing headers
const (
	HeaderIdentityKey = "x-bsv-auth-identity-key"
	HeaderNonce       = "x-bsv-auth-nonce"
	HeaderSignature   = "x-bsv-auth-signature"
)

// requestSignatureProtocol is the protocol request signatures are derived under
var requestSignatureProtocol = babbage.Protocol{
	SecurityLevel: babbage.SecurityLevelEveryAppAndCounterparty,
	Protocol:      "auth message signature",
}

// IdentitySigner is the part of a wallet that can sign for its identity
type IdentitySigner interface {
	GetPublicKey(ctx context.Context, args babbage.GetPublicKeyArgs, originator string) (*babbage.GetPublicKeyResult, error)
	CreateSignature(ctx context.Context, args babbage.CreateSignatureArgs, originator string) (*babbage.CreateSignatureResult, error)
}

// WalletAuthProvider signs requests with a wallet's identity. Each request
// carries the identity key, a fresh nonce and the wallet's signature over
// the nonce and the request path.
type WalletAuthProvider struct {
	wallet     IdentitySigner
	originator string
	nonces     babbage.NonceSource

	mu       sync.Mutex
	identity string
}

var _ AuthProvider = (*WalletAuthProvider)(nil)

// NewWalletAuthProvider creates a provider signing as wallet
func NewWalletAuthProvider(wallet IdentitySigner, originator string) *WalletAuthProvider {
	return &WalletAuthProvider{
		wallet:     wallet,
		originator: originator,
		nonces:     babbage.RandomNonceSource{},
	}
}

// GetAuthHeaders returns the signing headers for a request to path
func (p *WalletAuthProvider) GetAuthHeaders(ctx context.Context, path string) (map[string]string, error) {
	identity, err := p.identityKey(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := p.nonces.NewNonce(ctx)
	if err != nil {
		return nil, err
	}

	sig, err := p.wallet.CreateSignature(ctx, babbage.CreateSignatureArgs{
		KeyDerivationArgs: babbage.KeyDerivationArgs{
			ProtocolID:   requestSignatureProtocol,
			KeyID:        nonce,
			Counterparty: babbage.CounterpartyAnyone,
		},
		Data: []byte(nonce + path),
	}, p.originator)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s request: %w", path, err)
	}

	return map[string]string{
		HeaderIdentityKey: identity,
		HeaderNonce:       nonce,
		HeaderSignature:   hex.EncodeToString(sig.Signature),
	}, nil
}

// identityKey fetches the wallet identity once it is available
func (p *WalletAuthProvider) identityKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.identity != "" {
		return p.identity, nil
	}

	result, err := p.wallet.GetPublicKey(ctx, babbage.GetPublicKeyArgs{IdentityKey: true}, p.originator)
	if err != nil {
		return "", fmt.Errorf("failed to get identity key: %w", err)
	}
	p.identity = result.PublicKey
	return p.identity, nil
}
