package babbage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NonceSource produces the random halves of a derivation nonce
type NonceSource interface {
	NewNonce(ctx context.Context) (string, error)
}

// NonceFunc adapts a function to the NonceSource interface
type NonceFunc func(ctx context.Context) (string, error)

func (f NonceFunc) NewNonce(ctx context.Context) (string, error) {
	return f(ctx)
}

// nonceHmacProtocol is the protocol wallets use to authenticate their own nonces
var nonceHmacProtocol = Protocol{SecurityLevel: SecurityLevelEveryAppAndCounterparty, Protocol: "server hmac"}

const nonceRandomBytes = 16

// WalletNonceSource creates nonces bound to a wallet: 16 random bytes
// followed by the wallet's HMAC over them, base64 encoded. The wallet that
// made the nonce can later verify it.
type WalletNonceSource struct {
	Wallet     HmacCreator
	Originator string
}

// NewNonce creates a wallet bound nonce
func (s *WalletNonceSource) NewNonce(ctx context.Context) (string, error) {
	random := make([]byte, nonceRandomBytes)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("failed to read random nonce bytes: %w", err)
	}

	result, err := s.Wallet.CreateHmac(ctx, CreateHmacArgs{
		KeyDerivationArgs: KeyDerivationArgs{
			ProtocolID:   nonceHmacProtocol,
			KeyID:        string(random),
			Counterparty: CounterpartySelf,
		},
		Data: random,
	}, s.Originator)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Hmac) == 0 {
		return "", fmt.Errorf("wallet returned an empty nonce hmac")
	}

	nonce := make([]byte, 0, len(random)+len(result.Hmac))
	nonce = append(nonce, random...)
	nonce = append(nonce, result.Hmac...)
	return base64.StdEncoding.EncodeToString(nonce), nil
}

// RandomNonceSource creates purely random nonces without consulting the wallet
type RandomNonceSource struct {
	// Size is the number of random bytes (optional, defaults to 32)
	Size int
}

// NewNonce creates a random nonce
func (s RandomNonceSource) NewNonce(_ context.Context) (string, error) {
	size := s.Size
	if size <= 0 {
		size = 32
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random nonce bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

var (
	_ NonceSource = (*WalletNonceSource)(nil)
	_ NonceSource = RandomNonceSource{}
)
