package babbage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// FeeProtocol is the reserved derivation protocol for fee outputs. Keys
// derived under it never collide with protocols chosen by applications.
var FeeProtocol = Protocol{SecurityLevel: SecurityLevelEveryAppAndCounterparty, Protocol: "3241645161d8"}

// DerivationNonce is the prefix/suffix pair shared by every fee output of
// one action
type DerivationNonce struct {
	Prefix string `json:"derivationPrefix"`
	Suffix string `json:"derivationSuffix"`
}

// KeyID is the BRC-42 key id the nonce pair produces
func (n DerivationNonce) KeyID() string {
	return n.Prefix + " " + n.Suffix
}

// newDerivationNonce draws prefix then suffix from the source
func newDerivationNonce(ctx context.Context, src NonceSource) (DerivationNonce, error) {
	prefix, err := src.NewNonce(ctx)
	if err != nil {
		return DerivationNonce{}, fmt.Errorf("failed to create derivation prefix: %w", err)
	}
	suffix, err := src.NewNonce(ctx)
	if err != nil {
		return DerivationNonce{}, fmt.Errorf("failed to create derivation suffix: %w", err)
	}
	return DerivationNonce{Prefix: prefix, Suffix: suffix}, nil
}

// DeriveFeeKey asks the wallet for the one-time key it shares with
// counterparty under the nonce
func DeriveFeeKey(ctx context.Context, wallet PublicKeyGetter, nonce DerivationNonce, counterparty, originator string) (*btcec.PublicKey, error) {
	result, err := wallet.GetPublicKey(ctx, GetPublicKeyArgs{
		KeyDerivationArgs: KeyDerivationArgs{
			ProtocolID:   FeeProtocol,
			KeyID:        nonce.KeyID(),
			Counterparty: Counterparty(counterparty),
		},
	}, originator)
	if err != nil {
		return nil, &KeyDerivationError{Counterparty: counterparty, Err: err}
	}
	if result == nil || strings.TrimSpace(result.PublicKey) == "" {
		return nil, &KeyDerivationError{Counterparty: counterparty, Err: errors.New("wallet returned an empty public key")}
	}

	pubKey, err := ParsePublicKeyHex(result.PublicKey)
	if err != nil {
		return nil, &KeyDerivationError{Counterparty: counterparty, Err: err}
	}
	return pubKey, nil
}

// ParsePublicKeyHex parses a hex encoded secp256k1 public key
func ParsePublicKeyHex(s string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	pubKey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return pubKey, nil
}

// IsIdentityKey reports whether s is a 66 character compressed public key
func IsIdentityKey(s string) bool {
	if len(s) != 66 {
		return false
	}
	_, err := ParsePublicKeyHex(s)
	return err == nil
}

// P2PKHLockingScript builds the pay-to-public-key-hash script for the
// compressed form of pubKey
func P2PKHLockingScript(pubKey *btcec.PublicKey) ([]byte, error) {
	addr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(pubKey.SerializeCompressed()), &chaincfg.MainNetParams,
	)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}
