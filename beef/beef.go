// Package beef decodes finalized transaction bytes as returned by BRC-100
// wallets: a plain serialized transaction, BEEF (BRC-62 V1 or BRC-96 V2) or
// Atomic BEEF (BRC-95). Decoding is done by the go-sdk transaction package;
// this package picks the transaction a wallet result is about.
package beef

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

const (
	// VersionV1 is the BRC-62 BEEF version marker
	VersionV1 uint32 = 0xEFBE0001

	// VersionV2 is the BRC-96 BEEF version marker
	VersionV2 uint32 = 0xEFBE0002

	// AtomicPrefix starts an Atomic BEEF envelope
	AtomicPrefix uint32 = 0x01010101
)

// atomicHeaderSize is the prefix plus the subject txid
const atomicHeaderSize = 4 + chainhash.HashSize

// Kind is the encoding of a transaction blob
type Kind int

const (
	KindRawTx Kind = iota
	KindV1
	KindV2
	KindAtomic
)

func (k Kind) String() string {
	switch k {
	case KindV1:
		return "beef_v1"
	case KindV2:
		return "beef_v2"
	case KindAtomic:
		return "atomic_beef"
	default:
		return "raw_tx"
	}
}

var (
	ErrEmpty            = errors.New("empty transaction data")
	ErrSubjectNotFound  = errors.New("atomic beef subject transaction not found")
	ErrNoTransactions   = errors.New("beef contains no full transactions")
	ErrAmbiguousSubject = errors.New("beef has more than one unspent transaction")
)

// Beef is a decoded BEEF or Atomic BEEF
type Beef struct {
	*transaction.Beef

	// Subject is the Atomic BEEF subject txid, nil for plain BEEF
	Subject *chainhash.Hash
}

// DetectKind inspects the leading bytes of data
func DetectKind(data []byte) Kind {
	if len(data) < 4 {
		return KindRawTx
	}
	switch binary.LittleEndian.Uint32(data[:4]) {
	case AtomicPrefix:
		return KindAtomic
	case VersionV1:
		return KindV1
	case VersionV2:
		return KindV2
	default:
		return KindRawTx
	}
}

// Parse decodes a BEEF or Atomic BEEF
func Parse(data []byte) (*Beef, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	var subject *chainhash.Hash
	if DetectKind(data) == KindAtomic {
		if len(data) < atomicHeaderSize {
			return nil, fmt.Errorf("atomic beef too short: %d bytes", len(data))
		}
		hash, err := chainhash.NewHash(data[4:atomicHeaderSize])
		if err != nil {
			return nil, err
		}
		subject = hash
		data = data[atomicHeaderSize:]
	}

	switch DetectKind(data) {
	case KindV1, KindV2:
	default:
		if len(data) < 4 {
			return nil, fmt.Errorf("beef too short: %d bytes", len(data))
		}
		return nil, fmt.Errorf("unsupported beef version 0x%08x",
			binary.LittleEndian.Uint32(data[:4]))
	}

	decoded, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode beef: %w", err)
	}

	for _, btx := range decoded.Transactions {
		if btx.DataFormat != transaction.RawTxAndBumpIndex {
			continue
		}
		if btx.BumpIndex < 0 || btx.BumpIndex >= len(decoded.BUMPs) {
			return nil, fmt.Errorf("bump index %d out of range (%d bumps)",
				btx.BumpIndex, len(decoded.BUMPs))
		}
	}

	return &Beef{Beef: decoded, Subject: subject}, nil
}

// decode runs the go-sdk decoder. Out of range indices in untrusted input
// surface as errors rather than panics.
func decode(data []byte) (b *transaction.Beef, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, fmt.Errorf("malformed beef: %v", r)
		}
	}()
	return transaction.NewBeefFromBytes(data)
}

// SubjectTx returns the transaction the BEEF is about: the Atomic BEEF
// subject, or otherwise the one full transaction no other entry spends.
func (b *Beef) SubjectTx() (*transaction.Transaction, error) {
	if b.Subject != nil {
		reversed := reverseHash(*b.Subject)
		for _, btx := range b.Transactions {
			if btx.Transaction == nil {
				continue
			}
			txid := *btx.Transaction.TxID()
			if txid == *b.Subject || txid == reversed {
				return btx.Transaction, nil
			}
		}
		return nil, ErrSubjectNotFound
	}

	spent := make(map[chainhash.Hash]struct{})
	for _, btx := range b.Transactions {
		if btx.Transaction == nil {
			continue
		}
		for _, in := range btx.Transaction.Inputs {
			if in.SourceTXID != nil {
				spent[*in.SourceTXID] = struct{}{}
			}
		}
	}

	var tip *transaction.Transaction
	for _, btx := range b.Transactions {
		if btx.Transaction == nil {
			continue
		}
		if _, ok := spent[*btx.Transaction.TxID()]; ok {
			continue
		}
		if tip != nil {
			return nil, ErrAmbiguousSubject
		}
		tip = btx.Transaction
	}
	if tip == nil {
		return nil, ErrNoTransactions
	}
	return tip, nil
}

// DecodeTransaction returns the finalized transaction carried by data,
// whatever its encoding
func DecodeTransaction(data []byte) (*transaction.Transaction, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	if DetectKind(data) == KindRawTx {
		tx, err := transaction.NewTransactionFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		return tx, nil
	}

	b, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return b.SubjectTx()
}

func reverseHash(h chainhash.Hash) chainhash.Hash {
	var out chainhash.Hash
	for i := range h {
		out[i] = h[chainhash.HashSize-1-i]
	}
	return out
}
