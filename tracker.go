package babbage

import (
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
)

// ============================================================================
// Fee Output Tracking
// ============================================================================

// checkPending fails if a fee output of h reuses a script still awaiting
// signature from another action
func (w *FundedWallet) checkPending(h *Hydration) error {
	for _, out := range h.Injected {
		if w.pending.Has(out.LockingScriptHex()) {
			return fmt.Errorf("%w: %s is awaiting signature", ErrScriptCollision, out.LockingScriptHex())
		}
	}
	return nil
}

// trackDeferred records the fee outputs of a deferred action. They are
// notified once SignAction returns the finalized transaction.
func (w *FundedWallet) trackDeferred(h *Hydration, reference string) {
	for _, out := range h.Injected {
		err := w.pending.Put(out.LockingScriptHex(), PendingEntry{
			Recipient: out.Recipient,
			Nonce:     h.Nonce,
			Satoshis:  out.Recipient.Amount,
			Reference: reference,
		})
		if err != nil {
			log.Errorf("Unable to track fee output for %s: %v", out.Recipient.Identity, err)
			continue
		}
		log.Debugf("Tracking fee output for %s until %s is signed", out.Recipient.Identity, reference)
	}
}

// notifyImmediate sends tokens for an action whose transaction is already final
func (w *FundedWallet) notifyImmediate(h *Hydration, rawTx []byte) {
	if len(rawTx) == 0 {
		log.Warnf("Wallet returned no transaction for %q, fee recipients not notified", h.Args.Description)
		return
	}

	tx, err := w.decoder(rawTx)
	if err != nil {
		log.Warnf("Unable to decode finalized transaction: %v", err)
		return
	}

	index := outputIndex(tx)
	for _, out := range h.Injected {
		vout, ok := index[out.LockingScriptHex()]
		if !ok {
			log.Warnf("Fee output for %s not found in finalized transaction", out.Recipient.Identity)
			continue
		}
		w.notifier.send(out.Recipient.Identity, PaymentToken{
			CustomInstructions: TokenInstructions{
				DerivationPrefix: h.Nonce.Prefix,
				DerivationSuffix: h.Nonce.Suffix,
			},
			Transaction: rawTx,
			Amount:      tx.Outputs[vout].Satoshis,
			OutputIndex: vout,
		})
	}
}

// resolveSigned matches a signed transaction against pending fee outputs.
// Every matched entry is removed, so each fee output is notified once.
func (w *FundedWallet) resolveSigned(reference string, rawTx []byte) {
	if len(rawTx) == 0 {
		log.Warnf("Signed action %s returned no transaction, pending fee outputs kept", reference)
		return
	}

	tx, err := w.decoder(rawTx)
	if err != nil {
		log.Warnf("Unable to decode signed transaction for %s: %v", reference, err)
		return
	}

	for vout, out := range tx.Outputs {
		if out.LockingScript == nil {
			continue
		}
		entry, ok := w.pending.Take(hex.EncodeToString(*out.LockingScript))
		if !ok {
			continue
		}
		w.notifier.send(entry.Recipient.Identity, PaymentToken{
			CustomInstructions: TokenInstructions{
				DerivationPrefix: entry.Nonce.Prefix,
				DerivationSuffix: entry.Nonce.Suffix,
			},
			Transaction: rawTx,
			Amount:      out.Satoshis,
			OutputIndex: uint32(vout),
		})
	}
}

// outputIndex maps each locking script hex to its first output index
func outputIndex(tx *transaction.Transaction) map[string]uint32 {
	index := make(map[string]uint32, len(tx.Outputs))
	for vout, out := range tx.Outputs {
		if out.LockingScript == nil {
			continue
		}
		key := hex.EncodeToString(*out.LockingScript)
		if _, exists := index[key]; !exists {
			index[key] = uint32(vout)
		}
	}
	return index
}
