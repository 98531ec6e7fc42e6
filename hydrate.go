package babbage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// BaseFeeIdentity is the identity key that receives the base fee of every
	// action
	BaseFeeIdentity = "03a9e2982660b219b83beb157cc6fed2776b414fd799a16822c9292a8226141f3e"

	// BaseFeeSatoshis is the base fee added to every action
	BaseFeeSatoshis uint64 = 10

	OutputDescriptionDeveloperFee = "Fee to developer"
	OutputDescriptionBaseFee      = "Transaction Fee"

	// maxLabelBytes is the BRC-100 limit on a single action label
	maxLabelBytes = 300
)

// FeeRecipient is an identity paid by an injected fee output
type FeeRecipient struct {
	Amount   uint64 `json:"amount"`
	Identity string `json:"identity"`
}

// FeeInstructions is the customInstructions payload of a fee output
type FeeInstructions struct {
	DerivationPrefix string       `json:"derivationPrefix"`
	DerivationSuffix string       `json:"derivationSuffix"`
	Payee            FeeRecipient `json:"payee"`
}

// InjectedOutput is a fee output added to an action
type InjectedOutput struct {
	Recipient     FeeRecipient
	LockingScript []byte
}

// LockingScriptHex returns the lower case hex of the locking script
func (o InjectedOutput) LockingScriptHex() string {
	return hex.EncodeToString(o.LockingScript)
}

// Hydration is an action request extended with its fee outputs
type Hydration struct {
	Args     CreateActionArgs
	Nonce    DerivationNonce
	Injected []InjectedOutput
}

// TotalSatoshis sums every output of the hydrated request
func (h *Hydration) TotalSatoshis() uint64 {
	var total uint64
	for _, out := range h.Args.Outputs {
		total += out.Satoshis
	}
	return total
}

// hydrator appends fee outputs to action requests
type hydrator struct {
	wallet    PublicKeyGetter
	nonces    NonceSource
	base      FeeRecipient
	developer fn.Option[FeeRecipient]
}

// hydrate derives one fee output per recipient, developer first, under a
// single nonce. Derivations run one after another and any failure aborts
// before anything is handed to the wallet. The caller's args are not
// modified.
func (h *hydrator) hydrate(ctx context.Context, args CreateActionArgs, originator string) (*Hydration, error) {
	// Actions that only spend carry no fees.
	if len(args.Outputs) == 0 {
		return &Hydration{Args: args}, nil
	}

	nonce, err := newDerivationNonce(ctx, h.nonces)
	if err != nil {
		return nil, err
	}

	recipients := make([]FeeRecipient, 0, 2)
	h.developer.WhenSome(func(dev FeeRecipient) {
		recipients = append(recipients, dev)
	})
	recipients = append(recipients, h.base)

	seen := make(map[string]struct{}, len(args.Outputs)+len(recipients))
	for _, out := range args.Outputs {
		seen[strings.ToLower(out.LockingScript)] = struct{}{}
	}

	outputs := make([]CreateActionOutput, 0, len(args.Outputs)+len(recipients))
	outputs = append(outputs, args.Outputs...)

	injected := make([]InjectedOutput, 0, len(recipients))
	for i, recipient := range recipients {
		pubKey, err := DeriveFeeKey(ctx, h.wallet, nonce, recipient.Identity, originator)
		if err != nil {
			return nil, err
		}

		script, err := P2PKHLockingScript(pubKey)
		if err != nil {
			return nil, &KeyDerivationError{Counterparty: recipient.Identity, Err: err}
		}

		out := InjectedOutput{Recipient: recipient, LockingScript: script}
		scriptHex := out.LockingScriptHex()
		if _, dup := seen[scriptHex]; dup {
			return nil, fmt.Errorf("%w: %s", ErrScriptCollision, scriptHex)
		}
		seen[scriptHex] = struct{}{}

		instructions, err := json.Marshal(FeeInstructions{
			DerivationPrefix: nonce.Prefix,
			DerivationSuffix: nonce.Suffix,
			Payee:            recipient,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode fee instructions: %w", err)
		}

		description := OutputDescriptionBaseFee
		if i == 0 && h.developer.IsSome() {
			description = OutputDescriptionDeveloperFee
		}

		log.Debugf("Injecting %d sat fee output for %s", recipient.Amount, recipient.Identity)

		outputs = append(outputs, CreateActionOutput{
			LockingScript:      scriptHex,
			Satoshis:           recipient.Amount,
			OutputDescription:  description,
			CustomInstructions: string(instructions),
		})
		injected = append(injected, out)
	}

	hydrated := args
	hydrated.Outputs = outputs
	hydrated.Labels = h.labels(args.Labels)

	return &Hydration{
		Args:     hydrated,
		Nonce:    nonce,
		Injected: injected,
	}, nil
}

// labels copies the caller's labels and appends the developer fee tag
func (h *hydrator) labels(in []string) []string {
	if h.developer.IsNone() {
		return in
	}

	dev := h.developer.UnwrapOr(FeeRecipient{})
	tag := fmt.Sprintf("dev:%s:%d", dev.Identity, dev.Amount)
	if len(tag) > maxLabelBytes {
		return in
	}

	out := make([]string, 0, len(in)+1)
	out = append(out, in...)
	return append(out, tag)
}
