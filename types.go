package babbage

import (
	"encoding/json"
	"fmt"

	"github.com/babbage/go/types"
)

// ============================================================================
// Primitives
// ============================================================================

// SecurityLevel is the BRC-43 security level of a protocol
type SecurityLevel int

const (
	SecurityLevelSilent                  SecurityLevel = 0
	SecurityLevelEveryApp                SecurityLevel = 1
	SecurityLevelEveryAppAndCounterparty SecurityLevel = 2
)

// Protocol identifies a key derivation protocol. On the wire it is the two
// element array [securityLevel, "protocol name"].
type Protocol struct {
	SecurityLevel SecurityLevel
	Protocol      string
}

func (p Protocol) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.SecurityLevel, p.Protocol})
}

func (p *Protocol) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid protocol: %w", err)
	}
	if len(parts) != 2 {
		return fmt.Errorf("invalid protocol: expected 2 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &p.SecurityLevel); err != nil {
		return fmt.Errorf("invalid protocol security level: %w", err)
	}
	if err := json.Unmarshal(parts[1], &p.Protocol); err != nil {
		return fmt.Errorf("invalid protocol name: %w", err)
	}
	return nil
}

// Counterparty is "self", "anyone" or a hex encoded public key
type Counterparty string

const (
	CounterpartySelf   Counterparty = "self"
	CounterpartyAnyone Counterparty = "anyone"
)

// Network is the chain a wallet operates on
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// KeyDerivationArgs are the fields shared by every keyed wallet operation
type KeyDerivationArgs struct {
	ProtocolID       Protocol     `json:"protocolID"`
	KeyID            string       `json:"keyID"`
	Counterparty     Counterparty `json:"counterparty,omitempty"`
	Privileged       bool         `json:"privileged,omitempty"`
	PrivilegedReason string       `json:"privilegedReason,omitempty"`
	SeekPermission   *bool        `json:"seekPermission,omitempty"`
}

// ============================================================================
// Keys and Cryptography
// ============================================================================

type GetPublicKeyArgs struct {
	KeyDerivationArgs
	IdentityKey bool  `json:"identityKey,omitempty"`
	ForSelf     *bool `json:"forSelf,omitempty"`
}

type GetPublicKeyResult struct {
	PublicKey string `json:"publicKey"`
}

type RevealCounterpartyKeyLinkageArgs struct {
	Counterparty     string `json:"counterparty"`
	Verifier         string `json:"verifier"`
	Privileged       bool   `json:"privileged,omitempty"`
	PrivilegedReason string `json:"privilegedReason,omitempty"`
}

type RevealCounterpartyKeyLinkageResult struct {
	Prover                string          `json:"prover"`
	Verifier              string          `json:"verifier"`
	Counterparty          string          `json:"counterparty"`
	RevelationTime        string          `json:"revelationTime"`
	EncryptedLinkage      types.ByteArray `json:"encryptedLinkage"`
	EncryptedLinkageProof types.ByteArray `json:"encryptedLinkageProof"`
}

type RevealSpecificKeyLinkageArgs struct {
	Counterparty     Counterparty `json:"counterparty"`
	Verifier         string       `json:"verifier"`
	ProtocolID       Protocol     `json:"protocolID"`
	KeyID            string       `json:"keyID"`
	Privileged       bool         `json:"privileged,omitempty"`
	PrivilegedReason string       `json:"privilegedReason,omitempty"`
}

type RevealSpecificKeyLinkageResult struct {
	Prover                string          `json:"prover"`
	Verifier              string          `json:"verifier"`
	Counterparty          string          `json:"counterparty"`
	ProtocolID            Protocol        `json:"protocolID"`
	KeyID                 string          `json:"keyID"`
	EncryptedLinkage      types.ByteArray `json:"encryptedLinkage"`
	EncryptedLinkageProof types.ByteArray `json:"encryptedLinkageProof"`
	ProofType             byte            `json:"proofType"`
}

type EncryptArgs struct {
	KeyDerivationArgs
	Plaintext types.ByteArray `json:"plaintext"`
}

type EncryptResult struct {
	Ciphertext types.ByteArray `json:"ciphertext"`
}

type DecryptArgs struct {
	KeyDerivationArgs
	Ciphertext types.ByteArray `json:"ciphertext"`
}

type DecryptResult struct {
	Plaintext types.ByteArray `json:"plaintext"`
}

type CreateHmacArgs struct {
	KeyDerivationArgs
	Data types.ByteArray `json:"data"`
}

type CreateHmacResult struct {
	Hmac types.ByteArray `json:"hmac"`
}

type VerifyHmacArgs struct {
	KeyDerivationArgs
	Data types.ByteArray `json:"data"`
	Hmac types.ByteArray `json:"hmac"`
}

type VerifyHmacResult struct {
	Valid bool `json:"valid"`
}

type CreateSignatureArgs struct {
	KeyDerivationArgs
	Data               types.ByteArray `json:"data,omitempty"`
	HashToDirectlySign types.ByteArray `json:"hashToDirectlySign,omitempty"`
}

type CreateSignatureResult struct {
	Signature types.ByteArray `json:"signature"`
}

type VerifySignatureArgs struct {
	KeyDerivationArgs
	Data                 types.ByteArray `json:"data,omitempty"`
	HashToDirectlyVerify types.ByteArray `json:"hashToDirectlyVerify,omitempty"`
	Signature            types.ByteArray `json:"signature"`
	ForSelf              *bool           `json:"forSelf,omitempty"`
}

type VerifySignatureResult struct {
	Valid bool `json:"valid"`
}

// ============================================================================
// Actions
// ============================================================================

type CreateActionInput struct {
	Outpoint              string  `json:"outpoint"`
	InputDescription      string  `json:"inputDescription"`
	UnlockingScript       string  `json:"unlockingScript,omitempty"`
	UnlockingScriptLength uint32  `json:"unlockingScriptLength,omitempty"`
	SequenceNumber        *uint32 `json:"sequenceNumber,omitempty"`
}

// CreateActionOutput is one requested output. LockingScript is hex encoded.
type CreateActionOutput struct {
	LockingScript      string   `json:"lockingScript"`
	Satoshis           uint64   `json:"satoshis"`
	OutputDescription  string   `json:"outputDescription"`
	Basket             string   `json:"basket,omitempty"`
	CustomInstructions string   `json:"customInstructions,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

type CreateActionOptions struct {
	SignAndProcess         *bool    `json:"signAndProcess,omitempty"`
	AcceptDelayedBroadcast *bool    `json:"acceptDelayedBroadcast,omitempty"`
	TrustSelf              string   `json:"trustSelf,omitempty"`
	KnownTxids             []string `json:"knownTxids,omitempty"`
	ReturnTXIDOnly         *bool    `json:"returnTXIDOnly,omitempty"`
	NoSend                 *bool    `json:"noSend,omitempty"`
	NoSendChange           []string `json:"noSendChange,omitempty"`
	SendWith               []string `json:"sendWith,omitempty"`
	RandomizeOutputs       *bool    `json:"randomizeOutputs,omitempty"`
}

type CreateActionArgs struct {
	Description string               `json:"description"`
	InputBEEF   types.ByteArray      `json:"inputBEEF,omitempty"`
	Inputs      []CreateActionInput  `json:"inputs,omitempty"`
	Outputs     []CreateActionOutput `json:"outputs,omitempty"`
	LockTime    *uint32              `json:"lockTime,omitempty"`
	Version     *uint32              `json:"version,omitempty"`
	Labels      []string             `json:"labels,omitempty"`
	Options     *CreateActionOptions `json:"options,omitempty"`
}

type SendWithResult struct {
	Txid   string `json:"txid"`
	Status string `json:"status"`
}

// SignableTransaction is returned when the wallet defers signing to a later
// SignAction call identified by Reference.
type SignableTransaction struct {
	Tx        types.ByteArray `json:"tx"`
	Reference string          `json:"reference"`
}

type CreateActionResult struct {
	Txid                string               `json:"txid,omitempty"`
	Tx                  types.ByteArray      `json:"tx,omitempty"`
	NoSendChange        []string             `json:"noSendChange,omitempty"`
	SendWithResults     []SendWithResult     `json:"sendWithResults,omitempty"`
	SignableTransaction *SignableTransaction `json:"signableTransaction,omitempty"`
}

type SignActionSpend struct {
	UnlockingScript string  `json:"unlockingScript"`
	SequenceNumber  *uint32 `json:"sequenceNumber,omitempty"`
}

type SignActionOptions struct {
	AcceptDelayedBroadcast *bool    `json:"acceptDelayedBroadcast,omitempty"`
	ReturnTXIDOnly         *bool    `json:"returnTXIDOnly,omitempty"`
	NoSend                 *bool    `json:"noSend,omitempty"`
	SendWith               []string `json:"sendWith,omitempty"`
}

type SignActionArgs struct {
	Spends    map[uint32]SignActionSpend `json:"spends"`
	Reference string                     `json:"reference"`
	Options   *SignActionOptions         `json:"options,omitempty"`
}

type SignActionResult struct {
	Txid            string           `json:"txid,omitempty"`
	Tx              types.ByteArray  `json:"tx,omitempty"`
	SendWithResults []SendWithResult `json:"sendWithResults,omitempty"`
}

type AbortActionArgs struct {
	Reference string `json:"reference"`
}

type AbortActionResult struct {
	Aborted bool `json:"aborted"`
}

type ListActionsArgs struct {
	Labels                           []string `json:"labels"`
	LabelQueryMode                   string   `json:"labelQueryMode,omitempty"`
	IncludeLabels                    *bool    `json:"includeLabels,omitempty"`
	IncludeInputs                    *bool    `json:"includeInputs,omitempty"`
	IncludeInputSourceLockingScripts *bool    `json:"includeInputSourceLockingScripts,omitempty"`
	IncludeInputUnlockingScripts     *bool    `json:"includeInputUnlockingScripts,omitempty"`
	IncludeOutputs                   *bool    `json:"includeOutputs,omitempty"`
	IncludeOutputLockingScripts      *bool    `json:"includeOutputLockingScripts,omitempty"`
	Limit                            *uint32  `json:"limit,omitempty"`
	Offset                           *uint32  `json:"offset,omitempty"`
	SeekPermission                   *bool    `json:"seekPermission,omitempty"`
}

type Action struct {
	Txid        string   `json:"txid"`
	Satoshis    int64    `json:"satoshis"`
	Status      string   `json:"status"`
	IsOutgoing  bool     `json:"isOutgoing"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
	Version     uint32   `json:"version"`
	LockTime    uint32   `json:"lockTime"`
}

type ListActionsResult struct {
	TotalActions uint32   `json:"totalActions"`
	Actions      []Action `json:"actions"`
}

type PaymentRemittance struct {
	DerivationPrefix  string `json:"derivationPrefix"`
	DerivationSuffix  string `json:"derivationSuffix"`
	SenderIdentityKey string `json:"senderIdentityKey"`
}

type BasketInsertion struct {
	Basket             string   `json:"basket"`
	CustomInstructions string   `json:"customInstructions,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

type InternalizeOutput struct {
	OutputIndex         uint32             `json:"outputIndex"`
	Protocol            string             `json:"protocol"`
	PaymentRemittance   *PaymentRemittance `json:"paymentRemittance,omitempty"`
	InsertionRemittance *BasketInsertion   `json:"insertionRemittance,omitempty"`
}

type InternalizeActionArgs struct {
	Tx             types.ByteArray     `json:"tx"`
	Outputs        []InternalizeOutput `json:"outputs"`
	Description    string              `json:"description"`
	Labels         []string            `json:"labels,omitempty"`
	SeekPermission *bool               `json:"seekPermission,omitempty"`
}

type InternalizeActionResult struct {
	Accepted bool `json:"accepted"`
}

// ============================================================================
// Outputs
// ============================================================================

type ListOutputsArgs struct {
	Basket                    string   `json:"basket"`
	Tags                      []string `json:"tags,omitempty"`
	TagQueryMode              string   `json:"tagQueryMode,omitempty"`
	Include                   string   `json:"include,omitempty"`
	IncludeCustomInstructions *bool    `json:"includeCustomInstructions,omitempty"`
	IncludeTags               *bool    `json:"includeTags,omitempty"`
	IncludeLabels             *bool    `json:"includeLabels,omitempty"`
	Limit                     *uint32  `json:"limit,omitempty"`
	Offset                    *uint32  `json:"offset,omitempty"`
	SeekPermission            *bool    `json:"seekPermission,omitempty"`
}

type Output struct {
	Satoshis           uint64   `json:"satoshis"`
	LockingScript      string   `json:"lockingScript,omitempty"`
	Spendable          bool     `json:"spendable"`
	CustomInstructions string   `json:"customInstructions,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Outpoint           string   `json:"outpoint"`
	Labels             []string `json:"labels,omitempty"`
}

type ListOutputsResult struct {
	TotalOutputs uint32          `json:"totalOutputs"`
	BEEF         types.ByteArray `json:"BEEF,omitempty"`
	Outputs      []Output        `json:"outputs"`
}

type RelinquishOutputArgs struct {
	Basket string `json:"basket"`
	Output string `json:"output"`
}

type RelinquishOutputResult struct {
	Relinquished bool `json:"relinquished"`
}

// ============================================================================
// Certificates and Discovery
// ============================================================================

type Certificate struct {
	Type               string            `json:"type"`
	SerialNumber       string            `json:"serialNumber"`
	Subject            string            `json:"subject"`
	Certifier          string            `json:"certifier"`
	RevocationOutpoint string            `json:"revocationOutpoint"`
	Signature          string            `json:"signature"`
	Fields             map[string]string `json:"fields"`
}

type AcquireCertificateArgs struct {
	Type                string            `json:"type"`
	Certifier           string            `json:"certifier"`
	AcquisitionProtocol string            `json:"acquisitionProtocol"`
	Fields              map[string]string `json:"fields"`
	SerialNumber        string            `json:"serialNumber,omitempty"`
	RevocationOutpoint  string            `json:"revocationOutpoint,omitempty"`
	Signature           string            `json:"signature,omitempty"`
	CertifierURL        string            `json:"certifierUrl,omitempty"`
	KeyringRevealer     string            `json:"keyringRevealer,omitempty"`
	KeyringForSubject   map[string]string `json:"keyringForSubject,omitempty"`
	Privileged          bool              `json:"privileged,omitempty"`
	PrivilegedReason    string            `json:"privilegedReason,omitempty"`
}

type ListCertificatesArgs struct {
	Certifiers       []string `json:"certifiers"`
	Types            []string `json:"types"`
	Limit            *uint32  `json:"limit,omitempty"`
	Offset           *uint32  `json:"offset,omitempty"`
	Privileged       bool     `json:"privileged,omitempty"`
	PrivilegedReason string   `json:"privilegedReason,omitempty"`
}

type CertificateResult struct {
	Certificate
	Keyring  map[string]string `json:"keyring,omitempty"`
	Verifier string            `json:"verifier,omitempty"`
}

type ListCertificatesResult struct {
	TotalCertificates uint32              `json:"totalCertificates"`
	Certificates      []CertificateResult `json:"certificates"`
}

type ProveCertificateArgs struct {
	Certificate      Certificate `json:"certificate"`
	FieldsToReveal   []string    `json:"fieldsToReveal"`
	Verifier         string      `json:"verifier"`
	Privileged       bool        `json:"privileged,omitempty"`
	PrivilegedReason string      `json:"privilegedReason,omitempty"`
}

type ProveCertificateResult struct {
	KeyringForVerifier map[string]string `json:"keyringForVerifier"`
}

type RelinquishCertificateArgs struct {
	Type         string `json:"type"`
	SerialNumber string `json:"serialNumber"`
	Certifier    string `json:"certifier"`
}

type RelinquishCertificateResult struct {
	Relinquished bool `json:"relinquished"`
}

type DiscoverByIdentityKeyArgs struct {
	IdentityKey    string  `json:"identityKey"`
	Limit          *uint32 `json:"limit,omitempty"`
	Offset         *uint32 `json:"offset,omitempty"`
	SeekPermission *bool   `json:"seekPermission,omitempty"`
}

type DiscoverByAttributesArgs struct {
	Attributes     map[string]string `json:"attributes"`
	Limit          *uint32           `json:"limit,omitempty"`
	Offset         *uint32           `json:"offset,omitempty"`
	SeekPermission *bool             `json:"seekPermission,omitempty"`
}

type IdentityCertifier struct {
	Name        string `json:"name"`
	IconURL     string `json:"iconUrl"`
	Description string `json:"description"`
	Trust       uint8  `json:"trust"`
}

type IdentityCertificate struct {
	Certificate
	CertifierInfo           IdentityCertifier `json:"certifierInfo"`
	PubliclyRevealedKeyring map[string]string `json:"publiclyRevealedKeyring"`
	DecryptedFields         map[string]string `json:"decryptedFields"`
}

type DiscoverCertificatesResult struct {
	TotalCertificates uint32                `json:"totalCertificates"`
	Certificates      []IdentityCertificate `json:"certificates"`
}

// ============================================================================
// Authentication and Chain
// ============================================================================

type AuthenticatedResult struct {
	Authenticated bool `json:"authenticated"`
}

type GetHeightResult struct {
	Height uint32 `json:"height"`
}

type GetHeaderArgs struct {
	Height uint32 `json:"height"`
}

type GetHeaderResult struct {
	Header string `json:"header"`
}

type GetNetworkResult struct {
	Network Network `json:"network"`
}

type GetVersionResult struct {
	Version string `json:"version"`
}
