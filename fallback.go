package babbage

import "sort"

// Operation names a wallet operation
type Operation string

const (
	OpGetPublicKey                 Operation = "getPublicKey"
	OpRevealCounterpartyKeyLinkage Operation = "revealCounterpartyKeyLinkage"
	OpRevealSpecificKeyLinkage     Operation = "revealSpecificKeyLinkage"
	OpEncrypt                      Operation = "encrypt"
	OpDecrypt                      Operation = "decrypt"
	OpCreateHmac                   Operation = "createHmac"
	OpVerifyHmac                   Operation = "verifyHmac"
	OpCreateSignature              Operation = "createSignature"
	OpVerifySignature              Operation = "verifySignature"
	OpCreateAction                 Operation = "createAction"
	OpSignAction                   Operation = "signAction"
	OpAbortAction                  Operation = "abortAction"
	OpListActions                  Operation = "listActions"
	OpInternalizeAction            Operation = "internalizeAction"
	OpListOutputs                  Operation = "listOutputs"
	OpRelinquishOutput             Operation = "relinquishOutput"
	OpAcquireCertificate           Operation = "acquireCertificate"
	OpListCertificates             Operation = "listCertificates"
	OpProveCertificate             Operation = "proveCertificate"
	OpRelinquishCertificate        Operation = "relinquishCertificate"
	OpDiscoverByIdentityKey        Operation = "discoverByIdentityKey"
	OpDiscoverByAttributes         Operation = "discoverByAttributes"
	OpIsAuthenticated              Operation = "isAuthenticated"
	OpWaitForAuthentication        Operation = "waitForAuthentication"
	OpGetHeight                    Operation = "getHeight"
	OpGetHeaderForHeight           Operation = "getHeaderForHeight"
	OpGetNetwork                   Operation = "getNetwork"
	OpGetVersion                   Operation = "getVersion"
)

// UnknownVersion is the placeholder version reported without a wallet
const UnknownVersion = "unknown"

// placeholders are the documented results of read-only operations when no
// wallet is available
var placeholders = map[Operation]func() any{
	OpListOutputs: func() any {
		return &ListOutputsResult{Outputs: []Output{}}
	},
	OpListActions: func() any {
		return &ListActionsResult{Actions: []Action{}}
	},
	OpListCertificates: func() any {
		return &ListCertificatesResult{Certificates: []CertificateResult{}}
	},
	OpIsAuthenticated: func() any {
		return &AuthenticatedResult{Authenticated: false}
	},
	OpGetVersion: func() any {
		return &GetVersionResult{Version: UnknownVersion}
	},
	OpGetHeight: func() any {
		return &GetHeightResult{Height: 0}
	},
	OpGetNetwork: func() any {
		return &GetNetworkResult{Network: NetworkMainnet}
	},
}

// FallbackOperations lists the operations that have a placeholder result
func FallbackOperations() []Operation {
	ops := make([]Operation, 0, len(placeholders))
	for op := range placeholders {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// placeholderFor returns the placeholder of op typed as R
func placeholderFor[R any](op Operation) (*R, bool) {
	build, ok := placeholders[op]
	if !ok {
		return nil, false
	}
	result, ok := build().(*R)
	return result, ok
}
