package babbage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsIdentityKey(t *testing.T) {
	require.True(t, IsIdentityKey(BaseFeeIdentity))
	require.True(t, IsIdentityKey(testIdentity("someone")))

	require.False(t, IsIdentityKey(""))
	require.False(t, IsIdentityKey(BaseFeeIdentity[:64]))
	require.False(t, IsIdentityKey("zz"+BaseFeeIdentity[2:]))
	// Right length, but not a point on the curve
	require.False(t, IsIdentityKey("05"+BaseFeeIdentity[2:]))
}

func TestP2PKHLockingScript(t *testing.T) {
	script, err := P2PKHLockingScript(testPubKey("someone"))
	require.NoError(t, err)

	require.Len(t, script, 25)
	require.Equal(t, []byte{0x76, 0xa9, 0x14}, script[:3])
	require.Equal(t, []byte{0x88, 0xac}, script[23:])
}

func TestDeriveFeeKey(t *testing.T) {
	m := newMockWallet(t)
	nonce := DerivationNonce{Prefix: "a", Suffix: "b"}

	pub, err := DeriveFeeKey(context.Background(), m, nonce, BaseFeeIdentity, "example.com")
	require.NoError(t, err)
	require.True(t, pub.IsEqual(testPubKey(BaseFeeIdentity+"|a b")))

	req := m.keyRequests[0]
	require.Equal(t, FeeProtocol, req.ProtocolID)
	require.Equal(t, "a b", req.KeyID)
	require.Equal(t, Counterparty(BaseFeeIdentity), req.Counterparty)
}

func TestDeriveFeeKeyErrors(t *testing.T) {
	nonce := DerivationNonce{Prefix: "a", Suffix: "b"}

	tests := []struct {
		name   string
		result *GetPublicKeyResult
		err    error
	}{
		{"wallet error", nil, errors.New("denied")},
		{"nil result", nil, nil},
		{"empty key", &GetPublicKeyResult{PublicKey: "  "}, nil},
		{"bad hex", &GetPublicKeyResult{PublicKey: "xyz"}, nil},
		{"not a point", &GetPublicKeyResult{PublicKey: "0500"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockWallet(t)
			m.getPublicKey = func(context.Context, GetPublicKeyArgs) (*GetPublicKeyResult, error) {
				return tt.result, tt.err
			}

			_, err := DeriveFeeKey(context.Background(), m, nonce, BaseFeeIdentity, "example.com")
			var kdErr *KeyDerivationError
			require.ErrorAs(t, err, &kdErr)
			require.Equal(t, BaseFeeIdentity, kdErr.Counterparty)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}
