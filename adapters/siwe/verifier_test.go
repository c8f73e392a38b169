package siwe

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/swapgate/core"
)

func testMessage(address string) core.SiweMessage {
	return core.SiweMessage{
		Domain:    "app.example.com",
		Address:   address,
		Statement: "Sign in to swap.",
		URI:       "https://app.example.com/login",
		Version:   core.SiweVersion,
		ChainID:   1,
		Nonce:     "a1b2c3d4e5f60718",
		IssuedAt:  "2024-05-01T12:00:00Z",
		RequestID: "r1",
	}
}

func TestVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	msg := testMessage(crypto.PubkeyToAddress(key.PublicKey).Hex())

	sig, err := Sign(msg, key)
	require.NoError(t, err)

	v := NewVerifier()
	require.NoError(t, v.Verify(msg, sig))

	t.Run("recovery id in 0/1 form", func(t *testing.T) {
		raw, err := hexutil.Decode(sig)
		require.NoError(t, err)
		raw[crypto.RecoveryIDOffset] -= 27
		assert.NoError(t, v.Verify(msg, hexutil.Encode(raw)))
	})

	t.Run("different message", func(t *testing.T) {
		other := msg
		other.Nonce = "ffffffffffffffff"
		assert.ErrorIs(t, v.Verify(other, sig), core.ErrInvalidSignature)
	})

	t.Run("different signer", func(t *testing.T) {
		intruder, err := crypto.GenerateKey()
		require.NoError(t, err)
		badSig, err := Sign(msg, intruder)
		require.NoError(t, err)
		assert.ErrorIs(t, v.Verify(msg, badSig), core.ErrInvalidSignature)
	})

	t.Run("malformed signature", func(t *testing.T) {
		assert.ErrorIs(t, v.Verify(msg, "0xdeadbeef"), core.ErrInvalidSignature)
		assert.ErrorIs(t, v.Verify(msg, "not hex"), core.ErrInvalidSignature)
	})
}

func TestParseRoundTrip(t *testing.T) {
	msg := testMessage("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	msg.ExpirationTime = "2024-05-01T12:05:00Z"
	msg.NotBefore = "2024-05-01T11:59:00Z"
	msg.Resources = []string{"ipfs://bafy", "https://example.com/terms"}

	parsed, err := Parse(msg.String())
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)

	msg.Statement = ""
	msg.Resources = nil
	parsed, err = Parse(msg.String())
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"no header":     "hello\n0xabc\n\n\nURI: x\nVersion: 1",
		"unknown field": "a wants you to sign in with your Ethereum account:\n0xabc\n\n\nURI: x\nColor: blue",
		"bad chain id":  "a wants you to sign in with your Ethereum account:\n0xabc\n\n\nURI: x\nChain ID: one",
	}

	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(text)
			assert.ErrorIs(t, err, core.ErrInvalidMessage)
		})
	}
}
