package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	pub := priv.Public()

	msg := []byte("gopow:transfer:alice->bob:7")
	sig := priv.Sign(msg)

	assert.NoError(t, Verify(pub, msg, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	pub := priv.Public()

	sig := priv.Sign([]byte("original"))
	assert.Error(t, Verify(pub, []byte("tampered"), sig))
}

func TestPublicKeyRoundTripsThroughHex(t *testing.T) {
	priv, err := GenerateKey()
	require.NoError(t, err)
	pub := priv.Public()

	parsed, err := ParsePublicKey(pub.String())
	require.NoError(t, err)
	assert.Equal(t, pub.String(), parsed.String())
}

func TestHashHexIsStable(t *testing.T) {
	a := HashHex([]byte("same"))
	b := HashHex([]byte("same"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, HashHex([]byte("different")))
}
