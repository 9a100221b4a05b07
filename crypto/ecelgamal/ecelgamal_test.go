package ecelgamal

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curve() *btcec.KoblitzCurve { return btcec.S256() }

func TestEncryptDecryptRoundTrip(t *testing.T) {
	priv, err := GenerateKey(curve())
	require.NoError(t, err)

	for _, m := range []int64{0, 1, 7, 42, 999, 1000} {
		ct, err := priv.Encrypt(big.NewInt(m))
		require.NoError(t, err)
		got, err := priv.Decrypt(ct, DefaultMaxLabel)
		require.NoError(t, err)
		assert.Equalf(t, m, got.Int64(), "m=%d", m)
	}
}

func TestHomomorphicAdd(t *testing.T) {
	priv, err := GenerateKey(curve())
	require.NoError(t, err)

	a, err := priv.Encrypt(big.NewInt(3))
	require.NoError(t, err)
	b, err := priv.Encrypt(big.NewInt(4))
	require.NoError(t, err)

	sum, err := Add(a, b)
	require.NoError(t, err)
	got, err := priv.Decrypt(sum, DefaultMaxLabel)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Int64())
}

func TestHomomorphicScalarMult(t *testing.T) {
	priv, err := GenerateKey(curve())
	require.NoError(t, err)

	a, err := priv.Encrypt(big.NewInt(5))
	require.NoError(t, err)
	scaled := ScalarMult(a, big.NewInt(6))
	got, err := priv.Decrypt(scaled, DefaultMaxLabel)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got.Int64())
}

func TestIsZero(t *testing.T) {
	priv, err := GenerateKey(curve())
	require.NoError(t, err)

	zero, err := priv.Encrypt(big.NewInt(0))
	require.NoError(t, err)
	isZero, err := priv.IsZero(zero)
	require.NoError(t, err)
	assert.True(t, isZero)

	nonzero, err := priv.Encrypt(big.NewInt(1))
	require.NoError(t, err)
	isZero, err = priv.IsZero(nonzero)
	require.NoError(t, err)
	assert.False(t, isZero)
}

func TestCiphertextWireRoundTrip(t *testing.T) {
	priv, err := GenerateKey(curve())
	require.NoError(t, err)

	ct, err := priv.Encrypt(big.NewInt(17))
	require.NoError(t, err)
	wire := ct.Encode()
	assert.Len(t, wire, 128)

	got, err := DecodeCiphertext(curve(), wire)
	require.NoError(t, err)
	plain, err := priv.Decrypt(got, DefaultMaxLabel)
	require.NoError(t, err)
	assert.Equal(t, int64(17), plain.Int64())
}
