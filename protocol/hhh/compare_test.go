package hhh

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privatetree/pdte/crypto/ecelgamal"
)

func TestGreaterThanBitDecomposition(t *testing.T) {
	const nbits = 16
	curve := btcec.S256()

	cases := []struct{ x, y uint64 }{
		{5, 3}, {3, 5}, {5, 5}, {0, 0}, {1000, 999}, {999, 1000}, {65535, 0},
	}
	for _, c := range cases {
		priv, err := ecelgamal.GenerateKey(curve)
		require.NoError(t, err)

		xBits, err := EncryptFeatureBits(priv.PublicKey, c.x, nbits)
		require.NoError(t, err)

		cVec, err := ComputeComparisonCiphertexts(priv.PublicKey, xBits, c.y, nbits)
		require.NoError(t, err)

		shuffled, err := Shuffle(cVec, rand.Reader)
		require.NoError(t, err)
		require.Len(t, shuffled, nbits)

		got, err := ClientCheckGreaterThan(priv, shuffled)
		require.NoError(t, err)

		want := c.x > c.y
		assert.Equalf(t, want, got, "x=%d y=%d", c.x, c.y)
	}
}
