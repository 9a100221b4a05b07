package dgk

import (
	"io"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() KeyGenParams {
	return KeyGenParams{PlaintextBits: 16, SecurityBits: 64, ModulusBits: 256}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	k, err := New(testParams())
	require.NoError(t, err)

	m := big.NewInt(1234)
	c, err := k.PublicKey.Encrypt(m)
	require.NoError(t, err)

	got, err := k.Decrypt(c)
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(m))
}

func TestPartyBlindAndSelectRoundTrip(t *testing.T) {
	client, err := NewParty(testParams())
	require.NoError(t, err)
	server, err := NewParty(testParams())
	require.NoError(t, err)

	pr, pw := io.Pipe()
	go func() {
		_ = client.WritePublicKey(pw)
		pw.Close()
	}()
	require.NoError(t, server.ReadRemotePublicKey(pr))

	attrs := []*big.Int{big.NewInt(7), big.NewInt(19), big.NewInt(31), big.NewInt(4)}
	cts, err := client.EncryptVector(attrs)
	require.NoError(t, err)

	selection := []int{2, 0}
	masks := []uint64{100, 9}
	packed, err := server.BlindAndSelect(cts, selection, masks)
	require.NoError(t, err)

	got, err := client.UnpackAndDecrypt(packed, len(selection))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(31+100), got[0])
	assert.Equal(t, uint64(7+9), got[1])
}
