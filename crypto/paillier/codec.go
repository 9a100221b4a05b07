package paillier

import (
	"encoding/binary"
	"errors"
	"io"
	"math/big"
)

// ErrShortBuffer is returned when a wire-encoded ciphertext or key has an
// unexpected length.
var ErrShortBuffer = errors.New("paillier: short buffer")

// cipherByteLen is the fixed wire width of a ciphertext under a key of the
// given bit size: c < n^2, and n^2 fits in 2*bits bits.
func cipherByteLen(bits int) int {
	return (2*bits + 7) / 8
}

// encodeCiphertext renders c as a fixed-width big-endian byte slice sized to
// the public key's modulus, matching the 2n-bit ciphertext wire format.
func (pub *PublicKey) encodeCiphertext(c *big.Int) []byte {
	buf := make([]byte, cipherByteLen(pub.N.BitLen()))
	return c.FillBytes(buf)
}

func (pub *PublicKey) decodeCiphertext(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// WritePublicKey writes n as a length-prefixed big-endian integer. g is
// always n+1 in this implementation's simplified-generator variant, so only
// n needs to cross the wire.
func (pub *PublicKey) WritePublicKey(w io.Writer) error {
	return writeBigInt(w, pub.N)
}

// ReadPublicKey reads back what WritePublicKey wrote.
func ReadPublicKey(r io.Reader) (*PublicKey, error) {
	n, err := readBigInt(r)
	if err != nil {
		return nil, err
	}
	return newPublicKey(n, new(big.Int).Add(n, big1)), nil
}

func writeBigInt(w io.Writer, v *big.Int) error {
	b := v.Bytes()
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(b)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBigInt(r io.Reader) (*big.Int, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(length[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}
