package dgk

import (
	"encoding/binary"
	"io"
	"math/big"
)

// cipherByteLen is the fixed wire width of a DGK ciphertext: c < n, little-
// endian per spec.md section 3's wire-format table (DGK differs from
// Paillier's big-endian 2n-bit layout).
func cipherByteLen(bits int) int {
	return (bits + 7) / 8
}

func (pub *PublicKey) encodeCiphertext(c *big.Int) []byte {
	buf := make([]byte, cipherByteLen(pub.N.BitLen()))
	b := c.Bytes()
	for i := 0; i < len(b); i++ {
		buf[i] = b[len(b)-1-i]
	}
	return buf
}

func (pub *PublicKey) decodeCiphertext(b []byte) *big.Int {
	rev := make([]byte, len(b))
	for i := 0; i < len(b); i++ {
		rev[i] = b[len(b)-1-i]
	}
	return new(big.Int).SetBytes(rev)
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
