// Package hhh implements the HHH protocol variant (spec.md section 4.7):
// selection and comparison performed entirely under additively-homomorphic
// ElGamal-on-a-curve rather than garbled circuits. The bit-by-bit
// comparison is the Damgard-Geisler-Kroigaard construction the DGK party
// (crypto/dgk) already implements over Paillier-style ciphertexts; this
// package re-derives the same c_i construction on top of crypto/ecelgamal
// instead, grounded on crypto/dgk/party.go's encoding conventions and on
// the original source's XCMP_files/benchmark_gt/hhh.cpp.
package hhh

import (
	"errors"
	"io"
	"math/big"

	"github.com/privatetree/pdte/crypto/ecelgamal"
)

// ErrBitVectorLength is returned when a ciphertext bit vector's length does
// not match the expected bit width.
var ErrBitVectorLength = errors.New("hhh: bit vector has unexpected length")

// EncryptFeatureBits is the Client's half of the gt protocol: encrypt each
// of the low nbits bits of value individually, index 0 holding the least
// significant bit (spec.md section 4.7, "Client sends per-bit encryptions
// of each feature").
func EncryptFeatureBits(pub *ecelgamal.PublicKey, value uint64, nbits int) ([]*ecelgamal.Ciphertext, error) {
	out := make([]*ecelgamal.Ciphertext, nbits)
	for i := 0; i < nbits; i++ {
		bit := (value >> uint(i)) & 1
		ct, err := pub.Encrypt(big.NewInt(int64(bit)))
		if err != nil {
			return nil, err
		}
		out[i] = ct
	}
	return out, nil
}

// xorWithPlainBit homomorphically computes x XOR y for encrypted bit x and
// known plaintext bit y: XOR with 0 is the identity, XOR with 1 negates the
// ciphertext and adds an encryption of 1.
func xorWithPlainBit(pub *ecelgamal.PublicKey, x *ecelgamal.Ciphertext, y uint64) (*ecelgamal.Ciphertext, error) {
	if y&1 == 0 {
		return x, nil
	}
	negX := ecelgamal.ScalarMult(x, big.NewInt(-1))
	one, err := pub.Encrypt(big.NewInt(1))
	if err != nil {
		return nil, err
	}
	return ecelgamal.Add(negX, one)
}

// ComputeComparisonCiphertexts is the Server's half: given the Client's
// encrypted feature bits and this decision node's plaintext threshold, build
// the per-bit-position ciphertext vector
//
//	c_i = x_i - y_i - 1 + 3*sum_{j>i}(x_j XOR y_j)
//
// processing from the most significant bit down so that "sum_{j>i}"
// accumulates exactly the higher bit positions already visited (spec.md
// section 4.7). pub is the Client's ElGamal public key, used to encrypt the
// constants -y_i, -1 and the XOR-with-1 correction.
//
// The additive constant is fixed at -1 rather than drawn at random: a zero
// c_i then appears at exactly one position - the most significant bit at
// which x and y differ, with x=1 and y=0 there - if and only if x>y, and
// never otherwise, including when x==y. The mirror convention (+1) tests
// the complementary x<y and leaves x==y indistinguishable from x>y, which
// does not match the decision tree's "attribute <= threshold" branch
// semantics, where equality must take the left edge. This resolves a gap
// in the construction's description: it cannot be made symmetric (sign
// chosen per comparison) without breaking equality, so the Server always
// runs the x>y direction.
func ComputeComparisonCiphertexts(pub *ecelgamal.PublicKey, xBits []*ecelgamal.Ciphertext, threshold uint64, nbits int) ([]*ecelgamal.Ciphertext, error) {
	if len(xBits) != nbits {
		return nil, ErrBitVectorLength
	}
	negOne, err := pub.Encrypt(big.NewInt(-1))
	if err != nil {
		return nil, err
	}

	c := make([]*ecelgamal.Ciphertext, nbits)
	higherXorSum, err := pub.Encrypt(big.NewInt(0))
	if err != nil {
		return nil, err
	}

	for i := nbits - 1; i >= 0; i-- {
		yi := (threshold >> uint(i)) & 1

		negYi, err := pub.Encrypt(big.NewInt(-int64(yi)))
		if err != nil {
			return nil, err
		}
		ci, err := ecelgamal.Add(xBits[i], negYi)
		if err != nil {
			return nil, err
		}
		ci, err = ecelgamal.Add(ci, negOne)
		if err != nil {
			return nil, err
		}
		scaled := ecelgamal.ScalarMult(higherXorSum, big.NewInt(3))
		ci, err = ecelgamal.Add(ci, scaled)
		if err != nil {
			return nil, err
		}
		c[i] = ci

		xorTerm, err := xorWithPlainBit(pub, xBits[i], yi)
		if err != nil {
			return nil, err
		}
		higherXorSum, err = ecelgamal.Add(higherXorSum, xorTerm)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Shuffle applies a uniformly random permutation to cs (a fresh Fisher-
// Yates draw from rng), hiding which bit position (if any) decrypted to
// zero from a passive observer of the transcript.
func Shuffle(cs []*ecelgamal.Ciphertext, rng io.Reader) ([]*ecelgamal.Ciphertext, error) {
	out := append([]*ecelgamal.Ciphertext(nil), cs...)
	for i := len(out) - 1; i > 0; i-- {
		j, err := randIntn(rng, i+1)
		if err != nil {
			return nil, err
		}
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func randIntn(rng io.Reader, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	// rejection sampling over a 4-byte window, plenty for the small n
	// (<=64 bit positions) this package ever shuffles.
	max := uint32(n)
	limit := (uint32(1)<<31)/max*max - 1
	for {
		var b [4]byte
		if _, err := io.ReadFull(rng, b[:]); err != nil {
			return 0, err
		}
		v := (uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])) & 0x7fffffff
		if v <= limit {
			return int(v % max), nil
		}
	}
}

// ClientCheckGreaterThan is the Client's final step: decrypt (cheaply, via
// IsZero) every shuffled ciphertext and report whether any is zero, which
// holds exactly when the feature exceeded the threshold.
func ClientCheckGreaterThan(priv *ecelgamal.PrivateKey, shuffled []*ecelgamal.Ciphertext) (bool, error) {
	for _, ct := range shuffled {
		isZero, err := priv.IsZero(ct)
		if err != nil {
			return false, err
		}
		if isZero {
			return true, nil
		}
	}
	return false, nil
}
