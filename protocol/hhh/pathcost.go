package hhh

import (
	"io"
	"math/big"

	"github.com/privatetree/pdte/crypto/ecelgamal"
	"github.com/privatetree/pdte/crypto/utils"
	"github.com/privatetree/pdte/tree"
)

// PerNodeBit carries, for each decision node, the Client's ElGamal
// encryption of its share of that node's comparison result (1 meaning the
// feature exceeded the threshold - the real path goes right). Produced by
// the gt protocol in compare.go and re-encrypted by the Client so the
// Server can accumulate path costs homomorphically without ever learning a
// single node's outcome (spec.md section 4.7's Tai et al. leaf evaluation).
type PerNodeBit map[tree.Index]*ecelgamal.Ciphertext

// LeafResult is one leaf's masked path cost and masked classification, the
// pair the Server ships to the Client in shuffled order.
type LeafResult struct {
	Leaf           tree.Index
	PathCost       *ecelgamal.Ciphertext
	Classification *ecelgamal.Ciphertext
}

func oneMinus(pub *ecelgamal.PublicKey, ct *ecelgamal.Ciphertext) (*ecelgamal.Ciphertext, error) {
	neg := ecelgamal.ScalarMult(ct, big.NewInt(-1))
	one, err := pub.Encrypt(big.NewInt(1))
	if err != nil {
		return nil, err
	}
	return ecelgamal.Add(neg, one)
}

// BuildLeafResults walks dt (assumed depth-padded) accumulating, for every
// leaf, the additive sum of its path's edge costs: an edge costs 0 when it
// agrees with the real branch at its parent and 1 otherwise, so only the
// leaf on the true root-to-leaf path accumulates a cost of exactly 0. Both
// the path cost and the classification are scalar-masked by fresh random
// multipliers before being returned, per spec.md section 4.7.
func BuildLeafResults(dt *tree.DecisionTree, pub *ecelgamal.PublicKey, bits PerNodeBit) ([]LeafResult, error) {
	zero, err := pub.Encrypt(big.NewInt(0))
	if err != nil {
		return nil, err
	}

	var results []LeafResult
	var walk func(idx tree.Index, cost *ecelgamal.Ciphertext) error
	walk = func(idx tree.Index, cost *ecelgamal.Ciphertext) error {
		n := dt.Nodes[idx]
		if n.Leaf {
			r1, err := utils.RandomInt(pub.Curve.Params().N)
			if err != nil {
				return err
			}
			r2, err := utils.RandomInt(pub.Curve.Params().N)
			if err != nil {
				return err
			}
			maskedCost := ecelgamal.ScalarMult(cost, r1)
			labelCt, err := pub.Encrypt(big.NewInt(int64(n.Classification)))
			if err != nil {
				return err
			}
			scaledCost := ecelgamal.ScalarMult(cost, r2)
			maskedClassif, err := ecelgamal.Add(scaledCost, labelCt)
			if err != nil {
				return err
			}
			results = append(results, LeafResult{Leaf: idx, PathCost: maskedCost, Classification: maskedClassif})
			return nil
		}

		bit, ok := bits[idx]
		if !ok {
			return ErrBitVectorLength
		}
		// bit encrypts 1 when the comparison found the feature greater than
		// the threshold, i.e. the real branch is right. The right edge then
		// must cost 0 in that case and 1 otherwise, the opposite of bit's
		// own value, and symmetrically for the left edge.
		left := bit
		right, err := oneMinus(pub, bit)
		if err != nil {
			return err
		}

		leftCost, err := ecelgamal.Add(cost, left)
		if err != nil {
			return err
		}
		if err := walk(n.Left, leftCost); err != nil {
			return err
		}

		rightCost, err := ecelgamal.Add(cost, right)
		if err != nil {
			return err
		}
		return walk(n.Right, rightCost)
	}

	if err := walk(tree.Index(0), zero); err != nil {
		return nil, err
	}
	return results, nil
}

// ShuffleLeafResults randomly permutes the leaf results so their order
// reveals nothing about which leaf lies on the true path.
func ShuffleLeafResults(results []LeafResult, rng io.Reader) ([]LeafResult, error) {
	out := append([]LeafResult(nil), results...)
	for i := len(out) - 1; i > 0; i-- {
		j, err := randIntn(rng, i+1)
		if err != nil {
			return nil, err
		}
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ErrNoZeroPathCost is returned when none of the shuffled leaf results
// decrypt to a zero path cost, which can only happen on a malformed
// transcript (spec.md section 7, InvariantViolation).
var ErrNoZeroPathCost = errNoZeroPathCost{}

type errNoZeroPathCost struct{}

func (errNoZeroPathCost) Error() string {
	return "hhh: no leaf result decrypted to a zero path cost"
}

// ClientDecodeClassification is the Client's final step: find the one leaf
// result whose path cost decrypts to zero and recover its classification
// via the bounded baby-step-giant-step search.
func ClientDecodeClassification(priv *ecelgamal.PrivateKey, results []LeafResult) (uint64, error) {
	for _, r := range results {
		isZero, err := priv.IsZero(r.PathCost)
		if err != nil {
			return 0, err
		}
		if !isZero {
			continue
		}
		label, err := priv.Decrypt(r.Classification, ecelgamal.DefaultMaxLabel)
		if err != nil {
			return 0, err
		}
		return label.Uint64(), nil
	}
	return 0, ErrNoZeroPathCost
}
