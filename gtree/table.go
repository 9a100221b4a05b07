package gtree

import (
	"crypto/rand"
	"errors"

	"github.com/privatetree/pdte/tree"
)

// ErrSigmaUndefined is returned when BuildTable encounters a decision node
// with no entry in the supplied permutation.
var ErrSigmaUndefined = errors.New("gtree: permutation has no entry for a decision node")

// ErrTraversalOverrun is returned when Traverse exceeds its step budget
// without reaching a leaf, which can only happen on a malformed table
// (spec.md section 7, InvariantViolation).
var ErrTraversalOverrun = errors.New("gtree: traversal exceeded maximum depth without reaching a leaf")

// KeySchedule holds the m per-node kappa-bit keys nk[0..m-1], with the
// invariant nk[0] = 0 so the root is reachable without any prior key
// (spec.md section 4.6).
type KeySchedule [][]byte

// NewKeySchedule draws m random node keys, zeroing the first.
func NewKeySchedule(m int) (KeySchedule, error) {
	ks := make(KeySchedule, m)
	for i := range ks {
		ks[i] = make([]byte, KeyBytes)
		if i == 0 {
			continue
		}
		if _, err := rand.Read(ks[i]); err != nil {
			return nil, err
		}
	}
	return ks, nil
}

// Table is the m garbled node ciphertexts, indexed by permuted index j =
// sigma(i), emitted in the order Traverse expects to read them.
type Table struct {
	Nodes []NodeCiphertext
}

// WireKeys supplies, for the decision node at original tree index i, the
// Server's two candidate output-wire keys for that node's comparison gate -
// the quantities the garbled-circuit driver (spec.md section 4.5) computes
// per decision node.
type WireKeys func(originalIndex tree.Index) (k0, k1 []byte, err error)

// BuildTable encrypts every decision node of dt into its garbled pair, per
// spec.md section 4.6. sigma maps each decision node's original arena
// index to its permuted table slot; sigma[root] must be 0 to match
// KeySchedule's nk[0] = 0 invariant. dt is assumed already depth-padded.
func BuildTable(dt *tree.DecisionTree, sigma map[tree.Index]int, nk KeySchedule, wireKeys WireKeys) (*Table, error) {
	t := &Table{Nodes: make([]NodeCiphertext, len(nk))}

	recordFor := func(child tree.Index) ([]byte, error) {
		n := dt.Nodes[child]
		if n.Leaf {
			return EncodeLeaf(n.Classification), nil
		}
		j, ok := sigma[child]
		if !ok {
			return nil, ErrSigmaUndefined
		}
		if j < 0 || j >= len(nk) {
			return nil, ErrSigmaUndefined
		}
		return EncodeDecisionChild(j, nk[j]), nil
	}

	for i, n := range dt.Nodes {
		if n.Leaf {
			continue
		}
		idx := tree.Index(i)
		j, ok := sigma[idx]
		if !ok {
			return nil, ErrSigmaUndefined
		}

		left, err := recordFor(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := recordFor(n.Right)
		if err != nil {
			return nil, err
		}

		k0, k1, err := wireKeys(idx)
		if err != nil {
			return nil, err
		}
		t.Nodes[j] = Encrypt(left, right, nk[j], k0, k1)
	}
	return t, nil
}

// EvaluatedKeyAt supplies the Client's evaluated output-wire key for the
// comparison gate at permuted table index j.
type EvaluatedKeyAt func(j int) ([]byte, error)

// Traverse walks the Client side of the protocol from the root (table slot
// 0, key all-zero) until it decrypts a leaf record, per spec.md section
// 4.6's four-step loop. maxSteps bounds the walk to the tree's padded
// depth; exceeding it signals a malformed table rather than looping
// forever on attacker-controlled input.
func Traverse(table *Table, evaluatedKeyAt EvaluatedKeyAt, maxSteps int) (classification uint64, steps int, err error) {
	j := 0
	nk := make([]byte, KeyBytes)

	for steps = 0; steps < maxSteps; steps++ {
		if j < 0 || j >= len(table.Nodes) {
			return 0, steps, errors.New("gtree: traversal index out of range")
		}
		key, err := evaluatedKeyAt(j)
		if err != nil {
			return 0, steps, err
		}
		data, err := decrypt(table.Nodes[j], nk, key)
		if err != nil {
			return 0, steps, err
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return 0, steps, err
		}
		if rec.IsLeaf {
			return rec.Classification, steps + 1, nil
		}
		j = rec.ChildIndex
		nk = rec.ChildKey
	}
	return 0, steps, ErrTraversalOverrun
}
