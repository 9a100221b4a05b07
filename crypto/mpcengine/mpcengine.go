// Package mpcengine implements the narrow "global MPC runtime" trait
// spec.md section 9 calls for: put_input_share, put_SUB, put_GT, put_MUX,
// put_Combiner/put_Splitter, exec_circuit, get_evaluated_key,
// get_permutation_bit, get_global_difference. Everything else in this
// module (crypto/selection, gtree) is written against Engine's methods
// rather than crypto/circuit directly, so a different garbling backend
// could stand in without touching the rest of the protocol.
//
// Engine is the one concrete instantiation of that trait this module
// ships: it assembles a crypto/circuit.Builder program (a ripple-borrow
// subtractor feeding a greater-than comparator, wired through
// crypto/selection's permutation/duplicator stages) and drives it through
// crypto/circuit's half-gates garbler/evaluator. Oblivious transfer of the
// evaluator's input labels is the one piece spec.md section 1 names as an
// external collaborator's responsibility; Engine's exec path accepts
// those labels as already-obtained rather than sourcing them itself.
package mpcengine

import (
	"errors"

	"github.com/privatetree/pdte/crypto/circuit"
	"github.com/privatetree/pdte/crypto/heparty"
)

// ErrNotGarbled / ErrNotEvaluated report calling a role-specific accessor
// before the matching Garble/Evaluate step has run.
var (
	ErrNotGarbled   = errors.New("mpcengine: circuit has not been garbled yet")
	ErrNotEvaluated = errors.New("mpcengine: circuit has not been evaluated yet")
)

// Engine accumulates a circuit program via Put* calls and then runs it as
// either the garbler (Server) or the evaluator (Client).
type Engine struct {
	b *circuit.Builder

	serverWires []int
	clientWires []int
	outputs     []int

	zero     int
	hasZero  bool
	first    int
	hasInput bool

	cir     *circuit.Circuit
	garbled *circuit.GarbleCircuit
	keys    [][]byte
}

// New returns an empty engine, ready for Put* calls.
func New() *Engine {
	return &Engine{b: circuit.NewBuilder()}
}

// PutInputShare allocates n fresh input wires owned by owner and returns
// their wire ids. Every RoleServer call must precede every RoleClient call,
// matching Bristol fashion's garbler-then-evaluator input ordering that
// circuit.EncryptFunc(0) assumes for the garbler's own (startIndex-0)
// revealed labels.
func (e *Engine) PutInputShare(owner heparty.Role, n int) []int {
	wires := e.b.AllocateInput(n)
	if owner == heparty.RoleServer {
		e.serverWires = append(e.serverWires, wires...)
	} else {
		e.clientWires = append(e.clientWires, wires...)
	}
	if !e.hasInput && len(wires) > 0 {
		e.first = wires[0]
		e.hasInput = true
	}
	return wires
}

func (e *Engine) fullSubtractBit(a, b, borrowIn int) (diff, borrowOut int) {
	axb := e.b.Xor(a, b)
	diff = e.b.Xor(axb, borrowIn)
	notA := e.b.Inv(a)
	term1 := e.b.And(notA, b)
	notAxb := e.b.Inv(axb)
	term2 := e.b.And(notAxb, borrowIn)
	// OR via De Morgan: no native OR gate in the Bristol-fashion gate set.
	borrowOut = e.b.Inv(e.b.And(e.b.Inv(term1), e.b.Inv(term2)))
	return diff, borrowOut
}

// PutSUB builds a ripple-borrow subtractor over a-b, LSB first, and
// returns the difference bits alongside the final borrow-out wire (1 iff
// a<b, treating both operands as unsigned). len(a) must equal len(b).
func (e *Engine) PutSUB(a, b []int) (diff []int, borrowOut int) {
	diff = make([]int, len(a))
	borrow, _ := e.ZeroWire()
	for i := range a {
		diff[i], borrow = e.fullSubtractBit(a[i], b[i], borrow)
	}
	return diff, borrow
}

// PutGT returns a single wire carrying 1 iff a>b (unsigned, MSB-insensitive
// bit order matching PutSUB: both a and b are LSB-first). It is realized as
// the borrow-out of b-a, since b<a iff a>b.
func (e *Engine) PutGT(a, b []int) int {
	_, borrow := e.PutSUB(b, a)
	return borrow
}

// Mux returns ctrl ? a : b, implementing crypto/selection.Muxer.
func (e *Engine) Mux(ctrl, a, b int) int {
	axb := e.b.Xor(a, b)
	t := e.b.And(ctrl, axb)
	return e.b.Xor(b, t)
}

// CondSwap implements crypto/waksman.Swapper on top of Mux.
func (e *Engine) CondSwap(ctrl, a, b int) (int, int) {
	return e.Mux(ctrl, b, a), e.Mux(ctrl, a, b)
}

// ZeroWire returns a constant-0 wire id, available once at least one
// PutInputShare call has been made. Callers that need a filler value for
// unused circuit slots (crypto/selection's NumDummyInputs padding) use
// this instead of allocating a fresh, unnecessary input share. The wire is
// a gate built on the first ZeroWire, PutSUB or PutGT call, so every
// PutInputShare call has to come before those.
func (e *Engine) ZeroWire() (int, bool) {
	if !e.hasZero && e.hasInput {
		e.zero = e.b.Xor(e.first, e.first)
		e.hasZero = true
	}
	return e.zero, e.hasZero
}

// PutCombiner and PutSplitter are identities in this engine: a multi-bit
// value is already represented as its slice of wire ids, so packing k
// single-bit wires into one k-bit value (or back) costs no gates. They
// exist so callers written against the trait, rather than this
// particular representation, still have something to call.
func (e *Engine) PutCombiner(bits []int) []int { return append([]int(nil), bits...) }
func (e *Engine) PutSplitter(bits []int) []int { return append([]int(nil), bits...) }

// MarkOutput declares wires (in MSB/LSB order matching how the caller will
// read GetEvaluatedKey/GetPermutationBit back) as circuit outputs.
func (e *Engine) MarkOutput(wires []int) {
	e.b.MarkOutput(wires)
	e.outputs = append(e.outputs, wires...)
}

// NumOutputs reports how many output wires MarkOutput has accumulated.
func (e *Engine) NumOutputs() int { return len(e.outputs) }

// Garble runs exec_circuit as the garbler (Server): serverBits is the
// Server's own input in wire-allocation order (PutInputShare(RoleServer,
// ...) calls, concatenated). It returns the message the Client needs to
// evaluate, plus (via GenerateGarbleWire) lets the caller prepare the
// Client's oblivious-transfer input.
func (e *Engine) Garble(kBit int, serverBits []uint8) (*circuit.GarbleCircuitMessage, error) {
	cir := e.Circuit()
	gc, msg, err := cir.Garbled(kBit, serverBits, circuit.EncryptFunc(0))
	if err != nil {
		return nil, err
	}
	e.garbled = gc
	return msg, nil
}

// GarbleWiresForClient exposes the (W0,W1) label pairs for the Client's
// input wires, for whatever OT mechanism hands them to the Client: this is
// the external boundary spec.md section 1 places outside this module.
func (e *Engine) GarbleWiresForClient() ([][]byte, [][]byte) {
	if len(e.clientWires) == 0 {
		return nil, nil
	}
	start := e.clientWires[0]
	end := e.clientWires[len(e.clientWires)-1] + 1
	return e.garbled.GenerateGarbleWire(start, end)
}

// GetGlobalDifference implements the trait's get_global_difference: only
// meaningful after Garble.
func (e *Engine) GetGlobalDifference() ([]byte, error) {
	if e.garbled == nil {
		return nil, ErrNotGarbled
	}
	return e.garbled.GlobalDifference(), nil
}

// GetPermutationBit implements get_permutation_bit for output wire i: only
// meaningful after Garble.
func (e *Engine) GetPermutationBit(i int) (int32, error) {
	if e.garbled == nil {
		return 0, ErrNotGarbled
	}
	return e.garbled.PermutationBit(i), nil
}

// OutputKeyPair returns the garbler's two candidate keys for output wire i.
func (e *Engine) OutputKeyPair(i int) (k0, k1 []byte, err error) {
	if e.garbled == nil {
		return nil, nil, ErrNotGarbled
	}
	k0, k1 = e.garbled.OutputKeyPair(i)
	return k0, k1, nil
}

// Evaluate runs exec_circuit as the evaluator (Client): input must have
// TotalInputSize() entries, the Server's revealed labels (msg.X) followed
// by the Client's own OT-obtained labels, in PutInputShare allocation
// order.
func (e *Engine) Evaluate(msg *circuit.GarbleCircuitMessage, input [][]byte) error {
	cir := e.Circuit()
	keys, err := cir.EvaluateToOutputKeys(msg, input)
	if err != nil {
		return err
	}
	e.keys = keys
	return nil
}

// GetEvaluatedKey implements get_evaluated_key: the Client's observed label
// for output wire i, only meaningful after Evaluate.
func (e *Engine) GetEvaluatedKey(i int) ([]byte, error) {
	if e.keys == nil {
		return nil, ErrNotEvaluated
	}
	return e.keys[i], nil
}

// Circuit returns the built circuit, for TotalInputSize/InputSize
// bookkeeping a caller needs before Garble/Evaluate.
func (e *Engine) Circuit() *circuit.Circuit {
	if e.cir == nil {
		e.cir = e.b.Build()
	}
	return e.cir
}
