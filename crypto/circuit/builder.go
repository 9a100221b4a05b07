package circuit

// Builder assembles a Circuit gate-by-gate, for callers (crypto/mpcengine)
// that construct a subcircuit programmatically instead of
// loading one from a Bristol-fashion file with LoadBristol. Wire indices
// are allocated in the order requested; the zero value is not usable, use
// NewBuilder.
type Builder struct {
	countWires  int
	inputSize   []int
	outputSize  []int
	outputWires [][]int
	gates       []*gate
}

// NewBuilder returns an empty circuit builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AllocateInput reserves n fresh input wires belonging to one party (the
// garbler for the first call, the evaluator for the second, matching
// Bristol fashion's two-input-vector convention) and returns their indices.
func (b *Builder) AllocateInput(n int) []int {
	wires := make([]int, n)
	for i := 0; i < n; i++ {
		wires[i] = b.countWires
		b.countWires++
	}
	b.inputSize = append(b.inputSize, n)
	return wires
}

// Wire allocates a single fresh internal wire, for gates (such as a
// constant 0/1 source) that do not come from AllocateInput or another
// gate's output.
func (b *Builder) Wire() int {
	w := b.countWires
	b.countWires++
	return w
}

// Gate appends a single gate with the given input wires and returns its
// freshly allocated output wire.
func (b *Builder) Gate(op Gate, inputs ...int) int {
	out := b.countWires
	b.countWires++
	b.gates = append(b.gates, newGate(append([]int(nil), inputs...), []int{out}, op))
	return out
}

// Xor, And, Inv, Eq are thin convenience wrappers around Gate for the four
// gate types crypto/circuit's garbler/evaluator understand.
func (b *Builder) Xor(a, c int) int { return b.Gate(XOR, a, c) }
func (b *Builder) And(a, c int) int { return b.Gate(AND, a, c) }
func (b *Builder) Inv(a int) int    { return b.Gate(INV, a) }
func (b *Builder) Eq(a int) int     { return b.Gate(EQ, a) }

// MarkOutput declares that wires is one contiguous output vector. Unlike a
// circuit loaded from a Bristol-fashion file - where the output vector is
// by convention the file's highest-indexed wires - a programmatically
// built circuit's output wires (e.g. mpcengine's per-node GT result,
// sitting in the middle of the next node's subtractor) are wherever the
// caller last touched them. MarkOutput records the actual wire IDs; Build
// relocates them.
func (b *Builder) MarkOutput(wires []int) {
	b.outputWires = append(b.outputWires, append([]int(nil), wires...))
	b.outputSize = append(b.outputSize, len(wires))
}

// Build finalizes the circuit. Circuit.Garbled/EvaluateGarbleCircuit (the
// Bristol-fashion-derived garbler/evaluator this package ships) read
// output wires positionally, as the circuit's highest-indexed
// countWires-totalOutputSize()..countWires-1 wires, in MarkOutput call
// order. Build satisfies that invariant for wires marked from anywhere in
// the circuit by appending one free EQ-gate copy per marked output wire,
// in call order, so the copies - not the original wire IDs - land on that
// trailing range.
func (b *Builder) Build() *Circuit {
	gates := append([]*gate(nil), b.gates...)
	countWires := b.countWires
	for _, group := range b.outputWires {
		for _, w := range group {
			out := countWires
			countWires++
			gates = append(gates, newGate([]int{w}, []int{out}, EQ))
		}
	}
	return &Circuit{
		countWires: countWires,
		countGates: len(gates),
		inputSize:  b.inputSize,
		outputSize: b.outputSize,
		gates:      gates,
	}
}
