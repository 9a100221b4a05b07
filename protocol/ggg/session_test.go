package ggg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalInput mirrors crypto/mpcengine's own test helper: it stands in for
// the OT boundary by picking the Client's labels directly out of the
// garbler's (W0,W1) pairs according to the Client's real bits.
func evalInput(serverX [][]byte, clientW0, clientW1 [][]byte, featureBits []uint8) [][]byte {
	out := append([][]byte(nil), serverX...)
	for i, bit := range featureBits {
		if bit == 0 {
			out = append(out, clientW0[i])
		} else {
			out = append(out, clientW1[i])
		}
	}
	return out
}

// TestBuildCircuitLayoutIndependentOfSelectionMap is the correctness
// property RunClient's placeholder pi depends on: crypto/selection's
// network sizes (and so mpcengine's gate graph) are a function of (d, m)
// alone, never of which sources pi actually names. Two circuits built from
// the same (d, m) but different pi must allocate the same wire counts in
// the same role order, so the Client - who does not know the Server's real
// pi - can still build an evaluable, identically-shaped circuit.
func TestBuildCircuitLayoutIndependentOfSelectionMap(t *testing.T) {
	d, m := 4, 6
	piA := []int{0, 1, 2, 3, 0, 1}
	piB := []int{3, 3, 3, 3, 3, 3}

	bcA, err := buildCircuit(d, m, piA)
	require.NoError(t, err)
	bcB, err := buildCircuit(d, m, piB)
	require.NoError(t, err)

	assert.Equal(t, len(bcA.p1Wires), len(bcB.p1Wires))
	assert.Equal(t, len(bcA.muxWires), len(bcB.muxWires))
	assert.Equal(t, len(bcA.p2Wires), len(bcB.p2Wires))
	assert.Equal(t, bcA.p1Wires, bcB.p1Wires)
	assert.Equal(t, bcA.muxWires, bcB.muxWires)
	assert.Equal(t, bcA.p2Wires, bcB.p2Wires)
	assert.Equal(t, bcA.outWires, bcB.outWires)
}

// TestSelectionThenCompareEndToEnd runs the garbler/evaluator roles on two
// independently built Engine instances (mirroring how
// crypto/mpcengine_test.go itself drives Garble/Evaluate in-process,
// standing in for protocol/ggg's Server and Client without a live
// transport.Conn), and checks that the garbled selection-then-comparison
// circuit reproduces the plaintext decision at every node: features[pi[k]]
// > threshold[k].
func TestSelectionThenCompareEndToEnd(t *testing.T) {
	d := 3
	pi := []int{0, 2, 1} // node 0 reads feature 0, node 1 reads feature 2, node 2 reads feature 1
	thresholds := []uint64{10, 500, 0}
	features := []uint64{7, 50, 999} // node0: 7>10 false; node1: 999>500 true; node2: 50>0 true
	m := len(pi)

	serverBC, err := buildCircuit(d, m, pi)
	require.NoError(t, err)

	serverBits := make([]uint8, 0)
	for _, b := range serverBC.block.P1Bits() {
		serverBits = append(serverBits, boolBit(b))
	}
	for _, b := range serverBC.block.MuxBits() {
		serverBits = append(serverBits, boolBit(b))
	}
	for _, b := range serverBC.block.P2Bits() {
		serverBits = append(serverBits, boolBit(b))
	}
	for k := 0; k < m; k++ {
		serverBits = append(serverBits, bitsLSB(thresholds[k], comparisonBits)...)
	}

	msg, err := serverBC.eng.Garble(128, serverBits)
	require.NoError(t, err)
	w0, w1 := serverBC.eng.GarbleWiresForClient()

	// The Client does not know pi; it builds the same (d, m)-shaped
	// circuit with an arbitrary placeholder map, exactly as RunClient does.
	placeholderPi := make([]int, m)
	for k := range placeholderPi {
		placeholderPi[k] = k % d
	}
	clientBC, err := buildCircuit(d, m, placeholderPi)
	require.NoError(t, err)

	featureBits := make([]uint8, 0, d*comparisonBits)
	for i := 0; i < d; i++ {
		featureBits = append(featureBits, bitsLSB(features[i], comparisonBits)...)
	}
	input := evalInput(msg.X, w0, w1, featureBits)
	require.NoError(t, clientBC.eng.Evaluate(msg, input))

	want := []bool{false, true, true}
	for k := 0; k < m; k++ {
		key, err := clientBC.eng.GetEvaluatedKey(k)
		require.NoError(t, err)
		perm, err := serverBC.eng.GetPermutationBit(k)
		require.NoError(t, err)
		gotBit := (key[len(key)-1] & 1) ^ uint8(perm)
		wantBit := uint8(0)
		if want[k] {
			wantBit = 1
		}
		assert.Equalf(t, wantBit, gotBit, "node %d", k)
	}
}
