package selection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type intSwapper struct{ ctrl map[int]bool }

func (s intSwapper) CondSwap(ctrl, a, b int) (int, int) {
	if s.ctrl[ctrl] {
		return b, a
	}
	return a, b
}

type intMux struct{ ctrl map[int]bool }

func (m intMux) Mux(ctrl, a, b int) int {
	if m.ctrl[ctrl] {
		return a
	}
	return b
}

func apply(t *testing.T, b *Block, u int, vals []int) []int {
	t.Helper()
	inputs := make([]int, u+b.NumDummyInputs())
	copy(inputs, vals)
	return b.ApplyInt(inputs)
}

func TestSelectionExtendedExample(t *testing.T) {
	// spec.md section 8, item 3: u=4, m=8, pi=[0,1,2,3,0,1,2,3].
	u := 4
	pi := []int{0, 1, 2, 3, 0, 1, 2, 3}
	b, err := Program(u, pi)
	require.NoError(t, err)
	assert.Equal(t, 8-4, b.NumDummyInputs())
	assert.Equal(t, 7, b.NumMuxGates())

	out := apply(t, b, u, []int{10, 11, 12, 13})
	for k, src := range pi {
		assert.Equalf(t, 10+src, out[k], "k=%d", k)
	}
}

func TestSelectionTruncatedExample(t *testing.T) {
	// spec.md section 8, item 4: u=8, m=3, pi=[7,7,0].
	u := 8
	pi := []int{7, 7, 0}
	b, err := Program(u, pi)
	require.NoError(t, err)
	assert.Equal(t, 0, b.NumDummyInputs())
	assert.Equal(t, 2, b.NumMuxGates())

	vals := []int{100, 101, 102, 103, 104, 105, 106, 107}
	out := apply(t, b, u, vals)
	for k, src := range pi {
		assert.Equalf(t, vals[src], out[k], "k=%d", k)
	}
}

func TestSelectionFuzz(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		u := 1 + r.Intn(10)
		m := 1 + r.Intn(10)
		pi := make([]int, m)
		for k := range pi {
			pi[k] = r.Intn(u)
		}
		b, err := Program(u, pi)
		require.NoError(t, err)

		vals := make([]int, u)
		for i := range vals {
			vals[i] = 1000 + i
		}
		out := apply(t, b, u, vals)
		for k, src := range pi {
			assert.Equalf(t, vals[src], out[k], "u=%d m=%d pi=%v", u, m, pi)
		}
	}
}

func TestSelectionBuildCircuitMatchesApplyInt(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	for trial := 0; trial < 30; trial++ {
		u := 1 + r.Intn(8)
		m := 1 + r.Intn(8)
		pi := make([]int, m)
		for k := range pi {
			pi[k] = r.Intn(u)
		}
		b, err := Program(u, pi)
		require.NoError(t, err)

		n := u + b.NumDummyInputs()
		inputs := make([]int, n)
		for i := range inputs {
			inputs[i] = 5000 + i
		}
		want := b.ApplyInt(inputs)

		p1Switches := b.p1.Switches()
		p1Ctrl := make(map[int]bool, len(p1Switches))
		p1Wires := make([]int, len(p1Switches))
		for i, s := range p1Switches {
			p1Wires[i] = i
			p1Ctrl[i] = s
		}
		p2Switches := b.p2.Switches()
		p2Ctrl := make(map[int]bool, len(p2Switches))
		p2Wires := make([]int, len(p2Switches))
		for i, s := range p2Switches {
			p2Wires[i] = 100000 + i
			p2Ctrl[100000+i] = s
		}
		muxCtrl := make(map[int]bool, b.NumMuxGates())
		muxWires := make([]int, b.NumMuxGates())
		for i := 0; i < b.NumMuxGates(); i++ {
			pos := i + 1
			muxWires[i] = 200000 + i
			muxCtrl[200000+i] = b.isTake[pos]
		}
		// BuildCircuit takes one Swapper for both networks; the p1 and p2
		// control wire ids do not overlap, so one map serves both.
		for w, s := range p2Ctrl {
			p1Ctrl[w] = s
		}

		got := b.BuildCircuit(
			intSwapper{ctrl: p1Ctrl},
			intMux{ctrl: muxCtrl},
			p1Wires, muxWires, p2Wires,
			inputs,
		)
		assert.Equal(t, want, got)
	}
}

func TestSelectionRejectsInvalidMap(t *testing.T) {
	_, err := Program(4, []int{0, 4})
	assert.Equal(t, ErrInvalidMap, err)
	_, err = Program(4, nil)
	assert.Equal(t, ErrInvalidMap, err)
}
