package mpcengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privatetree/pdte/crypto/heparty"
)

func bitsOf(v uint8, n int) []uint8 {
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		out[i] = (v >> uint(i)) & 1 // LSB first
	}
	return out
}

// evalInput simulates the oblivious transfer boundary for a test: it picks
// the Client's own labels directly out of the garbler's (W0,W1) pairs by
// the Client's real bit, standing in for whatever OT protocol would hand
// them over in production.
func evalInput(serverX [][]byte, clientW0, clientW1 [][]byte, clientBits []uint8) [][]byte {
	out := append([][]byte(nil), serverX...)
	for i, bit := range clientBits {
		if bit == 0 {
			out = append(out, clientW0[i])
		} else {
			out = append(out, clientW1[i])
		}
	}
	return out
}

func TestEngineGreaterThan(t *testing.T) {
	const n = 8
	cases := []struct{ a, b uint8 }{
		{3, 5}, {5, 3}, {5, 5}, {0, 255}, {255, 0}, {200, 199},
	}
	for _, c := range cases {
		e := New()
		aw := e.PutInputShare(heparty.RoleServer, n)
		bw := e.PutInputShare(heparty.RoleClient, n)
		gt := e.PutGT(aw, bw)
		e.MarkOutput([]int{gt})

		msg, err := e.Garble(128, bitsOf(c.a, n))
		require.NoError(t, err)
		w0, w1 := e.GarbleWiresForClient()

		e2 := New()
		aw2 := e2.PutInputShare(heparty.RoleServer, n)
		bw2 := e2.PutInputShare(heparty.RoleClient, n)
		gt2 := e2.PutGT(aw2, bw2)
		e2.MarkOutput([]int{gt2})

		input := evalInput(msg.X, w0, w1, bitsOf(c.b, n))
		require.NoError(t, e2.Evaluate(msg, input))

		key, err := e2.GetEvaluatedKey(0)
		require.NoError(t, err)
		perm, err := e.GetPermutationBit(0)
		require.NoError(t, err)
		gotBit := (key[len(key)-1] & 1) ^ uint8(perm)

		want := uint8(0)
		if c.a > c.b {
			want = 1
		}
		assert.Equalf(t, want, gotBit, "a=%d b=%d", c.a, c.b)
	}
}

func TestEngineSubtract(t *testing.T) {
	const n = 8
	e := New()
	aw := e.PutInputShare(heparty.RoleServer, n)
	bw := e.PutInputShare(heparty.RoleClient, n)
	diff, borrow := e.PutSUB(aw, bw)
	out := append(append([]int(nil), diff...), borrow)
	e.MarkOutput(out)

	msg, err := e.Garble(128, bitsOf(20, n))
	require.NoError(t, err)
	w0, w1 := e.GarbleWiresForClient()

	e2 := New()
	aw2 := e2.PutInputShare(heparty.RoleServer, n)
	bw2 := e2.PutInputShare(heparty.RoleClient, n)
	diff2, borrow2 := e2.PutSUB(aw2, bw2)
	e2.MarkOutput(append(append([]int(nil), diff2...), borrow2))

	input := evalInput(msg.X, w0, w1, bitsOf(7, n))
	require.NoError(t, e2.Evaluate(msg, input))

	var got uint8
	for i := 0; i < n; i++ {
		key, err := e2.GetEvaluatedKey(i)
		require.NoError(t, err)
		perm, err := e.GetPermutationBit(i)
		require.NoError(t, err)
		bit := (key[len(key)-1] & 1) ^ uint8(perm)
		got |= bit << uint(i)
	}
	borrowKey, err := e2.GetEvaluatedKey(n)
	require.NoError(t, err)
	borrowPerm, _ := e.GetPermutationBit(n)
	borrowBit := (borrowKey[len(borrowKey)-1] & 1) ^ uint8(borrowPerm)

	assert.Equal(t, uint8(20-7), got)
	assert.Equal(t, uint8(0), borrowBit)
}
