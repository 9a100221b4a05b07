package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toyTreeSource is spec.md section 8 scenario 1: root X[0]<=500, left leaf
// 7, right subtree X[1]<=300 with left leaf 11, right leaf 13.
const toyTreeSource = `0 [label="X[0] <= 0.5\ngini = 0.3"]
1 [label="gini = 0.1"]
2 [label="X[1] <= 0.3\ngini = 0.2"]
3 [label="gini = 0.1"]
4 [label="gini = 0.1"]
0 -> 1
0 -> 2
2 -> 3
2 -> 4
`

func parseToy(t *testing.T, labels []uint64) *DecisionTree {
	t.Helper()
	i := 0
	rc := RandomClassifications{Next: func() uint64 {
		v := labels[i]
		i++
		return v
	}}
	tr, err := Parse(strings.NewReader(toyTreeSource), rc)
	require.NoError(t, err)
	return tr
}

func TestParseToyTreeAndEvaluate(t *testing.T) {
	tr := parseToy(t, []uint64{7, 11, 13})

	cases := []struct {
		features []uint64
		want     uint64
	}{
		{[]uint64{600, 200}, 11},
		{[]uint64{100, 999}, 7},
		{[]uint64{600, 400}, 13},
	}
	for _, c := range cases {
		got, err := tr.Evaluate(c.features)
		require.NoError(t, err)
		assert.Equalf(t, c.want, got, "features=%v", c.features)
	}
}

func TestDepthPadEqualizesLeafDepth(t *testing.T) {
	tr := parseToy(t, []uint64{7, 11, 13})
	require.Equal(t, 2, tr.Depth)

	tr.DepthPad()
	for i, n := range tr.Nodes {
		if n.Leaf {
			assert.Equalf(t, tr.Depth, n.Level, "leaf %d", i)
		}
	}
	// the shallow leaf (originally node 1, depth 1) must now sit behind a
	// dummy internal node whose two children alias the same leaf index.
	var foundDummy bool
	for _, n := range tr.Nodes {
		if !n.Leaf && n.Left == n.Right && n.Left != NilIndex {
			foundDummy = true
			assert.True(t, tr.Nodes[n.Left].Leaf)
		}
	}
	assert.True(t, foundDummy)

	// evaluation results must be unchanged by padding.
	for _, c := range []struct {
		features []uint64
		want     uint64
	}{
		{[]uint64{600, 200}, 11},
		{[]uint64{100, 999}, 7},
		{[]uint64{600, 400}, 13},
	} {
		got, err := tr.Evaluate(c.features)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestParseLabeledClassificationHHH(t *testing.T) {
	const src = `0 [label="gini a b c d 9999]
`
	tr, err := Parse(strings.NewReader(src), LabeledClassifications{})
	require.NoError(t, err)
	require.Len(t, tr.Nodes, 1)
	assert.Equal(t, uint64(9999), tr.Nodes[0].Classification)
}

func TestParseRejectsEmptyFile(t *testing.T) {
	_, err := Parse(strings.NewReader(""), RandomClassifications{Next: func() uint64 { return 0 }})
	assert.Error(t, err)
}
