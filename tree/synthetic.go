package tree

import (
	"errors"
	"math/rand"
)

// errDepthTooSmall and errDimensionTooSmall guard Synthetic's shape
// parameters.
var (
	errDepthTooSmall     = errors.New("tree: synthetic depth must be >= 1")
	errDimensionTooSmall = errors.New("tree: synthetic dimension must be >= 1")
)

// Synthetic builds a complete balanced binary tree of the given depth,
// round-robining attribute indices across a dimension-wide feature vector
// and drawing each threshold uniformly from [0, 1000) - the same scale
// Parse produces from a file's round(THRES*1000) encoding (spec.md section
// 6). It exists for the CLI's depth/dimension/numNodes override path
// (spec.md section 6), when no tree file is given; rng is caller-supplied
// so callers needing reproducible trees (tests, fixed-seed benchmarking)
// can pass a seeded source instead of a process-global one.
//
// Every leaf already sits at depth by construction, so DepthPad is a no-op
// on the result; it is still safe, and recommended, to call it anyway
// before using the tree in a query.
func Synthetic(depth, dimension int, classSrc ClassificationSource, rng *rand.Rand) (*DecisionTree, error) {
	if depth < 1 {
		return nil, errDepthTooSmall
	}
	if dimension < 1 {
		return nil, errDimensionTooSmall
	}

	t := &DecisionTree{Depth: depth, NumAttributes: dimension}
	attr := 0
	var build func(level int) Index
	build = func(level int) Index {
		if level == depth {
			idx := t.addNode(Node{Parent: NilIndex, Left: NilIndex, Right: NilIndex, Level: level, Leaf: true})
			t.node(idx).Classification = classSrc.NextClassification(0, false)
			return idx
		}
		idx := t.addNode(Node{Parent: NilIndex, Left: NilIndex, Right: NilIndex, Level: level})
		t.node(idx).AttributeIndex = attr
		attr = (attr + 1) % dimension
		t.node(idx).Threshold = uint64(rng.Intn(1000))
		t.NumDecisionNodes++

		left := build(level + 1)
		t.addEdge(idx, left)
		right := build(level + 1)
		t.addEdge(idx, right)
		return idx
	}
	build(0)
	return t, nil
}
