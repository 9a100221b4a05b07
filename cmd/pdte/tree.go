package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"

	pdtetree "github.com/privatetree/pdte/tree"

	"github.com/privatetree/pdte/example/config"
)

// seededRNG seeds a math/rand.Rand from a crypto/rand-drawn value rather
// than the time-seeded default (spec.md section 9(a) flags this exact
// anti-pattern in the original source).
func seededRNG() (*rand.Rand, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(buf[:])))), nil
}

// buildServerTree loads cfg.TreeFile if set, otherwise synthesizes a
// balanced tree from cfg.Depth/cfg.Dimension (spec.md section 6), then
// depth-pads it so every leaf sits at the same level.
func buildServerTree(cfg *config.Config) (*pdtetree.DecisionTree, error) {
	rng, err := seededRNG()
	if err != nil {
		return nil, err
	}
	randomLabel := pdtetree.RandomClassifications{Next: func() uint64 {
		return rng.Uint64()
	}}

	var dt *pdtetree.DecisionTree
	if cfg.TreeFile != "" {
		f, err := os.Open(cfg.TreeFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		var classSrc pdtetree.ClassificationSource = randomLabel
		if cfg.Variant == "hhh" {
			classSrc = pdtetree.LabeledClassifications{}
		}
		dt, err = pdtetree.Parse(f, classSrc)
		if err != nil {
			return nil, err
		}
	} else {
		dt, err = pdtetree.Synthetic(cfg.Depth, cfg.Dimension, randomLabel, rng)
		if err != nil {
			return nil, err
		}
	}
	dt.DepthPad()

	if cfg.NumNodes != 0 && dt.NumDecisionNodes != cfg.NumNodes {
		return nil, fmt.Errorf("%w: tree has %d decision nodes, expected %d", ErrConfig, dt.NumDecisionNodes, cfg.NumNodes)
	}
	return dt, nil
}
