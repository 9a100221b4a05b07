// Package ggg implements the GGG protocol variant spec.md section 6 names
// alongside HGG's HE-based selection: the same garbled-comparison plus
// garbled-decision-tree evaluation core (protocol/hgg, gtree), but feature
// selection happens entirely inside the boolean garbled circuit via
// crypto/selection's permutation-and-duplicator network instead of packed
// homomorphic encryption. No HE party, no blind-and-select exchange, and no
// separate HE key-exchange round trip: the Client's feature vector goes
// straight into the garbled circuit as Client input wires, and the Server's
// selection map pi and per-node thresholds go in as Server input wires.
package ggg

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/privatetree/pdte/crypto/circuit"
	"github.com/privatetree/pdte/crypto/heparty"
	"github.com/privatetree/pdte/crypto/mpcengine"
	"github.com/privatetree/pdte/crypto/selection"
	"github.com/privatetree/pdte/gtree"
	"github.com/privatetree/pdte/tree"
	"github.com/privatetree/pdte/transport"
)

// ErrNodeCountMismatch and ErrFeatureRange mirror protocol/hgg's sentinels:
// the two protocols share the same node-count/dimension negotiation
// contract (spec.md section 6).
var (
	ErrNodeCountMismatch = errors.New("ggg: negotiated node count does not match tree")
	ErrFeatureRange      = errors.New("ggg: selection index exceeds feature vector length")
	ErrNoZeroWire        = errors.New("ggg: engine has no constant-0 wire to pad dummy selection inputs")
)

// comparisonBits is the feature/threshold word width the garbled comparator
// operates on, matching protocol/hgg's comparisonBits.
const comparisonBits = 64

// Config carries the public per-query parameters negotiated out of band,
// identical in shape to protocol/hgg.Config.
type Config struct {
	NumDecisionNodes int
	Dimension        int
}

// garbleMessage carries the garbled selection+comparison circuit plus the
// Client's label pairs, exactly as protocol/hgg.garbleMessage does for its
// narrower SUB+GT-only circuit - see that type's doc comment for why both
// labels travel directly instead of through an OT subprotocol.
type garbleMessage struct {
	Msg     *circuit.GarbleCircuitMessage
	W0      [][]byte
	W1      [][]byte
	SlotPos []int
}

func bitsLSB(v uint64, n int) []uint8 {
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		out[i] = uint8((v >> uint(i)) & 1)
	}
	return out
}

func decisionNodeOrder(dt *tree.DecisionTree) []tree.Index {
	var order []tree.Index
	for i, n := range dt.Nodes {
		if !n.Leaf {
			order = append(order, tree.Index(i))
		}
	}
	return order
}

func randomSigma(order []tree.Index) (map[tree.Index]int, error) {
	m := len(order)
	sigma := make(map[tree.Index]int, m)
	if m == 0 {
		return sigma, nil
	}
	sigma[order[0]] = 0
	rest := make([]int, m-1)
	for i := range rest {
		rest[i] = i + 1
	}
	for i := len(rest) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, err
		}
		j := int(jBig.Int64())
		rest[i], rest[j] = rest[j], rest[i]
	}
	for k := 1; k < m; k++ {
		sigma[order[k]] = rest[k-1]
	}
	return sigma, nil
}

// builtCircuit bundles the selection+comparison circuit's wire layout
// alongside the engine itself, so RunServer/RunClient only need to build it
// once each and then read back the handful of slices they need.
type builtCircuit struct {
	eng         *mpcengine.Engine
	block       *selection.Block
	p1Wires     []int
	muxWires    []int
	p2Wires     []int
	threshWires [][]int
	featWires   [][]int // [d][comparisonBits]
	outWires    []int
}

// buildCircuit assembles the m-node selection-then-comparison circuit from
// spec.md sections 4.4/4.5's GGG composition: a crypto/selection.Block maps
// the Client's d feature words to m selected words (one per decision node,
// duplicated per bit-plane so every bit of a word is routed identically),
// each selected word is then compared against its node's threshold with
// PutGT. Server and Client call this independently with the same (pi, d, m)
// to obtain identical wire layouts, exactly as protocol/hgg.buildComparisonCircuit
// does for its narrower circuit.
func buildCircuit(d, m int, pi []int) (*builtCircuit, error) {
	block, err := selection.Program(d, pi)
	if err != nil {
		return nil, err
	}

	eng := mpcengine.New()
	p1Wires := eng.PutInputShare(heparty.RoleServer, block.NumP1Switches())
	muxWires := eng.PutInputShare(heparty.RoleServer, block.NumMuxGates())
	p2Wires := eng.PutInputShare(heparty.RoleServer, block.NumP2Switches())
	threshWires := make([][]int, m)
	for k := 0; k < m; k++ {
		threshWires[k] = eng.PutInputShare(heparty.RoleServer, comparisonBits)
	}

	featWires := make([][]int, d)
	for i := 0; i < d; i++ {
		featWires[i] = eng.PutInputShare(heparty.RoleClient, comparisonBits)
	}

	zero, ok := eng.ZeroWire()
	if !ok {
		return nil, ErrNoZeroWire
	}
	dummies := block.NumDummyInputs()

	selected := make([][]int, m)
	for k := range selected {
		selected[k] = make([]int, comparisonBits)
	}
	for bit := 0; bit < comparisonBits; bit++ {
		inputs := make([]int, d+dummies)
		for i := 0; i < d; i++ {
			inputs[i] = featWires[i][bit]
		}
		for i := d; i < d+dummies; i++ {
			inputs[i] = zero
		}
		outs := block.BuildCircuit(eng, eng, p1Wires, muxWires, p2Wires, inputs)
		for k := 0; k < m; k++ {
			selected[k][bit] = outs[k]
		}
	}

	outWires := make([]int, m)
	for k := 0; k < m; k++ {
		outWires[k] = eng.PutGT(selected[k], threshWires[k])
	}
	eng.MarkOutput(outWires)

	return &builtCircuit{
		eng:         eng,
		block:       block,
		p1Wires:     p1Wires,
		muxWires:    muxWires,
		p2Wires:     p2Wires,
		threshWires: threshWires,
		featWires:   featWires,
		outWires:    outWires,
	}, nil
}

// RunServer drives the Server side of one GGG query to completion over
// conn. dt must already be depth-padded.
func RunServer(conn *transport.Conn, dt *tree.DecisionTree, cfg Config) error {
	order := decisionNodeOrder(dt)
	m := len(order)
	if m != cfg.NumDecisionNodes {
		return ErrNodeCountMismatch
	}

	pi := make([]int, m)
	for k, idx := range order {
		attr := dt.Nodes[idx].AttributeIndex
		if attr < 0 || attr >= cfg.Dimension {
			return ErrFeatureRange
		}
		pi[k] = attr
	}

	bc, err := buildCircuit(cfg.Dimension, m, pi)
	if err != nil {
		return err
	}

	serverBits := make([]uint8, 0, len(bc.p1Wires)+len(bc.muxWires)+len(bc.p2Wires)+m*comparisonBits)
	for _, b := range bc.block.P1Bits() {
		serverBits = append(serverBits, boolBit(b))
	}
	for _, b := range bc.block.MuxBits() {
		serverBits = append(serverBits, boolBit(b))
	}
	for _, b := range bc.block.P2Bits() {
		serverBits = append(serverBits, boolBit(b))
	}
	for _, idx := range order {
		serverBits = append(serverBits, bitsLSB(dt.Nodes[idx].Threshold, comparisonBits)...)
	}

	msg, err := bc.eng.Garble(circuit.AES128, serverBits)
	if err != nil {
		return err
	}
	w0, w1 := bc.eng.GarbleWiresForClient()

	sigma, err := randomSigma(order)
	if err != nil {
		return err
	}
	nk, err := gtree.NewKeySchedule(m)
	if err != nil {
		return err
	}
	orderPos := make(map[tree.Index]int, m)
	for k, idx := range order {
		orderPos[idx] = k
	}
	wireKeys := func(originalIndex tree.Index) (k0, k1 []byte, err error) {
		return bc.eng.OutputKeyPair(orderPos[originalIndex])
	}
	table, err := gtree.BuildTable(dt, sigma, nk, wireKeys)
	if err != nil {
		return err
	}

	slotPos := make([]int, m)
	for k, idx := range order {
		slotPos[sigma[idx]] = k
	}
	if err := transport.SendGob(conn.Main, garbleMessage{Msg: msg, W0: w0, W1: w1, SlotPos: slotPos}); err != nil {
		return err
	}
	return transport.SendGob(conn.Main, table)
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// RunClient drives the Client side of one GGG query to completion over
// conn: build the identical circuit layout, evaluate it under the garbler's
// message and the Client's own feature bits, and traverse the garbled tree
// to the single reachable leaf's classification.
func RunClient(conn *transport.Conn, features []uint64, cfg Config) (uint64, error) {
	if len(features) != cfg.Dimension {
		return 0, ErrFeatureRange
	}
	m := cfg.NumDecisionNodes
	d := cfg.Dimension

	// The Client does not know pi (it is Server-secret), but the circuit's
	// wire layout - switch/mux/threshold wire counts, feature wire
	// placement - depends only on (d, m) and the selection block's fixed
	// topology, not on which sources pi actually names. Programming a
	// placeholder identity-like map here (any valid map of the right
	// length) yields an isomorphic circuit: same gate counts, same wire
	// ids, since crypto/selection.Program's network sizes are functions of
	// (u, m) alone. Evaluate never reads the Client-local Block's
	// programmed bits; it only needs the Engine's wire ids, built from the
	// same buildCircuit call for consistency.
	placeholderPi := make([]int, m)
	for k := range placeholderPi {
		placeholderPi[k] = k % d
	}
	bc, err := buildCircuit(d, m, placeholderPi)
	if err != nil {
		return 0, err
	}

	var gm garbleMessage
	if err := transport.RecvGob(conn.Main, &gm); err != nil {
		return 0, err
	}

	input := append([][]byte(nil), gm.Msg.X...)
	for i := 0; i < d; i++ {
		bits := bitsLSB(features[i], comparisonBits)
		for bitPos := range bc.featWires[i] {
			idx := i*comparisonBits + bitPos
			if bits[bitPos] == 0 {
				input = append(input, gm.W0[idx])
			} else {
				input = append(input, gm.W1[idx])
			}
		}
	}
	if err := bc.eng.Evaluate(gm.Msg, input); err != nil {
		return 0, err
	}

	var table gtree.Table
	if err := transport.RecvGob(conn.Main, &table); err != nil {
		return 0, err
	}
	evaluatedKeyAt := func(j int) ([]byte, error) {
		if j < 0 || j >= len(gm.SlotPos) {
			return nil, ErrNodeCountMismatch
		}
		return bc.eng.GetEvaluatedKey(gm.SlotPos[j])
	}
	classification, _, err := gtree.Traverse(&table, evaluatedKeyAt, m)
	return classification, err
}
