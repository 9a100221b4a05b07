// Package hgg implements the HGG protocol variant (spec.md section 2): HE
// feature selection (crypto/paillier or crypto/dgk, behind the common
// crypto/heparty.Party contract) feeding a garbled-circuit comparison
// (crypto/mpcengine) whose per-node output wires key a garbled decision
// tree (gtree). It is the orchestration layer spec.md's design notes call
// for, grounded on protocol/hhh/session.go's own phase-sequenced shape
// (key exchange -> selection -> comparison -> evaluation) adapted from
// ElGamal-on-curve to the packed-HE-plus-garbled-circuit core.
package hgg

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/privatetree/pdte/crypto/circuit"
	"github.com/privatetree/pdte/crypto/heparty"
	"github.com/privatetree/pdte/crypto/mpcengine"
	"github.com/privatetree/pdte/gtree"
	"github.com/privatetree/pdte/tree"
	"github.com/privatetree/pdte/transport"
)

// ErrNodeCountMismatch is returned when the negotiated decision-node count
// (spec.md section 6's numNodes CLI override) does not match the actual
// depth-padded tree the Server holds.
var ErrNodeCountMismatch = errors.New("hgg: negotiated node count does not match tree")

// ErrFeatureRange is returned when a decision node references an attribute
// index outside the Client's negotiated feature-vector dimension.
var ErrFeatureRange = errors.New("hgg: selection index exceeds feature vector length")

// comparisonBits is the width of the blinded feature / mask / threshold
// comparands the garbled circuit operates on (spec.md section 4.1/4.5: the
// low 64 bits of each unpacked Paillier slot, or DGK's single plaintext).
const comparisonBits = 64

// Config carries the public per-query parameters spec.md section 6's CLI
// negotiates out of band (tree file or synthetic depth/dimension/numNodes
// overrides), so neither phase needs to transmit them over the wire.
type Config struct {
	// NumDecisionNodes is m: the number of internal nodes (including
	// depthPad's dummies) in the depth-padded tree.
	NumDecisionNodes int
	// Dimension is d: the length of the Client's feature vector.
	Dimension int
}

// ctVectorMessage carries the Client's encrypted feature vector (Phase S).
type ctVectorMessage struct {
	CTs []heparty.Ciphertext
}

// packedVectorMessage carries the Server's packed, blinded selection
// result back to the Client.
type packedVectorMessage struct {
	CTs []heparty.Ciphertext
}

// garbleMessage carries the garbled comparison circuit (Phase C): the
// garbler's message plus the Client's (W0,W1) label pairs. spec.md section
// 1 places oblivious transfer of those labels outside this module's scope
// as an external collaborator's responsibility; mpcengine.GarbleWiresForClient's
// own doc comment marks the same boundary. Shipping both labels for every
// Client wire directly, with the Client picking the one its own bit
// selects, is this module's explicit stand-in for that missing OT
// mechanism - see DESIGN.md.
type garbleMessage struct {
	Msg *circuit.GarbleCircuitMessage
	W0  [][]byte
	W1  [][]byte
	// SlotPos maps each garbled-tree table slot j (spec.md section 4.6's
	// sigma-permuted index) to the comparison circuit's gate position k
	// for that slot's decision node. The table permutation sigma and the
	// circuit's own node order are both Server-only bookkeeping that have
	// no reason to agree, so without this map the Client would have no
	// way to find, for a table slot it just decrypted, which of its own
	// evaluated output-wire keys applies. SlotPos carries only opaque
	// circuit-slot numbers, not attribute or threshold information, so
	// revealing it leaks nothing beyond what sigma already hides.
	SlotPos []int
}

// buildComparisonCircuit builds the m-node SUB+GT subcircuit from spec.md
// section 4.5. Server and Client each call this independently to obtain
// their own mpcengine.Engine with an identical wire layout - the garbler
// then garbles its engine, the evaluator evaluates its own, exactly as
// crypto/mpcengine's own tests do. Server input wires (mask, then
// threshold, per node) are allocated entirely before any Client input
// wire, matching PutInputShare's Bristol-fashion ordering requirement.
func buildComparisonCircuit(m int) (eng *mpcengine.Engine, maskWires, threshWires, clientWires [][]int, outWires []int) {
	eng = mpcengine.New()
	maskWires = make([][]int, m)
	threshWires = make([][]int, m)
	clientWires = make([][]int, m)
	for k := 0; k < m; k++ {
		maskWires[k] = eng.PutInputShare(heparty.RoleServer, comparisonBits)
		threshWires[k] = eng.PutInputShare(heparty.RoleServer, comparisonBits)
	}
	for k := 0; k < m; k++ {
		clientWires[k] = eng.PutInputShare(heparty.RoleClient, comparisonBits)
	}
	outWires = make([]int, m)
	for k := 0; k < m; k++ {
		diff, _ := eng.PutSUB(clientWires[k], maskWires[k])
		outWires[k] = eng.PutGT(diff, threshWires[k])
	}
	eng.MarkOutput(outWires)
	return eng, maskWires, threshWires, clientWires, outWires
}

func bitsLSB(v uint64, n int) []uint8 {
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		out[i] = uint8((v >> uint(i)) & 1)
	}
	return out
}

// decisionNodeOrder collects a depth-padded tree's internal-node arena
// indices in ascending order. The root (arena index 0) is always first,
// since DepthPad/Parse never reassign arena index 0 away from the root.
func decisionNodeOrder(dt *tree.DecisionTree) []tree.Index {
	var order []tree.Index
	for i, n := range dt.Nodes {
		if !n.Leaf {
			order = append(order, tree.Index(i))
		}
	}
	return order
}

// randomSigma draws the Server-secret node permutation sigma from spec.md
// section 3: a bijection on {0,...,m-1} with sigma(0)=0 (root fixed), here
// expressed as a map from each internal node's original arena index to its
// permuted garbled-tree table slot.
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

// randomMasks draws m independent masks for the HE blind-and-select step.
// Each mask is a uniform 64-bit uint64, the type
// crypto/heparty.Party.BlindAndSelect takes, so the masks are narrower than
// the 104-bit r_i of spec.md section 3.
func randomMasks(m int) ([]uint64, error) {
	masks := make([]uint64, m)
	var buf [8]byte
	for i := range masks {
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, err
		}
		masks[i] = binary.BigEndian.Uint64(buf[:])
	}
	return masks, nil
}

// RunServer drives the Server side of one HGG query to completion over
// conn: exchange HE public parameters, oblivious-select and blind the m
// decision nodes' attributes, garble the comparison circuit, and build +
// send the garbled decision tree. dt must already be depth-padded; he must
// be freshly constructed (no prior ReadRemotePublicKey call).
func RunServer(conn *transport.Conn, he heparty.Party, dt *tree.DecisionTree, cfg Config) error {
	order := decisionNodeOrder(dt)
	m := len(order)
	if m != cfg.NumDecisionNodes {
		return ErrNodeCountMismatch
	}

	// Phase S, key exchange (spec.md section 4.1 keyExchange): bidirectional
	// for fidelity with the original, though the Server's own HE key is
	// never exercised afterward in this flow.
	var localPub bytes.Buffer
	if err := he.WritePublicKey(&localPub); err != nil {
		return err
	}
	if err := transport.WriteFrame(conn.Main, localPub.Bytes()); err != nil {
		return err
	}
	remotePub, err := transport.ReadFrame(conn.Main)
	if err != nil {
		return err
	}
	if err := he.ReadRemotePublicKey(bytes.NewReader(remotePub)); err != nil {
		return err
	}

	var ctMsg ctVectorMessage
	if err := transport.RecvGob(conn.Main, &ctMsg); err != nil {
		return err
	}
	if len(ctMsg.CTs) != cfg.Dimension {
		return ErrFeatureRange
	}

	selection := make([]int, m)
	for k, idx := range order {
		attr := dt.Nodes[idx].AttributeIndex
		if attr < 0 || attr >= len(ctMsg.CTs) {
			return ErrFeatureRange
		}
		selection[k] = attr
	}

	masks, err := randomMasks(m)
	if err != nil {
		return err
	}

	packed, err := he.BlindAndSelect(ctMsg.CTs, selection, masks)
	if err != nil {
		return err
	}
	if err := transport.SendGob(conn.Main, packedVectorMessage{CTs: packed}); err != nil {
		return err
	}

	// Phase C, comparison (spec.md section 4.5).
	eng, _, _, _, _ := buildComparisonCircuit(m)
	serverBits := make([]uint8, 0, 2*m*comparisonBits)
	for k, idx := range order {
		serverBits = append(serverBits, bitsLSB(masks[k], comparisonBits)...)
		serverBits = append(serverBits, bitsLSB(dt.Nodes[idx].Threshold, comparisonBits)...)
	}
	msg, err := eng.Garble(circuit.AES128, serverBits)
	if err != nil {
		return err
	}
	w0, w1 := eng.GarbleWiresForClient()

	// Phase E, evaluation (spec.md section 4.6).
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
		return eng.OutputKeyPair(orderPos[originalIndex])
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

// RunClient drives the Client side of one HGG query to completion over
// conn: upload encrypted features, unpack the blinded selection, evaluate
// the comparison circuit, and traverse the garbled tree to the single
// reachable leaf's classification.
func RunClient(conn *transport.Conn, he heparty.Party, features []uint64, cfg Config) (uint64, error) {
	if len(features) != cfg.Dimension {
		return 0, ErrFeatureRange
	}
	m := cfg.NumDecisionNodes

	var localPub bytes.Buffer
	if err := he.WritePublicKey(&localPub); err != nil {
		return 0, err
	}
	if err := transport.WriteFrame(conn.Main, localPub.Bytes()); err != nil {
		return 0, err
	}
	remotePub, err := transport.ReadFrame(conn.Main)
	if err != nil {
		return 0, err
	}
	if err := he.ReadRemotePublicKey(bytes.NewReader(remotePub)); err != nil {
		return 0, err
	}

	plaintexts := make([]*big.Int, len(features))
	for i, f := range features {
		plaintexts[i] = new(big.Int).SetUint64(f)
	}
	cts, err := he.EncryptVector(plaintexts)
	if err != nil {
		return 0, err
	}
	if err := transport.SendGob(conn.Main, ctVectorMessage{CTs: cts}); err != nil {
		return 0, err
	}

	var packedMsg packedVectorMessage
	if err := transport.RecvGob(conn.Main, &packedMsg); err != nil {
		return 0, err
	}
	blinded, err := he.UnpackAndDecrypt(packedMsg.CTs, m)
	if err != nil {
		return 0, err
	}

	// Phase C, comparison.
	eng, _, _, clientWires, _ := buildComparisonCircuit(m)

	var gm garbleMessage
	if err := transport.RecvGob(conn.Main, &gm); err != nil {
		return 0, err
	}

	input := append([][]byte(nil), gm.Msg.X...)
	for k := 0; k < m; k++ {
		bits := bitsLSB(blinded[k], comparisonBits)
		for i := range clientWires[k] {
			if bits[i] == 0 {
				input = append(input, gm.W0[k*comparisonBits+i])
			} else {
				input = append(input, gm.W1[k*comparisonBits+i])
			}
		}
	}
	if err := eng.Evaluate(gm.Msg, input); err != nil {
		return 0, err
	}

	// Phase E, evaluation.
	var table gtree.Table
	if err := transport.RecvGob(conn.Main, &table); err != nil {
		return 0, err
	}
	evaluatedKeyAt := func(j int) ([]byte, error) {
		if j < 0 || j >= len(gm.SlotPos) {
			return nil, ErrNodeCountMismatch
		}
		return eng.GetEvaluatedKey(gm.SlotPos[j])
	}
	classification, _, err := gtree.Traverse(&table, evaluatedKeyAt, m)
	return classification, err
}
