package hhh

import (
	"crypto/elliptic"
	"io"
	"math/big"

	"github.com/privatetree/pdte/crypto/ecelgamal"
	"github.com/privatetree/pdte/tree"
	"github.com/privatetree/pdte/transport"
)

// ciphertextWireSize is the fixed length of one ecelgamal.Ciphertext.Encode
// result (two 64-byte affine points).
const ciphertextWireSize = 128

func encodeCTs(cts []*ecelgamal.Ciphertext) []byte {
	buf := make([]byte, 0, len(cts)*ciphertextWireSize)
	for _, ct := range cts {
		buf = append(buf, ct.Encode()...)
	}
	return buf
}

func decodeCTs(curve elliptic.Curve, b []byte) ([]*ecelgamal.Ciphertext, error) {
	if len(b)%ciphertextWireSize != 0 {
		return nil, ErrBitVectorLength
	}
	n := len(b) / ciphertextWireSize
	out := make([]*ecelgamal.Ciphertext, n)
	for i := 0; i < n; i++ {
		ct, err := ecelgamal.DecodeCiphertext(curve, b[i*ciphertextWireSize:(i+1)*ciphertextWireSize])
		if err != nil {
			return nil, err
		}
		out[i] = ct
	}
	return out, nil
}

// featureBitsMessage carries the Client's per-dimension encrypted feature
// bits: Bits[d] is NBits ciphertexts, concatenated in index-0-is-LSB order.
type featureBitsMessage struct {
	NBits int
	Bits  map[int][]byte
}

// comparisonMessage carries, for each decision node the Server visited,
// the shuffled gt ciphertext vector from ComputeComparisonCiphertexts.
type comparisonMessage struct {
	Cs map[int32][]byte
}

// perNodeBitMessage carries the Client's re-encrypted comparison-result bit
// for each decision node, so the Server can accumulate path costs without
// ever learning a single node's plaintext outcome.
type perNodeBitMessage struct {
	Bit map[int32][]byte
}

// leafResultsMessage carries the shuffled, masked leaf results.
type leafResultsMessage struct {
	Leaf           []int32
	PathCost       [][]byte
	Classification [][]byte
}

// decisionNodeAttrs collects, for every internal node of a depth-padded
// tree, the attribute index and threshold the Client and Server both need
// for that node's gt comparison. Dummy nodes inserted by DepthPad keep the
// zero AttributeIndex/Threshold (attribute 0, threshold 0) and are compared
// like any other internal node, so no special casing is needed here.
func decisionNodeAttrs(dt *tree.DecisionTree) map[tree.Index]tree.Node {
	out := make(map[tree.Index]tree.Node)
	for i, n := range dt.Nodes {
		if !n.Leaf {
			out[tree.Index(i)] = n
		}
	}
	return out
}

// RunServer drives the Server side of one HHH query to completion over
// conn: read the Client's public key, run the gt protocol at every
// decision node, accumulate and ship the shuffled leaf results. dt must
// already be depth-padded. nbits bounds both the feature and threshold
// width (64 per spec.md section 4.1, smaller in tests).
func RunServer(conn *transport.Conn, curve elliptic.Curve, dt *tree.DecisionTree, nbits int, rng io.Reader) error {
	pubBuf, err := transport.ReadFrame(conn.Main)
	if err != nil {
		return err
	}
	pub, err := ecelgamal.DecodePublicKey(curve, pubBuf)
	if err != nil {
		return err
	}

	var fbMsg featureBitsMessage
	if err := transport.RecvGob(conn.Main, &fbMsg); err != nil {
		return err
	}
	featureBits := make(map[int][]*ecelgamal.Ciphertext, len(fbMsg.Bits))
	for d, buf := range fbMsg.Bits {
		cts, err := decodeCTs(curve, buf)
		if err != nil {
			return err
		}
		featureBits[d] = cts
	}

	nodes := decisionNodeAttrs(dt)
	cmpMsg := comparisonMessage{Cs: make(map[int32][]byte, len(nodes))}
	for idx, n := range nodes {
		xBits, ok := featureBits[n.AttributeIndex]
		if !ok {
			return ErrBitVectorLength
		}
		cs, err := ComputeComparisonCiphertexts(pub, xBits, n.Threshold, nbits)
		if err != nil {
			return err
		}
		shuffled, err := Shuffle(cs, rng)
		if err != nil {
			return err
		}
		cmpMsg.Cs[int32(idx)] = encodeCTs(shuffled)
	}
	if err := transport.SendGob(conn.Main, cmpMsg); err != nil {
		return err
	}

	var bitsBack perNodeBitMessage
	if err := transport.RecvGob(conn.Main, &bitsBack); err != nil {
		return err
	}
	perNode := make(PerNodeBit, len(bitsBack.Bit))
	for idx, buf := range bitsBack.Bit {
		ct, err := ecelgamal.DecodeCiphertext(curve, buf)
		if err != nil {
			return err
		}
		perNode[tree.Index(idx)] = ct
	}

	results, err := BuildLeafResults(dt, pub, perNode)
	if err != nil {
		return err
	}
	shuffled, err := ShuffleLeafResults(results, rng)
	if err != nil {
		return err
	}

	lrMsg := leafResultsMessage{
		Leaf:           make([]int32, len(shuffled)),
		PathCost:       make([][]byte, len(shuffled)),
		Classification: make([][]byte, len(shuffled)),
	}
	for i, r := range shuffled {
		lrMsg.Leaf[i] = int32(r.Leaf)
		lrMsg.PathCost[i] = r.PathCost.Encode()
		lrMsg.Classification[i] = r.Classification.Encode()
	}
	return transport.SendGob(conn.Main, lrMsg)
}

// RunClient drives the Client side of one HHH query to completion over
// conn: generate a keypair, upload encrypted feature bits, answer each
// node's gt ciphertext vector, and decode the final classification.
// Every attribute index the Server's tree can reference must be
// < len(features).
func RunClient(conn *transport.Conn, curve elliptic.Curve, features []uint64, nbits int, rng io.Reader) (uint64, error) {
	priv, err := ecelgamal.GenerateKey(curve)
	if err != nil {
		return 0, err
	}
	if err := transport.WriteFrame(conn.Main, priv.PublicKey.Encode()); err != nil {
		return 0, err
	}

	fbMsg := featureBitsMessage{NBits: nbits, Bits: make(map[int][]byte, len(features))}
	for d, v := range features {
		cts, err := EncryptFeatureBits(priv.PublicKey, v, nbits)
		if err != nil {
			return 0, err
		}
		fbMsg.Bits[d] = encodeCTs(cts)
	}
	if err := transport.SendGob(conn.Main, fbMsg); err != nil {
		return 0, err
	}

	var cmpMsg comparisonMessage
	if err := transport.RecvGob(conn.Main, &cmpMsg); err != nil {
		return 0, err
	}

	bitsBack := perNodeBitMessage{Bit: make(map[int32][]byte, len(cmpMsg.Cs))}
	for idx, buf := range cmpMsg.Cs {
		shuffled, err := decodeCTs(curve, buf)
		if err != nil {
			return 0, err
		}
		gt, err := ClientCheckGreaterThan(priv, shuffled)
		if err != nil {
			return 0, err
		}
		plain := big.NewInt(0)
		if gt {
			plain = big.NewInt(1)
		}
		ct, err := priv.PublicKey.Encrypt(plain)
		if err != nil {
			return 0, err
		}
		bitsBack.Bit[idx] = ct.Encode()
	}
	if err := transport.SendGob(conn.Main, bitsBack); err != nil {
		return 0, err
	}

	var lrMsg leafResultsMessage
	if err := transport.RecvGob(conn.Main, &lrMsg); err != nil {
		return 0, err
	}
	results := make([]LeafResult, len(lrMsg.Leaf))
	for i := range lrMsg.Leaf {
		pc, err := ecelgamal.DecodeCiphertext(curve, lrMsg.PathCost[i])
		if err != nil {
			return 0, err
		}
		cl, err := ecelgamal.DecodeCiphertext(curve, lrMsg.Classification[i])
		if err != nil {
			return 0, err
		}
		results[i] = LeafResult{Leaf: tree.Index(lrMsg.Leaf[i]), PathCost: pc, Classification: cl}
	}
	return ClientDecodeClassification(priv, results)
}
