package circuit

// HalfGateMessage carries one AND gate's two garbled half-gate tables. The
// upstream repository generates this as a protobuf message
// (crypto/circuit/message.pb.go); that generated file was not present in
// the retrieved reference pack, so it is defined here as a plain struct
// carrying the same fields - nothing about the wire design depends on
// protobuf specifically, and mpcengine/gtree only ever need Go-native
// (de)serialization of these tables over the transport package's framing.
type HalfGateMessage struct {
	TG        []byte
	TE        []byte
	WireIndex int32
}

// GarbleCircuitMessage is what the garbler sends the evaluator: the
// half-gate tables, the output decoding bits, the garbled encoding of the
// garbler's own inputs, and the two per-output-wire hash commitments used
// by callers (such as gtree) that need to recover both possible output
// keys without holding the garbler's private wire table.
type GarbleCircuitMessage struct {
	F            []*HalfGateMessage
	D            []int32
	X            [][]byte
	HOutputWire0 [][]byte
	HOutputWire1 [][]byte
	StartCount   []byte
}
