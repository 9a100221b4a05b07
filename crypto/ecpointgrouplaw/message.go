package ecpointgrouplaw

// EcPointMessage_Curve identifies which named curve an EcPointMessage's
// coordinates belong to. This used to be a protobuf-generated enum (see
// message.pb.go siblings like crypto/homo/paillier/message.pb.go); the
// .proto source for this package was not retrieved, so the wire type and
// its accessors are reproduced by hand here rather than regenerated.
type EcPointMessage_Curve int32

const (
	EcPointMessage_P224 EcPointMessage_Curve = 0
	EcPointMessage_P256 EcPointMessage_Curve = 1
	EcPointMessage_P384 EcPointMessage_Curve = 2
	EcPointMessage_S256 EcPointMessage_Curve = 3
)

// EcPointMessage is the wire form of an ECPoint: a curve tag plus the
// point's affine coordinates (both nil/empty for the identity element).
type EcPointMessage struct {
	Curve EcPointMessage_Curve
	X     []byte
	Y     []byte
}
