package curve

import (
	"encoding"

	"github.com/cronokirby/saferith"
)

// Curve represents one of the two groups a swap is parameterized over.
// The arbitrating and accordant chains each supply an instance; scalars
// and points of different curves must never be mixed, and the concrete
// implementations panic on such a mixup rather than silently coercing.
type Curve interface {
	// Name uniquely identifies the curve over the wire.
	Name() string
	NewScalar() Scalar
	NewPoint() Point
	NewBasePoint() Point
	// ScalarBytes is the fixed width of a marshalled scalar.
	ScalarBytes() int
	// PointBytes is the fixed width of a marshalled point.
	PointBytes() int
	Order() *saferith.Modulus
}

// Scalar is an element of the prime-order scalar field of a Curve.
//
// Arithmetic methods modify the receiver and return it, following the
// usual big.Int style. Use NewScalar().Set(x) to copy before combining.
type Scalar interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Curve() Curve
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Invert() Scalar
	Negate() Scalar
	Equal(Scalar) bool
	IsZero() bool
	Set(Scalar) Scalar
	SetNat(*saferith.Nat) Scalar
	// Act returns the argument multiplied by the receiver, leaving both
	// untouched.
	Act(Point) Point
	// ActOnBase returns the receiver times the curve generator.
	ActOnBase() Point
}

// Point is a group element of a Curve.
type Point interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Curve() Curve
	Add(Point) Point
	Sub(Point) Point
	Negate() Point
	Set(Point) Point
	Equal(Point) bool
	IsIdentity() bool
	// XScalar interprets the affine x coordinate as a scalar, reduced
	// modulo the curve order. This is the ECDSA r computation.
	XScalar() Scalar
}

// FromHash converts a hash digest to a Scalar.
//
// The digest is truncated to the bit length of the curve order, following
// [SECG] (and OpenSSL): excess bits beyond the order length are shifted
// out. Taken from crypto/ecdsa.
func FromHash(group Curve, h []byte) Scalar {
	order := group.Order()
	orderBits := order.BitLen()
	orderBytes := (orderBits + 7) / 8
	if len(h) > orderBytes {
		h = h[:orderBytes]
	}
	s := new(saferith.Nat).SetBytes(h)
	excess := len(h)*8 - orderBits
	if excess > 0 {
		s.Rsh(s, uint(excess), -1)
	}
	return group.NewScalar().SetNat(s)
}
