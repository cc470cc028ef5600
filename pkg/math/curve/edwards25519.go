package curve

import (
	"encoding/hex"
	"fmt"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"
	"github.com/cronokirby/saferith"
)

// Edwards25519 is the accordant group used by Monero-family chains.
type Edwards25519 struct{}

// l = 2²⁵² + 27742317777372353535851937790883648493
var edwardsOrder = func() *saferith.Modulus {
	data, err := hex.DecodeString("1000000000000000000000000000000014def9dea2f79cd65812631a5cf5d3ed")
	if err != nil {
		panic(err)
	}
	return saferith.ModulusFromBytes(data)
}()

func (Edwards25519) Name() string     { return "edwards25519" }
func (Edwards25519) ScalarBytes() int { return 32 }
func (Edwards25519) PointBytes() int  { return 32 }

func (Edwards25519) NewScalar() Scalar {
	return &edwardsScalar{v: *edwards25519.NewScalar()}
}

func (Edwards25519) NewPoint() Point {
	return &edwardsPoint{v: *edwards25519.NewIdentityPoint()}
}

func (Edwards25519) NewBasePoint() Point {
	return &edwardsPoint{v: *edwards25519.NewGeneratorPoint()}
}

func (Edwards25519) Order() *saferith.Modulus { return edwardsOrder }

type edwardsScalar struct {
	v edwards25519.Scalar
}

func edwardsCastScalar(generic Scalar) *edwardsScalar {
	out, ok := generic.(*edwardsScalar)
	if !ok {
		panic(fmt.Sprintf("failed to convert to edwardsScalar: %v", generic))
	}
	return out
}

func (*edwardsScalar) Curve() Curve { return Edwards25519{} }

func (s *edwardsScalar) MarshalBinary() ([]byte, error) {
	return s.v.Bytes(), nil
}

func (s *edwardsScalar) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("invalid length for edwards25519 scalar: %d", len(data))
	}
	if _, err := s.v.SetCanonicalBytes(data); err != nil {
		return fmt.Errorf("edwardsScalar: %w", err)
	}
	return nil
}

func (s *edwardsScalar) Add(that Scalar) Scalar {
	s.v.Add(&s.v, &edwardsCastScalar(that).v)
	return s
}

func (s *edwardsScalar) Sub(that Scalar) Scalar {
	s.v.Subtract(&s.v, &edwardsCastScalar(that).v)
	return s
}

func (s *edwardsScalar) Mul(that Scalar) Scalar {
	s.v.Multiply(&s.v, &edwardsCastScalar(that).v)
	return s
}

func (s *edwardsScalar) Invert() Scalar {
	s.v.Invert(&s.v)
	return s
}

func (s *edwardsScalar) Negate() Scalar {
	s.v.Negate(&s.v)
	return s
}

func (s *edwardsScalar) Equal(that Scalar) bool {
	return s.v.Equal(&edwardsCastScalar(that).v) == 1
}

func (s *edwardsScalar) IsZero() bool {
	zero := edwards25519.NewScalar()
	return s.v.Equal(zero) == 1
}

func (s *edwardsScalar) Set(that Scalar) Scalar {
	s.v.Set(&edwardsCastScalar(that).v)
	return s
}

func (s *edwardsScalar) SetNat(x *saferith.Nat) Scalar {
	reduced := new(saferith.Nat).Mod(x, edwardsOrder)
	var be [32]byte
	reduced.FillBytes(be[:])
	var le [32]byte
	for i := range be {
		le[i] = be[31-i]
	}
	if _, err := s.v.SetCanonicalBytes(le[:]); err != nil {
		// reduced < l, so the bytes are always canonical
		panic(fmt.Sprintf("edwardsScalar.SetNat: %v", err))
	}
	return s
}

func (s *edwardsScalar) Act(that Point) Point {
	other := edwardsCastPoint(that)
	out := &edwardsPoint{}
	out.v.ScalarMult(&s.v, &other.v)
	return out
}

func (s *edwardsScalar) ActOnBase() Point {
	out := &edwardsPoint{}
	out.v.ScalarBaseMult(&s.v)
	return out
}

type edwardsPoint struct {
	v edwards25519.Point
}

func edwardsCastPoint(generic Point) *edwardsPoint {
	out, ok := generic.(*edwardsPoint)
	if !ok {
		panic(fmt.Sprintf("failed to convert to edwardsPoint: %v", generic))
	}
	return out
}

func (*edwardsPoint) Curve() Curve { return Edwards25519{} }

func (p *edwardsPoint) MarshalBinary() ([]byte, error) {
	return p.v.Bytes(), nil
}

func (p *edwardsPoint) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("invalid length for edwardsPoint: %d", len(data))
	}
	if _, err := p.v.SetBytes(data); err != nil {
		return fmt.Errorf("edwardsPoint: %w", err)
	}
	return nil
}

func (p *edwardsPoint) Add(that Point) Point {
	out := &edwardsPoint{}
	out.v.Add(&p.v, &edwardsCastPoint(that).v)
	return out
}

func (p *edwardsPoint) Sub(that Point) Point {
	out := &edwardsPoint{}
	out.v.Subtract(&p.v, &edwardsCastPoint(that).v)
	return out
}

func (p *edwardsPoint) Negate() Point {
	out := &edwardsPoint{}
	out.v.Negate(&p.v)
	return out
}

func (p *edwardsPoint) Set(that Point) Point {
	p.v.Set(&edwardsCastPoint(that).v)
	return p
}

func (p *edwardsPoint) Equal(that Point) bool {
	return p.v.Equal(&edwardsCastPoint(that).v) == 1
}

func (p *edwardsPoint) IsIdentity() bool {
	return p.v.Equal(edwards25519.NewIdentityPoint()) == 1
}

func (p *edwardsPoint) XScalar() Scalar {
	X, _, Z, _ := p.v.ExtendedCoordinates()
	var zInv, x field.Element
	zInv.Invert(Z)
	x.Multiply(X, &zInv)
	var wide [64]byte
	copy(wide[:32], x.Bytes())
	out := &edwardsScalar{}
	if _, err := out.v.SetUniformBytes(wide[:]); err != nil {
		panic(fmt.Sprintf("edwardsPoint.XScalar: %v", err))
	}
	return out
}
