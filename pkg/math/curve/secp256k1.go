package curve

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Secp256k1 is the arbitrating group used by Bitcoin-family chains.
type Secp256k1 struct{}

var secp256k1Order = saferith.ModulusFromBytes(secp256k1.S256().N.Bytes())

func (Secp256k1) Name() string      { return "secp256k1" }
func (Secp256k1) ScalarBytes() int  { return 32 }
func (Secp256k1) PointBytes() int   { return 33 }
func (Secp256k1) NewScalar() Scalar { return new(secp256k1Scalar) }
func (Secp256k1) NewPoint() Point   { return new(secp256k1Point) }

func (Secp256k1) NewBasePoint() Point {
	out := new(secp256k1Point)
	one := new(secp256k1.ModNScalar).SetInt(1)
	secp256k1.ScalarBaseMultNonConst(one, &out.v)
	return out
}

func (Secp256k1) Order() *saferith.Modulus { return secp256k1Order }

type secp256k1Scalar struct {
	v secp256k1.ModNScalar
}

func secp256k1CastScalar(generic Scalar) *secp256k1Scalar {
	out, ok := generic.(*secp256k1Scalar)
	if !ok {
		panic(fmt.Sprintf("failed to convert to secp256k1Scalar: %v", generic))
	}
	return out
}

func (*secp256k1Scalar) Curve() Curve { return Secp256k1{} }

func (s *secp256k1Scalar) MarshalBinary() ([]byte, error) {
	data := s.v.Bytes()
	return data[:], nil
}

func (s *secp256k1Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("invalid length for secp256k1 scalar: %d", len(data))
	}
	var exact [32]byte
	copy(exact[:], data)
	if s.v.SetBytes(&exact) != 0 {
		return errors.New("invalid bytes for secp256k1 scalar")
	}
	return nil
}

func (s *secp256k1Scalar) Add(that Scalar) Scalar {
	s.v.Add(&secp256k1CastScalar(that).v)
	return s
}

func (s *secp256k1Scalar) Sub(that Scalar) Scalar {
	neg := new(secp256k1.ModNScalar).Set(&secp256k1CastScalar(that).v)
	neg.Negate()
	s.v.Add(neg)
	return s
}

func (s *secp256k1Scalar) Mul(that Scalar) Scalar {
	s.v.Mul(&secp256k1CastScalar(that).v)
	return s
}

func (s *secp256k1Scalar) Invert() Scalar {
	s.v.InverseNonConst()
	return s
}

func (s *secp256k1Scalar) Negate() Scalar {
	s.v.Negate()
	return s
}

func (s *secp256k1Scalar) Equal(that Scalar) bool {
	return s.v.Equals(&secp256k1CastScalar(that).v)
}

func (s *secp256k1Scalar) IsZero() bool { return s.v.IsZero() }

func (s *secp256k1Scalar) Set(that Scalar) Scalar {
	s.v.Set(&secp256k1CastScalar(that).v)
	return s
}

func (s *secp256k1Scalar) SetNat(x *saferith.Nat) Scalar {
	reduced := new(saferith.Nat).Mod(x, secp256k1Order)
	var buf [32]byte
	reduced.FillBytes(buf[:])
	s.v.SetBytes(&buf)
	return s
}

func (s *secp256k1Scalar) Act(that Point) Point {
	other := secp256k1CastPoint(that)
	out := new(secp256k1Point)
	secp256k1.ScalarMultNonConst(&s.v, &other.v, &out.v)
	return out
}

func (s *secp256k1Scalar) ActOnBase() Point {
	out := new(secp256k1Point)
	secp256k1.ScalarBaseMultNonConst(&s.v, &out.v)
	return out
}

type secp256k1Point struct {
	v secp256k1.JacobianPoint
}

func secp256k1CastPoint(generic Point) *secp256k1Point {
	out, ok := generic.(*secp256k1Point)
	if !ok {
		panic(fmt.Sprintf("failed to convert to secp256k1Point: %v", generic))
	}
	return out
}

func (*secp256k1Point) Curve() Curve { return Secp256k1{} }

func (p *secp256k1Point) MarshalBinary() ([]byte, error) {
	if p.IsIdentity() {
		return nil, errors.New("secp256k1Point: cannot marshal the identity")
	}
	out := make([]byte, 33)
	// Modifies p, but to an equivalent representation.
	p.v.ToAffine()
	// Compressed SEC 1 form, compatible with Bitcoin.
	out[0] = 2
	if p.v.Y.IsOdd() {
		out[0] = 3
	}
	data := p.v.X.Bytes()
	copy(out[1:], data[:])
	return out, nil
}

func (p *secp256k1Point) UnmarshalBinary(data []byte) error {
	if len(data) != 33 {
		return fmt.Errorf("invalid length for secp256k1Point: %d", len(data))
	}
	if data[0] != 2 && data[0] != 3 {
		return fmt.Errorf("secp256k1Point: incorrect format byte %#x", data[0])
	}
	var v secp256k1.JacobianPoint
	v.Z.SetInt(1)
	if v.X.SetByteSlice(data[1:]) {
		return errors.New("secp256k1Point: x coordinate out of range")
	}
	if !secp256k1.DecompressY(&v.X, data[0] == 3, &v.Y) {
		return errors.New("secp256k1Point: x coordinate not on curve")
	}
	v.Y.Normalize()
	p.v.Set(&v)
	return nil
}

func (p *secp256k1Point) Add(that Point) Point {
	other := secp256k1CastPoint(that)
	out := new(secp256k1Point)
	secp256k1.AddNonConst(&p.v, &other.v, &out.v)
	return out
}

func (p *secp256k1Point) Sub(that Point) Point {
	return p.Add(that.Negate())
}

func (p *secp256k1Point) Negate() Point {
	out := new(secp256k1Point)
	out.v.Set(&p.v)
	out.v.Y.Negate(1)
	out.v.Y.Normalize()
	return out
}

func (p *secp256k1Point) Set(that Point) Point {
	p.v.Set(&secp256k1CastPoint(that).v)
	return p
}

func (p *secp256k1Point) Equal(that Point) bool {
	other := secp256k1CastPoint(that)
	if p.IsIdentity() || other.IsIdentity() {
		return p.IsIdentity() && other.IsIdentity()
	}
	p.v.ToAffine()
	other.v.ToAffine()
	return p.v.X.Equals(&other.v.X) && p.v.Y.Equals(&other.v.Y)
}

func (p *secp256k1Point) IsIdentity() bool {
	return (&p.v.Z).Normalize().IsZero()
}

func (p *secp256k1Point) XScalar() Scalar {
	out := new(secp256k1Scalar)
	p.v.ToAffine()
	data := p.v.X.Bytes()
	// Reduction mod n is intended: this is how ECDSA computes r.
	out.v.SetByteSlice(data[:])
	return out
}
