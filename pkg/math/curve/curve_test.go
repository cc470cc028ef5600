package curve

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCurves = []Curve{Secp256k1{}, Edwards25519{}}

func randomScalar(t *testing.T, group Curve) Scalar {
	t.Helper()
	buf := make([]byte, group.ScalarBytes())
	_, err := rand.Read(buf)
	require.NoError(t, err)
	s := group.NewScalar().SetNat(new(saferith.Nat).SetBytes(buf))
	require.False(t, s.IsZero())
	return s
}

func TestScalarRoundTrip(t *testing.T) {
	for _, group := range testCurves {
		t.Run(group.Name(), func(t *testing.T) {
			s := randomScalar(t, group)
			data, err := s.MarshalBinary()
			require.NoError(t, err)
			assert.Len(t, data, group.ScalarBytes())

			out := group.NewScalar()
			require.NoError(t, out.UnmarshalBinary(data))
			assert.True(t, s.Equal(out))
		})
	}
}

func TestScalarRejectsBadEncoding(t *testing.T) {
	for _, group := range testCurves {
		t.Run(group.Name(), func(t *testing.T) {
			assert.Error(t, group.NewScalar().UnmarshalBinary([]byte{1, 2, 3}))

			// value >= group order
			overflow := make([]byte, group.ScalarBytes())
			for i := range overflow {
				overflow[i] = 0xFF
			}
			assert.Error(t, group.NewScalar().UnmarshalBinary(overflow))
		})
	}
}

func TestPointRoundTrip(t *testing.T) {
	for _, group := range testCurves {
		t.Run(group.Name(), func(t *testing.T) {
			p := randomScalar(t, group).ActOnBase()
			data, err := p.MarshalBinary()
			require.NoError(t, err)
			assert.Len(t, data, group.PointBytes())

			out := group.NewPoint()
			require.NoError(t, out.UnmarshalBinary(data))
			assert.True(t, p.Equal(out))
		})
	}
}

func TestPointRejectsBadEncoding(t *testing.T) {
	for _, group := range testCurves {
		t.Run(group.Name(), func(t *testing.T) {
			assert.Error(t, group.NewPoint().UnmarshalBinary(nil))
			assert.Error(t, group.NewPoint().UnmarshalBinary([]byte{0x02}))

			garbage := make([]byte, group.PointBytes())
			for i := range garbage {
				garbage[i] = 0xFF
			}
			assert.Error(t, group.NewPoint().UnmarshalBinary(garbage))
		})
	}
}

func TestScalarArithmetic(t *testing.T) {
	for _, group := range testCurves {
		t.Run(group.Name(), func(t *testing.T) {
			a := randomScalar(t, group)
			b := randomScalar(t, group)

			// (a + b) - b == a
			sum := group.NewScalar().Set(a).Add(b)
			assert.True(t, sum.Sub(b).Equal(a))

			// a * a⁻¹ == 1 acting on the base point gives G
			inv := group.NewScalar().Set(a).Invert()
			one := group.NewScalar().Set(a).Mul(inv)
			assert.True(t, one.ActOnBase().Equal(group.NewBasePoint()))

			// a + (-a) == 0
			neg := group.NewScalar().Set(a).Negate()
			assert.True(t, group.NewScalar().Set(a).Add(neg).IsZero())
		})
	}
}

func TestPointArithmetic(t *testing.T) {
	for _, group := range testCurves {
		t.Run(group.Name(), func(t *testing.T) {
			a := randomScalar(t, group)
			b := randomScalar(t, group)
			A := a.ActOnBase()
			B := b.ActOnBase()

			// (a + b)⋅G == a⋅G + b⋅G
			sum := group.NewScalar().Set(a).Add(b).ActOnBase()
			assert.True(t, sum.Equal(A.Add(B)))

			// A - A is the identity
			assert.True(t, A.Sub(A).IsIdentity())
			assert.False(t, A.IsIdentity())

			// A + (-A) is the identity
			assert.True(t, A.Add(A.Negate()).IsIdentity())

			// scalar action distributes: b⋅(a⋅G) == (a*b)⋅G
			assert.True(t, b.Act(A).Equal(group.NewScalar().Set(a).Mul(b).ActOnBase()))
		})
	}
}

func TestFromHashTruncates(t *testing.T) {
	digest := make([]byte, 64)
	for i := range digest {
		digest[i] = byte(i + 1)
	}
	for _, group := range testCurves {
		t.Run(group.Name(), func(t *testing.T) {
			s := FromHash(group, digest)
			assert.Equal(t, group.Name(), s.Curve().Name())
			// deterministic
			assert.True(t, s.Equal(FromHash(group, digest)))
		})
	}
}

func TestCrossCurveMixupPanics(t *testing.T) {
	secp := Secp256k1{}.NewScalar().SetNat(new(saferith.Nat).SetUint64(42))
	edwards := Edwards25519{}.NewScalar().SetNat(new(saferith.Nat).SetUint64(42))
	assert.Panics(t, func() { secp.Add(edwards) })
	assert.Panics(t, func() { edwards.Act(Secp256k1{}.NewBasePoint()) })
}
