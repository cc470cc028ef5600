package sample

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"

	"github.com/Lederstrumpf/farcaster-core/internal/params"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
)

const maxIterations = 255

var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// ModN samples an element of ℤₙ.
func ModN(rand io.Reader, n *saferith.Modulus) *saferith.Nat {
	out := new(saferith.Nat)
	buf := make([]byte, (n.BitLen()+7)/8)
	for i := 0; i < maxIterations; i++ {
		mustReadBits(rand, buf)
		out.SetBytes(buf)
		_, _, lt := out.CmpMod(n)
		if lt == 1 {
			return out
		}
	}
	panic(ErrMaxIterations)
}

// Scalar samples a uniform non-zero scalar of the group.
func Scalar(rand io.Reader, group curve.Curve) curve.Scalar {
	for i := 0; i < maxIterations; i++ {
		n := ModN(rand, group.Order())
		s := group.NewScalar().SetNat(n)
		if !s.IsZero() {
			return s
		}
	}
	panic(ErrMaxIterations)
}

// Bits samples a uniform natural number below 2^bits.
func Bits(rand io.Reader, bits int) *saferith.Nat {
	buf := make([]byte, (bits+7)/8)
	mustReadBits(rand, buf)
	if excess := len(buf)*8 - bits; excess > 0 {
		buf[0] &= 0xFF >> excess
	}
	return new(saferith.Nat).SetBytes(buf)
}

// CrossGroupSecret samples a secret usable as a scalar on both swap
// groups, bounded so cross-group proof responses cannot wrap either
// group order.
func CrossGroupSecret(rand io.Reader) *saferith.Nat {
	for i := 0; i < maxIterations; i++ {
		out := Bits(rand, params.CrossGroupSecretBits)
		if out.EqZero() != 1 {
			return out
		}
	}
	panic(ErrMaxIterations)
}
