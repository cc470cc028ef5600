// Package ecdsa implements the signature primitives of the arbitrating
// chain: plain ECDSA signatures and their adaptor ("encrypted")
// variant, generic over the curve group.
package ecdsa

import (
	"errors"
	"io"

	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/sample"
)

const maxIterations = 255

var ErrMaxIterations = errors.New("ecdsa: failed to generate after max iterations")

// Signature is an ordinary ECDSA signature in (r, s) scalar form.
type Signature struct {
	R curve.Scalar
	S curve.Scalar
}

// EmptySignature returns a Signature with a given group, ready for unmarshalling.
func EmptySignature(group curve.Curve) *Signature {
	return &Signature{
		R: group.NewScalar(),
		S: group.NewScalar(),
	}
}

// Sign produces an ECDSA signature on the given message hash.
func Sign(rand io.Reader, secretKey curve.Scalar, messageHash []byte) (*Signature, error) {
	group := secretKey.Curve()
	m := curve.FromHash(group, messageHash)
	for i := 0; i < maxIterations; i++ {
		k := sample.Scalar(rand, group)
		r := k.ActOnBase().XScalar()
		if r.IsZero() {
			continue
		}
		kInv := group.NewScalar().Set(k).Invert()
		// s = k⁻¹(m + r⋅x)
		s := group.NewScalar().Set(r).Mul(secretKey).Add(m).Mul(kInv)
		if s.IsZero() {
			continue
		}
		return &Signature{R: r, S: s}, nil
	}
	return nil, ErrMaxIterations
}

// Verify reports whether the signature is valid for the public key and
// message hash. It fails closed on any malformed input.
func (sig *Signature) Verify(publicKey curve.Point, messageHash []byte) bool {
	if sig == nil || sig.R == nil || sig.S == nil || publicKey == nil {
		return false
	}
	if sig.R.IsZero() || sig.S.IsZero() || publicKey.IsIdentity() {
		return false
	}
	group := sig.R.Curve()
	m := curve.FromHash(group, messageHash)
	sInv := group.NewScalar().Set(sig.S).Invert()
	u1 := group.NewScalar().Set(m).Mul(sInv)
	u2 := group.NewScalar().Set(sig.R).Mul(sInv)
	// P = u₁⋅G + u₂⋅X
	P := u1.ActOnBase().Add(u2.Act(publicKey))
	if P.IsIdentity() {
		return false
	}
	return P.XScalar().Equal(sig.R)
}
