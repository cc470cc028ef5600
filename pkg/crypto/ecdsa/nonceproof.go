package ecdsa

import (
	"io"

	"github.com/Lederstrumpf/farcaster-core/pkg/hash"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/sample"
)

// NonceProof ties the two nonce points of a pre-signature together: it
// proves knowledge of k such that R̂ = k⋅G and R = k⋅T, for the
// encryption key T. Without it a pre-signature could use unrelated
// nonces and Recover would yield garbage instead of the adaptor secret.
type NonceProof struct {
	// A = a⋅G
	A curve.Point
	// B = a⋅T
	B curve.Point
	// Z = a + e⋅k
	Z curve.Scalar
}

// EmptyNonceProof returns a NonceProof with a given group, ready for unmarshalling.
func EmptyNonceProof(group curve.Curve) *NonceProof {
	return &NonceProof{
		A: group.NewPoint(),
		B: group.NewPoint(),
		Z: group.NewScalar(),
	}
}

func nonceChallenge(group curve.Curve, T, RHat, R, A, B curve.Point) curve.Scalar {
	h := hash.New(hash.BytesWithDomain{TheDomain: "DLEQ-Nonce", Bytes: []byte(group.Name())})
	_ = h.WriteAny(T, RHat, R, A, B)
	return curve.FromHash(group, h.Sum())
}

func proveNonce(rand io.Reader, k curve.Scalar, T, RHat, R curve.Point) *NonceProof {
	group := k.Curve()
	a := sample.Scalar(rand, group)
	A := a.ActOnBase()
	B := a.Act(T)
	e := nonceChallenge(group, T, RHat, R, A, B)
	z := group.NewScalar().Set(e).Mul(k).Add(a)
	return &NonceProof{A: A, B: B, Z: z}
}

// Verify reports whether the proof links R̂ and R to the same nonce
// under encryption key T. It fails closed.
func (p *NonceProof) Verify(T, RHat, R curve.Point) bool {
	if p == nil || p.A == nil || p.B == nil || p.Z == nil {
		return false
	}
	if T == nil || RHat == nil || R == nil {
		return false
	}
	if T.IsIdentity() || RHat.IsIdentity() || R.IsIdentity() {
		return false
	}
	group := p.Z.Curve()
	e := nonceChallenge(group, T, RHat, R, p.A, p.B)
	// z⋅G == A + e⋅R̂
	lhs := p.Z.ActOnBase()
	rhs := group.NewPoint().Set(p.A).Add(group.NewScalar().Set(e).Act(RHat))
	if !lhs.Equal(rhs) {
		return false
	}
	// z⋅T == B + e⋅R
	lhs = p.Z.Act(T)
	rhs = group.NewPoint().Set(p.B).Add(group.NewScalar().Set(e).Act(R))
	return lhs.Equal(rhs)
}
