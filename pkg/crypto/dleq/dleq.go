// Package dleq proves in zero knowledge that two group elements on two
// different curves share the same discrete logarithm. This is the link
// that makes the swap atomic: the adaptor key on the arbitrating chain
// and the spend key on the accordant chain are commitments to one
// secret, and the proof is the only reviewer of that claim.
//
// The proof runs params.StatParam parallel repetitions of a binary
// challenge sigma protocol, with responses computed over the integers.
// Secrets are bounded below 2^params.CrossGroupSecretBits so responses
// never wrap either group order.
package dleq

import (
	"errors"
	"io"

	"github.com/cronokirby/saferith"

	"github.com/Lederstrumpf/farcaster-core/internal/params"
	"github.com/Lederstrumpf/farcaster-core/pkg/hash"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/sample"
)

var (
	ErrSecretOutOfRange = errors.New("dleq: secret out of range")
	ErrVerify           = errors.New("dleq: proof verification failed")
)

// maximum bit length of a response z = k + b⋅x
const responseBits = params.CrossGroupNonceBits + 1

// ScalarPair lifts a bounded secret onto both groups.
func ScalarPair(secret *saferith.Nat, arbitrating, accordant curve.Curve) (curve.Scalar, curve.Scalar) {
	return arbitrating.NewScalar().SetNat(secret), accordant.NewScalar().SetNat(secret)
}

// Proof is a non-interactive cross-group discrete logarithm equality proof.
type Proof struct {
	arbitrating curve.Curve
	accordant   curve.Curve

	// commitments kᵢ⋅G on each group, one pair per repetition
	kArb []curve.Point
	kAcc []curve.Point
	// responses zᵢ = kᵢ + bᵢ⋅x over the integers
	z []*saferith.Nat
}

// EmptyProof returns a Proof with given groups, ready for unmarshalling.
func EmptyProof(arbitrating, accordant curve.Curve) *Proof {
	return &Proof{arbitrating: arbitrating, accordant: accordant}
}

func challengeBits(arbPublic, accPublic curve.Point, kArb, kAcc []curve.Point) []byte {
	h := hash.New(hash.BytesWithDomain{TheDomain: "DLEQ-CrossGroup", Bytes: nil})
	_ = h.WriteAny(arbPublic, accPublic)
	for i := range kArb {
		_ = h.WriteAny(kArb[i], kAcc[i])
	}
	out := make([]byte, params.StatParam/8)
	if _, err := io.ReadFull(h.Digest(), out); err != nil {
		panic(err)
	}
	return out
}

func bit(bits []byte, i int) byte {
	return (bits[i/8] >> (i % 8)) & 1
}

// Prove generates a proof that secret is the discrete logarithm of both
// secret⋅G on the arbitrating group and secret⋅G on the accordant group.
func Prove(rand io.Reader, secret *saferith.Nat, arbitrating, accordant curve.Curve) (*Proof, error) {
	if secret.EqZero() == 1 || secret.TrueLen() > params.CrossGroupSecretBits {
		return nil, ErrSecretOutOfRange
	}
	arbPublic, accPublic := publicPair(secret, arbitrating, accordant)

	k := make([]*saferith.Nat, params.StatParam)
	kArb := make([]curve.Point, params.StatParam)
	kAcc := make([]curve.Point, params.StatParam)
	for i := range k {
		k[i] = sample.Bits(rand, params.CrossGroupNonceBits)
		kArb[i] = arbitrating.NewScalar().SetNat(k[i]).ActOnBase()
		kAcc[i] = accordant.NewScalar().SetNat(k[i]).ActOnBase()
	}

	bits := challengeBits(arbPublic, accPublic, kArb, kAcc)

	z := make([]*saferith.Nat, params.StatParam)
	for i := range z {
		z[i] = new(saferith.Nat).SetNat(k[i])
		if bit(bits, i) == 1 {
			z[i] = z[i].Add(z[i], secret, responseBits)
		}
	}

	return &Proof{
		arbitrating: arbitrating,
		accordant:   accordant,
		kArb:        kArb,
		kAcc:        kAcc,
		z:           z,
	}, nil
}

// Verify reports whether the proof demonstrates that arbPublic and
// accPublic share one discrete logarithm. It fails closed.
func (p *Proof) Verify(arbPublic, accPublic curve.Point) bool {
	if p == nil || arbPublic == nil || accPublic == nil {
		return false
	}
	if arbPublic.IsIdentity() || accPublic.IsIdentity() {
		return false
	}
	if len(p.kArb) != params.StatParam || len(p.kAcc) != params.StatParam || len(p.z) != params.StatParam {
		return false
	}

	bits := challengeBits(arbPublic, accPublic, p.kArb, p.kAcc)

	for i := 0; i < params.StatParam; i++ {
		z := p.z[i]
		if z == nil || p.kArb[i] == nil || p.kAcc[i] == nil {
			return false
		}
		// An oversized response would reduce differently modulo the
		// two group orders and break the cross-group binding.
		if z.TrueLen() > responseBits {
			return false
		}
		// zᵢ⋅G == Kᵢ + bᵢ⋅X on both groups
		lhs := p.arbitrating.NewScalar().SetNat(z).ActOnBase()
		rhs := p.arbitrating.NewPoint().Set(p.kArb[i])
		if bit(bits, i) == 1 {
			rhs = rhs.Add(arbPublic)
		}
		if !lhs.Equal(rhs) {
			return false
		}
		lhs = p.accordant.NewScalar().SetNat(z).ActOnBase()
		rhs = p.accordant.NewPoint().Set(p.kAcc[i])
		if bit(bits, i) == 1 {
			rhs = rhs.Add(accPublic)
		}
		if !lhs.Equal(rhs) {
			return false
		}
	}
	return true
}

func publicPair(secret *saferith.Nat, arbitrating, accordant curve.Curve) (curve.Point, curve.Point) {
	arbScalar, accScalar := ScalarPair(secret, arbitrating, accordant)
	return arbScalar.ActOnBase(), accScalar.ActOnBase()
}
