package ecdsa

import (
	"errors"
	"io"

	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/sample"
)

var (
	ErrInvalidEncryptionKey = errors.New("ecdsa: encryption key is identity")
	ErrInvalidSecret        = errors.New("ecdsa: adaptor secret is zero")
	ErrRecoveryMismatch     = errors.New("ecdsa: signature does not decrypt this pre-signature")
)

// PreSignature is an ECDSA signature encrypted under a public point T.
// It verifies publicly against (X, T, m), becomes an ordinary signature
// once decrypted with t = log_G(T), and leaks t to anyone holding both
// the pre-signature and the decrypted signature.
type PreSignature struct {
	// R = k⋅T, the encryption-shifted nonce point. r is its x coordinate.
	R curve.Point
	// RHat = k⋅G
	RHat curve.Point
	// SHat = k⁻¹(m + r⋅x)
	SHat curve.Scalar
	// Proof ties R and RHat to the same nonce k.
	Proof *NonceProof
}

// Group returns the elliptic curve group associated with this PreSignature.
func (sig *PreSignature) Group() curve.Curve {
	return sig.R.Curve()
}

// EmptyPreSignature returns a PreSignature with a given group, ready for unmarshalling.
func EmptyPreSignature(group curve.Curve) *PreSignature {
	return &PreSignature{
		R:     group.NewPoint(),
		RHat:  group.NewPoint(),
		SHat:  group.NewScalar(),
		Proof: EmptyNonceProof(group),
	}
}

// EncSign produces a pre-signature on messageHash, encrypted under encryptionKey.
func EncSign(rand io.Reader, secretKey curve.Scalar, encryptionKey curve.Point, messageHash []byte) (*PreSignature, error) {
	if encryptionKey == nil || encryptionKey.IsIdentity() {
		return nil, ErrInvalidEncryptionKey
	}
	group := secretKey.Curve()
	m := curve.FromHash(group, messageHash)
	for i := 0; i < maxIterations; i++ {
		k := sample.Scalar(rand, group)
		R := k.Act(encryptionKey)
		r := R.XScalar()
		if r.IsZero() {
			continue
		}
		RHat := k.ActOnBase()
		kInv := group.NewScalar().Set(k).Invert()
		// ŝ = k⁻¹(m + r⋅x)
		sHat := group.NewScalar().Set(r).Mul(secretKey).Add(m).Mul(kInv)
		if sHat.IsZero() {
			continue
		}
		return &PreSignature{
			R:     R,
			RHat:  RHat,
			SHat:  sHat,
			Proof: proveNonce(rand, k, encryptionKey, RHat, R),
		}, nil
	}
	return nil, ErrMaxIterations
}

// EncVerify reports whether the pre-signature is a valid encryption of a
// signature by publicKey on messageHash under encryptionKey. It fails
// closed on any malformed input.
func (sig *PreSignature) EncVerify(publicKey, encryptionKey curve.Point, messageHash []byte) bool {
	if sig == nil || sig.R == nil || sig.RHat == nil || sig.SHat == nil {
		return false
	}
	if publicKey == nil || publicKey.IsIdentity() {
		return false
	}
	if sig.R.IsIdentity() || sig.RHat.IsIdentity() || sig.SHat.IsZero() {
		return false
	}
	if !sig.Proof.Verify(encryptionKey, sig.RHat, sig.R) {
		return false
	}
	group := sig.Group()
	r := sig.R.XScalar()
	if r.IsZero() {
		return false
	}
	m := curve.FromHash(group, messageHash)
	sInv := group.NewScalar().Set(sig.SHat).Invert()
	u1 := group.NewScalar().Set(m).Mul(sInv)
	u2 := group.NewScalar().Set(r).Mul(sInv)
	// k⋅G == u₁⋅G + u₂⋅X
	return sig.RHat.Equal(u1.ActOnBase().Add(u2.Act(publicKey)))
}

// Decrypt adapts the pre-signature into an ordinary signature using the
// adaptor secret t = log_G(T). The result verifies under the signer's
// public key whenever the pre-signature verified under (X, T, m).
func (sig *PreSignature) Decrypt(secret curve.Scalar) (*Signature, error) {
	if secret == nil || secret.IsZero() {
		return nil, ErrInvalidSecret
	}
	group := sig.Group()
	// s = ŝ⋅t⁻¹, so the effective nonce becomes k⋅t with nonce point R.
	tInv := group.NewScalar().Set(secret).Invert()
	s := group.NewScalar().Set(sig.SHat).Mul(tInv)
	return &Signature{
		R: sig.R.XScalar(),
		S: s,
	}, nil
}

// Recover extracts the adaptor secret from a pre-signature and the
// signature that decrypted it. The encryption key pins the result: if
// the supplied signature does not actually decrypt this pre-signature,
// Recover reports a mismatch instead of returning a corrupt secret.
func (sig *PreSignature) Recover(decrypted *Signature, encryptionKey curve.Point) (curve.Scalar, error) {
	if decrypted == nil || decrypted.S == nil || decrypted.S.IsZero() {
		return nil, ErrRecoveryMismatch
	}
	if encryptionKey == nil || encryptionKey.IsIdentity() {
		return nil, ErrInvalidEncryptionKey
	}
	group := sig.Group()
	sInv := group.NewScalar().Set(decrypted.S).Invert()
	t := group.NewScalar().Set(sig.SHat).Mul(sInv)
	if t.ActOnBase().Equal(encryptionKey) {
		return t, nil
	}
	// The decrypted signature may have been negated (low-s
	// normalization); the secret then recovers negated as well.
	tNeg := group.NewScalar().Set(t).Negate()
	if tNeg.ActOnBase().Equal(encryptionKey) {
		return tNeg, nil
	}
	return nil, ErrRecoveryMismatch
}
