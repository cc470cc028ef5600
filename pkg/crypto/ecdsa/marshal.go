package ecdsa

import (
	"errors"
	"fmt"
)

// Binary forms are fixed-width concatenations of the component
// encodings. Receivers must be created with the matching Empty*
// constructor so the group is known before unmarshalling.

// MarshalBinary implements encoding.BinaryMarshaler.
func (sig *Signature) MarshalBinary() ([]byte, error) {
	r, err := sig.R.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ecdsa: marshal signature: %w", err)
	}
	s, err := sig.S.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ecdsa: marshal signature: %w", err)
	}
	return append(r, s...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sig *Signature) UnmarshalBinary(data []byte) error {
	if sig.R == nil || sig.S == nil {
		return errors.New("ecdsa: signature must be initialized using EmptySignature")
	}
	n := sig.R.Curve().ScalarBytes()
	if len(data) != 2*n {
		return fmt.Errorf("ecdsa: invalid signature length %d", len(data))
	}
	if err := sig.R.UnmarshalBinary(data[:n]); err != nil {
		return fmt.Errorf("ecdsa: unmarshal signature: %w", err)
	}
	if err := sig.S.UnmarshalBinary(data[n:]); err != nil {
		return fmt.Errorf("ecdsa: unmarshal signature: %w", err)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *NonceProof) MarshalBinary() ([]byte, error) {
	a, err := p.A.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ecdsa: marshal nonce proof: %w", err)
	}
	b, err := p.B.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ecdsa: marshal nonce proof: %w", err)
	}
	z, err := p.Z.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ecdsa: marshal nonce proof: %w", err)
	}
	return append(append(a, b...), z...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *NonceProof) UnmarshalBinary(data []byte) error {
	if p.A == nil || p.B == nil || p.Z == nil {
		return errors.New("ecdsa: nonce proof must be initialized using EmptyNonceProof")
	}
	group := p.Z.Curve()
	pn, sn := group.PointBytes(), group.ScalarBytes()
	if len(data) != 2*pn+sn {
		return fmt.Errorf("ecdsa: invalid nonce proof length %d", len(data))
	}
	if err := p.A.UnmarshalBinary(data[:pn]); err != nil {
		return fmt.Errorf("ecdsa: unmarshal nonce proof: %w", err)
	}
	if err := p.B.UnmarshalBinary(data[pn : 2*pn]); err != nil {
		return fmt.Errorf("ecdsa: unmarshal nonce proof: %w", err)
	}
	if err := p.Z.UnmarshalBinary(data[2*pn:]); err != nil {
		return fmt.Errorf("ecdsa: unmarshal nonce proof: %w", err)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sig *PreSignature) MarshalBinary() ([]byte, error) {
	r, err := sig.R.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ecdsa: marshal pre-signature: %w", err)
	}
	rHat, err := sig.RHat.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ecdsa: marshal pre-signature: %w", err)
	}
	sHat, err := sig.SHat.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ecdsa: marshal pre-signature: %w", err)
	}
	proof, err := sig.Proof.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := append(r, rHat...)
	out = append(out, sHat...)
	return append(out, proof...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sig *PreSignature) UnmarshalBinary(data []byte) error {
	if sig.R == nil || sig.RHat == nil || sig.SHat == nil || sig.Proof == nil {
		return errors.New("ecdsa: pre-signature must be initialized using EmptyPreSignature")
	}
	group := sig.R.Curve()
	pn, sn := group.PointBytes(), group.ScalarBytes()
	if len(data) != 2*pn+sn+(2*pn+sn) {
		return fmt.Errorf("ecdsa: invalid pre-signature length %d", len(data))
	}
	if err := sig.R.UnmarshalBinary(data[:pn]); err != nil {
		return fmt.Errorf("ecdsa: unmarshal pre-signature: %w", err)
	}
	if err := sig.RHat.UnmarshalBinary(data[pn : 2*pn]); err != nil {
		return fmt.Errorf("ecdsa: unmarshal pre-signature: %w", err)
	}
	if err := sig.SHat.UnmarshalBinary(data[2*pn : 2*pn+sn]); err != nil {
		return fmt.Errorf("ecdsa: unmarshal pre-signature: %w", err)
	}
	return sig.Proof.UnmarshalBinary(data[2*pn+sn:])
}
