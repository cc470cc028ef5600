package dleq

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"

	"github.com/Lederstrumpf/farcaster-core/internal/params"
)

// MarshalBinary implements encoding.BinaryMarshaler.
//
// The layout is a fixed-width concatenation per repetition of the
// arbitrating commitment, the accordant commitment and the response.
func (p *Proof) MarshalBinary() ([]byte, error) {
	if len(p.kArb) != params.StatParam || len(p.kAcc) != params.StatParam || len(p.z) != params.StatParam {
		return nil, errors.New("dleq: cannot marshal incomplete proof")
	}
	out := make([]byte, 0, params.StatParam*(p.arbitrating.PointBytes()+p.accordant.PointBytes()+params.CrossGroupResponseBytes))
	for i := 0; i < params.StatParam; i++ {
		kArb, err := p.kArb[i].MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("dleq: repetition %d: %w", i, err)
		}
		kAcc, err := p.kAcc[i].MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("dleq: repetition %d: %w", i, err)
		}
		z := make([]byte, params.CrossGroupResponseBytes)
		p.z[i].FillBytes(z)
		out = append(out, kArb...)
		out = append(out, kAcc...)
		out = append(out, z...)
	}
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The receiver
// must have been created with EmptyProof so the groups are known.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if p.arbitrating == nil || p.accordant == nil {
		return errors.New("dleq: proof must be initialized using EmptyProof")
	}
	arbLen, accLen := p.arbitrating.PointBytes(), p.accordant.PointBytes()
	repetition := arbLen + accLen + params.CrossGroupResponseBytes
	if len(data) != params.StatParam*repetition {
		return fmt.Errorf("dleq: invalid proof length %d", len(data))
	}
	p.kArb = p.kArb[:0]
	p.kAcc = p.kAcc[:0]
	p.z = p.z[:0]
	for i := 0; i < params.StatParam; i++ {
		chunk := data[i*repetition:]
		kArb := p.arbitrating.NewPoint()
		if err := kArb.UnmarshalBinary(chunk[:arbLen]); err != nil {
			return fmt.Errorf("dleq: repetition %d: %w", i, err)
		}
		kAcc := p.accordant.NewPoint()
		if err := kAcc.UnmarshalBinary(chunk[arbLen : arbLen+accLen]); err != nil {
			return fmt.Errorf("dleq: repetition %d: %w", i, err)
		}
		z := new(saferith.Nat).SetBytes(chunk[arbLen+accLen : repetition])
		p.kArb = append(p.kArb, kArb)
		p.kAcc = append(p.kAcc, kAcc)
		p.z = append(p.z, z)
	}
	return nil
}
