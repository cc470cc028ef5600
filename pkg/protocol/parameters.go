package protocol

import (
	"errors"
	"fmt"

	"github.com/Lederstrumpf/farcaster-core/pkg/hash"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
	"github.com/Lederstrumpf/farcaster-core/pkg/swap"
	"github.com/Lederstrumpf/farcaster-core/pkg/transaction"
)

// Parameters is one party's public parameter set: its arbitrating keys,
// the adaptor key and the accordant spend key tied to it, and the
// destination the party wants paid.
type Parameters struct {
	Role swap.SwapRole

	// Arbitrating group keys, one per spend path.
	Buy    curve.Point
	Cancel curve.Point
	Refund curve.Point
	// Punish is held by Alice only.
	Punish curve.Point
	// Adaptor is the arbitrating-side image of the cross-group secret.
	Adaptor     curve.Point
	Destination curve.Point
	// Spend is the accordant-side image of the same secret.
	Spend curve.Point
}

func (p *Parameters) Validate() error {
	if err := p.Role.Validate(); err != nil {
		return err
	}
	points := []struct {
		name  string
		point curve.Point
	}{
		{"buy", p.Buy},
		{"cancel", p.Cancel},
		{"refund", p.Refund},
		{"adaptor", p.Adaptor},
		{"destination", p.Destination},
		{"spend", p.Spend},
	}
	if p.Role == swap.Alice {
		points = append(points, struct {
			name  string
			point curve.Point
		}{"punish", p.Punish})
	} else if p.Punish != nil {
		return errors.New("protocol: bob parameters carry a punish key")
	}
	for _, pt := range points {
		if pt.point == nil || pt.point.IsIdentity() {
			return fmt.Errorf("protocol: missing %s key", pt.name)
		}
	}
	return nil
}

// commitHash binds the full parameter set to the swap in one transcript.
func (p *Parameters) commitHash(swapID swap.SwapID) *hash.Hash {
	h := hash.New(hash.BytesWithDomain{TheDomain: "SwapParameters", Bytes: swapID[:]})
	_ = h.WriteAny([]byte{byte(p.Role)}, p.Buy, p.Cancel, p.Refund, p.Adaptor, p.Destination, p.Spend)
	if p.Role == swap.Alice {
		_ = h.WriteAny(p.Punish)
	}
	return h
}

// Commit produces the hiding commitment sent during the commit phase
// and the decommitment kept back for the reveal.
func (p *Parameters) Commit(swapID swap.SwapID) (hash.Commitment, hash.Decommitment, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	return p.commitHash(swapID).Commit()
}

// VerifyReveal reports whether the parameters open the commitment.
func (p *Parameters) VerifyReveal(swapID swap.SwapID, c hash.Commitment, d hash.Decommitment) bool {
	if p.Validate() != nil {
		return false
	}
	return p.commitHash(swapID).Decommit(c, d)
}

// PartyParameters tracks the counterparty's parameters through the
// commit-reveal exchange: first a commitment only, then the revealed
// values once they pass the gate. A failed reveal leaves it committed.
type PartyParameters struct {
	swapID     swap.SwapID
	commitment hash.Commitment
	revealed   *Parameters
}

// CommittedParameters records the counterparty's commitment.
func CommittedParameters(swapID swap.SwapID, c hash.Commitment) (*PartyParameters, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &PartyParameters{swapID: swapID, commitment: c}, nil
}

var ErrRevealMismatch = errors.New("protocol: revealed parameters do not match the commitment")

// Reveal opens the commitment with the received values. The reveal must
// match the prior commitment or the swap aborts.
func (pp *PartyParameters) Reveal(p *Parameters, d hash.Decommitment) error {
	if pp.revealed != nil {
		return errors.New("protocol: parameters already revealed")
	}
	if !p.VerifyReveal(pp.swapID, pp.commitment, d) {
		return ErrRevealMismatch
	}
	pp.revealed = p
	return nil
}

// Revealed returns the parameters once the reveal gate has passed.
func (pp *PartyParameters) Revealed() (*Parameters, bool) {
	return pp.revealed, pp.revealed != nil
}

func marshalPoint(p curve.Point) []byte {
	if p == nil {
		return nil
	}
	data, err := p.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("protocol: marshalling point: %v", err))
	}
	return data
}

func decodePoint(group curve.Curve, name string, data []byte) (curve.Point, error) {
	p := group.NewPoint()
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("protocol: %s key: %w", name, err)
	}
	return p, nil
}

// RevealMessage builds the reveal payload opening the commitment.
func (p *Parameters) RevealMessage(d hash.Decommitment) (MessageType, interface{}) {
	if p.Role == swap.Alice {
		return TypeRevealAliceParameters, &RevealAliceParameters{
			Buy:          marshalPoint(p.Buy),
			Cancel:       marshalPoint(p.Cancel),
			Refund:       marshalPoint(p.Refund),
			Punish:       marshalPoint(p.Punish),
			Adaptor:      marshalPoint(p.Adaptor),
			Destination:  marshalPoint(p.Destination),
			Spend:        marshalPoint(p.Spend),
			Decommitment: d,
		}
	}
	return TypeRevealBobParameters, &RevealBobParameters{
		Buy:          marshalPoint(p.Buy),
		Cancel:       marshalPoint(p.Cancel),
		Refund:       marshalPoint(p.Refund),
		Adaptor:      marshalPoint(p.Adaptor),
		Destination:  marshalPoint(p.Destination),
		Spend:        marshalPoint(p.Spend),
		Decommitment: d,
	}
}

// Parameters rebuilds Alice's typed parameter set on the deal's groups.
func (m *RevealAliceParameters) Parameters(arbitrating, accordant curve.Curve) (*Parameters, error) {
	out := &Parameters{Role: swap.Alice}
	var err error
	if out.Buy, err = decodePoint(arbitrating, "buy", m.Buy); err != nil {
		return nil, err
	}
	if out.Cancel, err = decodePoint(arbitrating, "cancel", m.Cancel); err != nil {
		return nil, err
	}
	if out.Refund, err = decodePoint(arbitrating, "refund", m.Refund); err != nil {
		return nil, err
	}
	if out.Punish, err = decodePoint(arbitrating, "punish", m.Punish); err != nil {
		return nil, err
	}
	if out.Adaptor, err = decodePoint(arbitrating, "adaptor", m.Adaptor); err != nil {
		return nil, err
	}
	if out.Destination, err = decodePoint(arbitrating, "destination", m.Destination); err != nil {
		return nil, err
	}
	if out.Spend, err = decodePoint(accordant, "spend", m.Spend); err != nil {
		return nil, err
	}
	return out, nil
}

// Parameters rebuilds Bob's typed parameter set on the deal's groups.
func (m *RevealBobParameters) Parameters(arbitrating, accordant curve.Curve) (*Parameters, error) {
	out := &Parameters{Role: swap.Bob}
	var err error
	if out.Buy, err = decodePoint(arbitrating, "buy", m.Buy); err != nil {
		return nil, err
	}
	if out.Cancel, err = decodePoint(arbitrating, "cancel", m.Cancel); err != nil {
		return nil, err
	}
	if out.Refund, err = decodePoint(arbitrating, "refund", m.Refund); err != nil {
		return nil, err
	}
	if out.Adaptor, err = decodePoint(arbitrating, "adaptor", m.Adaptor); err != nil {
		return nil, err
	}
	if out.Destination, err = decodePoint(arbitrating, "destination", m.Destination); err != nil {
		return nil, err
	}
	if out.Spend, err = decodePoint(accordant, "spend", m.Spend); err != nil {
		return nil, err
	}
	return out, nil
}

// KeyRing assembles the transaction key ring from both parties'
// revealed parameters.
func KeyRing(alice, bob *Parameters) transaction.KeyRing {
	return transaction.KeyRing{
		AliceBuy:         alice.Buy,
		BobBuy:           bob.Buy,
		AliceCancel:      alice.Cancel,
		BobCancel:        bob.Cancel,
		AliceRefund:      alice.Refund,
		BobRefund:        bob.Refund,
		AlicePunish:      alice.Punish,
		AliceDestination: alice.Destination,
		BobDestination:   bob.Destination,
	}
}
