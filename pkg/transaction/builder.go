package transaction

import (
	"errors"
	"fmt"

	"github.com/Lederstrumpf/farcaster-core/pkg/blockchain"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
)

// KeyRing collects both parties' public keys on the arbitrating chain,
// as revealed during the swap setup. All points must live on the
// arbitrating group.
type KeyRing struct {
	// Cooperative path of the lock output.
	AliceBuy, BobBuy curve.Point
	// Fallback path of the lock output, feeding the cancel transaction.
	AliceCancel, BobCancel curve.Point
	// Cooperative path of the cancel output, feeding the refund.
	AliceRefund, BobRefund curve.Point
	// Fallback path of the cancel output, claimed by the punish.
	AlicePunish curve.Point
	// Terminal destinations of the buy and refund outputs.
	AliceDestination, BobDestination curve.Point
}

func (k *KeyRing) Validate() error {
	points := []struct {
		name  string
		point curve.Point
	}{
		{"alice buy", k.AliceBuy},
		{"bob buy", k.BobBuy},
		{"alice cancel", k.AliceCancel},
		{"bob cancel", k.BobCancel},
		{"alice refund", k.AliceRefund},
		{"bob refund", k.BobRefund},
		{"alice punish", k.AlicePunish},
		{"alice destination", k.AliceDestination},
		{"bob destination", k.BobDestination},
	}
	for _, p := range points {
		if p.point == nil || p.point.IsIdentity() {
			return fmt.Errorf("transaction: missing %s key", p.name)
		}
	}
	return nil
}

func keyBytes(points ...curve.Point) ([][]byte, error) {
	out := make([][]byte, 0, len(points))
	for _, p := range points {
		data, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// Builder derives the five arbitrating templates from the deal terms
// and the revealed key ring. Both parties run the same builder over the
// same inputs, so a template received from the counterparty must match
// the locally built one bit for bit.
type Builder struct {
	Chain          blockchain.Arbitrating
	Strategy       blockchain.FeeStrategy
	CancelTimelock blockchain.Timelock
	PunishTimelock blockchain.Timelock
	Keys           KeyRing
}

func (b *Builder) Validate() error {
	if b.Chain == nil {
		return errors.New("transaction: builder without arbitrating chain")
	}
	if err := b.Strategy.Validate(); err != nil {
		return err
	}
	if b.CancelTimelock == 0 {
		return errors.New("transaction: cancel timelock must exceed the lock")
	}
	if b.PunishTimelock <= b.CancelTimelock {
		return errors.New("transaction: punish timelock must exceed the cancel timelock")
	}
	return b.Keys.Validate()
}

func (b *Builder) fee() (blockchain.Amount, error) {
	return b.Chain.Fee(b.Strategy)
}

func (b *Builder) netAmount(prev blockchain.Amount) (blockchain.Amount, error) {
	fee, err := b.fee()
	if err != nil {
		return 0, err
	}
	if prev <= fee {
		return 0, fmt.Errorf("transaction: amount %d cannot pay fee %d", prev, fee)
	}
	return prev - fee, nil
}

// Lock builds the template depositing the funding output into the
// swap arrangement. The success path is the buy 2-of-2, the failure
// path the cancel 2-of-2.
func (b *Builder) Lock(funding Outpoint, amount blockchain.Amount) (*Template, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	net, err := b.netAmount(amount)
	if err != nil {
		return nil, err
	}
	success, err := keyBytes(b.Keys.AliceBuy, b.Keys.BobBuy)
	if err != nil {
		return nil, err
	}
	failure, err := keyBytes(b.Keys.AliceCancel, b.Keys.BobCancel)
	if err != nil {
		return nil, err
	}
	return &Template{
		Kind:    Lock,
		BasedOn: funding,
		Amount:  net,
		Success: success,
		Failure: failure,
	}, nil
}

// Buy builds the template claiming the lock output to Alice's
// destination along the cooperative path.
func (b *Builder) Buy(lock *Template) (*Template, error) {
	if err := b.expect(lock, Lock); err != nil {
		return nil, err
	}
	net, err := b.netAmount(lock.Amount)
	if err != nil {
		return nil, err
	}
	success, err := keyBytes(b.Keys.AliceDestination)
	if err != nil {
		return nil, err
	}
	return &Template{
		Kind:    Buy,
		BasedOn: lock.ConsumableOutput(),
		Amount:  net,
		Success: success,
	}, nil
}

// Cancel builds the template moving the lock output into the
// refundable state once the cancel timelock expires.
func (b *Builder) Cancel(lock *Template) (*Template, error) {
	if err := b.expect(lock, Lock); err != nil {
		return nil, err
	}
	net, err := b.netAmount(lock.Amount)
	if err != nil {
		return nil, err
	}
	success, err := keyBytes(b.Keys.AliceRefund, b.Keys.BobRefund)
	if err != nil {
		return nil, err
	}
	failure, err := keyBytes(b.Keys.AlicePunish)
	if err != nil {
		return nil, err
	}
	return &Template{
		Kind:     Cancel,
		BasedOn:  lock.ConsumableOutput(),
		Amount:   net,
		Timelock: b.CancelTimelock,
		Success:  success,
		Failure:  failure,
	}, nil
}

// Refund builds the template returning the cancelled funds to Bob's
// destination.
func (b *Builder) Refund(cancel *Template) (*Template, error) {
	if err := b.expect(cancel, Cancel); err != nil {
		return nil, err
	}
	net, err := b.netAmount(cancel.Amount)
	if err != nil {
		return nil, err
	}
	success, err := keyBytes(b.Keys.BobDestination)
	if err != nil {
		return nil, err
	}
	return &Template{
		Kind:    Refund,
		BasedOn: cancel.ConsumableOutput(),
		Amount:  net,
		Success: success,
	}, nil
}

// Punish builds the template claiming the cancelled funds to Alice's
// destination after the punish timelock, when Bob never refunded.
func (b *Builder) Punish(cancel *Template) (*Template, error) {
	if err := b.expect(cancel, Cancel); err != nil {
		return nil, err
	}
	net, err := b.netAmount(cancel.Amount)
	if err != nil {
		return nil, err
	}
	success, err := keyBytes(b.Keys.AliceDestination)
	if err != nil {
		return nil, err
	}
	return &Template{
		Kind:     Punish,
		BasedOn:  cancel.ConsumableOutput(),
		Amount:   net,
		Timelock: b.PunishTimelock,
		Success:  success,
	}, nil
}

func (b *Builder) expect(tpl *Template, kind TxID) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if tpl == nil {
		return fmt.Errorf("transaction: missing %s template", kind)
	}
	if tpl.Kind != kind {
		return fmt.Errorf("transaction: expected %s template, got %s", kind, tpl.Kind)
	}
	return nil
}
