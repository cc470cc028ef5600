// Package transaction implements the abstract arbitrating transaction
// set enforcing swap atomicity: Lock, Buy, Cancel, Refund and Punish
// templates, together with the builder producing them and the
// validator every received template must pass before it is trusted.
package transaction

import (
	"bytes"
	"fmt"

	"github.com/Lederstrumpf/farcaster-core/pkg/blockchain"
	"github.com/Lederstrumpf/farcaster-core/pkg/encoding"
	"github.com/Lederstrumpf/farcaster-core/pkg/hash"
)

// TxID names one of the arbitrating transactions. The values are wire
// tags and must not be reordered.
type TxID uint16

const (
	// Funding is created outside the system by an external wallet to
	// fund the swap on the arbitrating chain.
	Funding TxID = 0x01
	// Lock deposits the funds into the 2-of-2-or-timelock arrangement.
	Lock TxID = 0x02
	// Buy is the happy path: the counterparty claims the lock output.
	Buy TxID = 0x03
	// Cancel moves the lock output into a refundable state after the
	// cancel timelock.
	Cancel TxID = 0x04
	// Refund returns the cancelled funds to the original depositor.
	Refund TxID = 0x05
	// Punish claims the cancelled funds after a further timelock when
	// the depositor never refunded.
	Punish TxID = 0x06
)

func (id TxID) String() string {
	switch id {
	case Funding:
		return "funding"
	case Lock:
		return "lock"
	case Buy:
		return "buy"
	case Cancel:
		return "cancel"
	case Refund:
		return "refund"
	case Punish:
		return "punish"
	default:
		return fmt.Sprintf("txid(%d)", uint16(id))
	}
}

func (id TxID) Validate() error {
	if id < Funding || id > Punish {
		return fmt.Errorf("transaction: unknown tx id %d", uint16(id))
	}
	return nil
}

// Outpoint references the consumable output of a predecessor
// transaction.
type Outpoint struct {
	TxHash [32]byte
	Index  uint32
}

func (o Outpoint) Equal(other Outpoint) bool {
	return o.Index == other.Index && bytes.Equal(o.TxHash[:], other.TxHash[:])
}

// Template is the chain-agnostic representation of one arbitrating
// transaction. A concrete chain backend maps it onto its native
// transaction type; the core only certifies structural validity.
type Template struct {
	Kind TxID
	// BasedOn is the predecessor output this template spends.
	BasedOn Outpoint
	// Amount is the output amount, net of fees.
	Amount blockchain.Amount
	// Timelock gates the spend of BasedOn; zero when the spend path
	// has no timelock.
	Timelock blockchain.Timelock
	// Success holds the marshalled public keys of the cooperative
	// spend path of the created output.
	Success [][]byte
	// Failure holds the keys of the timelocked fallback path; empty
	// for terminal outputs.
	Failure [][]byte
}

// Encode returns the canonical byte form of the template.
func (t *Template) Encode() ([]byte, error) {
	return encoding.Marshal(t)
}

// DecodeTemplate parses a canonical template encoding.
func DecodeTemplate(data []byte) (*Template, error) {
	out := &Template{}
	if err := encoding.Unmarshal("transaction.Template", data, out); err != nil {
		return nil, err
	}
	if err := out.Kind.Validate(); err != nil {
		return nil, encoding.NewDecodeError("transaction.Template", err)
	}
	return out, nil
}

// TxHash returns the identifier other templates chain on.
func (t *Template) TxHash() [32]byte {
	data, err := t.Encode()
	if err != nil {
		panic(fmt.Sprintf("transaction: encoding template: %v", err))
	}
	var out [32]byte
	copy(out[:], hash.New(hash.BytesWithDomain{TheDomain: "TemplateHash", Bytes: data}).Sum())
	return out
}

// ConsumableOutput returns the outpoint a successor template must
// reference to build on this one.
func (t *Template) ConsumableOutput() Outpoint {
	return Outpoint{TxHash: t.TxHash(), Index: 0}
}

// SignatureHash returns the digest a signature on this template commits to.
func (t *Template) SignatureHash() []byte {
	data, err := t.Encode()
	if err != nil {
		panic(fmt.Sprintf("transaction: encoding template: %v", err))
	}
	return hash.New(hash.BytesWithDomain{TheDomain: "TemplateSigHash", Bytes: data}).Sum()
}
