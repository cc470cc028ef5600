// Package protocol implements the ordered two-party message exchange
// driving one swap from negotiation to a terminal outcome. The state
// machine is pure: the caller owns the event loop, the transport and
// the chain, and executes the effects each step emits.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Lederstrumpf/farcaster-core/pkg/encoding"
	"github.com/Lederstrumpf/farcaster-core/pkg/hash"
	"github.com/Lederstrumpf/farcaster-core/pkg/swap"
	"github.com/Lederstrumpf/farcaster-core/pkg/transaction"
)

// MessageType tags the payload carried by a Message. The values are
// wire tags and must not be reordered.
type MessageType uint16

const (
	TypeCommitAliceParameters MessageType = iota + 1
	TypeCommitBobParameters
	TypeRevealAliceParameters
	TypeRevealBobParameters
	TypeRevealProof
	TypeCoreArbitratingSetup
	TypeRefundProcedureSignatures
	TypeBuyProcedureSignature
	TypeBuyCosignature
	TypeAbort
)

func (t MessageType) String() string {
	switch t {
	case TypeCommitAliceParameters:
		return "commit-alice-parameters"
	case TypeCommitBobParameters:
		return "commit-bob-parameters"
	case TypeRevealAliceParameters:
		return "reveal-alice-parameters"
	case TypeRevealBobParameters:
		return "reveal-bob-parameters"
	case TypeRevealProof:
		return "reveal-proof"
	case TypeCoreArbitratingSetup:
		return "core-arbitrating-setup"
	case TypeRefundProcedureSignatures:
		return "refund-procedure-signatures"
	case TypeBuyProcedureSignature:
		return "buy-procedure-signature"
	case TypeBuyCosignature:
		return "buy-cosignature"
	case TypeAbort:
		return "abort"
	default:
		return fmt.Sprintf("message(%d)", uint16(t))
	}
}

func (t MessageType) Validate() error {
	if t < TypeCommitAliceParameters || t > TypeAbort {
		return fmt.Errorf("protocol: unknown message type %d", uint16(t))
	}
	return nil
}

// CommitAliceParameters carries Alice's commitment to her full
// parameter set, punish key included.
type CommitAliceParameters struct {
	Commitment hash.Commitment
}

// CommitBobParameters carries Bob's commitment to his parameter set.
type CommitBobParameters struct {
	Commitment hash.Commitment
}

// RevealAliceParameters opens Alice's commitment. Group elements travel
// in their fixed-width binary form; the receiver rebuilds them on the
// groups the deal fixed.
type RevealAliceParameters struct {
	Buy          []byte
	Cancel       []byte
	Refund       []byte
	Punish       []byte
	Adaptor      []byte
	Destination  []byte
	Spend        []byte
	Decommitment hash.Decommitment
}

// RevealBobParameters opens Bob's commitment. Bob has no punish key.
type RevealBobParameters struct {
	Buy          []byte
	Cancel       []byte
	Refund       []byte
	Adaptor      []byte
	Destination  []byte
	Spend        []byte
	Decommitment hash.Decommitment
}

// RevealProof carries the cross-group proof tying the sender's adaptor
// key to its accordant spend key.
type RevealProof struct {
	Proof []byte
}

// CoreArbitratingSetup carries Bob's arbitrating transaction set and
// his half of the cancel 2-of-2. Bob signs nothing else until Alice's
// signatures arrive.
type CoreArbitratingSetup struct {
	Lock            *transaction.Template
	Cancel          *transaction.Template
	Refund          *transaction.Template
	Punish          *transaction.Template
	CancelSignature []byte
}

// RefundProcedureSignatures carries Alice's halves of the cancel and
// refund 2-of-2s. With them Bob can execute the full refund path on
// his own once the timelocks expire.
type RefundProcedureSignatures struct {
	CancelSignature []byte
	RefundSignature []byte
}

// BuyProcedureSignature carries the buy template and Alice's adaptor
// signature over it, encrypted under her adaptor key.
type BuyProcedureSignature struct {
	Buy                 *transaction.Template
	AdaptorBuySignature []byte
}

// BuyCosignature carries Bob's half of the buy 2-of-2, completing the
// signature set Alice needs to publish the buy.
type BuyCosignature struct {
	BuySignature []byte
}

// Abort asks the counterparty to stop the swap.
type Abort struct {
	Reason string
}

// Message is the versioned envelope handed to the transport. Every
// message echoes the swap it belongs to.
type Message struct {
	SwapID swap.SwapID
	Type   MessageType
	Data   []byte
}

var messageMagic = []byte("FCMSG")

// MessageVersion is the envelope version emitted by MarshalBinary.
const MessageVersion uint16 = 1

// NewMessage encodes payload into a Message of the given type.
func NewMessage(swapID swap.SwapID, msgType MessageType, payload interface{}) (*Message, error) {
	if err := msgType.Validate(); err != nil {
		return nil, err
	}
	data, err := encoding.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encoding %s payload: %w", msgType, err)
	}
	return &Message{SwapID: swapID, Type: msgType, Data: data}, nil
}

// Decode parses the payload into v, which must match the message type.
func (m *Message) Decode(v interface{}) error {
	return encoding.Unmarshal(m.Type.String(), m.Data, v)
}

// MarshalBinary implements encoding.BinaryMarshaler. The layout is
// magic, version, type tag, swap id, payload length, payload.
func (m *Message) MarshalBinary() ([]byte, error) {
	if err := m.Type.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(messageMagic)+2+2+len(m.SwapID)+4+len(m.Data))
	out = append(out, messageMagic...)
	out = binary.BigEndian.AppendUint16(out, MessageVersion)
	out = binary.BigEndian.AppendUint16(out, uint16(m.Type))
	out = append(out, m.SwapID[:]...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(m.Data)))
	return append(out, m.Data...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, rejecting
// truncated input, trailing bytes and unknown versions.
func (m *Message) UnmarshalBinary(data []byte) error {
	header := len(messageMagic) + 2 + 2 + len(m.SwapID) + 4
	if len(data) < header {
		return encoding.NewDecodeError("protocol.Message", encoding.ErrTruncated)
	}
	if !bytes.HasPrefix(data, messageMagic) {
		return encoding.NewDecodeError("protocol.Message", errors.New("bad magic"))
	}
	rest := data[len(messageMagic):]
	if v := binary.BigEndian.Uint16(rest); v != MessageVersion {
		return encoding.NewDecodeError("protocol.Message",
			fmt.Errorf("%w: %d", encoding.ErrUnsupportedVersion, v))
	}
	msgType := MessageType(binary.BigEndian.Uint16(rest[2:]))
	if err := msgType.Validate(); err != nil {
		return encoding.NewDecodeError("protocol.Message", err)
	}
	rest = rest[4:]
	copy(m.SwapID[:], rest[:len(m.SwapID)])
	rest = rest[len(m.SwapID):]
	length := binary.BigEndian.Uint32(rest)
	payload := rest[4:]
	if uint32(len(payload)) < length {
		return encoding.NewDecodeError("protocol.Message", encoding.ErrTruncated)
	}
	if uint32(len(payload)) > length {
		return encoding.NewDecodeError("protocol.Message", encoding.ErrTrailingBytes)
	}
	m.Type = msgType
	m.Data = payload
	return nil
}
