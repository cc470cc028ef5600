package protocol

import (
	"errors"
	"fmt"

	"github.com/Lederstrumpf/farcaster-core/pkg/crypto/ecdsa"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
	"github.com/Lederstrumpf/farcaster-core/pkg/swap"
	"github.com/Lederstrumpf/farcaster-core/pkg/transaction"
)

// State is the position of one swap in the protocol. Terminal states
// are one-way; the machine never replays into an earlier state.
type State uint8

const (
	Negotiated State = iota + 1
	CommitPhase
	RevealPhase
	ArbitratingSetup
	BuyOrRefundPending
	Swapped
	Refunded
	Punished
	Aborted
)

func (s State) String() string {
	switch s {
	case Negotiated:
		return "negotiated"
	case CommitPhase:
		return "commit-phase"
	case RevealPhase:
		return "reveal-phase"
	case ArbitratingSetup:
		return "arbitrating-setup"
	case BuyOrRefundPending:
		return "buy-or-refund-pending"
	case Swapped:
		return "swapped"
	case Refunded:
		return "refunded"
	case Punished:
		return "punished"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case Swapped, Refunded, Punished, Aborted:
		return true
	default:
		return false
	}
}

// Event is an input the caller feeds into the machine: the start
// signal, an inbound message, a caller-signaled timeout, or a chain
// observation.
type Event interface {
	isEvent()
}

// Start begins the exchange; the machine emits its parameter commitment.
type Start struct{}

// MessageReceived delivers one inbound protocol message.
type MessageReceived struct {
	Message *Message
}

// Timeout is the caller-driven timeout signal. Before the arbitrating
// funds are at stake it aborts the swap; afterwards it triggers the
// cancel fallback.
type Timeout struct{}

// AbortSwap asks the machine to stop and notify the counterparty.
type AbortSwap struct {
	Reason string
}

// BuySignatureSeen reports the decrypted buy signature observed
// on-chain. Bob extracts the cross-group secret from it.
type BuySignatureSeen struct {
	Signature *ecdsa.Signature
}

// RefundSeen reports a confirmed refund transaction.
type RefundSeen struct{}

// PunishSeen reports a confirmed punish transaction.
type PunishSeen struct{}

func (Start) isEvent()            {}
func (MessageReceived) isEvent()  {}
func (Timeout) isEvent()          {}
func (AbortSwap) isEvent()        {}
func (BuySignatureSeen) isEvent() {}
func (RefundSeen) isEvent()       {}
func (PunishSeen) isEvent()       {}

// Effect is an action the caller must execute on the machine's behalf.
// The machine never touches transport or chain itself.
type Effect interface {
	isEffect()
}

// SendMessage hands an outbound message to the transport.
type SendMessage struct {
	Message *Message
}

// BuyReady hands Alice the buy template with both halves of its
// 2-of-2: her own decrypted adaptor signature, whose publication
// reveals the secret to Bob, and Bob's cosignature.
type BuyReady struct {
	Buy         *transaction.Template
	Signature   *ecdsa.Signature
	Cosignature *ecdsa.Signature
}

// SecretRevealed hands Bob the extracted cross-group secret as a scalar
// on the accordant group, ready to claim the accordant funds.
type SecretRevealed struct {
	Secret curve.Scalar
}

// FallbackReady hands the caller the refund-path templates it may
// publish once their timelocks expire, together with the signatures
// collected for them. Refund is set for Bob, Punish for Alice; each
// 2-of-2 carries both halves so no further exchange is needed.
type FallbackReady struct {
	Cancel                *transaction.Template
	LocalCancelSignature  *ecdsa.Signature
	RemoteCancelSignature *ecdsa.Signature

	Refund                *transaction.Template
	LocalRefundSignature  *ecdsa.Signature
	RemoteRefundSignature *ecdsa.Signature

	Punish          *transaction.Template
	PunishSignature *ecdsa.Signature
}

func (SendMessage) isEffect()    {}
func (BuyReady) isEffect()       {}
func (SecretRevealed) isEffect() {}
func (FallbackReady) isEffect()  {}

// ErrAbortedByTimeout reports a caller-signaled timeout before the
// arbitrating funds were at stake.
var ErrAbortedByTimeout = errors.New("protocol: aborted by timeout")

// Error reports a protocol violation: a message in a state that does
// not expect it, a failed verification, or a malformed payload.
type Error struct {
	State State
	// Culprit names the party at fault; zero when the fault is local.
	Culprit swap.SwapRole
	Err     error
}

func (e *Error) Error() string {
	if e.Culprit.Validate() == nil {
		return fmt.Sprintf("protocol: in state %s, %s: %v", e.State, e.Culprit, e.Err)
	}
	return fmt.Sprintf("protocol: in state %s: %v", e.State, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
