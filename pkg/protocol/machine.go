package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/cronokirby/saferith"

	"github.com/Lederstrumpf/farcaster-core/internal/params"
	"github.com/Lederstrumpf/farcaster-core/pkg/blockchain"
	"github.com/Lederstrumpf/farcaster-core/pkg/crypto/dleq"
	"github.com/Lederstrumpf/farcaster-core/pkg/crypto/ecdsa"
	"github.com/Lederstrumpf/farcaster-core/pkg/hash"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/sample"
	"github.com/Lederstrumpf/farcaster-core/pkg/swap"
	"github.com/Lederstrumpf/farcaster-core/pkg/transaction"
)

// Config seeds one swap instance. All fields are read-only once the
// machine is constructed.
type Config struct {
	SwapID      swap.SwapID
	Deal        *swap.Deal
	TradeRole   swap.TradeRole
	Arbitrating blockchain.Arbitrating
	Accordant   blockchain.Accordant
	// Funding is the outpoint the lock will spend. Required for the
	// party playing Bob, ignored for Alice.
	Funding transaction.Outpoint
	Rand    io.Reader
}

func (c *Config) Validate() error {
	if err := c.SwapID.Validate(); err != nil {
		return err
	}
	if c.Deal == nil {
		return errors.New("protocol: config without deal")
	}
	if err := c.Deal.Validate(); err != nil {
		return err
	}
	if err := c.TradeRole.Validate(); err != nil {
		return err
	}
	if c.Arbitrating == nil || c.Accordant == nil {
		return errors.New("protocol: config without chain backends")
	}
	if c.Rand == nil {
		return errors.New("protocol: config without randomness source")
	}
	return nil
}

// Machine drives one swap. Each instance owns its state and artifacts
// exclusively; callers sharing an instance across goroutines must
// serialize access externally.
type Machine struct {
	cfg   Config
	role  swap.SwapRole
	state State

	arbitrating curve.Curve
	accordant   curve.Curve

	// one signing scalar per arbitrating spend path
	secBuy, secCancel, secRefund, secPunish, secDestination curve.Scalar
	// cross-group secret and its arbitrating-side scalar
	cross    *saferith.Nat
	crossArb curve.Scalar

	local        *Parameters
	decommitment hash.Decommitment
	proof        *dleq.Proof

	remote *PartyParameters

	builder   *transaction.Builder
	validator *transaction.Validator

	lock, cancel, refund, punish, buy *transaction.Template
	buyPreSignature                   *ecdsa.PreSignature

	// collected signature halves over the arbitrating spend paths
	localCancelSig, remoteCancelSig *ecdsa.Signature
	localRefundSig, remoteRefundSig *ecdsa.Signature
	punishSig                       *ecdsa.Signature
	buySig, remoteBuySig            *ecdsa.Signature
}

// NewMachine samples the local key material, derives the swap role from
// the deal and constructs the instance in the Negotiated state.
func NewMachine(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Machine{
		cfg:         cfg,
		role:        cfg.Deal.SwapRole(cfg.TradeRole),
		state:       Negotiated,
		arbitrating: cfg.Arbitrating.Group(),
		accordant:   cfg.Accordant.Group(),
	}
	if m.role == swap.Bob && m.cfg.Funding.Equal(transaction.Outpoint{}) {
		return nil, errors.New("protocol: bob requires a funding outpoint")
	}

	m.secBuy = sample.Scalar(cfg.Rand, m.arbitrating)
	m.secCancel = sample.Scalar(cfg.Rand, m.arbitrating)
	m.secRefund = sample.Scalar(cfg.Rand, m.arbitrating)
	m.secDestination = sample.Scalar(cfg.Rand, m.arbitrating)
	m.cross = sample.CrossGroupSecret(cfg.Rand)

	crossArb, crossAcc := dleq.ScalarPair(m.cross, m.arbitrating, m.accordant)
	m.crossArb = crossArb

	proof, err := dleq.Prove(cfg.Rand, m.cross, m.arbitrating, m.accordant)
	if err != nil {
		return nil, err
	}
	m.proof = proof

	m.local = &Parameters{
		Role:        m.role,
		Buy:         m.secBuy.ActOnBase(),
		Cancel:      m.secCancel.ActOnBase(),
		Refund:      m.secRefund.ActOnBase(),
		Adaptor:     crossArb.ActOnBase(),
		Destination: m.secDestination.ActOnBase(),
		Spend:       crossAcc.ActOnBase(),
	}
	if m.role == swap.Alice {
		m.secPunish = sample.Scalar(cfg.Rand, m.arbitrating)
		m.local.Punish = m.secPunish.ActOnBase()
	}
	return m, nil
}

func (m *Machine) State() State        { return m.state }
func (m *Machine) Role() swap.SwapRole { return m.role }
func (m *Machine) SwapID() swap.SwapID { return m.cfg.SwapID }
func (m *Machine) Deal() *swap.Deal    { return m.cfg.Deal }

// Step feeds one event into the machine and returns the new state and
// the effects the caller must execute. A transition either fully
// applies or rejects with the state unchanged; protocol violations
// transition to Aborted and report a typed error.
func (m *Machine) Step(event Event) (State, []Effect, error) {
	if m.state.Terminal() {
		return m.state, nil, &Error{State: m.state, Err: fmt.Errorf("event %T after terminal state", event)}
	}
	switch e := event.(type) {
	case Start:
		return m.handleStart()
	case MessageReceived:
		return m.handleMessage(e.Message)
	case Timeout:
		return m.handleTimeout()
	case AbortSwap:
		return m.handleAbortRequest(e.Reason)
	case BuySignatureSeen:
		return m.handleBuySignatureSeen(e.Signature)
	case RefundSeen:
		if m.state != BuyOrRefundPending {
			return m.abort(0, fmt.Errorf("refund observed in state %s", m.state))
		}
		m.state = Refunded
		return m.state, nil, nil
	case PunishSeen:
		if m.state != BuyOrRefundPending {
			return m.abort(0, fmt.Errorf("punish observed in state %s", m.state))
		}
		m.state = Punished
		return m.state, nil, nil
	default:
		return m.abort(0, fmt.Errorf("unknown event %T", event))
	}
}

func (m *Machine) abort(culprit swap.SwapRole, err error) (State, []Effect, error) {
	e := &Error{State: m.state, Culprit: culprit, Err: err}
	m.state = Aborted
	return m.state, nil, e
}

func (m *Machine) send(msgType MessageType, payload interface{}) (Effect, error) {
	msg, err := NewMessage(m.cfg.SwapID, msgType, payload)
	if err != nil {
		return nil, err
	}
	return SendMessage{Message: msg}, nil
}

func (m *Machine) handleStart() (State, []Effect, error) {
	if m.state != Negotiated {
		return m.abort(0, fmt.Errorf("start in state %s", m.state))
	}
	commitment, decommitment, err := m.local.Commit(m.cfg.SwapID)
	if err != nil {
		return m.abort(0, err)
	}
	m.decommitment = decommitment

	var effect Effect
	if m.role == swap.Alice {
		effect, err = m.send(TypeCommitAliceParameters, &CommitAliceParameters{Commitment: commitment})
	} else {
		effect, err = m.send(TypeCommitBobParameters, &CommitBobParameters{Commitment: commitment})
	}
	if err != nil {
		return m.abort(0, err)
	}
	m.state = CommitPhase
	return m.state, []Effect{effect}, nil
}

func (m *Machine) handleTimeout() (State, []Effect, error) {
	// Without both halves of the cancel 2-of-2 nothing is recoverable
	// on chain; the swap just stops.
	if m.localCancelSig == nil || m.remoteCancelSig == nil {
		m.state = Aborted
		return m.state, nil, ErrAbortedByTimeout
	}
	// Arbitrating funds are at stake: fall back to the cancel path
	// instead of walking away.
	fallback := FallbackReady{
		Cancel:                m.cancel,
		LocalCancelSignature:  m.localCancelSig,
		RemoteCancelSignature: m.remoteCancelSig,
	}
	if m.role == swap.Bob {
		fallback.Refund = m.refund
		fallback.LocalRefundSignature = m.localRefundSig
		fallback.RemoteRefundSignature = m.remoteRefundSig
	} else {
		fallback.Punish = m.punish
		fallback.PunishSignature = m.punishSig
	}
	return m.state, []Effect{fallback}, nil
}

func (m *Machine) handleAbortRequest(reason string) (State, []Effect, error) {
	effect, err := m.send(TypeAbort, &Abort{Reason: reason})
	if err != nil {
		return m.abort(0, err)
	}
	m.state = Aborted
	return m.state, []Effect{effect}, nil
}

func (m *Machine) handleBuySignatureSeen(sig *ecdsa.Signature) (State, []Effect, error) {
	if m.state != BuyOrRefundPending {
		return m.abort(0, fmt.Errorf("buy signature observed in state %s", m.state))
	}
	if m.role == swap.Alice {
		m.state = Swapped
		return m.state, nil, nil
	}
	secret, err := m.extractSecret(sig)
	if err != nil {
		return m.abort(swap.Alice, err)
	}
	m.state = Swapped
	return m.state, []Effect{SecretRevealed{Secret: secret}}, nil
}

// extractSecret recovers the cross-group secret from the published buy
// signature and lifts it onto the accordant group, checking it against
// Alice's revealed spend key.
func (m *Machine) extractSecret(sig *ecdsa.Signature) (curve.Scalar, error) {
	remote, ok := m.remote.Revealed()
	if !ok {
		return nil, errors.New("protocol: no revealed counterparty parameters")
	}
	t, err := m.buyPreSignature.Recover(sig, remote.Adaptor)
	if err != nil {
		return nil, err
	}
	raw, err := t.MarshalBinary()
	if err != nil {
		return nil, err
	}
	secret := new(saferith.Nat).SetBytes(raw)
	if secret.TrueLen() > params.CrossGroupSecretBits {
		return nil, errors.New("protocol: recovered secret out of range")
	}
	accSecret := m.accordant.NewScalar().SetNat(secret)
	if !accSecret.ActOnBase().Equal(remote.Spend) {
		return nil, errors.New("protocol: recovered secret does not match the revealed spend key")
	}
	return accSecret, nil
}

func (m *Machine) handleMessage(msg *Message) (State, []Effect, error) {
	if msg == nil {
		return m.abort(0, errors.New("nil message"))
	}
	other := m.role.Other()
	if msg.SwapID != m.cfg.SwapID {
		return m.abort(other, fmt.Errorf("message for swap %s", msg.SwapID))
	}
	if msg.Type == TypeAbort {
		abortMsg := &Abort{}
		reason := "unspecified"
		if err := msg.Decode(abortMsg); err == nil && abortMsg.Reason != "" {
			reason = abortMsg.Reason
		}
		return m.abort(other, fmt.Errorf("counterparty aborted: %s", reason))
	}

	switch {
	case m.state == CommitPhase && msg.Type == m.expectedCommitType():
		return m.handleRemoteCommit(msg)
	case m.state == RevealPhase && msg.Type == m.expectedRevealType():
		return m.handleRemoteReveal(msg)
	case m.state == RevealPhase && msg.Type == TypeRevealProof:
		return m.handleRemoteProof(msg)
	case m.state == ArbitratingSetup && m.role == swap.Alice && msg.Type == TypeCoreArbitratingSetup && m.lock == nil:
		return m.handleCoreArbitratingSetup(msg)
	case m.state == ArbitratingSetup && m.role == swap.Alice && msg.Type == TypeBuyCosignature:
		return m.handleBuyCosignature(msg)
	case m.state == ArbitratingSetup && m.role == swap.Bob && msg.Type == TypeRefundProcedureSignatures && m.remoteRefundSig == nil:
		return m.handleRefundProcedureSignatures(msg)
	case m.state == ArbitratingSetup && m.role == swap.Bob && msg.Type == TypeBuyProcedureSignature:
		return m.handleBuyProcedureSignature(msg)
	default:
		return m.abort(other, fmt.Errorf("unexpected %s message in state %s", msg.Type, m.state))
	}
}

func (m *Machine) expectedCommitType() MessageType {
	if m.role == swap.Alice {
		return TypeCommitBobParameters
	}
	return TypeCommitAliceParameters
}

func (m *Machine) expectedRevealType() MessageType {
	if m.role == swap.Alice {
		return TypeRevealBobParameters
	}
	return TypeRevealAliceParameters
}

func (m *Machine) handleRemoteCommit(msg *Message) (State, []Effect, error) {
	other := m.role.Other()
	var commitment hash.Commitment
	if m.role == swap.Alice {
		payload := &CommitBobParameters{}
		if err := msg.Decode(payload); err != nil {
			return m.abort(other, err)
		}
		commitment = payload.Commitment
	} else {
		payload := &CommitAliceParameters{}
		if err := msg.Decode(payload); err != nil {
			return m.abort(other, err)
		}
		commitment = payload.Commitment
	}
	remote, err := CommittedParameters(m.cfg.SwapID, commitment)
	if err != nil {
		return m.abort(other, err)
	}
	m.remote = remote

	revealType, payload := m.local.RevealMessage(m.decommitment)
	effect, err := m.send(revealType, payload)
	if err != nil {
		return m.abort(0, err)
	}
	m.state = RevealPhase
	return m.state, []Effect{effect}, nil
}

func (m *Machine) handleRemoteReveal(msg *Message) (State, []Effect, error) {
	other := m.role.Other()
	var (
		revealed     *Parameters
		decommitment hash.Decommitment
		err          error
	)
	if m.role == swap.Alice {
		payload := &RevealBobParameters{}
		if err = msg.Decode(payload); err != nil {
			return m.abort(other, err)
		}
		revealed, err = payload.Parameters(m.arbitrating, m.accordant)
		decommitment = payload.Decommitment
	} else {
		payload := &RevealAliceParameters{}
		if err = msg.Decode(payload); err != nil {
			return m.abort(other, err)
		}
		revealed, err = payload.Parameters(m.arbitrating, m.accordant)
		decommitment = payload.Decommitment
	}
	if err != nil {
		return m.abort(other, err)
	}
	if err := m.remote.Reveal(revealed, decommitment); err != nil {
		return m.abort(other, err)
	}

	proofBytes, err := m.proof.MarshalBinary()
	if err != nil {
		return m.abort(0, err)
	}
	effect, err := m.send(TypeRevealProof, &RevealProof{Proof: proofBytes})
	if err != nil {
		return m.abort(0, err)
	}
	return m.state, []Effect{effect}, nil
}

func (m *Machine) handleRemoteProof(msg *Message) (State, []Effect, error) {
	other := m.role.Other()
	remote, ok := m.remote.Revealed()
	if !ok {
		return m.abort(other, errors.New("proof received before parameters were revealed"))
	}
	payload := &RevealProof{}
	if err := msg.Decode(payload); err != nil {
		return m.abort(other, err)
	}
	proof := dleq.EmptyProof(m.arbitrating, m.accordant)
	if err := proof.UnmarshalBinary(payload.Proof); err != nil {
		return m.abort(other, err)
	}
	if !proof.Verify(remote.Adaptor, remote.Spend) {
		return m.abort(other, dleq.ErrVerify)
	}

	alice, bob := m.local, remote
	if m.role == swap.Bob {
		alice, bob = remote, m.local
	}
	m.builder = &transaction.Builder{
		Chain:          m.cfg.Arbitrating,
		Strategy:       m.cfg.Deal.Fee,
		CancelTimelock: m.cfg.Deal.CancelTimelock,
		PunishTimelock: m.cfg.Deal.PunishTimelock,
		Keys:           KeyRing(alice, bob),
	}
	m.validator = transaction.NewValidator(m.builder)

	m.state = ArbitratingSetup
	if m.role == swap.Alice {
		return m.state, nil, nil
	}
	return m.sendCoreArbitratingSetup()
}

// sendCoreArbitratingSetup builds Bob's transaction set and signs his
// halves of the cancel and refund 2-of-2s before anything is at stake
// on chain. Only the cancel half travels; the refund half stays local
// until Alice's authorization arrives.
func (m *Machine) sendCoreArbitratingSetup() (State, []Effect, error) {
	var err error
	if m.lock, err = m.builder.Lock(m.cfg.Funding, m.cfg.Deal.ArbitratingAmount); err != nil {
		return m.abort(0, err)
	}
	if m.cancel, err = m.builder.Cancel(m.lock); err != nil {
		return m.abort(0, err)
	}
	if m.refund, err = m.builder.Refund(m.cancel); err != nil {
		return m.abort(0, err)
	}
	if m.punish, err = m.builder.Punish(m.cancel); err != nil {
		return m.abort(0, err)
	}
	if m.localCancelSig, err = ecdsa.Sign(m.cfg.Rand, m.secCancel, m.cancel.SignatureHash()); err != nil {
		return m.abort(0, err)
	}
	if m.localRefundSig, err = ecdsa.Sign(m.cfg.Rand, m.secRefund, m.refund.SignatureHash()); err != nil {
		return m.abort(0, err)
	}
	cancelSigBytes, err := m.localCancelSig.MarshalBinary()
	if err != nil {
		return m.abort(0, err)
	}
	effect, err := m.send(TypeCoreArbitratingSetup, &CoreArbitratingSetup{
		Lock:            m.lock,
		Cancel:          m.cancel,
		Refund:          m.refund,
		Punish:          m.punish,
		CancelSignature: cancelSigBytes,
	})
	if err != nil {
		return m.abort(0, err)
	}
	return m.state, []Effect{effect}, nil
}

// handleCoreArbitratingSetup is Alice's gate: every template and Bob's
// cancel signature must validate before she signs anything. She
// answers with her halves of the cancel and refund 2-of-2s and her
// adaptor signature on the buy.
func (m *Machine) handleCoreArbitratingSetup(msg *Message) (State, []Effect, error) {
	other := m.role.Other()
	payload := &CoreArbitratingSetup{}
	if err := msg.Decode(payload); err != nil {
		return m.abort(other, err)
	}
	remote, _ := m.remote.Revealed()

	// The funding outpoint is Bob's; Alice cannot check what the lock
	// spends, only that everything built on it matches the deal.
	if err := m.validator.ValidateLockTemplate(payload.Lock, m.cfg.Deal.ArbitratingAmount); err != nil {
		return m.abort(other, err)
	}
	if err := m.validator.ValidateCancel(payload.Cancel, payload.Lock); err != nil {
		return m.abort(other, err)
	}
	if err := m.validator.ValidateRefund(payload.Refund, payload.Cancel); err != nil {
		return m.abort(other, err)
	}
	if err := m.validator.ValidatePunish(payload.Punish, payload.Cancel); err != nil {
		return m.abort(other, err)
	}
	cancelSig := ecdsa.EmptySignature(m.arbitrating)
	if err := cancelSig.UnmarshalBinary(payload.CancelSignature); err != nil {
		return m.abort(other, err)
	}
	if err := m.validator.ValidateSignature(payload.Cancel, remote.Cancel, cancelSig); err != nil {
		return m.abort(other, err)
	}
	m.lock, m.cancel, m.refund, m.punish = payload.Lock, payload.Cancel, payload.Refund, payload.Punish
	m.remoteCancelSig = cancelSig

	var err error
	if m.localCancelSig, err = ecdsa.Sign(m.cfg.Rand, m.secCancel, m.cancel.SignatureHash()); err != nil {
		return m.abort(0, err)
	}
	refundSig, err := ecdsa.Sign(m.cfg.Rand, m.secRefund, m.refund.SignatureHash())
	if err != nil {
		return m.abort(0, err)
	}
	if m.punishSig, err = ecdsa.Sign(m.cfg.Rand, m.secPunish, m.punish.SignatureHash()); err != nil {
		return m.abort(0, err)
	}
	cancelSigBytes, err := m.localCancelSig.MarshalBinary()
	if err != nil {
		return m.abort(0, err)
	}
	refundSigBytes, err := refundSig.MarshalBinary()
	if err != nil {
		return m.abort(0, err)
	}
	refundEffect, err := m.send(TypeRefundProcedureSignatures, &RefundProcedureSignatures{
		CancelSignature: cancelSigBytes,
		RefundSignature: refundSigBytes,
	})
	if err != nil {
		return m.abort(0, err)
	}

	buy, err := m.builder.Buy(m.lock)
	if err != nil {
		return m.abort(0, err)
	}
	preSig, err := ecdsa.EncSign(m.cfg.Rand, m.secBuy, m.local.Adaptor, buy.SignatureHash())
	if err != nil {
		return m.abort(0, err)
	}
	preSigBytes, err := preSig.MarshalBinary()
	if err != nil {
		return m.abort(0, err)
	}
	buyEffect, err := m.send(TypeBuyProcedureSignature, &BuyProcedureSignature{
		Buy:                 buy,
		AdaptorBuySignature: preSigBytes,
	})
	if err != nil {
		return m.abort(0, err)
	}
	// Alice keeps the decrypted signature until Bob's cosignature makes
	// the buy publishable; publishing it is what reveals the secret.
	if m.buySig, err = preSig.Decrypt(m.crossArb); err != nil {
		return m.abort(0, err)
	}
	m.buy = buy
	m.buyPreSignature = preSig
	return m.state, []Effect{refundEffect, buyEffect}, nil
}

// handleRefundProcedureSignatures records Alice's halves of the cancel
// and refund 2-of-2s. Bob releases nothing on the buy path until they
// verify.
func (m *Machine) handleRefundProcedureSignatures(msg *Message) (State, []Effect, error) {
	other := m.role.Other()
	payload := &RefundProcedureSignatures{}
	if err := msg.Decode(payload); err != nil {
		return m.abort(other, err)
	}
	remote, _ := m.remote.Revealed()

	cancelSig := ecdsa.EmptySignature(m.arbitrating)
	if err := cancelSig.UnmarshalBinary(payload.CancelSignature); err != nil {
		return m.abort(other, err)
	}
	if err := m.validator.ValidateSignature(m.cancel, remote.Cancel, cancelSig); err != nil {
		return m.abort(other, err)
	}
	refundSig := ecdsa.EmptySignature(m.arbitrating)
	if err := refundSig.UnmarshalBinary(payload.RefundSignature); err != nil {
		return m.abort(other, err)
	}
	if err := m.validator.ValidateSignature(m.refund, remote.Refund, refundSig); err != nil {
		return m.abort(other, err)
	}
	m.remoteCancelSig = cancelSig
	m.remoteRefundSig = refundSig
	return m.state, nil, nil
}

// handleBuyProcedureSignature is Bob's gate on Alice's adaptor
// signature: once it verifies, seeing the decrypted signature on chain
// is guaranteed to reveal the secret. Bob hands over his half of the
// buy 2-of-2 only after the refund path is fully authorized.
func (m *Machine) handleBuyProcedureSignature(msg *Message) (State, []Effect, error) {
	other := m.role.Other()
	if m.remoteRefundSig == nil {
		return m.abort(other, errors.New("buy procedure before the refund signatures"))
	}
	payload := &BuyProcedureSignature{}
	if err := msg.Decode(payload); err != nil {
		return m.abort(other, err)
	}
	remote, _ := m.remote.Revealed()

	if err := m.validator.ValidateBuy(payload.Buy, m.lock); err != nil {
		return m.abort(other, err)
	}
	preSig := ecdsa.EmptyPreSignature(m.arbitrating)
	if err := preSig.UnmarshalBinary(payload.AdaptorBuySignature); err != nil {
		return m.abort(other, err)
	}
	if err := m.validator.ValidateAdaptorSignature(payload.Buy, remote.Buy, remote.Adaptor, preSig); err != nil {
		return m.abort(other, err)
	}
	buySig, err := ecdsa.Sign(m.cfg.Rand, m.secBuy, payload.Buy.SignatureHash())
	if err != nil {
		return m.abort(0, err)
	}
	buySigBytes, err := buySig.MarshalBinary()
	if err != nil {
		return m.abort(0, err)
	}
	effect, err := m.send(TypeBuyCosignature, &BuyCosignature{BuySignature: buySigBytes})
	if err != nil {
		return m.abort(0, err)
	}
	m.buy = payload.Buy
	m.buyPreSignature = preSig
	m.state = BuyOrRefundPending
	return m.state, []Effect{effect}, nil
}

// handleBuyCosignature completes Alice's signature set over the buy.
// Both halves of the 2-of-2 are handed to the caller; Alice swaps by
// publishing them.
func (m *Machine) handleBuyCosignature(msg *Message) (State, []Effect, error) {
	other := m.role.Other()
	if m.buy == nil {
		return m.abort(other, errors.New("buy cosignature before the arbitrating setup"))
	}
	payload := &BuyCosignature{}
	if err := msg.Decode(payload); err != nil {
		return m.abort(other, err)
	}
	remote, _ := m.remote.Revealed()

	buySig := ecdsa.EmptySignature(m.arbitrating)
	if err := buySig.UnmarshalBinary(payload.BuySignature); err != nil {
		return m.abort(other, err)
	}
	if err := m.validator.ValidateSignature(m.buy, remote.Buy, buySig); err != nil {
		return m.abort(other, err)
	}
	m.remoteBuySig = buySig
	m.state = BuyOrRefundPending
	return m.state, []Effect{BuyReady{Buy: m.buy, Signature: m.buySig, Cosignature: buySig}}, nil
}
