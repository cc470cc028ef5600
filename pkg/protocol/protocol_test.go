package protocol

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Lederstrumpf/farcaster-core/pkg/blockchain"
	"github.com/Lederstrumpf/farcaster-core/pkg/crypto/ecdsa"
	"github.com/Lederstrumpf/farcaster-core/pkg/encoding"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/sample"
	"github.com/Lederstrumpf/farcaster-core/pkg/swap"
	"github.com/Lederstrumpf/farcaster-core/pkg/transaction"
)

func testDeal() *swap.Deal {
	// 0.01 arbitrating asset against 1.0 accordant asset
	return &swap.Deal{
		Network:           blockchain.Local,
		ArbitratingAsset:  0,
		AccordantAsset:    128,
		ArbitratingAmount: 1_000_000,
		AccordantAmount:   1_000_000_000_000,
		CancelTimelock:    10,
		PunishTimelock:    20,
		Fee:               blockchain.FeeStrategy{Fixed: 1000, Tolerance: 10},
		Direction:         swap.SellArbitrating,
	}
}

func testFunding() transaction.Outpoint {
	out := transaction.Outpoint{Index: 1}
	out.TxHash[0] = 0xF0
	return out
}

func testConfig(t *testing.T, trade swap.TradeRole) Config {
	t.Helper()
	return Config{
		SwapID:      testSwapID(t),
		Deal:        testDeal(),
		TradeRole:   trade,
		Arbitrating: blockchain.Secp256k1Chain{},
		Accordant:   blockchain.Edwards25519Chain{},
		Funding:     testFunding(),
		Rand:        rand.Reader,
	}
}

var sharedSwapID *swap.SwapID

func testSwapID(t *testing.T) swap.SwapID {
	t.Helper()
	if sharedSwapID == nil {
		id, err := swap.NewSwapID(rand.Reader)
		require.NoError(t, err)
		sharedSwapID = &id
	}
	return *sharedSwapID
}

func newPair(t *testing.T) (alice, bob *Machine) {
	t.Helper()
	// the deal sells the arbitrating asset, so the maker plays Bob
	maker, err := NewMachine(testConfig(t, swap.Maker))
	require.NoError(t, err)
	taker, err := NewMachine(testConfig(t, swap.Taker))
	require.NoError(t, err)
	require.Equal(t, swap.Bob, maker.Role())
	require.Equal(t, swap.Alice, taker.Role())
	return taker, maker
}

func outMessages(effects []Effect) []*Message {
	var out []*Message
	for _, e := range effects {
		if send, ok := e.(SendMessage); ok {
			out = append(out, send.Message)
		}
	}
	return out
}

// runUntilQuiet starts both machines and shuttles messages until
// neither produces more, returning the leftover non-message effects.
func runUntilQuiet(t *testing.T, alice, bob *Machine) []Effect {
	t.Helper()
	var leftovers []Effect
	_, aliceEffects, err := alice.Step(Start{})
	require.NoError(t, err)
	_, bobEffects, err := bob.Step(Start{})
	require.NoError(t, err)

	toBob := outMessages(aliceEffects)
	toAlice := outMessages(bobEffects)
	for len(toBob) > 0 || len(toAlice) > 0 {
		var nextToBob, nextToAlice []*Message
		for _, msg := range toAlice {
			_, effects, err := alice.Step(MessageReceived{Message: msg})
			require.NoError(t, err)
			nextToBob = append(nextToBob, outMessages(effects)...)
			leftovers = append(leftovers, nonMessages(effects)...)
		}
		for _, msg := range toBob {
			_, effects, err := bob.Step(MessageReceived{Message: msg})
			require.NoError(t, err)
			nextToAlice = append(nextToAlice, outMessages(effects)...)
			leftovers = append(leftovers, nonMessages(effects)...)
		}
		toBob, toAlice = nextToBob, nextToAlice
	}
	return leftovers
}

func nonMessages(effects []Effect) []Effect {
	var out []Effect
	for _, e := range effects {
		if _, ok := e.(SendMessage); !ok {
			out = append(out, e)
		}
	}
	return out
}

func TestMessageEnvelopeRoundTrip(t *testing.T) {
	id := testSwapID(t)
	msg, err := NewMessage(id, TypeAbort, &Abort{Reason: "testing"})
	require.NoError(t, err)

	data, err := msg.MarshalBinary()
	require.NoError(t, err)

	out := &Message{}
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, msg, out)

	decoded := &Abort{}
	require.NoError(t, out.Decode(decoded))
	assert.Equal(t, "testing", decoded.Reason)
}

func TestMessageEnvelopeRejectsCorruption(t *testing.T) {
	msg, err := NewMessage(testSwapID(t), TypeRevealProof, &RevealProof{Proof: []byte{1, 2, 3}})
	require.NoError(t, err)
	data, err := msg.MarshalBinary()
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		err := new(Message).UnmarshalBinary(data[:len(data)-2])
		assert.ErrorIs(t, err, encoding.ErrTruncated)
	})
	t.Run("trailing bytes", func(t *testing.T) {
		err := new(Message).UnmarshalBinary(append(append([]byte{}, data...), 0))
		assert.ErrorIs(t, err, encoding.ErrTrailingBytes)
	})
	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[0] ^= 0xFF
		assert.Error(t, new(Message).UnmarshalBinary(bad))
	})
	t.Run("unknown version", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[len(messageMagic)+1] = 0xEE
		err := new(Message).UnmarshalBinary(bad)
		assert.ErrorIs(t, err, encoding.ErrUnsupportedVersion)
	})
	t.Run("unknown type", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[len(messageMagic)+3] = 0xEE
		assert.Error(t, new(Message).UnmarshalBinary(bad))
	})
}

func TestHappyPathReachesBuyOrRefundPending(t *testing.T) {
	alice, bob := newPair(t)
	effects := runUntilQuiet(t, alice, bob)

	assert.Equal(t, BuyOrRefundPending, alice.State())
	assert.Equal(t, BuyOrRefundPending, bob.State())

	require.Len(t, effects, 1)
	ready, ok := effects[0].(BuyReady)
	require.True(t, ok)
	require.NotNil(t, ready.Buy)
	require.NotNil(t, ready.Signature)
	require.NotNil(t, ready.Cosignature)
	assert.Equal(t, transaction.Buy, ready.Buy.Kind)
}

// interceptMessage shuttles messages like runUntilQuiet but returns the
// first message of the wanted type instead of delivering it.
func interceptMessage(t *testing.T, alice, bob *Machine, wanted MessageType) *Message {
	t.Helper()
	_, aliceEffects, err := alice.Step(Start{})
	require.NoError(t, err)
	_, bobEffects, err := bob.Step(Start{})
	require.NoError(t, err)

	toBob := outMessages(aliceEffects)
	toAlice := outMessages(bobEffects)
	for len(toBob) > 0 || len(toAlice) > 0 {
		var nextToBob, nextToAlice []*Message
		for _, msg := range toAlice {
			if msg.Type == wanted {
				return msg
			}
			_, effects, err := alice.Step(MessageReceived{Message: msg})
			require.NoError(t, err)
			nextToBob = append(nextToBob, outMessages(effects)...)
		}
		for _, msg := range toBob {
			if msg.Type == wanted {
				return msg
			}
			_, effects, err := bob.Step(MessageReceived{Message: msg})
			require.NoError(t, err)
			nextToAlice = append(nextToAlice, outMessages(effects)...)
		}
		toBob, toAlice = nextToBob, nextToAlice
	}
	t.Fatalf("no %s message was produced", wanted)
	return nil
}

func TestBuyReadyCarriesBothSignatureHalves(t *testing.T) {
	alice, bob := newPair(t)
	effects := runUntilQuiet(t, alice, bob)
	require.Len(t, effects, 1)
	ready := effects[0].(BuyReady)

	digest := ready.Buy.SignatureHash()
	assert.True(t, ready.Signature.Verify(alice.local.Buy, digest))
	assert.True(t, ready.Cosignature.Verify(bob.local.Buy, digest))
}

func TestFallbackCarriesBothSignatureHalves(t *testing.T) {
	alice, bob := newPair(t)
	runUntilQuiet(t, alice, bob)

	_, effects, err := bob.Step(Timeout{})
	require.NoError(t, err)
	fallback := effects[0].(FallbackReady)
	require.NotNil(t, fallback.Cancel)
	digest := fallback.Cancel.SignatureHash()
	assert.True(t, fallback.LocalCancelSignature.Verify(bob.local.Cancel, digest))
	assert.True(t, fallback.RemoteCancelSignature.Verify(alice.local.Cancel, digest))
	require.NotNil(t, fallback.Refund)
	digest = fallback.Refund.SignatureHash()
	assert.True(t, fallback.LocalRefundSignature.Verify(bob.local.Refund, digest))
	assert.True(t, fallback.RemoteRefundSignature.Verify(alice.local.Refund, digest))
	assert.Nil(t, fallback.Punish)

	_, effects, err = alice.Step(Timeout{})
	require.NoError(t, err)
	fallback = effects[0].(FallbackReady)
	digest = fallback.Cancel.SignatureHash()
	assert.True(t, fallback.LocalCancelSignature.Verify(alice.local.Cancel, digest))
	assert.True(t, fallback.RemoteCancelSignature.Verify(bob.local.Cancel, digest))
	require.NotNil(t, fallback.Punish)
	assert.True(t, fallback.PunishSignature.Verify(alice.local.Punish, fallback.Punish.SignatureHash()))
	assert.Nil(t, fallback.Refund)
}

func TestForgedCancelSignatureAborts(t *testing.T) {
	alice, bob := newPair(t)
	setup := interceptMessage(t, alice, bob, TypeCoreArbitratingSetup)
	payload := &CoreArbitratingSetup{}
	require.NoError(t, setup.Decode(payload))

	forger := sample.Scalar(rand.Reader, curve.Secp256k1{})
	sig, err := ecdsa.Sign(rand.Reader, forger, payload.Cancel.SignatureHash())
	require.NoError(t, err)
	payload.CancelSignature, err = sig.MarshalBinary()
	require.NoError(t, err)
	forged, err := NewMessage(alice.SwapID(), TypeCoreArbitratingSetup, payload)
	require.NoError(t, err)

	state, _, err := alice.Step(MessageReceived{Message: forged})
	assert.Equal(t, Aborted, state)
	var verr *transaction.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, transaction.CheckSignature, verr.Check)
}

func TestBuyProcedureBeforeRefundSignaturesAborts(t *testing.T) {
	alice, bob := newPair(t)
	intercepted := interceptMessage(t, alice, bob, TypeRefundProcedureSignatures)
	require.Equal(t, TypeRefundProcedureSignatures, intercepted.Type)

	early, err := NewMessage(bob.SwapID(), TypeBuyProcedureSignature, &BuyProcedureSignature{})
	require.NoError(t, err)
	state, _, err := bob.Step(MessageReceived{Message: early})
	assert.Equal(t, Aborted, state)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, swap.Alice, perr.Culprit)
}

func TestBobExtractsSecretFromPublishedSignature(t *testing.T) {
	alice, bob := newPair(t)
	effects := runUntilQuiet(t, alice, bob)
	require.Len(t, effects, 1)
	ready := effects[0].(BuyReady)

	state, bobEffects, err := bob.Step(BuySignatureSeen{Signature: ready.Signature})
	require.NoError(t, err)
	assert.Equal(t, Swapped, state)
	require.Len(t, bobEffects, 1)
	revealed, ok := bobEffects[0].(SecretRevealed)
	require.True(t, ok)
	require.NotNil(t, revealed.Secret)
	assert.False(t, revealed.Secret.IsZero())

	// the extracted secret lives on the accordant group and matches
	// Alice's revealed spend key
	remote, ok := bob.remote.Revealed()
	require.True(t, ok)
	assert.True(t, revealed.Secret.ActOnBase().Equal(remote.Spend))

	state, _, err = alice.Step(BuySignatureSeen{Signature: ready.Signature})
	require.NoError(t, err)
	assert.Equal(t, Swapped, state)
}

func TestTimeoutBeforeSetupAborts(t *testing.T) {
	alice, _ := newPair(t)
	_, _, err := alice.Step(Start{})
	require.NoError(t, err)

	state, effects, err := alice.Step(Timeout{})
	assert.ErrorIs(t, err, ErrAbortedByTimeout)
	assert.Equal(t, Aborted, state)
	assert.Empty(t, effects)
	assert.Nil(t, alice.lock)
	assert.Nil(t, alice.buy)
}

func TestTimeoutAfterSetupFallsBackToCancel(t *testing.T) {
	alice, bob := newPair(t)
	runUntilQuiet(t, alice, bob)

	state, effects, err := bob.Step(Timeout{})
	require.NoError(t, err)
	assert.Equal(t, BuyOrRefundPending, state)
	require.Len(t, effects, 1)
	fallback := effects[0].(FallbackReady)
	require.NotNil(t, fallback.Cancel)
	require.NotNil(t, fallback.Refund)
	assert.Nil(t, fallback.Punish)

	state, effects, err = alice.Step(Timeout{})
	require.NoError(t, err)
	assert.Equal(t, BuyOrRefundPending, state)
	require.Len(t, effects, 1)
	fallback = effects[0].(FallbackReady)
	require.NotNil(t, fallback.Cancel)
	require.NotNil(t, fallback.Punish)
	assert.Nil(t, fallback.Refund)

	state, _, err = bob.Step(RefundSeen{})
	require.NoError(t, err)
	assert.Equal(t, Refunded, state)
	state, _, err = alice.Step(RefundSeen{})
	require.NoError(t, err)
	assert.Equal(t, Refunded, state)
}

func TestPunishSeenTerminates(t *testing.T) {
	alice, bob := newPair(t)
	runUntilQuiet(t, alice, bob)

	state, _, err := alice.Step(PunishSeen{})
	require.NoError(t, err)
	assert.Equal(t, Punished, state)

	state, _, err = bob.Step(PunishSeen{})
	require.NoError(t, err)
	assert.Equal(t, Punished, state)
}

func TestOutOfOrderMessageAborts(t *testing.T) {
	alice, bob := newPair(t)
	_, _, err := alice.Step(Start{})
	require.NoError(t, err)
	_, bobEffects, err := bob.Step(Start{})
	require.NoError(t, err)
	commit := outMessages(bobEffects)[0]

	// a setup message during the commit phase is a protocol violation
	early, err := NewMessage(alice.SwapID(), TypeCoreArbitratingSetup, &CoreArbitratingSetup{})
	require.NoError(t, err)
	state, _, err := alice.Step(MessageReceived{Message: early})
	assert.Equal(t, Aborted, state)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, swap.Bob, perr.Culprit)
	assert.Nil(t, alice.lock)

	// terminal states are one-way
	state, _, err = alice.Step(MessageReceived{Message: commit})
	assert.Error(t, err)
	assert.Equal(t, Aborted, state)
}

func TestWrongSwapIDAborts(t *testing.T) {
	alice, bob := newPair(t)
	_, _, err := alice.Step(Start{})
	require.NoError(t, err)
	_, bobEffects, err := bob.Step(Start{})
	require.NoError(t, err)

	commit := outMessages(bobEffects)[0]
	commit.SwapID[0] ^= 0xFF
	state, _, err := alice.Step(MessageReceived{Message: commit})
	assert.Equal(t, Aborted, state)
	assert.Error(t, err)
}

func TestRevealMismatchAborts(t *testing.T) {
	alice, bob := newPair(t)
	_, aliceEffects, err := alice.Step(Start{})
	require.NoError(t, err)
	_, bobEffects, err := bob.Step(Start{})
	require.NoError(t, err)

	// exchange commitments
	_, aliceEffects2, err := alice.Step(MessageReceived{Message: outMessages(bobEffects)[0]})
	require.NoError(t, err)
	_, bobEffects2, err := bob.Step(MessageReceived{Message: outMessages(aliceEffects)[0]})
	require.NoError(t, err)
	aliceReveal := outMessages(aliceEffects2)[0]
	require.Equal(t, TypeRevealAliceParameters, aliceReveal.Type)
	_ = bobEffects2

	// swap two keys: the reveal no longer opens the commitment
	payload := &RevealAliceParameters{}
	require.NoError(t, aliceReveal.Decode(payload))
	payload.Buy, payload.Cancel = payload.Cancel, payload.Buy
	forged, err := NewMessage(alice.SwapID(), TypeRevealAliceParameters, payload)
	require.NoError(t, err)

	state, _, err := bob.Step(MessageReceived{Message: forged})
	assert.Equal(t, Aborted, state)
	assert.ErrorIs(t, err, ErrRevealMismatch)
}

func TestAbortMessageAborts(t *testing.T) {
	alice, bob := newPair(t)
	_, _, err := alice.Step(Start{})
	require.NoError(t, err)
	_, _, err = bob.Step(Start{})
	require.NoError(t, err)

	state, effects, err := alice.Step(AbortSwap{Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, Aborted, state)
	abortMsg := outMessages(effects)[0]

	state, _, err = bob.Step(MessageReceived{Message: abortMsg})
	assert.Equal(t, Aborted, state)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Err.Error(), "changed my mind")
}

// TestEndToEndHandlers drives a full swap through the channel-based
// handlers, with each party running concurrently.
func TestEndToEndHandlers(t *testing.T) {
	aliceMachine, bobMachine := newPair(t)
	alice := NewHandler(aliceMachine, zerolog.Nop())
	bob := NewHandler(bobMachine, zerolog.Nop())

	require.NoError(t, alice.Start())
	require.NoError(t, bob.Start())

	g := new(errgroup.Group)
	pump := func(from, to *Handler) func() error {
		return func() error {
			for data := range from.Listen() {
				if err := to.Accept(data); err != nil {
					return err
				}
			}
			return nil
		}
	}
	g.Go(pump(alice, bob))
	g.Go(pump(bob, alice))

	// Alice's buy signature becomes publishable once her handler
	// emits it; publishing it is what the chain events simulate.
	ready := (<-alice.Effects()).(BuyReady)
	require.NotNil(t, ready.Signature)

	// wait for the adaptor signature to reach Bob before "publishing"
	require.Eventually(t, func() bool { return bob.State() == BuyOrRefundPending },
		5*time.Second, time.Millisecond)

	require.NoError(t, bob.Signal(BuySignatureSeen{Signature: ready.Signature}))
	require.NoError(t, alice.Signal(BuySignatureSeen{Signature: ready.Signature}))
	require.NoError(t, g.Wait())

	state, err := alice.Result()
	require.NoError(t, err)
	assert.Equal(t, Swapped, state)
	state, err = bob.Result()
	require.NoError(t, err)
	assert.Equal(t, Swapped, state)

	revealed := (<-bob.Effects()).(SecretRevealed)
	assert.False(t, revealed.Secret.IsZero())
}
