package transaction

import (
	"bytes"
	"fmt"

	"github.com/Lederstrumpf/farcaster-core/pkg/blockchain"
	"github.com/Lederstrumpf/farcaster-core/pkg/crypto/ecdsa"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
)

// Checks a received template can fail. The name identifies what a
// counterparty tried to slip past us.
const (
	CheckKind      = "kind"
	CheckLinkage   = "linkage"
	CheckAmount    = "amount"
	CheckTimelock  = "timelock"
	CheckKeys      = "keys"
	CheckSignature = "signature"
)

// ValidationError reports which structural check a received template
// failed.
type ValidationError struct {
	Tx    TxID
	Check string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transaction: %s template failed %s check: %v", e.Tx, e.Check, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func failed(tx TxID, check string, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Tx: tx, Check: check, Err: fmt.Errorf(format, args...)}
}

// Validator checks templates received from the counterparty against the
// ones the local builder derives from the shared deal terms. Every
// received template must pass before any local signature is produced
// over it.
type Validator struct {
	Builder *Builder
}

func NewValidator(builder *Builder) *Validator {
	return &Validator{Builder: builder}
}

// ValidateLock checks a received lock template against the funding
// output and amount the deal fixed.
func (v *Validator) ValidateLock(lock *Template, funding Outpoint, amount blockchain.Amount) error {
	expected, err := v.Builder.Lock(funding, amount)
	if err != nil {
		return err
	}
	return v.compare(lock, expected)
}

// ValidateLockTemplate checks a received lock template without tying
// it to a funding outpoint. The party that did not fund cannot verify
// what the lock spends; confirmation of the named output is left to
// chain watching.
func (v *Validator) ValidateLockTemplate(lock *Template, fundingAmount blockchain.Amount) error {
	if lock == nil {
		return failed(Lock, CheckKind, "missing template")
	}
	return v.ValidateLock(lock, lock.BasedOn, fundingAmount)
}

// ValidateBuy checks a received buy template against the lock it spends.
func (v *Validator) ValidateBuy(buy, lock *Template) error {
	expected, err := v.Builder.Buy(lock)
	if err != nil {
		return err
	}
	return v.compare(buy, expected)
}

// ValidateCancel checks a received cancel template against the lock it
// spends. The cancel timelock must strictly exceed the lock's.
func (v *Validator) ValidateCancel(cancel, lock *Template) error {
	expected, err := v.Builder.Cancel(lock)
	if err != nil {
		return err
	}
	if cancel != nil && cancel.Timelock <= lock.Timelock {
		return failed(Cancel, CheckTimelock, "cancel timelock %d does not exceed lock timelock %d",
			cancel.Timelock, lock.Timelock)
	}
	return v.compare(cancel, expected)
}

// ValidateRefund checks a received refund template against the cancel
// it spends.
func (v *Validator) ValidateRefund(refund, cancel *Template) error {
	expected, err := v.Builder.Refund(cancel)
	if err != nil {
		return err
	}
	return v.compare(refund, expected)
}

// ValidatePunish checks a received punish template against the cancel
// it spends. The punish timelock must strictly exceed the cancel's.
func (v *Validator) ValidatePunish(punish, cancel *Template) error {
	expected, err := v.Builder.Punish(cancel)
	if err != nil {
		return err
	}
	if punish != nil && punish.Timelock <= cancel.Timelock {
		return failed(Punish, CheckTimelock, "punish timelock %d does not exceed cancel timelock %d",
			punish.Timelock, cancel.Timelock)
	}
	return v.compare(punish, expected)
}

// ValidateSignature checks an ordinary signature over the template by
// the given public key.
func (v *Validator) ValidateSignature(tpl *Template, public curve.Point, sig *ecdsa.Signature) error {
	if tpl == nil {
		return failed(0, CheckSignature, "missing template")
	}
	if !sig.Verify(public, tpl.SignatureHash()) {
		return failed(tpl.Kind, CheckSignature, "signature does not verify")
	}
	return nil
}

// ValidateAdaptorSignature checks a pre-signature over the template by
// the given public key, encrypted under encryptionKey.
func (v *Validator) ValidateAdaptorSignature(tpl *Template, public, encryptionKey curve.Point, presig *ecdsa.PreSignature) error {
	if tpl == nil {
		return failed(0, CheckSignature, "missing template")
	}
	if !presig.EncVerify(public, encryptionKey, tpl.SignatureHash()) {
		return failed(tpl.Kind, CheckSignature, "adaptor signature does not verify")
	}
	return nil
}

func (v *Validator) compare(got, expected *Template) error {
	if got == nil {
		return failed(expected.Kind, CheckKind, "missing template")
	}
	if got.Kind != expected.Kind {
		return failed(expected.Kind, CheckKind, "got %s", got.Kind)
	}
	if !got.BasedOn.Equal(expected.BasedOn) {
		return failed(got.Kind, CheckLinkage, "template does not spend the expected output")
	}
	if got.Timelock != expected.Timelock {
		return failed(got.Kind, CheckTimelock, "timelock %d, expected %d", got.Timelock, expected.Timelock)
	}
	if !amountWithin(got.Amount, expected.Amount, v.Builder.Strategy.Tolerance) {
		return failed(got.Kind, CheckAmount, "amount %d outside tolerance %d of expected %d",
			got.Amount, v.Builder.Strategy.Tolerance, expected.Amount)
	}
	if !keysEqual(got.Success, expected.Success) {
		return failed(got.Kind, CheckKeys, "success path keys do not match the revealed parameters")
	}
	if !keysEqual(got.Failure, expected.Failure) {
		return failed(got.Kind, CheckKeys, "failure path keys do not match the revealed parameters")
	}
	return nil
}

func amountWithin(got, expected, tolerance blockchain.Amount) bool {
	if got > expected {
		return got-expected <= tolerance
	}
	return expected-got <= tolerance
}

func keysEqual(got, expected [][]byte) bool {
	if len(got) != len(expected) {
		return false
	}
	for i := range got {
		if !bytes.Equal(got[i], expected[i]) {
			return false
		}
	}
	return true
}
