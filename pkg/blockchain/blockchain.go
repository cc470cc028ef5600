// Package blockchain holds the chain-level value types a swap is
// negotiated over, and the capability interfaces concrete chain
// backends implement. The core never depends on a specific chain's
// transaction representation; everything chain-shaped enters through
// these interfaces.
package blockchain

import (
	"errors"
	"fmt"

	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
)

// Network distinguishes deployment targets of one chain pair.
type Network uint8

const (
	Mainnet Network = iota + 1
	Testnet
	Local
)

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Local:
		return "local"
	default:
		return fmt.Sprintf("network(%d)", uint8(n))
	}
}

func (n Network) Validate() error {
	if n < Mainnet || n > Local {
		return fmt.Errorf("blockchain: unknown network %d", uint8(n))
	}
	return nil
}

// AssetID identifies an asset in SLIP-44 style.
type AssetID uint32

// Amount is an asset quantity in the chain's base unit.
type Amount uint64

// Timelock is a relative timelock in blocks.
type Timelock uint32

// FeeStrategy fixes how arbitration transaction fees are computed and
// how strictly a counterparty's amounts are checked. Both values are
// explicit deal terms rather than hidden defaults.
type FeeStrategy struct {
	// Fixed is the fee each arbitration transaction pays.
	Fixed Amount
	// Tolerance is the absolute slack accepted on a received
	// template's output amount.
	Tolerance Amount
}

func (f FeeStrategy) Validate() error {
	if f.Fixed == 0 {
		return errors.New("blockchain: fee strategy with zero fee")
	}
	if f.Tolerance >= f.Fixed {
		return errors.New("blockchain: fee tolerance exceeds the fee itself")
	}
	return nil
}

// Arbitrating is the capability set of the chain hosting the
// arbitration transaction set. A backend binds the group used for
// keys and signatures and prices the arbitration transactions.
type Arbitrating interface {
	Group() curve.Curve
	// Fee returns the fee one arbitration transaction pays under the
	// given strategy.
	Fee(FeeStrategy) (Amount, error)
}

// Accordant is the capability set of the counterpart chain, whose
// asset moves with the extracted secret alone.
type Accordant interface {
	Group() curve.Curve
}

// Secp256k1Chain is the built-in arbitrating backend for
// secp256k1-based chains with fixed-fee strategies.
type Secp256k1Chain struct{}

func (Secp256k1Chain) Group() curve.Curve { return curve.Secp256k1{} }

func (Secp256k1Chain) Fee(strategy FeeStrategy) (Amount, error) {
	if err := strategy.Validate(); err != nil {
		return 0, err
	}
	return strategy.Fixed, nil
}

// Edwards25519Chain is the built-in accordant backend for
// edwards25519-based chains.
type Edwards25519Chain struct{}

func (Edwards25519Chain) Group() curve.Curve { return curve.Edwards25519{} }
