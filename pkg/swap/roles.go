// Package swap defines the negotiated terms of a single swap: the deal
// a maker publishes, the identifiers both parties track it under, and
// the role assignments derived from the trade direction.
package swap

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/Lederstrumpf/farcaster-core/internal/params"
)

// TradeRole says who published the deal.
type TradeRole uint8

const (
	Maker TradeRole = iota + 1
	Taker
)

func (r TradeRole) String() string {
	switch r {
	case Maker:
		return "maker"
	case Taker:
		return "taker"
	default:
		return fmt.Sprintf("traderole(%d)", uint8(r))
	}
}

func (r TradeRole) Validate() error {
	if r != Maker && r != Taker {
		return fmt.Errorf("swap: unknown trade role %d", uint8(r))
	}
	return nil
}

// Other returns the counterparty's trade role.
func (r TradeRole) Other() TradeRole {
	if r == Maker {
		return Taker
	}
	return Maker
}

// SwapRole says which side of the protocol a party runs. Alice sells
// the accordant asset and holds the punish capability; Bob sells the
// arbitrating asset and holds the refund path.
type SwapRole uint8

const (
	Alice SwapRole = iota + 1
	Bob
)

func (r SwapRole) String() string {
	switch r {
	case Alice:
		return "alice"
	case Bob:
		return "bob"
	default:
		return fmt.Sprintf("swaprole(%d)", uint8(r))
	}
}

func (r SwapRole) Validate() error {
	if r != Alice && r != Bob {
		return fmt.Errorf("swap: unknown swap role %d", uint8(r))
	}
	return nil
}

// Other returns the counterparty's swap role.
func (r SwapRole) Other() SwapRole {
	if r == Alice {
		return Bob
	}
	return Alice
}

// SwapID identifies one running swap. Every protocol message carries
// it, and messages for an unknown ID are dropped.
type SwapID [params.SecBytes]byte

// NewSwapID samples a fresh identifier.
func NewSwapID(rand io.Reader) (SwapID, error) {
	var id SwapID
	if _, err := io.ReadFull(rand, id[:]); err != nil {
		return id, fmt.Errorf("swap: sampling swap id: %w", err)
	}
	return id, nil
}

func (id SwapID) String() string {
	return hex.EncodeToString(id[:])
}

// Validate ensures the ID is not the trivial all-zero value.
func (id SwapID) Validate() error {
	for _, b := range id {
		if b != 0 {
			return nil
		}
	}
	return errors.New("swap: swap id is zero")
}
