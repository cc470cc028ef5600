package swap

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/Lederstrumpf/farcaster-core/pkg/blockchain"
	"github.com/Lederstrumpf/farcaster-core/pkg/encoding"
	"github.com/Lederstrumpf/farcaster-core/pkg/hash"
)

// dealMagic prefixes the out-of-band deal encoding so a pasted blob is
// recognizable before any parsing happens.
var dealMagic = []byte("FCSWAP")

// DealVersion is the serialization version emitted by Encode.
const DealVersion uint16 = 1

const checksumLen = 4

// Direction fixes which asset the maker is selling, and with it the
// swap roles of both parties.
type Direction uint8

const (
	// SellArbitrating means the maker offers the arbitrating asset.
	SellArbitrating Direction = iota + 1
	// SellAccordant means the maker offers the accordant asset.
	SellAccordant
)

func (d Direction) String() string {
	switch d {
	case SellArbitrating:
		return "sell-arbitrating"
	case SellAccordant:
		return "sell-accordant"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

func (d Direction) Validate() error {
	if d != SellArbitrating && d != SellAccordant {
		return fmt.Errorf("swap: unknown direction %d", uint8(d))
	}
	return nil
}

// Deal is the full set of terms a maker publishes out of band. A taker
// registering the deal accepts every field as is; there is no
// renegotiation inside the protocol.
type Deal struct {
	Network           blockchain.Network
	ArbitratingAsset  blockchain.AssetID
	AccordantAsset    blockchain.AssetID
	ArbitratingAmount blockchain.Amount
	AccordantAmount   blockchain.Amount
	CancelTimelock    blockchain.Timelock
	PunishTimelock    blockchain.Timelock
	Fee               blockchain.FeeStrategy
	Direction         Direction
}

func (d *Deal) Validate() error {
	if err := d.Network.Validate(); err != nil {
		return err
	}
	if err := d.Direction.Validate(); err != nil {
		return err
	}
	if d.ArbitratingAmount == 0 || d.AccordantAmount == 0 {
		return errors.New("swap: deal with zero amount")
	}
	if d.CancelTimelock == 0 {
		return errors.New("swap: cancel timelock must be positive")
	}
	if d.PunishTimelock <= d.CancelTimelock {
		return errors.New("swap: punish timelock must exceed the cancel timelock")
	}
	return d.Fee.Validate()
}

// MakerRole derives the maker's swap role from the trade direction.
// Selling the arbitrating asset means locking it, which is Bob's side;
// selling the accordant asset is Alice's.
func (d *Deal) MakerRole() SwapRole {
	if d.Direction == SellArbitrating {
		return Bob
	}
	return Alice
}

// SwapRole maps a party's trade role onto its swap role under this deal.
func (d *Deal) SwapRole(trade TradeRole) SwapRole {
	if trade == Maker {
		return d.MakerRole()
	}
	return d.MakerRole().Other()
}

// DealID is the stable identifier of a deal, independent of who holds it.
type DealID [32]byte

func (id DealID) String() string {
	return hex.EncodeToString(id[:])
}

// ID hashes the canonical deal body.
func (d *Deal) ID() (DealID, error) {
	body, err := encoding.Marshal(d)
	if err != nil {
		return DealID{}, err
	}
	var id DealID
	copy(id[:], hash.New(hash.BytesWithDomain{TheDomain: "DealID", Bytes: body}).Sum())
	return id, nil
}

// Encode produces the out-of-band form: magic, version, canonical body
// and a truncated SHA3-256 checksum over everything before it.
func (d *Deal) Encode() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	body, err := encoding.Marshal(d)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(dealMagic)+2+len(body)+checksumLen)
	out = append(out, dealMagic...)
	out = binary.BigEndian.AppendUint16(out, DealVersion)
	out = append(out, body...)
	sum := sha3.Sum256(out)
	return append(out, sum[:checksumLen]...), nil
}

// DecodeDeal parses and validates an out-of-band deal encoding.
func DecodeDeal(data []byte) (*Deal, error) {
	header := len(dealMagic) + 2
	if len(data) < header+checksumLen {
		return nil, encoding.NewDecodeError("swap.Deal", encoding.ErrTruncated)
	}
	if !bytes.HasPrefix(data, dealMagic) {
		return nil, encoding.NewDecodeError("swap.Deal", errors.New("bad magic"))
	}
	if v := binary.BigEndian.Uint16(data[len(dealMagic):]); v != DealVersion {
		return nil, encoding.NewDecodeError("swap.Deal",
			fmt.Errorf("%w: %d", encoding.ErrUnsupportedVersion, v))
	}
	payload, checksum := data[:len(data)-checksumLen], data[len(data)-checksumLen:]
	sum := sha3.Sum256(payload)
	if !bytes.Equal(sum[:checksumLen], checksum) {
		return nil, encoding.NewDecodeError("swap.Deal", errors.New("checksum mismatch"))
	}
	deal := &Deal{}
	if err := encoding.Unmarshal("swap.Deal", payload[header:], deal); err != nil {
		return nil, err
	}
	if err := deal.Validate(); err != nil {
		return nil, encoding.NewDecodeError("swap.Deal", err)
	}
	return deal, nil
}
