package hash

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/zeebo/blake3"

	"github.com/Lederstrumpf/farcaster-core/internal/params"
	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
)

const DigestLengthBytes = params.SecBytes * 2 // 64

// Hash is the transcript hash used for commitments, Fiat-Shamir
// challenges and identifiers.
//
// Internally this wraps blake3, but any hash with an easily extendable
// output would work as well.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash seeded with the given initial data.
func New(initial ...interface{}) *Hash {
	hash := &Hash{h: blake3.New()}
	if err := hash.WriteAny(initial...); err != nil {
		panic(fmt.Sprintf("hash.New: %v", err))
	}
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash and returns what is
// essentially a stream of pseudorandom bytes.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the
// current hash state. If a different length is required, use
// io.ReadFull(hash.Digest(), out) instead.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.Sum: internal hash failure: %v", err))
	}
	return out
}

// WriteAny writes a sequence of supported values to the hash state,
// each within its own domain-separation frame.
//
// Currently supported types:
//
//   - []byte
//   - *saferith.Nat
//   - curve.Point
//   - curve.Scalar
//   - hash.WriterToWithDomain
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		switch t := d.(type) {
		case []byte:
			if err := writeWithDomain(hash.h, BytesWithDomain{"[]byte", t}); err != nil {
				return fmt.Errorf("hash.Hash: write []byte: %w", err)
			}
		case *saferith.Nat:
			if t == nil {
				return fmt.Errorf("hash.Hash: write *saferith.Nat: nil")
			}
			if err := writeWithDomain(hash.h, BytesWithDomain{"Nat", t.Bytes()}); err != nil {
				return fmt.Errorf("hash.Hash: write *saferith.Nat: %w", err)
			}
		case curve.Point:
			bytes, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash.Hash: write curve.Point: %w", err)
			}
			if err := writeWithDomain(hash.h, BytesWithDomain{"Point:" + t.Curve().Name(), bytes}); err != nil {
				return fmt.Errorf("hash.Hash: write curve.Point: %w", err)
			}
		case curve.Scalar:
			bytes, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash.Hash: write curve.Scalar: %w", err)
			}
			if err := writeWithDomain(hash.h, BytesWithDomain{"Scalar:" + t.Curve().Name(), bytes}); err != nil {
				return fmt.Errorf("hash.Hash: write curve.Scalar: %w", err)
			}
		case WriterToWithDomain:
			if err := writeWithDomain(hash.h, t); err != nil {
				return fmt.Errorf("hash.Hash: write %s: %w", t.Domain(), err)
			}
		default:
			panic("hash.Hash: unsupported type")
		}
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}

// WriterToWithDomain is a value that can write itself into the
// transcript under a domain string of its own choosing.
type WriterToWithDomain interface {
	io.WriterTo

	// Domain names the frame this value is written under.
	Domain() string
}

// BytesWithDomain frames a raw byte string under an explicit domain.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteTo implements io.WriterTo.
func (b BytesWithDomain) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (b BytesWithDomain) Domain() string { return b.TheDomain }

// writeWithDomain frames the value as (<domain><data>) so adjacent
// writes cannot be reinterpreted across frame boundaries.
func writeWithDomain(w io.Writer, object WriterToWithDomain) error {
	if _, err := io.WriteString(w, "("+object.Domain()); err != nil {
		return err
	}
	if _, err := object.WriteTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, ")")
	return err
}
