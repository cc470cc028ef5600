package hash

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/Lederstrumpf/farcaster-core/internal/params"
)

// Commitment binds a value set without revealing it. A party publishes
// the commitment first and opens it later with the matching nonce.
type Commitment []byte

// Decommitment is the random nonce that opens a Commitment.
type Decommitment []byte

func (c Commitment) Validate() error {
	if len(c) != DigestLengthBytes {
		return fmt.Errorf("commitment: %d bytes, want %d", len(c), DigestLengthBytes)
	}
	return nil
}

func (d Decommitment) Validate() error {
	if len(d) != params.SecBytes {
		return fmt.Errorf("decommitment: %d bytes, want %d", len(d), params.SecBytes)
	}
	return nil
}

// WriteTo implements io.WriterTo.
func (c Commitment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (Commitment) Domain() string { return "Commitment" }

// WriteTo implements io.WriterTo.
func (d Decommitment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (Decommitment) Domain() string { return "Decommitment" }

// Commit absorbs data into a clone of the transcript, appends a fresh
// nonce and returns the resulting digest together with the nonce that
// opens it.
func (hash *Hash) Commit(data ...interface{}) (Commitment, Decommitment, error) {
	nonce := Decommitment(make([]byte, params.SecBytes))
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("hash.Commit: sampling nonce: %w", err)
	}
	h := hash.Clone()
	if err := h.WriteAny(data...); err != nil {
		return nil, nil, fmt.Errorf("hash.Commit: %w", err)
	}
	if err := h.WriteAny(nonce); err != nil {
		return nil, nil, fmt.Errorf("hash.Commit: %w", err)
	}
	return h.Sum(), nonce, nil
}

// Decommit reports whether data and the nonce open the commitment on
// this transcript.
func (hash *Hash) Decommit(c Commitment, d Decommitment, data ...interface{}) bool {
	if c.Validate() != nil || d.Validate() != nil {
		return false
	}
	h := hash.Clone()
	if h.WriteAny(data...) != nil {
		return false
	}
	if h.WriteAny(d) != nil {
		return false
	}
	return bytes.Equal(h.Sum(), c)
}
