// Package encoding provides the canonical byte encoding used for every
// protocol type. One value has exactly one encoding, so hash commitments
// over encoded forms are unambiguous, and decoding is strict: truncated
// input, trailing bytes, indefinite lengths and duplicate keys are all
// rejected with a typed error.
package encoding

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// DecodeError reports why a byte string was rejected during decoding.
type DecodeError struct {
	// Type names the protocol type being decoded.
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewDecodeError wraps err as a DecodeError for the named type.
func NewDecodeError(typeName string, err error) *DecodeError {
	return &DecodeError{Type: typeName, Err: err}
}

var (
	ErrTrailingBytes      = errors.New("trailing bytes after value")
	ErrTruncated          = errors.New("truncated input")
	ErrUnsupportedVersion = errors.New("unsupported version")
)

var encMode = func() cbor.EncMode {
	// RFC 8949 core deterministic form: sorted keys, shortest integer
	// encodings, no indefinite lengths.
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

var decMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		TagsMd:            cbor.TagsForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// Marshal encodes v into its canonical byte form.
func Marshal(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v, rejecting any input that is not the
// exact canonical encoding of a value of v's type.
func Unmarshal(typeName string, data []byte, v interface{}) error {
	if len(data) == 0 {
		return NewDecodeError(typeName, ErrTruncated)
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		var extra *cbor.ExtraneousDataError
		if errors.As(err, &extra) {
			return NewDecodeError(typeName, ErrTrailingBytes)
		}
		return NewDecodeError(typeName, err)
	}
	return nil
}
