package cbor

import (
	"errors"
	"fmt"
)

// Sentinel decoding failures, matchable with errors.Is.
var (
	ErrUnexpectedEOF          = errors.New("unexpected end of payload")
	ErrInvalidAdditionalInfo  = errors.New("invalid additional info")
	ErrBreakOutsideIndefinite = errors.New("break outside indefinite-length item")
	ErrInvalidUTF8            = errors.New("invalid utf-8 in text string")
	ErrReservedSimpleCode     = errors.New("reserved two-byte simple value")
	ErrTrailingBytes          = errors.New("trailing bytes after data item")
	ErrDepthExceeded          = errors.New("nesting depth exceeded")
)

// DecodeError reports a malformed encoding and the byte offset at which it
// was detected.
type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
