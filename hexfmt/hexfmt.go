// Package hexfmt converts between hex text and raw CBOR bytes, and renders
// the annotated hex form: one line per structural unit with a comment
// describing it, the way cbor.me presents encodings.
package hexfmt

import (
	"errors"
	"fmt"
)

// Sentinel hex-text failures, matchable with errors.Is.
var (
	ErrOddLength    = errors.New("odd number of hex digits")
	ErrInvalidDigit = errors.New("invalid hex digit")
)

// Error reports malformed hex text and the byte offset at which it was
// detected.
type Error struct {
	Offset int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Decode converts hex text to bytes. Whitespace and #-introduced line
// comments are ignored, which makes Decode accept its own Annotate output.
func Decode(s string) ([]byte, error) {
	var buf []byte
	pending := -1 // offset of an unpaired high nibble
	comment := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\n':
			comment = false
		case comment:
		case c == '#':
			comment = true
		case c == ' ' || c == '\t' || c == '\r':
		default:
			d, ok := nibble(c)
			if !ok {
				return nil, &Error{Offset: i, Err: fmt.Errorf("%w: %q", ErrInvalidDigit, c)}
			}
			if pending < 0 {
				pending = i
				buf = append(buf, d<<4)
			} else {
				buf[len(buf)-1] |= d
				pending = -1
			}
		}
	}
	if pending >= 0 {
		return nil, &Error{Offset: pending, Err: ErrOddLength}
	}
	return buf, nil
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
