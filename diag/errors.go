package diag

import (
	"errors"
	"fmt"
)

// Sentinel parse failures, matchable with errors.Is.
var (
	ErrUnexpectedToken           = errors.New("unexpected token")
	ErrUnterminatedString        = errors.New("unterminated string")
	ErrInvalidEscape             = errors.New("invalid escape sequence")
	ErrInvalidNumberLiteral      = errors.New("invalid number literal")
	ErrUnbalancedDelimiter       = errors.New("unbalanced delimiter")
	ErrInvalidSemanticTagPayload = errors.New("invalid semantic tag payload")
)

// ParseError reports malformed diagnostic notation and the byte offset at
// which it was detected.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
