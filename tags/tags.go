// Package tags is the registry of well-known CBOR tag semantics. Each entry
// maps a tag number to the name used by annotated-hex comments and, where
// one exists, the specialized diagnostic notation for the tagged item.
//
// The registry is deliberately asymmetric: printing through it is lenient
// (a payload that does not match the tag's semantics falls back to generic
// N(value) rendering), while parsing a specialized literal is strict.
package tags

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Nemo157/cbor-diag/cbor"
)

// Well-known tag numbers.
const (
	StandardDateTime  uint64 = 0
	EpochDateTime     uint64 = 1
	PositiveBignum    uint64 = 2
	NegativeBignum    uint64 = 3
	DecimalFraction   uint64 = 4
	Bigfloat          uint64 = 5
	ExpectedBase64URL uint64 = 21
	ExpectedBase64    uint64 = 22
	ExpectedBase16    uint64 = 23
	EncodedCBOR       uint64 = 24
	Rational          uint64 = 30
	URI               uint64 = 32
	Base64URLText     uint64 = 33
	Base64Text        uint64 = 34
	Regexp            uint64 = 35
	MIMEMessage       uint64 = 36
	UUID              uint64 = 37
	SelfDescribed     uint64 = 55799
)

// RenderFunc renders a nested value in diagnostic notation. The diag
// printer passes itself in so specialized forms can embed arbitrary inner
// values without this package depending on the printer.
type RenderFunc func(cbor.Value) string

// Entry describes the semantics registered for one tag number.
type Entry struct {
	// Name is the human-readable tag name used in annotated-hex comments.
	Name string

	// Diag renders the whole tagged item in its specialized notation. Nil,
	// or an error return, means the item has no specialized form (or a
	// payload that does not satisfy the tag's semantics) and prints as
	// generic N(value).
	Diag func(t cbor.Tag, render RenderFunc) (string, error)

	// FromDiag converts or validates the inner value of a parsed N(inner)
	// form, e.g. turning 37's hyphenated-hex string into its 16 bytes. An
	// error marks the specialized literal as malformed; inner values that
	// are not specialized literals pass through untouched.
	FromDiag func(inner cbor.Value) (cbor.Value, error)
}

// Lookup returns the registered semantics for a tag number.
func Lookup(number uint64) (Entry, bool) {
	e, ok := registry[number]
	return e, ok
}

// Name returns the registered name for a tag number, or "".
func Name(number uint64) string {
	return registry[number].Name
}

var registry = map[uint64]Entry{
	StandardDateTime: {
		Name:     "standard datetime",
		FromDiag: validateText(checkDateTime),
	},
	EpochDateTime: {Name: "epoch datetime"},
	PositiveBignum: {
		Name: "positive bignum",
		Diag: bignumDiag,
	},
	NegativeBignum: {
		Name: "negative bignum",
		Diag: bignumDiag,
	},
	DecimalFraction: {Name: "decimal fraction"},
	Bigfloat:        {Name: "bigfloat"},
	ExpectedBase64URL: {
		Name: "expected base64url encoding",
		Diag: baseEncodedDiag("b64url", base64url),
	},
	ExpectedBase64: {
		Name: "expected base64 encoding",
		Diag: baseEncodedDiag("b64", base64std),
	},
	ExpectedBase16: {Name: "expected base16 encoding"},
	EncodedCBOR:    {Name: "encoded cbor data item"},
	Rational: {
		Name:     "rational",
		Diag:     rationalDiag,
		FromDiag: rationalFromDiag,
	},
	URI: {
		Name:     "uri",
		FromDiag: validateText(checkURI),
	},
	Base64URLText: {Name: "base64url encoded text"},
	Base64Text:    {Name: "base64 encoded text"},
	Regexp: {
		Name:     "regex",
		FromDiag: validateText(checkRegexp),
	},
	MIMEMessage: {Name: "mime message"},
	UUID: {
		Name:     "uuid",
		Diag:     uuidDiag,
		FromDiag: uuidFromDiag,
	},
	SelfDescribed: {
		Name: "self-describe cbor",
		Diag: selfDescribeDiag,
	},
}

var errPayload = errors.New("payload does not match tag semantics")

func base64url(p []byte) string { return base64.RawURLEncoding.EncodeToString(p) }
func base64std(p []byte) string { return base64.RawStdEncoding.EncodeToString(p) }

// prefix renders the tag number with its width suffix, matching the generic
// printer so specialized forms preserve a fixed tag-number width.
func prefix(t cbor.Tag) string {
	s := strconv.FormatUint(t.Number, 10)
	switch t.Width {
	case cbor.Width8:
		return s + "_0"
	case cbor.Width16:
		return s + "_1"
	case cbor.Width32:
		return s + "_2"
	case cbor.Width64:
		return s + "_3"
	}
	return s
}

// Integer extracts the exact integer represented by a Value, following
// bignum tags. The second return is false for anything non-integral.
func Integer(v cbor.Value) (*big.Int, bool) {
	switch v := v.(type) {
	case cbor.Uint:
		return new(big.Int).SetUint64(v.Value), true
	case cbor.NegInt:
		i := new(big.Int).SetUint64(v.Value)
		i.Neg(i)
		return i.Sub(i, big.NewInt(1)), true
	case cbor.Tag:
		if v.Number != PositiveBignum && v.Number != NegativeBignum {
			return nil, false
		}
		s, ok := v.Value.(cbor.Slice)
		if !ok {
			return nil, false
		}
		i := new(big.Int).SetBytes(s.Contents())
		if v.Number == NegativeBignum {
			i.Neg(i)
			i.Sub(i, big.NewInt(1))
		}
		return i, true
	}
	return nil, false
}

func bignumDiag(t cbor.Tag, _ RenderFunc) (string, error) {
	i, ok := Integer(t)
	if !ok {
		return "", errPayload
	}
	if fitsNative(i) {
		// the bare decimal form reparses to a major type 0/1 item,
		// dropping the tag
		return "", errPayload
	}
	return i.String(), nil
}

// fitsNative reports whether i is representable as a plain major type 0/1
// item.
func fitsNative(i *big.Int) bool {
	if i.Sign() >= 0 {
		return i.IsUint64()
	}
	arg := new(big.Int).Neg(i)
	arg.Sub(arg, big.NewInt(1))
	return arg.IsUint64()
}

func baseEncodedDiag(marker string, enc func([]byte) string) func(cbor.Tag, RenderFunc) (string, error) {
	return func(t cbor.Tag, _ RenderFunc) (string, error) {
		if t.Width != cbor.WidthAuto && t.Width != cbor.WidthZero {
			// the bare literal reparses to a minimally encoded tag number
			return "", errPayload
		}
		s, ok := t.Value.(cbor.Slice)
		if !ok {
			return "", errPayload
		}
		return marker + "'" + enc(s.Contents()) + "'", nil
	}
}

func rationalDiag(t cbor.Tag, _ RenderFunc) (string, error) {
	l, ok := t.Value.(cbor.List)
	if !ok || len(l.Items) != 2 {
		return "", errPayload
	}
	num, ok := Integer(l.Items[0])
	if !ok {
		return "", errPayload
	}
	den, ok := Integer(l.Items[1])
	if !ok || den.Sign() == 0 {
		return "", errPayload
	}
	return fmt.Sprintf("%s(\"%s/%s\")", prefix(t), num, den), nil
}

func rationalFromDiag(inner cbor.Value) (cbor.Value, error) {
	text, ok := textValue(inner)
	if !ok {
		return inner, nil
	}
	numText, denText, ok := strings.Cut(text, "/")
	if !ok {
		return nil, fmt.Errorf("rational %q: missing '/'", text)
	}
	num, ok := new(big.Int).SetString(numText, 10)
	if !ok {
		return nil, fmt.Errorf("rational %q: bad numerator", text)
	}
	den, ok := new(big.Int).SetString(denText, 10)
	if !ok || den.Sign() == 0 {
		return nil, fmt.Errorf("rational %q: bad denominator", text)
	}
	return cbor.List{
		Items: []cbor.Value{IntegerValue(num), IntegerValue(den)},
		Width: cbor.WidthAuto,
	}, nil
}

func uuidDiag(t cbor.Tag, _ RenderFunc) (string, error) {
	s, ok := t.Value.(cbor.Slice)
	if !ok {
		return "", errPayload
	}
	u, err := uuid.FromBytes(s.Contents())
	if err != nil {
		return "", errPayload
	}
	return prefix(t) + "(\"" + u.String() + "\")", nil
}

func uuidFromDiag(inner cbor.Value) (cbor.Value, error) {
	text, ok := textValue(inner)
	if !ok {
		return inner, nil
	}
	u, err := uuid.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("uuid %q: %w", text, err)
	}
	return cbor.Slice{
		Chunks: []cbor.SliceChunk{{Data: u[:], Width: cbor.WidthAuto}},
	}, nil
}

func selfDescribeDiag(t cbor.Tag, render RenderFunc) (string, error) {
	if t.Width != cbor.WidthAuto && t.Width != cbor.Width16 {
		// 55799 always needs a 16-bit argument; anything else came from a
		// hand-built tree and has no wire-faithful keyword form.
		return "", errPayload
	}
	return "self_describe(" + render(t.Value) + ")", nil
}

// UUIDValue returns the tag 37 item for a parsed urn:uuid string.
func UUIDValue(u uuid.UUID) cbor.Value {
	return cbor.Tag{
		Number: UUID,
		Width:  cbor.WidthAuto,
		Value: cbor.Slice{
			Chunks: []cbor.SliceChunk{{Data: u[:], Width: cbor.WidthAuto}},
		},
	}
}

// IntegerValue returns the most direct representation of an arbitrary
// integer: a plain (major type 0/1) item when it fits 64 bits, a bignum tag
// otherwise.
func IntegerValue(i *big.Int) cbor.Value {
	if i.Sign() >= 0 {
		if i.IsUint64() {
			return cbor.Uint{Value: i.Uint64(), Width: cbor.WidthAuto}
		}
		return cbor.Tag{
			Number: PositiveBignum,
			Width:  cbor.WidthAuto,
			Value:  cbor.Slice{Chunks: []cbor.SliceChunk{{Data: i.Bytes(), Width: cbor.WidthAuto}}},
		}
	}

	// argument for major type 1 is -1 - i
	arg := new(big.Int).Neg(i)
	arg.Sub(arg, big.NewInt(1))
	if arg.IsUint64() {
		return cbor.NegInt{Value: arg.Uint64(), Width: cbor.WidthAuto}
	}
	return cbor.Tag{
		Number: NegativeBignum,
		Width:  cbor.WidthAuto,
		Value:  cbor.Slice{Chunks: []cbor.SliceChunk{{Data: arg.Bytes(), Width: cbor.WidthAuto}}},
	}
}

func textValue(v cbor.Value) (string, bool) {
	s, ok := v.(cbor.String)
	if !ok {
		return "", false
	}
	return s.Contents(), true
}

func validateText(check func(string) error) func(cbor.Value) (cbor.Value, error) {
	return func(inner cbor.Value) (cbor.Value, error) {
		text, ok := textValue(inner)
		if !ok {
			return inner, nil
		}
		if err := check(text); err != nil {
			return nil, err
		}
		return inner, nil
	}
}

func checkDateTime(s string) error {
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return fmt.Errorf("datetime %q: %w", s, err)
	}
	return nil
}

func checkURI(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("uri %q: %w", s, err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("uri %q: not absolute", s)
	}
	return nil
}

func checkRegexp(s string) error {
	if _, err := regexp.Compile(s); err != nil {
		return fmt.Errorf("regex %q: %w", s, err)
	}
	return nil
}
