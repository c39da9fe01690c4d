package diag

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"

	"github.com/Nemo157/cbor-diag/cbor"
	"github.com/Nemo157/cbor-diag/internal/float16"
	"github.com/Nemo157/cbor-diag/tags"
)

// canonical quiet NaN patterns, used when the literal cannot carry a payload
const (
	nan16 = 0x7e00
	nan32 = 0x7fc00000
	nan64 = 0x7ff8000000000000
)

const (
	inf16 = 0x7c00
	inf32 = 0x7f800000
	inf64 = 0x7ff0000000000000
)

// Parse reads one data item in diagnostic notation. The whole input must be
// consumed; errors carry the byte offset of the offending token.
func Parse(s string) (cbor.Value, error) {
	p := &parser{src: s}
	p.ws()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.ws()
	if p.off != len(p.src) {
		return nil, p.fail(p.off, fmt.Errorf("%w: trailing characters", ErrUnexpectedToken))
	}
	return v, nil
}

type parser struct {
	src string
	off int
}

func (p *parser) fail(off int, err error) error {
	return &ParseError{Offset: off, Err: err}
}

func (p *parser) ws() {
	for p.off < len(p.src) {
		switch p.src[p.off] {
		case ' ', '\t', '\r', '\n':
			p.off++
		default:
			return
		}
	}
}

func (p *parser) eof() error {
	return p.fail(p.off, fmt.Errorf("%w: unexpected end of input", ErrUnexpectedToken))
}

func (p *parser) value() (cbor.Value, error) {
	if p.off >= len(p.src) {
		return nil, p.eof()
	}

	switch c := p.src[p.off]; {
	case c == '"':
		return p.textOrUUID()
	case c == '[':
		return p.list()
	case c == '{':
		return p.mapping()
	case c == '(':
		return p.chunked()
	case c == '-' || c >= '0' && c <= '9':
		return p.number()
	case isWordByte(c):
		return p.keyword()
	default:
		return nil, p.fail(p.off, fmt.Errorf("%w: %q", ErrUnexpectedToken, c))
	}
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func (p *parser) word() string {
	start := p.off
	for p.off < len(p.src) && isWordByte(p.src[p.off]) {
		p.off++
	}
	return p.src[start:p.off]
}

// expect consumes c, skipping leading whitespace. A missing closer is an
// unbalanced delimiter when the input ran out.
func (p *parser) expect(c byte) error {
	p.ws()
	if p.off >= len(p.src) {
		if c == ')' || c == ']' || c == '}' {
			return p.fail(p.off, fmt.Errorf("%w: missing %q", ErrUnbalancedDelimiter, c))
		}
		return p.eof()
	}
	if p.src[p.off] != c {
		return p.fail(p.off, fmt.Errorf("%w: %q, expected %q", ErrUnexpectedToken, p.src[p.off], c))
	}
	p.off++
	return nil
}

func (p *parser) textOrUUID() (cbor.Value, error) {
	start := p.off
	text, err := p.quoted()
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(text, "urn:uuid:") {
		u, err := uuid.Parse(text)
		if err != nil {
			return nil, p.fail(start, fmt.Errorf("%w: %v", ErrInvalidSemanticTagPayload, err))
		}
		return tags.UUIDValue(u), nil
	}
	return cbor.String{Chunks: []cbor.StringChunk{{Data: text, Width: cbor.WidthAuto}}}, nil
}

func (p *parser) quoted() (string, error) {
	start := p.off
	p.off++ // opening quote

	var b strings.Builder
	for p.off < len(p.src) {
		switch c := p.src[p.off]; c {
		case '"':
			p.off++
			return b.String(), nil
		case '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.off++
		}
	}
	return "", p.fail(start, ErrUnterminatedString)
}

func (p *parser) escape(b *strings.Builder) error {
	start := p.off
	if p.off+1 >= len(p.src) {
		return p.fail(start, ErrInvalidEscape)
	}
	switch c := p.src[p.off+1]; c {
	case '"', '\\', '/':
		b.WriteByte(c)
		p.off += 2
	case 'b':
		b.WriteByte('\b')
		p.off += 2
	case 'f':
		b.WriteByte('\f')
		p.off += 2
	case 'n':
		b.WriteByte('\n')
		p.off += 2
	case 'r':
		b.WriteByte('\r')
		p.off += 2
	case 't':
		b.WriteByte('\t')
		p.off += 2
	case 'u':
		r, err := p.unicodeEscape()
		if err != nil {
			return err
		}
		b.WriteRune(r)
	default:
		return p.fail(start, fmt.Errorf("%w: \\%c", ErrInvalidEscape, c))
	}
	return nil
}

func (p *parser) unicodeEscape() (rune, error) {
	start := p.off
	hi, err := p.hex4(start + 2)
	if err != nil {
		return 0, err
	}
	p.off += 6

	if !utf16.IsSurrogate(rune(hi)) {
		return rune(hi), nil
	}
	// a high surrogate needs its low half
	if p.off+6 <= len(p.src) && p.src[p.off] == '\\' && p.src[p.off+1] == 'u' {
		lo, err := p.hex4(p.off + 2)
		if err != nil {
			return 0, err
		}
		if r := utf16.DecodeRune(rune(hi), rune(lo)); r != 0xfffd {
			p.off += 6
			return r, nil
		}
	}
	return 0, p.fail(start, fmt.Errorf("%w: unpaired surrogate", ErrInvalidEscape))
}

func (p *parser) hex4(off int) (uint32, error) {
	if off+4 > len(p.src) {
		return 0, p.fail(off, ErrInvalidEscape)
	}
	v, err := strconv.ParseUint(p.src[off:off+4], 16, 32)
	if err != nil {
		return 0, p.fail(off, fmt.Errorf("%w: bad \\u digits", ErrInvalidEscape))
	}
	return uint32(v), nil
}

func (p *parser) list() (cbor.Value, error) {
	p.off++ // [
	l := cbor.List{Width: cbor.WidthAuto}
	if p.off < len(p.src) && p.src[p.off] == '_' {
		l.Indefinite = true
		p.off++
	}

	p.ws()
	for {
		if p.off >= len(p.src) {
			return nil, p.fail(p.off, fmt.Errorf("%w: missing %q", ErrUnbalancedDelimiter, ']'))
		}
		if p.src[p.off] == ']' {
			p.off++
			return l, nil
		}
		item, err := p.value()
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, item)
		if err := p.separator(']'); err != nil {
			return nil, err
		}
	}
}

func (p *parser) mapping() (cbor.Value, error) {
	p.off++ // {
	m := cbor.Map{Width: cbor.WidthAuto}
	if p.off < len(p.src) && p.src[p.off] == '_' {
		m.Indefinite = true
		p.off++
	}

	p.ws()
	for {
		if p.off >= len(p.src) {
			return nil, p.fail(p.off, fmt.Errorf("%w: missing %q", ErrUnbalancedDelimiter, '}'))
		}
		if p.src[p.off] == '}' {
			p.off++
			return m, nil
		}
		key, err := p.value()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		p.ws()
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, cbor.Entry{Key: key, Value: value})
		if err := p.separator('}'); err != nil {
			return nil, err
		}
	}
}

// separator consumes a comma (trailing commas are fine, the pretty printer
// emits them) or leaves the closer in place.
func (p *parser) separator(close byte) error {
	p.ws()
	if p.off >= len(p.src) {
		return p.fail(p.off, fmt.Errorf("%w: missing %q", ErrUnbalancedDelimiter, close))
	}
	switch p.src[p.off] {
	case ',':
		p.off++
		p.ws()
		return nil
	case close:
		return nil
	}
	return p.fail(p.off, fmt.Errorf("%w: %q, expected %q or %q", ErrUnexpectedToken, p.src[p.off], ',', close))
}

// chunked parses an indefinite-length string written as a parenthesized
// group of definite chunks.
func (p *parser) chunked() (cbor.Value, error) {
	start := p.off
	p.off++ // (
	if p.off >= len(p.src) || p.src[p.off] != '_' {
		return nil, p.fail(start, fmt.Errorf("%w: expected %q after %q", ErrUnexpectedToken, '_', '('))
	}
	p.off++

	var text []cbor.StringChunk
	var bytes []cbor.SliceChunk
	p.ws()
	for {
		if p.off >= len(p.src) {
			return nil, p.fail(p.off, fmt.Errorf("%w: missing %q", ErrUnbalancedDelimiter, ')'))
		}
		switch c := p.src[p.off]; {
		case c == ')':
			p.off++
			if text != nil {
				if bytes != nil {
					return nil, p.fail(start, fmt.Errorf("%w: mixed text and byte chunks", ErrUnexpectedToken))
				}
				return cbor.String{Chunks: text, Indefinite: true}, nil
			}
			return cbor.Slice{Chunks: bytes, Indefinite: true}, nil
		case c == '"':
			chunk, err := p.quoted()
			if err != nil {
				return nil, err
			}
			text = append(text, cbor.StringChunk{Data: chunk, Width: cbor.WidthAuto})
		case isWordByte(c):
			wordStart := p.off
			data, err := p.bytesLiteral(p.word(), wordStart)
			if err != nil {
				return nil, err
			}
			bytes = append(bytes, cbor.SliceChunk{Data: data, Width: cbor.WidthAuto})
		default:
			return nil, p.fail(p.off, fmt.Errorf("%w: %q", ErrUnexpectedToken, c))
		}
		if err := p.separator(')'); err != nil {
			return nil, err
		}
	}
}

func (p *parser) keyword() (cbor.Value, error) {
	start := p.off
	word := p.word()

	switch word {
	case "true":
		return cbor.SimpleTrue, nil
	case "false":
		return cbor.SimpleFalse, nil
	case "null":
		return cbor.SimpleNull, nil
	case "undefined":
		return cbor.SimpleUndefined, nil
	case "simple":
		return p.simple(start)
	case "self_describe":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		p.ws()
		inner, err := p.value()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return cbor.Tag{Number: tags.SelfDescribed, Width: cbor.WidthAuto, Value: inner}, nil
	case "h", "b32":
		data, err := p.bytesLiteral(word, start)
		if err != nil {
			return nil, err
		}
		return cbor.Slice{Chunks: []cbor.SliceChunk{{Data: data, Width: cbor.WidthAuto}}}, nil
	case "b64url", "b64":
		data, err := p.bytesLiteral(word, start)
		if err != nil {
			return nil, err
		}
		number := tags.ExpectedBase64URL
		if word == "b64" {
			number = tags.ExpectedBase64
		}
		return cbor.Tag{
			Number: number,
			Width:  cbor.WidthAuto,
			Value:  cbor.Slice{Chunks: []cbor.SliceChunk{{Data: data, Width: cbor.WidthAuto}}},
		}, nil
	}

	if f, ok := floatLiteral(word); ok {
		return f, nil
	}
	return nil, p.fail(start, fmt.Errorf("%w: %q", ErrUnexpectedToken, word))
}

func (p *parser) simple(start int) (cbor.Value, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.ws()
	digits := p.word()
	code, err := strconv.ParseUint(digits, 10, 8)
	if err != nil {
		return nil, p.fail(start, fmt.Errorf("%w: simple(%s)", ErrInvalidNumberLiteral, digits))
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return cbor.Simple(code), nil
}

// floatLiteral recognizes the NaN and Infinity keywords with an optional
// width suffix.
func floatLiteral(word string) (cbor.Value, bool) {
	base, suffix, _ := strings.Cut(word, "_")

	var w cbor.Width
	switch suffix {
	case "":
		w = cbor.WidthAuto
	case "1":
		w = cbor.Width16
	case "2":
		w = cbor.Width32
	case "3":
		w = cbor.Width64
	default:
		return nil, false
	}

	var bits [3]uint64 // 16, 32, 64
	switch base {
	case "NaN":
		bits = [3]uint64{nan16, nan32, nan64}
	case "Infinity":
		bits = [3]uint64{inf16, inf32, inf64}
	case "-Infinity":
		bits = [3]uint64{1<<15 | inf16, 1<<31 | inf32, 1<<63 | inf64}
	default:
		return nil, false
	}

	switch w {
	case cbor.Width16:
		return cbor.Float{Bits: bits[0], Width: w}, true
	case cbor.Width32:
		return cbor.Float{Bits: bits[1], Width: w}, true
	default:
		return cbor.Float{Bits: bits[2], Width: w}, true
	}
}

func (p *parser) bytesLiteral(kind string, start int) ([]byte, error) {
	if p.off >= len(p.src) || p.src[p.off] != '\'' {
		return nil, p.fail(p.off, fmt.Errorf("%w: expected %q after %q", ErrUnexpectedToken, '\'', kind))
	}
	p.off++
	dataStart := p.off
	end := strings.IndexByte(p.src[p.off:], '\'')
	if end < 0 {
		return nil, p.fail(start, ErrUnterminatedString)
	}
	raw := p.src[dataStart : dataStart+end]
	p.off = dataStart + end + 1

	switch kind {
	case "h":
		var digits strings.Builder
		for i := 0; i < len(raw); i++ {
			switch c := raw[i]; {
			case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			case c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F':
				digits.WriteByte(c)
			default:
				return nil, p.fail(dataStart+i, fmt.Errorf("%w: %q in hex string", ErrUnexpectedToken, c))
			}
		}
		if digits.Len()%2 != 0 {
			return nil, p.fail(start, fmt.Errorf("%w: odd number of hex digits", ErrInvalidNumberLiteral))
		}
		data, err := hex.DecodeString(digits.String())
		if err != nil {
			return nil, p.fail(start, fmt.Errorf("%w: %v", ErrUnexpectedToken, err))
		}
		return data, nil
	case "b64url":
		data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return nil, p.fail(start, fmt.Errorf("%w: %v", ErrUnexpectedToken, err))
		}
		return data, nil
	case "b64":
		data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return nil, p.fail(start, fmt.Errorf("%w: %v", ErrUnexpectedToken, err))
		}
		return data, nil
	default: // b32
		data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return nil, p.fail(start, fmt.Errorf("%w: %v", ErrUnexpectedToken, err))
		}
		return data, nil
	}
}

func (p *parser) number() (cbor.Value, error) {
	start := p.off

	negative := p.src[p.off] == '-'
	if negative {
		p.off++
		if p.off < len(p.src) && p.src[p.off] == 'I' {
			word := p.word()
			if f, ok := floatLiteral("-" + word); ok {
				return f, nil
			}
			return nil, p.fail(start, fmt.Errorf("%w: -%s", ErrInvalidNumberLiteral, word))
		}
	}

	digitsStart := p.off
	isFloat := false
	for p.off < len(p.src) {
		c := p.src[p.off]
		if c >= '0' && c <= '9' {
			p.off++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' {
			isFloat = true
			p.off++
			if c != '.' && p.off < len(p.src) && (p.src[p.off] == '+' || p.src[p.off] == '-') {
				p.off++
			}
			continue
		}
		break
	}
	if p.off == digitsStart {
		return nil, p.fail(start, fmt.Errorf("%w: missing digits", ErrInvalidNumberLiteral))
	}
	text := p.src[start:p.off]

	// optional width suffix
	suffix := ""
	if p.off+1 < len(p.src) && p.src[p.off] == '_' && p.src[p.off+1] >= '0' && p.src[p.off+1] <= '9' {
		suffix = p.src[p.off+1 : p.off+2]
		p.off += 2
	}

	if isFloat {
		return p.float(start, text, suffix)
	}
	return p.integer(start, text, suffix, negative)
}

func (p *parser) float(start int, text, suffix string) (cbor.Value, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.fail(start, fmt.Errorf("%w: %q", ErrInvalidNumberLiteral, text))
	}

	switch suffix {
	case "":
		return cbor.Float{Bits: math.Float64bits(f), Width: cbor.WidthAuto}, nil
	case "1":
		return cbor.Float{Bits: uint64(float16.From64(f)), Width: cbor.Width16}, nil
	case "2":
		return cbor.Float{Bits: uint64(math.Float32bits(float32(f))), Width: cbor.Width32}, nil
	case "3":
		return cbor.Float{Bits: math.Float64bits(f), Width: cbor.Width64}, nil
	}
	return nil, p.fail(start, fmt.Errorf("%w: float width suffix _%s", ErrInvalidNumberLiteral, suffix))
}

func (p *parser) integer(start int, text, suffix string, negative bool) (cbor.Value, error) {
	var w cbor.Width
	switch suffix {
	case "":
		w = cbor.WidthAuto
	case "0":
		w = cbor.Width8
	case "1":
		w = cbor.Width16
	case "2":
		w = cbor.Width32
	case "3":
		w = cbor.Width64
	default:
		return nil, p.fail(start, fmt.Errorf("%w: integer width suffix _%s", ErrInvalidNumberLiteral, suffix))
	}

	// a tag number follows immediately with its open paren
	if !negative && p.off < len(p.src) && p.src[p.off] == '(' {
		return p.tag(start, text, w)
	}

	i, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, p.fail(start, fmt.Errorf("%w: %q", ErrInvalidNumberLiteral, text))
	}

	if !negative {
		if i.IsUint64() {
			return cbor.Uint{Value: i.Uint64(), Width: w}, nil
		}
	} else {
		arg := new(big.Int).Neg(i)
		arg.Sub(arg, big.NewInt(1))
		if arg.IsUint64() {
			return cbor.NegInt{Value: arg.Uint64(), Width: w}, nil
		}
	}

	// bignum territory; there is no width to force
	if suffix != "" {
		return nil, p.fail(start, fmt.Errorf("%w: width suffix on oversized literal", ErrInvalidNumberLiteral))
	}
	return tags.IntegerValue(i), nil
}

func (p *parser) tag(start int, digits string, w cbor.Width) (cbor.Value, error) {
	number, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return nil, p.fail(start, fmt.Errorf("%w: tag number %q", ErrInvalidNumberLiteral, digits))
	}
	p.off++ // (
	p.ws()
	innerStart := p.off
	inner, err := p.value()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}

	if e, ok := tags.Lookup(number); ok && e.FromDiag != nil {
		converted, err := e.FromDiag(inner)
		if err != nil {
			return nil, p.fail(innerStart, fmt.Errorf("%w: %v", ErrInvalidSemanticTagPayload, err))
		}
		inner = converted
	}
	return cbor.Tag{Number: number, Width: w, Value: inner}, nil
}
