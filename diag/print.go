// Package diag converts between the CBOR Value syntax tree and RFC 8949
// diagnostic notation.
//
// The notation is extended the way the cbor.me tooling extends it: `_N`
// suffixes record fixed argument widths, `[_ ...]`, `{_ ...}` and
// `(_ ...)` mark indefinite-length items, and well-known tags print in
// specialized forms (bignums as bare integers, tag 37 as a hyphenated UUID
// string, and so on). Everything Print emits re-parses to a structurally
// equal tree.
package diag

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/Nemo157/cbor-diag/cbor"
	"github.com/Nemo157/cbor-diag/internal/float16"
	"github.com/Nemo157/cbor-diag/tags"
)

// containers estimated to render shorter than this stay on one line in
// pretty layout
const trivialLimit = 60

// Print renders a Value in diagnostic notation on a single line. It never
// fails: tagged items whose payload does not satisfy the tag's registered
// semantics degrade to generic N(value) form.
func Print(v cbor.Value) string {
	p := printer{}
	p.value(v)
	return p.b.String()
}

// PrintPretty renders a Value in diagnostic notation, breaking containers
// that would render long across indented lines. The output re-parses
// identically to Print's.
func PrintPretty(v cbor.Value) string {
	p := printer{pretty: true}
	p.value(v)
	return p.b.String()
}

type printer struct {
	b      strings.Builder
	pretty bool
	indent int
}

func (p *printer) value(v cbor.Value) {
	switch v := v.(type) {
	case cbor.Uint:
		p.b.WriteString(strconv.FormatUint(v.Value, 10))
		p.b.WriteString(intSuffix(v.Width))
	case cbor.NegInt:
		p.b.WriteString(negText(v.Value))
		p.b.WriteString(intSuffix(v.Width))
	case cbor.Slice:
		p.slice(v)
	case cbor.String:
		p.string(v)
	case cbor.List:
		trivial := p.trivial(v)
		p.container("[", "]", v.Indefinite, trivial, len(v.Items), func(i int) {
			p.value(v.Items[i])
		})
	case cbor.Map:
		trivial := p.trivial(v)
		p.container("{", "}", v.Indefinite, trivial, len(v.Entries), func(i int) {
			p.value(v.Entries[i].Key)
			p.b.WriteString(": ")
			p.value(v.Entries[i].Value)
		})
	case cbor.Tag:
		p.tag(v)
	case cbor.Simple:
		p.b.WriteString(simpleText(v))
	case cbor.Float:
		p.b.WriteString(floatText(v))
	}
}

func (p *printer) slice(v cbor.Slice) {
	if !v.Indefinite && len(v.Chunks) <= 1 {
		p.b.WriteString("h'")
		if len(v.Chunks) == 1 {
			p.b.WriteString(hex.EncodeToString(v.Chunks[0].Data))
		}
		p.b.WriteString("'")
		return
	}
	p.container("(", ")", true, p.trivial(v), len(v.Chunks), func(i int) {
		p.b.WriteString("h'")
		p.b.WriteString(hex.EncodeToString(v.Chunks[i].Data))
		p.b.WriteString("'")
	})
}

func (p *printer) string(v cbor.String) {
	if !v.Indefinite && len(v.Chunks) <= 1 {
		var data string
		if len(v.Chunks) == 1 {
			data = v.Chunks[0].Data
		}
		p.b.WriteString(quote(data))
		return
	}
	p.container("(", ")", true, p.trivial(v), len(v.Chunks), func(i int) {
		p.b.WriteString(quote(v.Chunks[i].Data))
	})
}

func (p *printer) container(begin, end string, indefinite, trivial bool, n int, item func(int)) {
	p.b.WriteString(begin)
	if indefinite {
		p.b.WriteString("_")
		if trivial {
			p.b.WriteString(" ")
		}
	}
	if trivial {
		for i := 0; i < n; i++ {
			if i > 0 {
				p.b.WriteString(", ")
			}
			item(i)
		}
	} else {
		p.indent += 4
		for i := 0; i < n; i++ {
			p.b.WriteString("\n")
			p.b.WriteString(strings.Repeat(" ", p.indent))
			item(i)
			p.b.WriteString(",")
		}
		p.indent -= 4
		p.b.WriteString("\n")
		p.b.WriteString(strings.Repeat(" ", p.indent))
	}
	p.b.WriteString(end)
}

func (p *printer) tag(v cbor.Tag) {
	if e, ok := tags.Lookup(v.Number); ok && e.Diag != nil {
		if s, err := e.Diag(v, Print); err == nil {
			p.b.WriteString(s)
			return
		}
	}

	p.b.WriteString(strconv.FormatUint(v.Number, 10))
	p.b.WriteString(intSuffix(v.Width))
	p.b.WriteString("(")
	p.value(v.Value)
	p.b.WriteString(")")
}

// trivial reports whether v should stay on one line.
func (p *printer) trivial(v cbor.Value) bool {
	return !p.pretty || estimate(v, trivialLimit) < trivialLimit
}

// estimate approximates the single-line rendering length of v, giving up
// once it reaches max.
func estimate(v cbor.Value, max int) int {
	switch v := v.(type) {
	case cbor.Uint:
		return len(strconv.FormatUint(v.Value, 10)) + 2
	case cbor.NegInt:
		return len(negText(v.Value)) + 3
	case cbor.Slice:
		n := 4
		for _, c := range v.Chunks {
			n += len(c.Data)*2 + 4
			if n >= max {
				return n
			}
		}
		return n
	case cbor.String:
		n := 4
		for _, c := range v.Chunks {
			n += len(c.Data) + 2
			if n >= max {
				return n
			}
		}
		return n
	case cbor.List:
		n := 4
		for _, item := range v.Items {
			n += estimate(item, max-n) + 2
			if n >= max {
				return n
			}
		}
		return n
	case cbor.Map:
		n := 4
		for _, e := range v.Entries {
			n += estimate(e.Key, max-n) + 2
			if n >= max {
				return n
			}
			n += estimate(e.Value, max-n) + 2
			if n >= max {
				return n
			}
		}
		return n
	case cbor.Tag:
		n := len(strconv.FormatUint(v.Number, 10)) + 2
		if n < max {
			n += estimate(v.Value, max-n)
		}
		return n
	case cbor.Simple:
		return len(simpleText(v))
	case cbor.Float:
		return len(floatText(v))
	}
	return 0
}

// negText renders the integer represented by a major type 1 argument.
func negText(arg uint64) string {
	if arg == math.MaxUint64 {
		return "-18446744073709551616"
	}
	return "-" + strconv.FormatUint(arg+1, 10)
}

func intSuffix(w cbor.Width) string {
	switch w {
	case cbor.Width8:
		return "_0"
	case cbor.Width16:
		return "_1"
	case cbor.Width32:
		return "_2"
	case cbor.Width64:
		return "_3"
	}
	return ""
}

func simpleText(v cbor.Simple) string {
	switch v {
	case cbor.SimpleFalse:
		return "false"
	case cbor.SimpleTrue:
		return "true"
	case cbor.SimpleNull:
		return "null"
	case cbor.SimpleUndefined:
		return "undefined"
	}
	return "simple(" + strconv.Itoa(int(v)) + ")"
}

func floatText(v cbor.Float) string {
	var suffix string
	var f float64
	switch v.Width {
	case cbor.Width16:
		suffix = "_1"
		f = float16.To64(uint16(v.Bits))
	case cbor.Width32:
		suffix = "_2"
		f = float64(math.Float32frombits(uint32(v.Bits)))
	case cbor.Width64:
		suffix = "_3"
		f = math.Float64frombits(v.Bits)
	default:
		f = math.Float64frombits(v.Bits)
	}

	switch {
	case math.IsNaN(f):
		return "NaN" + suffix
	case math.IsInf(f, 1):
		return "Infinity" + suffix
	case math.IsInf(f, -1):
		return "-Infinity" + suffix
	}

	var s string
	switch v.Width {
	case cbor.Width16:
		s = shortest16(f, uint16(v.Bits))
	case cbor.Width32:
		s = strconv.FormatFloat(f, 'g', -1, 32)
	default:
		s = strconv.FormatFloat(f, 'g', -1, 64)
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s + suffix
}

// shortest16 finds the shortest decimal string that converts back to the
// same half-precision bit pattern. strconv has no 16-bit shortest mode, so
// widen the precision until the round trip holds.
func shortest16(f float64, bits uint16) string {
	for prec := 1; prec <= 17; prec++ {
		s := strconv.FormatFloat(f, 'g', prec, 64)
		if v, err := strconv.ParseFloat(s, 64); err == nil && float16.From64(v) == bits {
			return s
		}
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// quote renders a text string literal, escaping only the two characters the
// notation reserves.
func quote(s string) string {
	var b strings.Builder
	b.WriteString("\"")
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteString("\"")
	return b.String()
}
