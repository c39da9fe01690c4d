// Package cbordiag converts among three representations of CBOR data
// (RFC 8949): raw binary bytes, annotated hexadecimal text, and diagnostic
// notation. Any of the three parses into one cbor.Value tree, and any
// output form is rendered by walking that same tree; widths, indefinite
// length markers and float bit patterns survive the round trip.
//
// The heavy lifting lives in the subpackages (cbor, diag, hexfmt, tags);
// this package ties them together into the conversion entry points the
// cbor-diag CLI consumes.
package cbordiag

import (
	"encoding/hex"
	"math"
	"math/big"

	"github.com/Nemo157/cbor-diag/cbor"
	"github.com/Nemo157/cbor-diag/diag"
	"github.com/Nemo157/cbor-diag/hexfmt"
	"github.com/Nemo157/cbor-diag/internal/float16"
	"github.com/Nemo157/cbor-diag/tags"
)

// ParseBytes decodes one binary-encoded data item.
func ParseBytes(p []byte) (cbor.Value, error) {
	return cbor.Decode(p)
}

// ParseBytesPartial decodes the first data item of a CBOR sequence and
// returns the number of bytes it occupied.
func ParseBytesPartial(p []byte) (cbor.Value, int, error) {
	return cbor.DecodePartial(p)
}

// ParseHex decodes one data item from hex text (whitespace and # comments
// ignored, so annotated hex parses too).
func ParseHex(s string) (cbor.Value, error) {
	p, err := hexfmt.Decode(s)
	if err != nil {
		return nil, err
	}
	return cbor.Decode(p)
}

// ParseDiag reads one data item in diagnostic notation.
func ParseDiag(s string) (cbor.Value, error) {
	return diag.Parse(s)
}

// ToBytes returns the binary encoding of a Value.
func ToBytes(v cbor.Value) []byte {
	return cbor.Encode(v)
}

// ToHex renders a Value as annotated hex.
func ToHex(v cbor.Value) string {
	return hexfmt.AnnotateValue(v)
}

// ToPlainHex renders a Value's binary encoding as bare lowercase hex.
func ToPlainHex(v cbor.Value) string {
	return hex.EncodeToString(cbor.Encode(v))
}

// ToDiag renders a Value in single-line diagnostic notation.
func ToDiag(v cbor.Value) string {
	return diag.Print(v)
}

// ToDiagPretty renders a Value in diagnostic notation with long containers
// broken across indented lines.
func ToDiagPretty(v cbor.Value) string {
	return diag.PrintPretty(v)
}

// Plain converts a Value tree to plain Go values for JSON interop and
// JMESPath queries: numbers become float64 (lossy beyond 53 bits), byte
// strings become lowercase hex, maps become map[string]any keyed by the
// key's diagnostic text (duplicate keys keep the last value), tags are
// transparent, and null/undefined become nil.
func Plain(v cbor.Value) any {
	switch v := v.(type) {
	case cbor.Uint:
		return float64(v.Value)
	case cbor.NegInt:
		return -1 - float64(v.Value)
	case cbor.Slice:
		return hex.EncodeToString(v.Contents())
	case cbor.String:
		return v.Contents()
	case cbor.List:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = Plain(item)
		}
		return items
	case cbor.Map:
		m := make(map[string]any, len(v.Entries))
		for _, e := range v.Entries {
			var key string
			if s, ok := e.Key.(cbor.String); ok {
				key = s.Contents()
			} else {
				key = diag.Print(e.Key)
			}
			m[key] = Plain(e.Value)
		}
		return m
	case cbor.Tag:
		if i, ok := tags.Integer(v); ok {
			f, _ := new(big.Float).SetInt(i).Float64()
			return f
		}
		return Plain(v.Value)
	case cbor.Simple:
		switch v {
		case cbor.SimpleFalse:
			return false
		case cbor.SimpleTrue:
			return true
		case cbor.SimpleNull, cbor.SimpleUndefined:
			return nil
		}
		return float64(v)
	case cbor.Float:
		var f float64
		switch v.Width {
		case cbor.Width16:
			f = float16.To64(uint16(v.Bits))
		case cbor.Width32:
			f = float64(math.Float32frombits(uint32(v.Bits)))
		default:
			f = math.Float64frombits(v.Bits)
		}
		return f
	}
	return nil
}
