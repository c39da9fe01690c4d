// Package cbor implements encoding and decoding of concise binary object
// representation (CBOR) described in RFC 8949.
//
// Unlike codecs that convert to and from Go native types, this package
// decodes into a syntax tree that retains the exact wire layout of every
// data item: argument widths, indefinite-length markers, string chunk
// boundaries and float bit patterns all survive a decode/encode round trip,
// so Encode(Decode(p)) reproduces p byte for byte on well-formed input.
//
// Decoding recurses with input-controlled depth. A Decoder bounds the
// nesting it will follow (DefaultMaxDepth unless configured); callers
// feeding untrusted input should keep that guard in place.
package cbor

// majorType enumerates CBOR major types.
type majorType byte

const (
	majorTypeUint majorType = iota
	majorTypeNegInt
	majorTypeSlice
	majorTypeString
	majorTypeList
	majorTypeMap
	majorTypeTag
	majorType7
)

// minor values of major type 7
const (
	major7False     = 20
	major7True      = 21
	major7Nil       = 22
	major7Undefined = 23
	major7Byte      = 24
	major7Float16   = 25
	major7Float32   = 26
	major7Float64   = 27
)

const minorIndefinite = 31

// Width selects the encoding of a data item's argument (its value, length,
// count or tag number).
type Width int8

// Enumeration of argument widths.
const (
	// WidthAuto lets the encoder pick the smallest encoding that fits. The
	// diagnostic notation parser produces it for unsuffixed literals.
	WidthAuto Width = iota - 1
	// WidthZero embeds the argument in the initial byte (values 0 to 23).
	WidthZero
	Width8
	Width16
	Width32
	Width64
)

// Value describes a CBOR data item.
//
// The following types implement Value:
//   - Uint
//   - NegInt
//   - Slice
//   - String
//   - List
//   - Map
//   - Tag
//   - Simple
//   - Float
type Value interface {
	length() int
	encode(p []byte) int
}

var (
	_ Value = Uint{}
	_ Value = NegInt{}
	_ Value = Slice{}
	_ Value = String{}
	_ Value = List{}
	_ Value = Map{}
	_ Value = Tag{}
	_ Value = Simple(0)
	_ Value = Float{}
)

// Uint describes a CBOR unsigned integer (major type 0).
type Uint struct {
	Value uint64
	Width Width
}

// NegInt describes a CBOR negative integer (major type 1).
//
// Value holds the encoded argument; the integer represented is -1 - Value.
// The full range down to -2^64 is therefore expressible without overflow.
type NegInt struct {
	Value uint64
	Width Width
}

// SliceChunk is one definite-length run of bytes inside a Slice.
type SliceChunk struct {
	Data  []byte
	Width Width
}

// Slice describes a CBOR byte string (major type 2).
//
// A definite-length string has exactly one chunk. More than one chunk (or
// the Indefinite flag, which is what preserves single- and zero-chunk
// indefinite strings) makes the encoder emit the indefinite-length form with
// one definite segment per chunk and a closing break.
type Slice struct {
	Chunks     []SliceChunk
	Indefinite bool
}

// Contents returns the concatenation of all chunks.
func (s Slice) Contents() []byte {
	if len(s.Chunks) == 1 {
		return s.Chunks[0].Data
	}
	var p []byte
	for _, c := range s.Chunks {
		p = append(p, c.Data...)
	}
	return p
}

// StringChunk is one definite-length run of text inside a String. Data is
// valid UTF-8.
type StringChunk struct {
	Data  string
	Width Width
}

// String describes a CBOR text string (major type 3). Chunking follows the
// same rules as Slice.
type String struct {
	Chunks     []StringChunk
	Indefinite bool
}

// Contents returns the concatenation of all chunks.
func (s String) Contents() string {
	if len(s.Chunks) == 1 {
		return s.Chunks[0].Data
	}
	var b []byte
	for _, c := range s.Chunks {
		b = append(b, c.Data...)
	}
	return string(b)
}

// List describes a CBOR array (major type 4). Width records the encoding of
// the declared length and is ignored when Indefinite is set.
type List struct {
	Items      []Value
	Width      Width
	Indefinite bool
}

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   Value
	Value Value
}

// Map describes a CBOR map (major type 5). Entries preserve insertion order,
// keys may be any Value, and duplicate keys round-trip unchanged.
type Map struct {
	Entries    []Entry
	Width      Width
	Indefinite bool
}

// Tag describes a CBOR tagged value (major type 6). Width records the
// encoding of the tag number.
type Tag struct {
	Number uint64
	Width  Width
	Value  Value
}

// Simple describes a CBOR simple value (major type 7, minor 0-19 and 24-31
// via the two-byte form). The four named literals are included.
type Simple byte

// The named simple values.
const (
	SimpleFalse     Simple = 20
	SimpleTrue      Simple = 21
	SimpleNull      Simple = 22
	SimpleUndefined Simple = 23
)

// Float describes a CBOR floating-point number (major type 7, minor 25-27).
//
// Bits holds the exact bit pattern at the stored width (half-precision bits
// occupy the low 16 bits and so on), so NaN payloads, negative zero and
// subnormal halves are preserved. WidthAuto means a 64-bit pattern that
// encodes as a double.
type Float struct {
	Bits  uint64
	Width Width
}

// Equal reports whether two Values are structurally identical, including
// widths, indefinite flags and chunk boundaries.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Uint:
		bv, ok := b.(Uint)
		return ok && av == bv
	case NegInt:
		bv, ok := b.(NegInt)
		return ok && av == bv
	case Slice:
		bv, ok := b.(Slice)
		if !ok || av.Indefinite != bv.Indefinite || len(av.Chunks) != len(bv.Chunks) {
			return false
		}
		for i, c := range av.Chunks {
			if c.Width != bv.Chunks[i].Width || string(c.Data) != string(bv.Chunks[i].Data) {
				return false
			}
		}
		return true
	case String:
		bv, ok := b.(String)
		if !ok || av.Indefinite != bv.Indefinite || len(av.Chunks) != len(bv.Chunks) {
			return false
		}
		for i, c := range av.Chunks {
			if c != bv.Chunks[i] {
				return false
			}
		}
		return true
	case List:
		bv, ok := b.(List)
		if !ok || av.Indefinite != bv.Indefinite || av.Width != bv.Width || len(av.Items) != len(bv.Items) {
			return false
		}
		for i, item := range av.Items {
			if !Equal(item, bv.Items[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || av.Indefinite != bv.Indefinite || av.Width != bv.Width || len(av.Entries) != len(bv.Entries) {
			return false
		}
		for i, e := range av.Entries {
			if !Equal(e.Key, bv.Entries[i].Key) || !Equal(e.Value, bv.Entries[i].Value) {
				return false
			}
		}
		return true
	case Tag:
		bv, ok := b.(Tag)
		return ok && av.Number == bv.Number && av.Width == bv.Width && Equal(av.Value, bv.Value)
	case Simple:
		bv, ok := b.(Simple)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	}
	return false
}
