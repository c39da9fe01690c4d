package hexfmt

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Nemo157/cbor-diag/cbor"
	"github.com/Nemo157/cbor-diag/diag"
	"github.com/Nemo157/cbor-diag/tags"
)

// string data is chunked onto lines of this many bytes
const lineBytes = 16

// Annotate decodes the given bytes and renders them as annotated hex. It
// fails only when cbor.Decode fails, with the same error and offset.
func Annotate(p []byte) (string, error) {
	v, err := cbor.Decode(p)
	if err != nil {
		return "", err
	}
	return AnnotateValue(v), nil
}

// AnnotateValue renders the encoding of a Value as annotated hex. Because
// Values carry their exact wire layout, the octets shown are identical to
// cbor.Encode's output.
func AnnotateValue(v cbor.Value) string {
	var a annotator
	a.item(v, 0)

	width := 0
	for _, l := range a.lines {
		if n := l.indent + len(l.hex); n > width {
			width = n
		}
	}

	var b strings.Builder
	for _, l := range a.lines {
		b.WriteString(strings.Repeat(" ", l.indent))
		b.WriteString(l.hex)
		b.WriteString(strings.Repeat(" ", width-l.indent-len(l.hex)+1))
		b.WriteString("# ")
		b.WriteString(l.comment)
		b.WriteString("\n")
	}
	return b.String()
}

type line struct {
	indent  int
	hex     string
	comment string
}

type annotator struct {
	lines []line
}

func (a *annotator) add(indent int, hex, comment string) {
	a.lines = append(a.lines, line{indent: indent, hex: hex, comment: comment})
}

func (a *annotator) item(v cbor.Value, indent int) {
	switch v := v.(type) {
	case cbor.Uint:
		a.add(indent, headerHex(0, v.Width, v.Value), fmt.Sprintf("unsigned(%d)", v.Value))
	case cbor.NegInt:
		a.add(indent, headerHex(1, v.Width, v.Value), fmt.Sprintf("negative(%d)", v.Value))
	case cbor.Slice:
		a.chunked(2, "bytes", v.Indefinite || len(v.Chunks) > 1, indent, len(v.Chunks), func(i int) ([]byte, cbor.Width) {
			return v.Chunks[i].Data, v.Chunks[i].Width
		})
	case cbor.String:
		a.chunked(3, "text", v.Indefinite || len(v.Chunks) > 1, indent, len(v.Chunks), func(i int) ([]byte, cbor.Width) {
			return []byte(v.Chunks[i].Data), v.Chunks[i].Width
		})
	case cbor.List:
		if v.Indefinite {
			a.add(indent, "9f", "array(*)")
		} else {
			a.add(indent, headerHex(4, v.Width, uint64(len(v.Items))), fmt.Sprintf("array(%d)", len(v.Items)))
		}
		for _, item := range v.Items {
			a.item(item, indent+3)
		}
		if v.Indefinite {
			a.add(indent, "ff", "break")
		}
	case cbor.Map:
		if v.Indefinite {
			a.add(indent, "bf", "map(*)")
		} else {
			a.add(indent, headerHex(5, v.Width, uint64(len(v.Entries))), fmt.Sprintf("map(%d)", len(v.Entries)))
		}
		for _, e := range v.Entries {
			a.item(e.Key, indent+3)
			a.item(e.Value, indent+3)
		}
		if v.Indefinite {
			a.add(indent, "ff", "break")
		}
	case cbor.Tag:
		comment := fmt.Sprintf("tag(%d)", v.Number)
		if name := tags.Name(v.Number); name != "" {
			comment = name + ", " + comment
		}
		a.add(indent, headerHex(6, v.Width, v.Number), comment)
		a.item(v.Value, indent+3)
	case cbor.Simple:
		a.simple(v, indent)
	case cbor.Float:
		a.float(v, indent)
	}
}

// chunked renders a byte or text string: a header line per chunk followed
// by the data in 16-byte runs with an escaped preview.
func (a *annotator) chunked(major byte, kind string, indefinite bool, indent, n int, chunk func(int) ([]byte, cbor.Width)) {
	if !indefinite {
		var data []byte
		w := cbor.WidthAuto
		if n == 1 {
			data, w = chunk(0)
		}
		a.definiteChunk(major, kind, data, w, indent)
		return
	}

	a.add(indent, fmt.Sprintf("%02x", major<<5|31), kind+"(*)")
	for i := 0; i < n; i++ {
		data, w := chunk(i)
		a.definiteChunk(major, kind, data, w, indent+3)
	}
	a.add(indent, "ff", "break")
}

func (a *annotator) definiteChunk(major byte, kind string, data []byte, w cbor.Width, indent int) {
	a.add(indent, headerHex(major, w, uint64(len(data))), fmt.Sprintf("%s(%d)", kind, len(data)))
	if len(data) == 0 {
		a.add(indent+3, "", `""`)
		return
	}
	for off := 0; off < len(data); off += lineBytes {
		run := data[off:min(off+lineBytes, len(data))]
		a.add(indent+3, hex.EncodeToString(run), strconv.Quote(string(run)))
	}
}

func (a *annotator) simple(v cbor.Simple, indent int) {
	var h string
	if v < 24 {
		h = fmt.Sprintf("%02x", 7<<5|byte(v))
	} else {
		h = fmt.Sprintf("f8 %02x", byte(v))
	}

	var kind string
	switch {
	case v == cbor.SimpleFalse:
		kind = "false"
	case v == cbor.SimpleTrue:
		kind = "true"
	case v == cbor.SimpleNull:
		kind = "null"
	case v == cbor.SimpleUndefined:
		kind = "undefined"
	case v >= 24 && v < 32:
		kind = "reserved"
	default:
		kind = "unassigned"
	}
	a.add(indent, h, fmt.Sprintf("%s, simple(%d)", kind, v))
}

func (a *annotator) float(v cbor.Float, indent int) {
	var h string
	switch v.Width {
	case cbor.Width16:
		h = fmt.Sprintf("f9 %04x", uint16(v.Bits))
	case cbor.Width32:
		h = fmt.Sprintf("fa %08x", uint32(v.Bits))
	default:
		h = fmt.Sprintf("fb %016x", v.Bits)
	}
	a.add(indent, h, fmt.Sprintf("float(%s)", floatComment(v)))
}

// floatComment is the diagnostic rendering of the value without its width
// suffix; the hex octets already say how wide it is.
func floatComment(v cbor.Float) string {
	s := diag.Print(v)
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[:i]
	}
	return s
}

// headerHex renders an item's initial byte and argument: the initial byte,
// then the big-endian argument as one hex group when a wider encoding
// carries it out of line.
func headerHex(major byte, w cbor.Width, arg uint64) string {
	if w == cbor.WidthAuto {
		w = cbor.MinimalWidth(arg)
	}
	switch w {
	case cbor.WidthZero:
		return fmt.Sprintf("%02x", major<<5|byte(arg))
	case cbor.Width8:
		return fmt.Sprintf("%02x %02x", major<<5|24, byte(arg))
	case cbor.Width16:
		return fmt.Sprintf("%02x %04x", major<<5|25, uint16(arg))
	case cbor.Width32:
		return fmt.Sprintf("%02x %08x", major<<5|26, uint32(arg))
	}
	var p [8]byte
	binary.BigEndian.PutUint64(p[:], arg)
	return fmt.Sprintf("%02x %s", major<<5|27, hex.EncodeToString(p[:]))
}
