package cbor

import "encoding/binary"

// Encode returns the byte encoding of the given Value.
//
// Encode is total: it never fails on any Value built from the exported
// variants. Fixed widths are emitted as-is, so a Value carrying an argument
// that does not fit its declared width is a programming error on the
// caller's side, not an encoding error.
func Encode(v Value) []byte {
	p := make([]byte, v.length())
	v.encode(p)
	return p
}

func (i Uint) length() int {
	return arglen(i.Width, i.Value)
}

func (i Uint) encode(p []byte) int {
	return encodeArg(majorTypeUint, i.Width, i.Value, p)
}

func (i NegInt) length() int {
	return arglen(i.Width, i.Value)
}

func (i NegInt) encode(p []byte) int {
	return encodeArg(majorTypeNegInt, i.Width, i.Value, p)
}

func (s Slice) length() int {
	if s.indefinite() {
		total := 2 // header + break
		for _, c := range s.Chunks {
			total += arglen(c.Width, uint64(len(c.Data))) + len(c.Data)
		}
		return total
	}
	if len(s.Chunks) == 0 {
		return 1
	}
	c := s.Chunks[0]
	return arglen(c.Width, uint64(len(c.Data))) + len(c.Data)
}

func (s Slice) encode(p []byte) int {
	return encodeChunked(majorTypeSlice, s.indefinite(), s.Chunks, p, func(c SliceChunk) ([]byte, Width) {
		return c.Data, c.Width
	})
}

func (s Slice) indefinite() bool {
	return s.Indefinite || len(s.Chunks) > 1
}

func (s String) length() int {
	if s.indefinite() {
		total := 2
		for _, c := range s.Chunks {
			total += arglen(c.Width, uint64(len(c.Data))) + len(c.Data)
		}
		return total
	}
	if len(s.Chunks) == 0 {
		return 1
	}
	c := s.Chunks[0]
	return arglen(c.Width, uint64(len(c.Data))) + len(c.Data)
}

func (s String) encode(p []byte) int {
	return encodeChunked(majorTypeString, s.indefinite(), s.Chunks, p, func(c StringChunk) ([]byte, Width) {
		return []byte(c.Data), c.Width
	})
}

func (s String) indefinite() bool {
	return s.Indefinite || len(s.Chunks) > 1
}

func encodeChunked[C any](t majorType, indefinite bool, chunks []C, p []byte, data func(C) ([]byte, Width)) int {
	if !indefinite {
		if len(chunks) == 0 {
			p[0] = compose(t, 0)
			return 1
		}
		d, w := data(chunks[0])
		off := encodeArg(t, w, uint64(len(d)), p)
		copy(p[off:], d)
		return off + len(d)
	}

	p[0] = compose(t, minorIndefinite)
	off := 1
	for _, c := range chunks {
		d, w := data(c)
		off += encodeArg(t, w, uint64(len(d)), p[off:])
		copy(p[off:], d)
		off += len(d)
	}
	p[off] = 0xff
	return off + 1
}

func (l List) length() int {
	total := 0
	if l.Indefinite {
		total = 2
	} else {
		total = arglen(l.Width, uint64(len(l.Items)))
	}
	for _, v := range l.Items {
		total += v.length()
	}
	return total
}

func (l List) encode(p []byte) int {
	var off int
	if l.Indefinite {
		p[0] = compose(majorTypeList, minorIndefinite)
		off = 1
	} else {
		off = encodeArg(majorTypeList, l.Width, uint64(len(l.Items)), p)
	}
	for _, v := range l.Items {
		off += v.encode(p[off:])
	}
	if l.Indefinite {
		p[off] = 0xff
		off++
	}
	return off
}

func (m Map) length() int {
	total := 0
	if m.Indefinite {
		total = 2
	} else {
		total = arglen(m.Width, uint64(len(m.Entries)))
	}
	for _, e := range m.Entries {
		total += e.Key.length() + e.Value.length()
	}
	return total
}

func (m Map) encode(p []byte) int {
	var off int
	if m.Indefinite {
		p[0] = compose(majorTypeMap, minorIndefinite)
		off = 1
	} else {
		off = encodeArg(majorTypeMap, m.Width, uint64(len(m.Entries)), p)
	}
	for _, e := range m.Entries {
		off += e.Key.encode(p[off:])
		off += e.Value.encode(p[off:])
	}
	if m.Indefinite {
		p[off] = 0xff
		off++
	}
	return off
}

func (t Tag) length() int {
	return arglen(t.Width, t.Number) + t.Value.length()
}

func (t Tag) encode(p []byte) int {
	off := encodeArg(majorTypeTag, t.Width, t.Number, p)
	return off + t.Value.encode(p[off:])
}

func (s Simple) length() int {
	if s < 24 {
		return 1
	}
	return 2
}

func (s Simple) encode(p []byte) int {
	if s < 24 {
		p[0] = compose(majorType7, byte(s))
		return 1
	}
	p[0] = compose(majorType7, major7Byte)
	p[1] = byte(s)
	return 2
}

func (f Float) length() int {
	switch f.Width {
	case Width16:
		return 3
	case Width32:
		return 5
	default:
		return 9
	}
}

func (f Float) encode(p []byte) int {
	switch f.Width {
	case Width16:
		p[0] = compose(majorType7, major7Float16)
		binary.BigEndian.PutUint16(p[1:], uint16(f.Bits))
		return 3
	case Width32:
		p[0] = compose(majorType7, major7Float32)
		binary.BigEndian.PutUint32(p[1:], uint32(f.Bits))
		return 5
	default:
		p[0] = compose(majorType7, major7Float64)
		binary.BigEndian.PutUint64(p[1:], f.Bits)
		return 9
	}
}

func compose(t majorType, minor byte) byte {
	return byte(t)<<5 | minor
}

// MinimalWidth returns the smallest width whose argument encoding fits v.
// It is what WidthAuto resolves to at encode time.
func MinimalWidth(v uint64) Width {
	if v < 24 {
		return WidthZero
	} else if v < 0x100 {
		return Width8
	} else if v < 0x10000 {
		return Width16
	} else if v < 0x100000000 {
		return Width32
	}
	return Width64
}

func arglen(w Width, v uint64) int {
	if w == WidthAuto {
		w = MinimalWidth(v)
	}
	switch w {
	case WidthZero:
		return 1
	case Width8:
		return 2
	case Width16:
		return 3
	case Width32:
		return 5
	}
	return 9
}

func encodeArg(t majorType, w Width, v uint64, p []byte) int {
	if w == WidthAuto {
		w = MinimalWidth(v)
	}
	switch w {
	case WidthZero:
		p[0] = compose(t, byte(v))
		return 1
	case Width8:
		p[0] = compose(t, 24)
		p[1] = byte(v)
		return 2
	case Width16:
		p[0] = compose(t, 25)
		binary.BigEndian.PutUint16(p[1:], uint16(v))
		return 3
	case Width32:
		p[0] = compose(t, 26)
		binary.BigEndian.PutUint32(p[1:], uint32(v))
		return 5
	}
	p[0] = compose(t, 27)
	binary.BigEndian.PutUint64(p[1:], v)
	return 9
}
