package cbor

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// DefaultMaxDepth is the nesting bound applied by Decode and a zero-valued
// Decoder.
const DefaultMaxDepth = 2048

// cap on speculative prealloc for declared container lengths
const maxAlloc = 0xff

// Decode returns the Value encoded in the given byte slice. The slice must
// contain exactly one data item.
func Decode(p []byte) (Value, error) {
	return Decoder{}.Decode(p)
}

// DecodePartial decodes the first data item in the given byte slice and
// additionally returns the number of bytes it occupied. Trailing bytes are
// left for the caller, which is how CBOR sequences are consumed.
func DecodePartial(p []byte) (Value, int, error) {
	return Decoder{}.DecodePartial(p)
}

// A Decoder decodes data items with configurable limits.
type Decoder struct {
	// MaxDepth bounds container and tag nesting to protect the call stack
	// against adversarial input. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Decode returns the Value encoded in the given byte slice, rejecting
// trailing bytes.
func (d Decoder) Decode(p []byte) (Value, error) {
	v, n, err := d.DecodePartial(p)
	if err != nil {
		return nil, err
	}
	if n != len(p) {
		return nil, &DecodeError{Offset: n, Err: ErrTrailingBytes}
	}
	return v, nil
}

// DecodePartial decodes the first data item in the given byte slice.
func (d Decoder) DecodePartial(p []byte) (Value, int, error) {
	max := d.MaxDepth
	if max == 0 {
		max = DefaultMaxDepth
	}
	s := &decodeState{buf: p, max: max}
	v, err := s.value(0)
	if err != nil {
		return nil, 0, err
	}
	return v, s.off, nil
}

type decodeState struct {
	buf []byte
	off int
	max int
}

func (s *decodeState) fail(off int, err error) error {
	return &DecodeError{Offset: off, Err: err}
}

func (s *decodeState) value(depth int) (Value, error) {
	if depth > s.max {
		return nil, s.fail(s.off, ErrDepthExceeded)
	}
	if s.off >= len(s.buf) {
		return nil, s.fail(s.off, ErrUnexpectedEOF)
	}

	switch s.peekMajor() {
	case majorTypeUint:
		arg, w, err := s.argument()
		if err != nil {
			return nil, fmt.Errorf("decode argument: %w", err)
		}
		return Uint{Value: arg, Width: w}, nil
	case majorTypeNegInt:
		arg, w, err := s.argument()
		if err != nil {
			return nil, fmt.Errorf("decode argument: %w", err)
		}
		return NegInt{Value: arg, Width: w}, nil
	case majorTypeSlice:
		return s.slice()
	case majorTypeString:
		return s.string()
	case majorTypeList:
		return s.list(depth)
	case majorTypeMap:
		return s.mapping(depth)
	case majorTypeTag:
		return s.tag(depth)
	default: // majorType7
		return s.major7()
	}
}

func (s *decodeState) peekMajor() majorType {
	return majorType(s.buf[s.off] >> 5)
}

func (s *decodeState) peekMinor() byte {
	return s.buf[s.off] & 0b_11111
}

// argument pulls the sized argument of the item at the current offset. The
// indefinite minor is rejected here; callers that allow it check first.
func (s *decodeState) argument() (uint64, Width, error) {
	minor := s.peekMinor()
	if minor < 24 {
		s.off++
		return uint64(minor), WidthZero, nil
	}

	switch minor {
	case 24, 25, 26, 27:
		w := Width(minor - 23)
		n := 1 << (minor - 24)
		if len(s.buf)-s.off < n+1 {
			return 0, 0, s.fail(len(s.buf), ErrUnexpectedEOF)
		}
		arg := readArgument(s.buf[s.off+1:], n)
		s.off += n + 1
		return arg, w, nil
	case minorIndefinite:
		return 0, 0, s.fail(s.off, fmt.Errorf("%w: indefinite length not allowed here", ErrInvalidAdditionalInfo))
	default: // 28, 29, 30 are reserved
		return 0, 0, s.fail(s.off, fmt.Errorf("%w: minor value %d", ErrInvalidAdditionalInfo, minor))
	}
}

func readArgument(p []byte, n int) uint64 {
	switch n {
	case 1:
		return uint64(p[0])
	case 2:
		return uint64(binary.BigEndian.Uint16(p))
	case 4:
		return uint64(binary.BigEndian.Uint32(p))
	}
	return binary.BigEndian.Uint64(p)
}

// chunk reads one definite-length byte or text string segment.
func (s *decodeState) chunk(inner majorType) ([]byte, Width, error) {
	start := s.off
	slen, w, err := s.argument()
	if err != nil {
		return nil, 0, fmt.Errorf("decode argument: %w", err)
	}
	if uint64(len(s.buf)-s.off) < slen {
		return nil, 0, s.fail(len(s.buf), ErrUnexpectedEOF)
	}
	data := s.buf[s.off : s.off+int(slen)]
	if inner == majorTypeString && !utf8.Valid(data) {
		return nil, 0, s.fail(start, ErrInvalidUTF8)
	}
	s.off += int(slen)
	return data, w, nil
}

func (s *decodeState) slice() (Value, error) {
	if s.peekMinor() == minorIndefinite {
		chunks, err := sliceChunks(s, majorTypeSlice, func(data []byte, w Width) SliceChunk {
			return SliceChunk{Data: data, Width: w}
		})
		if err != nil {
			return nil, err
		}
		return Slice{Chunks: chunks, Indefinite: true}, nil
	}

	data, w, err := s.chunk(majorTypeSlice)
	if err != nil {
		return nil, err
	}
	return Slice{Chunks: []SliceChunk{{Data: data, Width: w}}}, nil
}

func (s *decodeState) string() (Value, error) {
	if s.peekMinor() == minorIndefinite {
		chunks, err := sliceChunks(s, majorTypeString, func(data []byte, w Width) StringChunk {
			return StringChunk{Data: string(data), Width: w}
		})
		if err != nil {
			return nil, err
		}
		return String{Chunks: chunks, Indefinite: true}, nil
	}

	data, w, err := s.chunk(majorTypeString)
	if err != nil {
		return nil, err
	}
	return String{Chunks: []StringChunk{{Data: string(data), Width: w}}}, nil
}

// sliceChunks reads the segments of an indefinite-length string. Segments
// must be definite strings of the same major type.
func sliceChunks[C any](s *decodeState, inner majorType, mk func([]byte, Width) C) ([]C, error) {
	s.off++ // indefinite header

	var chunks []C
	for s.off < len(s.buf) {
		if s.buf[s.off] == 0xff {
			s.off++
			return chunks, nil
		}
		if major := s.peekMajor(); major != inner {
			return nil, s.fail(s.off, fmt.Errorf("unexpected major type %d in indefinite string", major))
		}
		if s.peekMinor() == minorIndefinite {
			return nil, s.fail(s.off, fmt.Errorf("%w: nested indefinite string", ErrInvalidAdditionalInfo))
		}

		data, w, err := s.chunk(inner)
		if err != nil {
			return nil, fmt.Errorf("decode segment: %w", err)
		}
		chunks = append(chunks, mk(data, w))
	}
	return nil, s.fail(len(s.buf), ErrUnexpectedEOF)
}

func (s *decodeState) list(depth int) (Value, error) {
	if s.peekMinor() == minorIndefinite {
		s.off++
		l := List{Indefinite: true}
		for s.off < len(s.buf) {
			if s.buf[s.off] == 0xff {
				s.off++
				return l, nil
			}
			item, err := s.value(depth + 1)
			if err != nil {
				return nil, fmt.Errorf("decode item: %w", err)
			}
			l.Items = append(l.Items, item)
		}
		return nil, s.fail(len(s.buf), ErrUnexpectedEOF)
	}

	alen, w, err := s.argument()
	if err != nil {
		return nil, fmt.Errorf("decode argument: %w", err)
	}
	l := List{Items: make([]Value, 0, min(alen, maxAlloc)), Width: w}
	for i := uint64(0); i < alen; i++ {
		item, err := s.value(depth + 1)
		if err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		l.Items = append(l.Items, item)
	}
	return l, nil
}

func (s *decodeState) mapping(depth int) (Value, error) {
	if s.peekMinor() == minorIndefinite {
		s.off++
		m := Map{Indefinite: true}
		for s.off < len(s.buf) {
			if s.buf[s.off] == 0xff {
				s.off++
				return m, nil
			}
			e, err := s.entry(depth)
			if err != nil {
				return nil, err
			}
			m.Entries = append(m.Entries, e)
		}
		return nil, s.fail(len(s.buf), ErrUnexpectedEOF)
	}

	mlen, w, err := s.argument()
	if err != nil {
		return nil, fmt.Errorf("decode argument: %w", err)
	}
	m := Map{Entries: make([]Entry, 0, min(mlen, maxAlloc)), Width: w}
	for i := uint64(0); i < mlen; i++ {
		e, err := s.entry(depth)
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}

func (s *decodeState) entry(depth int) (Entry, error) {
	key, err := s.value(depth + 1)
	if err != nil {
		return Entry{}, fmt.Errorf("decode key: %w", err)
	}
	value, err := s.value(depth + 1)
	if err != nil {
		return Entry{}, fmt.Errorf("decode value: %w", err)
	}
	return Entry{Key: key, Value: value}, nil
}

func (s *decodeState) tag(depth int) (Value, error) {
	number, w, err := s.argument()
	if err != nil {
		return nil, fmt.Errorf("decode argument: %w", err)
	}
	v, err := s.value(depth + 1)
	if err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return Tag{Number: number, Width: w, Value: v}, nil
}

func (s *decodeState) major7() (Value, error) {
	start := s.off
	switch minor := s.peekMinor(); {
	case minor < 24:
		s.off++
		return Simple(minor), nil
	case minor == major7Byte:
		if len(s.buf)-s.off < 2 {
			return nil, s.fail(len(s.buf), ErrUnexpectedEOF)
		}
		code := s.buf[s.off+1]
		if code < 32 {
			return nil, s.fail(start, fmt.Errorf("%w: simple(%d)", ErrReservedSimpleCode, code))
		}
		s.off += 2
		return Simple(code), nil
	case minor == major7Float16:
		if len(s.buf)-s.off < 3 {
			return nil, s.fail(len(s.buf), ErrUnexpectedEOF)
		}
		bits := binary.BigEndian.Uint16(s.buf[s.off+1:])
		s.off += 3
		return Float{Bits: uint64(bits), Width: Width16}, nil
	case minor == major7Float32:
		if len(s.buf)-s.off < 5 {
			return nil, s.fail(len(s.buf), ErrUnexpectedEOF)
		}
		bits := binary.BigEndian.Uint32(s.buf[s.off+1:])
		s.off += 5
		return Float{Bits: uint64(bits), Width: Width32}, nil
	case minor == major7Float64:
		if len(s.buf)-s.off < 9 {
			return nil, s.fail(len(s.buf), ErrUnexpectedEOF)
		}
		bits := binary.BigEndian.Uint64(s.buf[s.off+1:])
		s.off += 9
		return Float{Bits: bits, Width: Width64}, nil
	case minor == minorIndefinite:
		return nil, s.fail(start, ErrBreakOutsideIndefinite)
	default: // 28, 29, 30 are reserved
		return nil, s.fail(start, fmt.Errorf("%w: minor value %d", ErrInvalidAdditionalInfo, minor))
	}
}
