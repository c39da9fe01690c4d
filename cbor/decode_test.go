package cbor

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	p, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return p
}

func TestDecode(t *testing.T) {
	cases := map[string]struct {
		in   string
		want Value
	}{
		"uint embedded": {
			in:   "00",
			want: Uint{Value: 0, Width: WidthZero},
		},
		"uint embedded max": {
			in:   "17",
			want: Uint{Value: 23, Width: WidthZero},
		},
		"uint overwide 8": {
			in:   "18 00",
			want: Uint{Value: 0, Width: Width8},
		},
		"uint overwide 16": {
			in:   "19 0001",
			want: Uint{Value: 1, Width: Width16},
		},
		"uint 64": {
			in:   "1b ffffffffffffffff",
			want: Uint{Value: 1<<64 - 1, Width: Width64},
		},
		"negative one": {
			in:   "20",
			want: NegInt{Value: 0, Width: WidthZero},
		},
		"negative min": {
			in:   "3b ffffffffffffffff",
			want: NegInt{Value: 1<<64 - 1, Width: Width64},
		},
		"empty bytes": {
			in:   "40",
			want: Slice{Chunks: []SliceChunk{{Width: WidthZero}}},
		},
		"definite bytes": {
			in:   "43 010203",
			want: Slice{Chunks: []SliceChunk{{Data: []byte{1, 2, 3}, Width: WidthZero}}},
		},
		"indefinite bytes": {
			in: "5f 41 01 42 0203 ff",
			want: Slice{
				Chunks: []SliceChunk{
					{Data: []byte{1}, Width: WidthZero},
					{Data: []byte{2, 3}, Width: WidthZero},
				},
				Indefinite: true,
			},
		},
		"empty indefinite bytes": {
			in:   "5f ff",
			want: Slice{Indefinite: true},
		},
		"definite text": {
			in:   "62 6869",
			want: String{Chunks: []StringChunk{{Data: "hi", Width: WidthZero}}},
		},
		"indefinite text": {
			in: "7f 61 61 62 6263 ff",
			want: String{
				Chunks: []StringChunk{
					{Data: "a", Width: WidthZero},
					{Data: "bc", Width: WidthZero},
				},
				Indefinite: true,
			},
		},
		"array": {
			in: "82 01 02",
			want: List{
				Items: []Value{Uint{Value: 1}, Uint{Value: 2}},
				Width: WidthZero,
			},
		},
		"indefinite array": {
			in: "9f 01 02 ff",
			want: List{
				Items:      []Value{Uint{Value: 1}, Uint{Value: 2}},
				Indefinite: true,
			},
		},
		"map": {
			in: "a1 61 61 01",
			want: Map{
				Entries: []Entry{{
					Key:   String{Chunks: []StringChunk{{Data: "a"}}},
					Value: Uint{Value: 1},
				}},
				Width: WidthZero,
			},
		},
		"indefinite map": {
			in: "bf 61 61 01 ff",
			want: Map{
				Entries: []Entry{{
					Key:   String{Chunks: []StringChunk{{Data: "a"}}},
					Value: Uint{Value: 1},
				}},
				Indefinite: true,
			},
		},
		"tag": {
			in: "c1 1a 514b67b0",
			want: Tag{
				Number: 1,
				Width:  WidthZero,
				Value:  Uint{Value: 1363896240, Width: Width32},
			},
		},
		"wide tag number": {
			in: "d9 d9f7 01",
			want: Tag{
				Number: 55799,
				Width:  Width16,
				Value:  Uint{Value: 1},
			},
		},
		"false":     {in: "f4", want: SimpleFalse},
		"true":      {in: "f5", want: SimpleTrue},
		"null":      {in: "f6", want: SimpleNull},
		"undefined": {in: "f7", want: SimpleUndefined},
		"unassigned simple": {
			in:   "f0",
			want: Simple(16),
		},
		"two byte simple": {
			in:   "f8 ff",
			want: Simple(255),
		},
		"float16": {
			in:   "f9 7e00",
			want: Float{Bits: 0x7e00, Width: Width16},
		},
		"float32": {
			in:   "fa 47c35000",
			want: Float{Bits: 0x47c35000, Width: Width32},
		},
		"float64": {
			in:   "fb 7ff8000000000000",
			want: Float{Bits: 0x7ff8000000000000, Width: Width64},
		},
	}
	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Decode(mustHex(t, tt.in))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
			if !Equal(tt.want, got) {
				t.Errorf("Equal(%v, %v) = false", tt.want, got)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]struct {
		in   string
		want error
	}{
		"empty input":              {in: "", want: ErrUnexpectedEOF},
		"truncated argument":       {in: "19 00", want: ErrUnexpectedEOF},
		"truncated string":         {in: "62 68", want: ErrUnexpectedEOF},
		"unterminated indefinite":  {in: "5f", want: ErrUnexpectedEOF},
		"unterminated array":       {in: "9f 01", want: ErrUnexpectedEOF},
		"reserved minor":           {in: "1c", want: ErrInvalidAdditionalInfo},
		"indefinite uint":          {in: "3f", want: ErrInvalidAdditionalInfo},
		"lone break":               {in: "ff", want: ErrBreakOutsideIndefinite},
		"invalid utf8":             {in: "62 c328", want: ErrInvalidUTF8},
		"reserved simple":          {in: "f8 18", want: ErrReservedSimpleCode},
		"trailing bytes":           {in: "01 02", want: ErrTrailingBytes},
		"nested indefinite string": {in: "5f 5f ff ff", want: ErrInvalidAdditionalInfo},
	}
	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(mustHex(t, tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("got error %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeErrorOffset(t *testing.T) {
	_, err := Decode(mustHex(t, "82 00 f8 18"))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("got %T, want *DecodeError", err)
	}
	if de.Offset != 2 {
		t.Errorf("offset = %d, want 2", de.Offset)
	}
	if !errors.Is(de, ErrReservedSimpleCode) {
		t.Errorf("unwrapped to %v, want %v", de.Err, ErrReservedSimpleCode)
	}
}

func TestDecodeMixedIndefiniteString(t *testing.T) {
	if _, err := Decode(mustHex(t, "5f 61 61 ff")); err == nil {
		t.Error("expected error for text chunk inside indefinite byte string")
	}
}

func TestDecodePartial(t *testing.T) {
	p := mustHex(t, "83 01 02 03 61 61")
	v, n, err := DecodePartial(p)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != 4 {
		t.Errorf("consumed %d bytes, want 4", n)
	}
	if _, ok := v.(List); !ok {
		t.Errorf("got %T, want List", v)
	}

	v, n, err = DecodePartial(p[4:])
	if err != nil {
		t.Fatalf("decode rest: %v", err)
	}
	if n != 2 {
		t.Errorf("consumed %d bytes, want 2", n)
	}
	if s, ok := v.(String); !ok || s.Contents() != "a" {
		t.Errorf("got %#v, want text \"a\"", v)
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	deep := make([]byte, 0, 12)
	for i := 0; i < 11; i++ {
		deep = append(deep, 0x81)
	}
	deep = append(deep, 0x01)

	if _, err := (Decoder{MaxDepth: 10}).Decode(deep); !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("got %v, want %v", err, ErrDepthExceeded)
	}
	if _, err := (Decoder{MaxDepth: 16}).Decode(deep); err != nil {
		t.Errorf("within limit: %v", err)
	}
}
