package hexfmt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	cases := map[string]struct {
		in   string
		want []byte
	}{
		"empty":          {in: "", want: nil},
		"plain":          {in: "820102", want: []byte{0x82, 0x01, 0x02}},
		"uppercase":      {in: "82FF", want: []byte{0x82, 0xff}},
		"spaced":         {in: "82 01 02", want: []byte{0x82, 0x01, 0x02}},
		"split nibbles":  {in: "8 2 0 1", want: []byte{0x82, 0x01}},
		"newlines":       {in: "82\n01\n02\n", want: []byte{0x82, 0x01, 0x02}},
		"line comments":  {in: "82 # array(2)\n   01 # unsigned(1)\n   02\n", want: []byte{0x82, 0x01, 0x02}},
		"comment only":   {in: "# nothing here\n", want: nil},
		"comment at eof": {in: "00 # no trailing newline", want: []byte{0x00}},
	}
	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Decode(tt.in)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Decode(%q) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]struct {
		in     string
		want   error
		offset int
	}{
		"odd digits":      {in: "abc", want: ErrOddLength, offset: 2},
		"odd with spaces": {in: "ab c", want: ErrOddLength, offset: 3},
		"bad digit":       {in: "0g", want: ErrInvalidDigit, offset: 1},
		"punctuation":     {in: "00,11", want: ErrInvalidDigit, offset: 2},
	}
	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got error %v, want %v", err, tt.want)
			}
			var he *Error
			if !errors.As(err, &he) {
				t.Fatalf("got %T, want *Error", err)
			}
			if he.Offset != tt.offset {
				t.Errorf("offset = %d, want %d", he.Offset, tt.offset)
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	cases := map[string]struct {
		in   []byte
		want string
	}{
		"array of ints": {
			in: []byte{0x82, 0x01, 0x02},
			want: "" +
				"82    # array(2)\n" +
				"   01 # unsigned(1)\n" +
				"   02 # unsigned(2)\n",
		},
		"text with data lines": {
			in: []byte{0x62, 0x68, 0x69},
			want: "" +
				"62      # text(2)\n" +
				"   6869 # \"hi\"\n",
		},
		"empty text": {
			in: []byte{0x60},
			want: "" +
				"60  # text(0)\n" +
				"    # \"\"\n",
		},
		"overwide argument": {
			in: []byte{0x19, 0x00, 0x01},
			want: "" +
				"19 0001 # unsigned(1)\n",
		},
		"negative": {
			in:   []byte{0x38, 0x63},
			want: "38 63 # negative(99)\n",
		},
		"named tag": {
			in: []byte{0xc2, 0x42, 0x01, 0x02},
			want: "" +
				"c2         # positive bignum, tag(2)\n" +
				"   42      # bytes(2)\n" +
				"      0102 # \"\\x01\\x02\"\n",
		},
		"float": {
			in:   []byte{0xf9, 0x7e, 0x00},
			want: "f9 7e00 # float(NaN)\n",
		},
		"simple": {
			in:   []byte{0xf4},
			want: "f4 # false, simple(20)\n",
		},
		"indefinite array": {
			in: []byte{0x9f, 0x01, 0xff},
			want: "" +
				"9f    # array(*)\n" +
				"   01 # unsigned(1)\n" +
				"ff    # break\n",
		},
		"indefinite text": {
			in: []byte{0x7f, 0x61, 0x61, 0xff},
			want: "" +
				"7f       # text(*)\n" +
				"   61    # text(1)\n" +
				"      61 # \"a\"\n" +
				"ff       # break\n",
		},
	}
	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Annotate(tt.in)
			if err != nil {
				t.Fatalf("annotate: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnnotateLongStringWraps(t *testing.T) {
	data := make([]byte, 20)
	for i := range data {
		data[i] = 'a'
	}
	p := append([]byte{0x54}, data...)

	got, err := Annotate(p)
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	hex16 := strings.Repeat("61", 16)
	want := "" +
		"54" + strings.Repeat(" ", 34) + "# bytes(20)\n" +
		"   " + hex16 + " # \"aaaaaaaaaaaaaaaa\"\n" +
		"   61616161" + strings.Repeat(" ", 25) + "# \"aaaa\"\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnotateError(t *testing.T) {
	if _, err := Annotate([]byte{0x82, 0x01}); err == nil {
		t.Error("expected decode failure to surface")
	}
}

// Annotated output feeds back through Decode to the original bytes.
func TestAnnotateDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x00},
		{0x19, 0x00, 0x01},
		{0x38, 0x63},
		{0x43, 0x01, 0x02, 0x03},
		{0x5f, 0x41, 0x01, 0x42, 0x02, 0x03, 0xff},
		{0x62, 0x68, 0x69},
		{0x82, 0x01, 0x02},
		{0x9f, 0x01, 0x02, 0xff},
		{0xa1, 0x61, 0x61, 0x01},
		{0xbf, 0x61, 0x61, 0x01, 0xff},
		{0xc1, 0x1a, 0x51, 0x4b, 0x67, 0xb0},
		{0xd9, 0xd9, 0xf7, 0x80},
		{0xf4},
		{0xf8, 0x20},
		{0xf9, 0x3c, 0x00},
		{0xfa, 0x7f, 0x80, 0x00, 0x00},
		{0xfb, 0x7f, 0xf8, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	}
	for _, in := range cases {
		annotated, err := Annotate(in)
		if err != nil {
			t.Fatalf("annotate %x: %v", in, err)
		}
		back, err := Decode(annotated)
		if err != nil {
			t.Fatalf("decode %q: %v", annotated, err)
		}
		if !bytes.Equal(back, in) {
			t.Errorf("round trip of %x produced %x via:\n%s", in, back, annotated)
		}
	}
}
