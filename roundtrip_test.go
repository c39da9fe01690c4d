package cbordiag_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/google/go-cmp/cmp"

	cbordiag "github.com/Nemo157/cbor-diag"
	"github.com/Nemo157/cbor-diag/cbor"
)

// Conversion samples across all three forms: binary, compact diagnostic
// notation and annotated hex all describe the same item.
func TestConversions(t *testing.T) {
	cases := map[string]struct {
		hex  string
		diag string
	}{
		"array":            {hex: "820102", diag: "[1, 2]"},
		"indefinite map":   {hex: "bf61610aff", diag: `{_ "a": 10}`},
		"overwide int":     {hex: "1900e8", diag: "232_1"},
		"chunked text":     {hex: "7f6161626263ff", diag: `(_ "a", "bc")`},
		"epoch tag":        {hex: "c11a514b67b0", diag: "1(1363896240_2)"},
		"half precision":   {hex: "f93e00", diag: "1.5_1"},
		"self description": {hex: "d9d9f700", diag: "self_describe(0)"},
		"overwide tag 21":  {hex: "d815420102", diag: "21_0(h'0102')"},
		"small bignum":     {hex: "c24105", diag: "2(h'05')"},
	}
	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := hex.DecodeString(tt.hex)
			if err != nil {
				t.Fatal(err)
			}

			fromBytes, err := cbordiag.ParseBytes(p)
			if err != nil {
				t.Fatalf("parse bytes: %v", err)
			}
			if got := cbordiag.ToDiag(fromBytes); got != tt.diag {
				t.Errorf("ToDiag = %q, want %q", got, tt.diag)
			}
			if got := cbordiag.ToPlainHex(fromBytes); got != tt.hex {
				t.Errorf("ToPlainHex = %q, want %q", got, tt.hex)
			}

			fromDiag, err := cbordiag.ParseDiag(tt.diag)
			if err != nil {
				t.Fatalf("parse diag: %v", err)
			}
			if got := cbordiag.ToBytes(fromDiag); !bytes.Equal(got, p) {
				t.Errorf("ToBytes = %x, want %s", got, tt.hex)
			}

			// annotated hex is accepted back by the hex parser
			reparsed, err := cbordiag.ParseHex(cbordiag.ToHex(fromBytes))
			if err != nil {
				t.Fatalf("reparse annotated: %v", err)
			}
			if !cbor.Equal(fromBytes, reparsed) {
				t.Errorf("annotated hex reparsed to %#v", reparsed)
			}
		})
	}
}

func TestParseHexAcceptsCommentsAndSpacing(t *testing.T) {
	v, err := cbordiag.ParseHex("82 # array(2)\n   01 # one\n   02\n")
	if err != nil {
		t.Fatal(err)
	}
	if got := cbordiag.ToDiag(v); got != "[1, 2]" {
		t.Errorf("got %q", got)
	}
}

func TestParseBytesPartialSequence(t *testing.T) {
	p, _ := hex.DecodeString("0102626869")
	var out []string
	for len(p) > 0 {
		v, n, err := cbordiag.ParseBytesPartial(p)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, cbordiag.ToDiag(v))
		p = p[n:]
	}
	if diff := cmp.Diff([]string{"1", "2", `"hi"`}, out); diff != "" {
		t.Errorf("sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestPlain(t *testing.T) {
	p, _ := hex.DecodeString("a3616101617bf5617f83fb3ff8000000000000f6c243010000")
	v, err := cbordiag.ParseBytes(p)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"a": float64(1),
		"{": true,
		"\x7f": []any{
			1.5,
			nil,
			float64(65536),
		},
	}
	if diff := cmp.Diff(want, cbordiag.Plain(v)); diff != "" {
		t.Errorf("Plain mismatch (-want +got):\n%s", diff)
	}
}

func TestPlainNonTextKeys(t *testing.T) {
	v, err := cbordiag.ParseDiag(`{1: "a", h'00': "b"}`)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"1":     "a",
		"h'00'": "b",
	}
	if diff := cmp.Diff(want, cbordiag.Plain(v)); diff != "" {
		t.Errorf("Plain mismatch (-want +got):\n%s", diff)
	}
}

func TestPrettyOutputReparses(t *testing.T) {
	src := `{"outer": ["a long string that pushes the rendering past sixty characters", 2]}`
	v, err := cbordiag.ParseDiag(src)
	if err != nil {
		t.Fatal(err)
	}
	pretty := cbordiag.ToDiagPretty(v)
	back, err := cbordiag.ParseDiag(pretty)
	if err != nil {
		t.Fatalf("reparse %q: %v", pretty, err)
	}
	if !cbor.Equal(v, back) {
		t.Errorf("pretty output reparsed differently:\n%s", pretty)
	}
}
