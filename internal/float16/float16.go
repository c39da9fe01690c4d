// Package float16 converts between IEEE 754 half-precision bit patterns and
// native floats. CBOR encodes half-precision values that Go has no native
// type for; the conversions here are exact in the widening direction and
// round-to-nearest-even when narrowing.
package float16

import "math"

// To64 widens a half-precision bit pattern to the float64 it represents.
// The conversion is exact; NaN payloads are not preserved.
func To64(h uint16) float64 {
	sign := uint64(h>>15) << 63
	exp := uint64(h >> 10 & 0x1f)
	mant := uint64(h & 0x3ff)

	switch exp {
	case 0:
		// zero or subnormal
		if mant == 0 {
			return math.Float64frombits(sign)
		}
		// normalize
		e := uint64(1023 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		return math.Float64frombits(sign | e<<52 | (mant&0x3ff)<<42)
	case 0x1f:
		if mant == 0 {
			return math.Float64frombits(sign | 0x7ff0000000000000)
		}
		return math.NaN()
	}

	return math.Float64frombits(sign | (exp-15+1023)<<52 | mant<<42)
}

// From64 narrows a float64 to the nearest half-precision bit pattern,
// rounding to nearest-even and overflowing to infinity.
func From64(f float64) uint16 {
	bits := math.Float64bits(f)
	sign := uint16(bits >> 63 << 15)
	exp := int(bits>>52&0x7ff) - 1023
	mant := bits & 0xf_ffff_ffff_ffff

	switch {
	case math.IsNaN(f):
		return sign | 0x7e00
	case math.IsInf(f, 0):
		return sign | 0x7c00
	case exp > 15:
		return sign | 0x7c00 // overflow
	case exp >= -14:
		// normal: keep 10 mantissa bits, round to nearest even
		h := sign | uint16(exp+15)<<10 | uint16(mant>>42)
		rem := mant & 0x3ff_ffff_ffff
		half := uint64(0x200_0000_0000)
		if rem > half || (rem == half && h&1 == 1) {
			h++ // carries ripple into the exponent correctly
		}
		return h
	case exp >= -25:
		// subnormal (or rounds up into the smallest subnormal)
		mant |= 1 << 52
		shift := uint(-exp - 14 + 42)
		h := sign | uint16(mant>>shift)
		rem := mant & (1<<shift - 1)
		half := uint64(1) << (shift - 1)
		if rem > half || (rem == half && h&1 == 1) {
			h++
		}
		return h
	}
	return sign // underflow to zero
}

// Exact reports whether f converts to half precision and back without loss.
func Exact(f float64) bool {
	if math.IsNaN(f) {
		return false
	}
	return To64(From64(f)) == f
}
