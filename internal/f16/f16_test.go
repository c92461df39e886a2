package f16

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownValues(t *testing.T) {
	cases := []struct {
		bits Bits
		want float32
	}{
		{0x0000, 0},
		{0x3C00, 1},
		{0xBC00, -1},
		{0x4000, 2},
		{0x3800, 0.5},
		{0x7BFF, 65504},   // largest normal
		{0x0001, 5.9604645e-8}, // smallest subnormal
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ToFloat32(c.bits), "bits %#04x", c.bits)
	}
}

func TestInfNaN(t *testing.T) {
	assert.True(t, math.IsInf(float64(ToFloat32(0x7C00)), 1))
	assert.True(t, math.IsInf(float64(ToFloat32(0xFC00)), -1))
	assert.True(t, math.IsNaN(float64(ToFloat32(0x7C01))))
}

func TestRoundTripAllBits(t *testing.T) {
	// Every non-NaN half value survives ToFloat32 -> FromFloat32.
	for b := 0; b <= 0xFFFF; b++ {
		bits := Bits(b)
		f := ToFloat32(bits)
		if math.IsNaN(float64(f)) {
			continue
		}
		assert.Equal(t, bits, FromFloat32(f), "bits %#04x", b)
	}
}

func TestFromFloat32Rounding(t *testing.T) {
	// 1 + 2^-11 is exactly halfway between two halves; ties go to even.
	assert.Equal(t, Bits(0x3C00), FromFloat32(1+1.0/2048))
	assert.Equal(t, Bits(0x3C02), FromFloat32(1+3.0/2048))
}
