package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestPixelsToPoints(t *testing.T) {
	tests := []struct {
		px   float64
		want float64
	}{
		{0, 0},
		{96, 72},
		{1000, 750},
		{1400, 1050},
		{19200, 14400},
	}
	for _, tt := range tests {
		if got := PixelsToPoints(tt.px); !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("PixelsToPoints(%v) = %v, want %v", tt.px, got, tt.want)
		}
	}
}

func TestScaleForLimit_UnderLimitIsOne(t *testing.T) {
	sizes := [][2]float64{
		{1, 1},
		{1000, 1400},
		{794, 1123},
		{19200, 19200}, // exactly 14400pt
		{19200, 10},
		{10, 19200},
	}
	for _, s := range sizes {
		assert.Equal(t, 1.0, ScaleForLimit(s[0], s[1]), "size %v", s)
	}
}

func TestScaleForLimit_OverLimitFitsAndRespectsFloor(t *testing.T) {
	sizes := [][2]float64{
		{19201, 100},
		{100, 19201},
		{20000, 30000},
		{155520, 400},  // ratio 0.123456..., rounding up would overshoot
		{400000, 1000}, // deep scale-down
		{1000, 1920000},
	}
	for _, s := range sizes {
		scale := ScaleForLimit(s[0], s[1])
		longest := math.Max(PixelsToPoints(s[0]), PixelsToPoints(s[1]))
		if longest*scale > MaxPoints+1e-9 {
			t.Errorf("size %v: scaled side %.4fpt exceeds %v", s, longest*scale, MaxPoints)
		}
		if scale < MinScale {
			t.Errorf("size %v: scale %v below floor", s, scale)
		}
		if scale >= 1.0 {
			t.Errorf("size %v: expected scale < 1, got %v", s, scale)
		}
	}
}

func TestScaleForLimit_FloorWinsForHugeImages(t *testing.T) {
	// 4,000,000px ≈ 3,000,000pt; the exact fit would be 0.0048.
	assert.Equal(t, MinScale, ScaleForLimit(4_000_000, 10))
}

func TestScaleForLimit_FourDecimalPlaces(t *testing.T) {
	scale := ScaleForLimit(20000, 100) // 14400/15000 = 0.96
	assert.InDelta(t, 0.96, scale, 1.5e-4)

	scale = ScaleForLimit(30000, 100) // 14400/22500 = 0.64
	assert.InDelta(t, 0.64, scale, 1.5e-4)

	scale = ScaleForLimit(155520, 100) // 14400/116640 = 0.1234567...
	assert.InDelta(t, 0.1234, scale, 1e-9)
}

func TestScaledDimensions_NeverBelowOne(t *testing.T) {
	tests := []struct {
		w, h, scale float64
		wantW       int
		wantH       int
	}{
		{1000, 1400, 1.0, 1000, 1400},
		{1000, 1400, 0.5, 500, 700},
		{3, 1, 0.01, 1, 1},
		{0, 0, 1.0, 1, 1},
		{101, 99, 0.5, 51, 50},
	}
	for _, tt := range tests {
		w, h := ScaledDimensions(tt.w, tt.h, tt.scale)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("ScaledDimensions(%v, %v, %v) = %d,%d want %d,%d", tt.w, tt.h, tt.scale, w, h, tt.wantW, tt.wantH)
		}
		if w < 1 || h < 1 {
			t.Errorf("dimension below 1: %d,%d", w, h)
		}
	}
}

func TestCompute(t *testing.T) {
	g := Compute(Dimensions{Width: 1000, Height: 1400})
	assert.Equal(t, 1.0, g.Scale)
	assert.Equal(t, 1000, g.WidthPx)
	assert.Equal(t, 1400, g.HeightPx)
	assert.InDelta(t, 750.0, g.WidthPoints, 1e-9)
	assert.InDelta(t, 1050.0, g.HeightPoints, 1e-9)
	assert.InDelta(t, 750.0/72.0, g.WidthInches(), 1e-9)
	assert.InDelta(t, 1050.0/72.0, g.HeightInches(), 1e-9)

	big := Compute(Dimensions{Width: 40000, Height: 20000})
	assert.Less(t, big.Scale, 1.0)
	assert.LessOrEqual(t, big.WidthPoints, MaxPoints+1e-6)
	assert.LessOrEqual(t, big.HeightPoints, MaxPoints+1e-6)
}

func TestFontPoints(t *testing.T) {
	assert.InDelta(t, 36.0, FontPoints(48, 1.0), 1e-9)
	assert.InDelta(t, 18.0, FontPoints(48, 0.5), 1e-9)
	assert.InDelta(t, 0.06, FontPoints(8, 0.01), 1e-9)
}
