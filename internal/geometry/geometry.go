// Package geometry converts image pixel measurements into PDF page geometry.
package geometry

import "math"

const (
	// DPI is the resolution assumed for every source image.
	DPI = 96.0
	// PointsPerInch is the typographic point density used by PDF.
	PointsPerInch = 72.0
	// MaxPoints is the largest page side a rendered PDF may have.
	MaxPoints = 14400.0
	// MinScale keeps huge images from collapsing to a zero-sized page.
	MinScale = 0.01
)

// Dimensions is an image size in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// Geometry is the page layout derived from an image.
type Geometry struct {
	Scale        float64
	WidthPx      int
	HeightPx     int
	WidthPoints  float64
	HeightPoints float64
}

// PixelsToPoints converts a pixel length at DPI into points.
func PixelsToPoints(px float64) float64 {
	return px * PointsPerInch / DPI
}

// ScaleForLimit returns the factor that keeps the longer side within MaxPoints.
func ScaleForLimit(widthPx, heightPx float64) float64 {
	longest := math.Max(PixelsToPoints(widthPx), PixelsToPoints(heightPx))
	if longest <= MaxPoints {
		return 1.0
	}
	// Truncated rather than rounded so the scaled side never overshoots MaxPoints.
	return math.Max(MinScale, truncateTo(MaxPoints/longest, 4))
}

// ScaledDimensions applies scale to both sides, never going below one pixel.
func ScaledDimensions(widthPx, heightPx, scale float64) (int, int) {
	w := int(math.Round(widthPx * scale))
	h := int(math.Round(heightPx * scale))
	return max(w, 1), max(h, 1)
}

// Compute derives the full page geometry for an image.
func Compute(d Dimensions) Geometry {
	w, h := float64(d.Width), float64(d.Height)
	scale := ScaleForLimit(w, h)
	sw, sh := ScaledDimensions(w, h, scale)
	return Geometry{
		Scale:        scale,
		WidthPx:      sw,
		HeightPx:     sh,
		WidthPoints:  math.Max(PixelsToPoints(w*scale), PixelsToPoints(1)),
		HeightPoints: math.Max(PixelsToPoints(h*scale), PixelsToPoints(1)),
	}
}

// FontPoints converts a font size given in source pixels into page points.
func FontPoints(fontPx, scale float64) float64 {
	return roundTo(PixelsToPoints(fontPx*scale), 2)
}

// WidthInches and HeightInches feed engines that size paper in inches.
func (g Geometry) WidthInches() float64  { return g.WidthPoints / PointsPerInch }
func (g Geometry) HeightInches() float64 { return g.HeightPoints / PointsPerInch }

func truncateTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Floor(v*p) / p
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
