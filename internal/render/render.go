// Package render turns an overlay (background image plus one line of text)
// into PDF bytes. It never touches the filesystem.
package render

import (
	"context"
	"errors"

	"github.com/pvineet44/mm-invite/internal/geometry"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

// ErrEmptyOutput is returned when an engine produced no bytes.
var ErrEmptyOutput = errors.New("renderer produced an empty document")

// Overlay is everything needed to draw one invite page.
type Overlay struct {
	Image []byte
	MIME  string

	Text     string
	XPercent float64
	YPercent float64
	// FontSize is in source image pixels; it is scaled with the page.
	FontSize int
	Color    string

	Geometry geometry.Geometry
}

// PageSize is the PDF page in points.
type PageSize struct {
	WidthPoints  float64
	HeightPoints float64
}

func (p PageSize) WidthInches() float64  { return p.WidthPoints / geometry.PointsPerInch }
func (p PageSize) HeightInches() float64 { return p.HeightPoints / geometry.PointsPerInch }

// Page returns the page size for g.
func Page(g geometry.Geometry) PageSize {
	return PageSize{WidthPoints: g.WidthPoints, HeightPoints: g.HeightPoints}
}

// Renderer draws an overlay.
type Renderer interface {
	Render(ctx context.Context, o Overlay) ([]byte, error)
}

// Engine prints an HTML document to a PDF of the given page size.
type Engine interface {
	PrintPDF(ctx context.Context, html string, size PageSize) ([]byte, error)
}

// New returns the renderer selected by pdf.engine, and the Chrome engine when
// one is in use so callers can report pool stats and close it.
func New(cfg u.Config) (Renderer, *ChromeEngine) {
	if cfg.PDF.Engine == u.EngineFPDF {
		return NewFPDFRenderer(), nil
	}
	engine := NewChromeEngine(cfg)
	return NewHTMLRenderer(engine), engine
}
