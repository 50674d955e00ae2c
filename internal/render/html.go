package render

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"strconv"

	"github.com/pvineet44/mm-invite/internal/geometry"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

//go:embed templates/overlay.html.tmpl
var templateFS embed.FS

var overlayTmpl = template.Must(template.ParseFS(templateFS, "templates/overlay.html.tmpl"))

type overlayView struct {
	WidthPt  template.CSS
	HeightPt template.CSS
	X        template.CSS
	Y        template.CSS
	FontPt   template.CSS
	Color    template.CSS
	ImageURI template.URL
	Text     string
}

// HTMLRenderer lays the overlay out as an HTML page and hands it to an Engine.
type HTMLRenderer struct {
	Engine Engine
}

func NewHTMLRenderer(e Engine) *HTMLRenderer {
	return &HTMLRenderer{Engine: e}
}

// HTML builds the page markup for o.
func HTML(o Overlay) (string, error) {
	c, err := u.ParseHexColor(o.Color)
	if err != nil {
		return "", err
	}
	g := o.Geometry
	view := overlayView{
		WidthPt:  css(g.WidthPoints),
		HeightPt: css(g.HeightPoints),
		X:        css(o.XPercent),
		Y:        css(o.YPercent),
		FontPt:   css(geometry.FontPoints(float64(o.FontSize), g.Scale)),
		Color:    template.CSS(c.Hex()),
		ImageURI: template.URL("data:" + o.MIME + ";base64," + base64.StdEncoding.EncodeToString(o.Image)),
		Text:     o.Text,
	}

	var buf bytes.Buffer
	if err := overlayTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute overlay template: %w", err)
	}
	return buf.String(), nil
}

func (r *HTMLRenderer) Render(ctx context.Context, o Overlay) ([]byte, error) {
	html, err := HTML(o)
	if err != nil {
		return nil, err
	}
	pdf, err := r.Engine.PrintPDF(ctx, html, Page(o.Geometry))
	if err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, ErrEmptyOutput
	}
	return pdf, nil
}

func css(v float64) template.CSS {
	return template.CSS(strconv.FormatFloat(v, 'f', -1, 64))
}
