package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/jung-kurt/gofpdf"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pvineet44/mm-invite/internal/geometry"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

// FPDFRenderer draws the overlay directly with gofpdf. It needs no browser but
// only supports the Latin-1 range of the built-in Helvetica font.
type FPDFRenderer struct {
	FontFamily string
}

func NewFPDFRenderer() *FPDFRenderer {
	return &FPDFRenderer{FontFamily: "Helvetica"}
}

func (r *FPDFRenderer) Render(ctx context.Context, o Overlay) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	col, err := u.ParseHexColor(o.Color)
	if err != nil {
		return nil, err
	}
	imgData, imgType, err := pdfImage(o.Image, o.MIME)
	if err != nil {
		return nil, err
	}

	g := o.Geometry
	w, h := g.WidthPoints, g.HeightPoints
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: imgType}
	pdf.RegisterImageOptionsReader("background", opts, bytes.NewReader(imgData))
	pdf.ImageOptions("background", 0, 0, w, h, false, opts, 0, "")

	fontPt := geometry.FontPoints(float64(o.FontSize), g.Scale)
	pdf.SetFont(r.FontFamily, "", fontPt)
	red, green, blue := col.RGB255()
	pdf.SetTextColor(int(red), int(green), int(blue))

	text := pdf.UnicodeTranslatorFromDescriptor("")(o.Text)
	cx := w * o.XPercent / 100
	cy := h * o.YPercent / 100
	// Text() takes the baseline; 0.35em approximates half the cap height.
	pdf.Text(cx-pdf.GetStringWidth(text)/2, cy+fontPt*0.35, text)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("fpdf output: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyOutput
	}
	return buf.Bytes(), nil
}

// pdfImage returns image bytes gofpdf can embed. JPEG passes through; anything
// else is re-encoded as 8-bit non-interlaced PNG, which gofpdf always accepts.
func pdfImage(data []byte, mime string) ([]byte, string, error) {
	if mime == "image/jpeg" {
		return data, "JPG", nil
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode background: %w", err)
	}
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, "", fmt.Errorf("encode background: %w", err)
	}
	return buf.Bytes(), "PNG", nil
}
