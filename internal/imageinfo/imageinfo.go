// Package imageinfo reads background image metadata.
package imageinfo

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pvineet44/mm-invite/internal/geometry"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

// Fallback is A4 at 96 DPI, used when an image cannot be measured.
var Fallback = geometry.Dimensions{Width: 794, Height: 1123}

// Image is a decoded-enough view of an image file.
type Image struct {
	Data       []byte
	MIME       string
	Format     string
	Dimensions geometry.Dimensions
}

// Dimensions returns the pixel size of the image at path. Unreadable files
// yield Fallback; this never fails.
func Dimensions(path string) geometry.Dimensions {
	f, err := os.Open(path)
	if err != nil {
		u.Warn("Image unreadable, using fallback size", "path", path, "error", err)
		return Fallback
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		u.Warn("Image metadata unreadable, using fallback size", "path", path, "error", err)
		return Fallback
	}
	return geometry.Dimensions{Width: cfg.Width, Height: cfg.Height}
}

// Load reads the whole file. Missing files are an error; undecodable metadata
// falls back to the default size like Dimensions.
func Load(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image %s: %w", path, err)
	}
	return FromBytes(data), nil
}

// FromBytes inspects in-memory image data.
func FromBytes(data []byte) Image {
	img := Image{Data: data, Dimensions: Fallback}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil && cfg.Width > 0 && cfg.Height > 0 {
		img.Dimensions = geometry.Dimensions{Width: cfg.Width, Height: cfg.Height}
		img.Format = format
	} else {
		u.Warn("Image metadata unreadable, using fallback size", "error", err)
	}
	img.MIME = mimeFor(format, data)
	return img
}

func mimeFor(format string, data []byte) string {
	switch format {
	case "png", "jpeg", "gif", "bmp", "tiff", "webp":
		return "image/" + format
	}
	return http.DetectContentType(data)
}
