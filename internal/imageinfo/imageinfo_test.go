package imageinfo

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvineet44/mm-invite/internal/geometry"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	p := filepath.Join(t.TempDir(), "bg.png")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func TestDimensions_PNG(t *testing.T) {
	p := writePNG(t, 1000, 1400)
	assert.Equal(t, geometry.Dimensions{Width: 1000, Height: 1400}, Dimensions(p))
}

func TestDimensions_FallbackOnMissingOrGarbage(t *testing.T) {
	assert.Equal(t, Fallback, Dimensions(filepath.Join(t.TempDir(), "missing.png")))

	p := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(p, []byte("not an image"), 0o644))
	assert.Equal(t, geometry.Dimensions{Width: 794, Height: 1123}, Dimensions(p))
}

func TestLoad(t *testing.T) {
	p := writePNG(t, 20, 10)
	img, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, geometry.Dimensions{Width: 20, Height: 10}, img.Dimensions)
	assert.NotEmpty(t, img.Data)

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestFromBytes_JPEGAndUnknown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 30, 40)), nil))
	img := FromBytes(buf.Bytes())
	assert.Equal(t, "image/jpeg", img.MIME)
	assert.Equal(t, geometry.Dimensions{Width: 30, Height: 40}, img.Dimensions)

	img = FromBytes([]byte("plain text"))
	assert.Equal(t, Fallback, img.Dimensions)
	assert.Equal(t, "", img.Format)
	assert.Contains(t, img.MIME, "text/plain")
}
