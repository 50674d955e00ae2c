package dispatch

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSource_Resolve(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "Asha Mehta.pdf")

	src := NewLocalSource(dir, "https://cdn.example/pdfs")
	doc, err := src.Resolve(context.Background(), Invitee{Name: "Asha Mehta"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Asha Mehta.pdf", doc.FileName)
	assert.Equal(t, "https://cdn.example/pdfs/Asha%20Mehta.pdf", doc.MediaURL)
	assert.Equal(t, filepath.Join(dir, "Asha Mehta.pdf"), doc.LocalPath)
	assert.Equal(t, 1, doc.Pages)
}

func TestLocalSource_UsesExplicitFileAndSanitises(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "card 7.pdf")

	doc, err := NewLocalSource(dir, "").Resolve(context.Background(), Invitee{Name: "Ignored", PDFFile: "card: 7"}, false)
	require.NoError(t, err)
	assert.Equal(t, "card 7.pdf", doc.FileName)
	assert.Equal(t, DefaultMediaBaseURL+"card%207.pdf", doc.MediaURL)
}

func TestLocalSource_MissingAndInvalid(t *testing.T) {
	dir := t.TempDir()
	src := NewLocalSource(dir, "")

	_, err := src.Resolve(context.Background(), Invitee{Name: "Nobody"}, false)
	assert.ErrorIs(t, err, ErrPDFMissing)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.pdf"), []byte("not a pdf"), 0o644))
	_, err = src.Resolve(context.Background(), Invitee{Name: "Broken"}, false)
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

func TestAPISource_DryRunMakesNoRequest(t *testing.T) {
	srv, hits := countingServer(t, http.StatusCreated, `{"url":"u","path":"p.pdf"}`)
	src := &APISource{API: NewPDFAPI(srv.URL)}

	doc, err := src.Resolve(context.Background(), Invitee{Name: "Asha"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Asha.pdf", doc.FileName)
	assert.Zero(t, hits.Load())

	doc, err = src.Resolve(context.Background(), Invitee{Name: "Asha"}, false)
	require.NoError(t, err)
	assert.Equal(t, Document{MediaURL: "u", FileName: "p.pdf"}, doc)
	assert.EqualValues(t, 1, hits.Load())
}

func TestStaticSource_FileName(t *testing.T) {
	assert.Equal(t, "card.pdf", NewStaticSource("https://x/files/card.pdf?v=2", "").Name)
	assert.Equal(t, "invite.pdf", NewStaticSource("https://x/", "").Name)
	assert.Equal(t, "given.pdf", NewStaticSource("https://x/a.pdf", "given.pdf").Name)

	doc, err := NewStaticSource("https://x/a.pdf", "").Resolve(context.Background(), Invitee{}, false)
	require.NoError(t, err)
	assert.Equal(t, Document{MediaURL: "https://x/a.pdf", FileName: "a.pdf"}, doc)
}

func TestNormaliseBaseURL(t *testing.T) {
	assert.Equal(t, DefaultMediaBaseURL, NormaliseBaseURL("  "))
	assert.Equal(t, "https://h/p/", NormaliseBaseURL("https://h/p"))
	assert.Equal(t, "https://h/p/", NormaliseBaseURL("https://h/p/"))
}
