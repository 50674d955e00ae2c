package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Source modes selectable from the command line.
const (
	ModeLocal  = "local"
	ModeAPI    = "api"
	ModeStatic = "static"
)

// DefaultMediaBaseURL is where locally generated invites are published.
const DefaultMediaBaseURL = "https://mm.purebillion.tech/pdfs/"

var (
	// ErrPDFMissing means the invitee has no usable PDF; the row is skipped.
	ErrPDFMissing = errors.New("pdf not found")
	// ErrInvalidPDF means the file exists but is not a readable PDF.
	ErrInvalidPDF = errors.New("invalid pdf")
)

// Document is the resolved invite for one invitee.
type Document struct {
	MediaURL string
	FileName string
	// LocalPath is set when the PDF is on disk and can be attached.
	LocalPath string
	Pages     int
}

// Source finds or produces the invite PDF for an invitee. In dry-run mode it
// must not touch the network.
type Source interface {
	Resolve(ctx context.Context, inv Invitee, dryRun bool) (Document, error)
}

// LocalSource expects pre-rendered PDFs in Dir, published under BaseURL.
type LocalSource struct {
	Dir     string
	BaseURL string
}

func NewLocalSource(dir, baseURL string) *LocalSource {
	return &LocalSource{Dir: dir, BaseURL: NormaliseBaseURL(baseURL)}
}

func (s *LocalSource) Resolve(_ context.Context, inv Invitee, _ bool) (Document, error) {
	name := inv.PDFName()
	p := filepath.Join(s.Dir, name)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrPDFMissing, p)
		}
		return Document{}, err
	}
	pages, err := pageCount(p)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrInvalidPDF, name, err)
	}
	return Document{
		MediaURL:  s.BaseURL + url.PathEscape(name),
		FileName:  name,
		LocalPath: p,
		Pages:     pages,
	}, nil
}

func pageCount(p string) (int, error) {
	n, err := api.PageCountFile(p)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("no pages")
	}
	return n, nil
}

// APISource renders each invite through an invite server.
type APISource struct {
	API *PDFAPI
}

func (s *APISource) Resolve(ctx context.Context, inv Invitee, dryRun bool) (Document, error) {
	if dryRun {
		return Document{
			MediaURL: "(generated by " + s.API.URL + ")",
			FileName: inv.PDFName(),
		}, nil
	}
	g, err := s.API.Generate(ctx, inv.Name)
	if err != nil {
		return Document{}, err
	}
	return Document{MediaURL: g.URL, FileName: path.Base(g.Path)}, nil
}

// StaticSource sends the same hosted file to everybody.
type StaticSource struct {
	URL  string
	Name string
}

func NewStaticSource(fileURL, name string) *StaticSource {
	if name == "" {
		name = "invite.pdf"
		if u, err := url.Parse(fileURL); err == nil {
			if base := path.Base(u.Path); base != "." && base != "/" {
				name = base
			}
		}
	}
	return &StaticSource{URL: fileURL, Name: name}
}

func (s *StaticSource) Resolve(context.Context, Invitee, bool) (Document, error) {
	return Document{MediaURL: s.URL, FileName: s.Name}, nil
}

// NormaliseBaseURL falls back to DefaultMediaBaseURL and ensures a trailing slash.
func NormaliseBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return DefaultMediaBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}
