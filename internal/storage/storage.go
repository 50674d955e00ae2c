// Package storage persists generated PDFs and uploaded backgrounds under the
// public directory.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/pvineet44/mm-invite/internal/naming"
	u "github.com/pvineet44/mm-invite/internal/utils"
)

var (
	ErrInvalidReference = errors.New("invalid stored file reference")
	ErrNotFound         = errors.New("stored file not found")
)

// maxCollisions bounds the " (n)" search so a directory full of copies
// cannot spin forever.
const maxCollisions = 10000

// Artifact is a written output file.
type Artifact struct {
	Name     string
	Path     string // relative to the public dir, slash separated
	URL      string
	FullPath string
}

// Store writes outputs to Dir, which is served publicly under Prefix.
type Store struct {
	Dir     string
	Prefix  string
	BaseURL string
}

// NewOutputStore serves storage.output_dir as /pdfs.
func NewOutputStore(cfg u.Config) *Store {
	return &Store{Dir: cfg.Storage.OutputDir, Prefix: "pdfs", BaseURL: cfg.Storage.PublicBaseURL}
}

// Save writes data under name, or under the first free "name (n)" variant.
// Files are created exclusively, so concurrent saves never share a name.
func (s *Store) Save(name string, data []byte) (Artifact, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create output dir: %w", err)
	}

	tries := 0
	for candidate := range naming.Candidates(name) {
		if tries++; tries > maxCollisions {
			break
		}
		full := filepath.Join(s.Dir, candidate)
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return Artifact{}, fmt.Errorf("create %s: %w", candidate, err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			_ = os.Remove(full)
			return Artifact{}, fmt.Errorf("write %s: %w", candidate, werr)
		}
		return s.artifact(candidate, full), nil
	}
	return Artifact{}, fmt.Errorf("no free name for %s after %d attempts", name, maxCollisions)
}

func (s *Store) artifact(name, full string) Artifact {
	rel := path.Join(s.Prefix, name)
	link := "/" + path.Join(s.Prefix, url.PathEscape(name))
	if s.BaseURL != "" {
		link = strings.TrimRight(s.BaseURL, "/") + link
	}
	return Artifact{Name: name, Path: rel, URL: link, FullPath: full}
}

// Uploads keeps user-supplied background images. References handed to
// clients are bare file names; Resolve refuses anything else.
type Uploads struct {
	Dir string
}

func NewUploads(cfg u.Config) *Uploads {
	return &Uploads{Dir: cfg.Storage.UploadsDir}
}

// Save stores data under a fresh xid name with the given extension and
// returns the reference.
func (up *Uploads) Save(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(up.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	ref := xid.New().String() + strings.ToLower(ext)
	if err := os.WriteFile(filepath.Join(up.Dir, ref), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return ref, nil
}

// Resolve maps a reference back to a file inside Dir.
func (up *Uploads) Resolve(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || ref == "." || ref == ".." || strings.ContainsAny(ref, `/\`) {
		return "", ErrInvalidReference
	}
	full := filepath.Join(up.Dir, ref)
	st, err := os.Stat(full)
	if err != nil || !st.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return full, nil
}
