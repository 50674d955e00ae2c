// Package naming turns free text into safe, unused PDF file names.
package naming

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultStem is used when nothing printable survives sanitising.
const DefaultStem = "invite"

const hostile = `/\:*?"<>|`

// MaxNameBytes is the usual file name limit of local filesystems.
const MaxNameBytes = 255

// maxStemBytes leaves room for a " (nnnnn)" collision suffix and ".pdf".
const maxStemBytes = MaxNameBytes - len(" (99999)") - len(".pdf")

// Sanitize derives a file name ending in .pdf from raw text.
func Sanitize(raw string) string {
	return SanitizeWithDefault(raw, DefaultStem)
}

// SanitizeWithDefault is Sanitize with a caller supplied fallback stem.
func SanitizeWithDefault(raw, stem string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(hostile, r) {
			return ' '
		}
		return r
	}, strings.TrimSpace(raw))

	name := strings.Join(strings.Fields(cleaned), " ")
	ext := ".pdf"
	if strings.HasSuffix(strings.ToLower(name), ext) {
		name, ext = name[:len(name)-len(ext)], name[len(name)-len(ext):]
	}
	name = strings.TrimSpace(truncateBytes(name, maxStemBytes))
	if name == "" {
		name = stem
	}
	return name + ext
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Unique returns name, or "stem (n).ext" with the smallest n >= 1 such that no
// file of that name exists in dir.
func Unique(dir, name string) (string, error) {
	for candidate := range Candidates(name) {
		_, err := os.Stat(filepath.Join(dir, candidate))
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	panic("unreachable")
}

// Candidates yields name followed by its numbered variants, for callers that
// create files exclusively and retry on collision.
func Candidates(name string) iter.Seq[string] {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return func(yield func(string) bool) {
		if !yield(name) {
			return
		}
		for n := 1; ; n++ {
			if !yield(fmt.Sprintf("%s (%d)%s", stem, n, ext)) {
				return
			}
		}
	}
}
