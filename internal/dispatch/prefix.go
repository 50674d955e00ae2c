package dispatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	u "github.com/pvineet44/mm-invite/internal/utils"
)

// RenameResult counts the outcome of PrefixPDFs.
type RenameResult struct {
	Renamed  int
	Skipped  int
	Conflict int
}

// PrefixPDFs prepends prefix to every .pdf file name in dir. Files that already
// carry the prefix, and renames whose target exists, are left alone.
func PrefixPDFs(dir, prefix string, dryRun bool) (RenameResult, error) {
	var res RenameResult
	if prefix == "" {
		return res, errors.New("prefix is empty")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return res, err
	}
	if !info.IsDir() {
		return res, fmt.Errorf("not a directory: %s", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return res, err
	}
	sort.Strings(matches)

	for _, src := range matches {
		name := filepath.Base(src)
		if strings.HasPrefix(name, prefix) {
			u.Debug("Already prefixed", "file", name)
			res.Skipped++
			continue
		}
		target := filepath.Join(dir, prefix+name)
		if _, err := os.Stat(target); err == nil {
			u.Error("Target already exists", "file", name, "target", filepath.Base(target))
			res.Conflict++
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return res, err
		}
		if dryRun {
			u.Info("[dry-run] Would rename", "from", name, "to", filepath.Base(target))
			res.Renamed++
			continue
		}
		if err := os.Rename(src, target); err != nil {
			return res, fmt.Errorf("rename %s: %w", name, err)
		}
		u.Info("Renamed", "from", name, "to", filepath.Base(target))
		res.Renamed++
	}
	return res, nil
}
