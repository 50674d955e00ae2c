package dispatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func TestPrefixPDFs(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Asha.pdf")
	touch(t, dir, "Devanupriya Ravi.pdf")
	touch(t, dir, "Mina.pdf")
	touch(t, dir, "Devanupriya Mina.pdf")
	touch(t, dir, "notes.txt")

	res, err := PrefixPDFs(dir, "Devanupriya ", false)
	require.NoError(t, err)
	// Both existing prefixed files are skipped; Mina's target exists.
	assert.Equal(t, RenameResult{Renamed: 1, Skipped: 2, Conflict: 1}, res)
	assert.True(t, exists(dir, "Devanupriya Asha.pdf"))
	assert.False(t, exists(dir, "Asha.pdf"))
	assert.True(t, exists(dir, "Mina.pdf"))
	assert.True(t, exists(dir, "notes.txt"))
}

func TestPrefixPDFs_DryRunLeavesFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Asha.pdf")

	res, err := PrefixPDFs(dir, "Dear ", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Renamed)
	assert.True(t, exists(dir, "Asha.pdf"))
	assert.False(t, exists(dir, "Dear Asha.pdf"))
}

func TestPrefixPDFs_BadInput(t *testing.T) {
	_, err := PrefixPDFs(t.TempDir(), "", false)
	assert.Error(t, err)

	_, err = PrefixPDFs(filepath.Join(t.TempDir(), "missing"), "p ", false)
	assert.Error(t, err)

	dir := t.TempDir()
	touch(t, dir, "file.pdf")
	_, err = PrefixPDFs(filepath.Join(dir, "file.pdf"), "p ", false)
	assert.Error(t, err)
}
