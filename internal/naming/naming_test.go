package naming

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Invite: Test?", "My Invite Test.pdf"},
		{"  Shri Ram  Kumar ", "Shri Ram Kumar.pdf"},
		{"a/b\\c*d", "a b c d.pdf"},
		{"tab\there\nnewline", "tab here newline.pdf"},
		{`<>:"|?*`, "invite.pdf"},
		{"", "invite.pdf"},
		{"Report.PDF", "Report.PDF"},
		{"report.pdf", "report.pdf"},
		{"Ānanda Dās", "Ānanda Dās.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestSanitize_LongNamesFitFilesystemLimit(t *testing.T) {
	ascii := Sanitize(strings.Repeat("a", 255))
	assert.LessOrEqual(t, len(ascii), MaxNameBytes)
	assert.True(t, strings.HasSuffix(ascii, ".pdf"))

	deva := Sanitize(strings.Repeat("अ", 100)) // 300 bytes
	assert.True(t, utf8.ValidString(deva))
	assert.LessOrEqual(t, len(deva), MaxNameBytes)
	assert.Equal(t, strings.Repeat("अ", 81)+".pdf", deva)

	// Room is left for the largest collision suffix.
	dir := t.TempDir()
	for n := range 3 {
		var got string
		var err error
		got, err = Unique(dir, ascii)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), MaxNameBytes, "attempt %d", n)
		require.NoError(t, os.WriteFile(filepath.Join(dir, got), nil, 0o644))
	}
}

func TestSanitizeWithDefault(t *testing.T) {
	assert.Equal(t, "card.pdf", SanitizeWithDefault("???", "card"))
}

func TestUnique_CollisionSequence(t *testing.T) {
	dir := t.TempDir()

	name, err := Unique(dir, "invite.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invite.pdf", name)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))

	name, err = Unique(dir, "invite.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invite (1).pdf", name)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))

	name, err = Unique(dir, "invite.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invite (2).pdf", name)

	// Stable while the directory does not change.
	again, err := Unique(dir, "invite.pdf")
	require.NoError(t, err)
	assert.Equal(t, name, again)
}

func TestCandidates(t *testing.T) {
	var got []string
	for c := range Candidates("invite.pdf") {
		got = append(got, c)
		if len(got) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"invite.pdf", "invite (1).pdf", "invite (2).pdf"}, got)
}
