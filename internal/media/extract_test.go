package media

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripPath(t *testing.T) {
	tests := []struct {
		in    string
		strip int
		want  string
		ok    bool
	}{
		{"flyers/a.png", 1, "a.png", true},
		{"./flyers/a.png", 1, "a.png", true},
		{"gallery/freakfest/b.jpg", 2, "b.jpg", true},
		{"gallery/freakfest/", 2, "", false},
		{"flyers", 1, "", false},
		{"a.png", 0, "a.png", true},
		{"../evil.png", 0, "", false},
		{"flyers/../../evil.png", 1, "", false},
		{"/etc/passwd", 0, "", false},
	}
	for _, tt := range tests {
		got, ok := stripPath(tt.in, tt.strip)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestExtractTarGz_StripsAndSkips(t *testing.T) {
	dest := t.TempDir()
	archive := tarGz(t,
		dir("gallery/"),
		dir("gallery/freakfest/"),
		file("gallery/freakfest/a.jpg", "A"),
		file("gallery/freakfest/sub/b.jpg", "B"),
		file("gallery/top.jpg", "consumed by strip"),
		file("../../escape.jpg", "X"),
		entry{name: "gallery/freakfest/link.jpg", typ: tar.TypeSymlink, link: "/etc/passwd"},
		entry{name: "gallery/freakfest/hard.jpg", typ: tar.TypeLink, link: "gallery/freakfest/a.jpg"},
	)

	st, err := ExtractTarGz(bytes.NewReader(archive), dest, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, 6, st.Skipped)
	assert.Equal(t, 0, st.Dirs)

	b, err := os.ReadFile(filepath.Join(dest, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "A", string(b))
	_, err = os.Stat(filepath.Join(dest, "sub", "b.jpg"))
	assert.NoError(t, err)

	_, err = os.Lstat(filepath.Join(dest, "link.jpg"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(filepath.Dir(dest), "escape.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractTarGz_NotGzip(t *testing.T) {
	_, err := ExtractTarGz(bytes.NewReader([]byte("plain")), t.TempDir(), 1)
	assert.Error(t, err)
}
