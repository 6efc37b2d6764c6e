package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("img"), 0o644))
	}
}

func readManifest(t *testing.T, dir string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	return string(b)
}

func TestBuild_WritesFlyerManifest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1 - 10-16 - Main Stage.png", "1 - 10:16 - Main Stage.png", "._1 - 10-16 - Main Stage.png", "notes.txt")
	slots := defaultSlots(t)

	res, err := NewBuilder(nil).Build(dir, Options{Kind: KindFlyers, Slots: slots})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 - 10-16 - Main Stage.png"}, res.Files)
	assert.Equal(t, "{\n  \"files\": [\n    \"1 - 10-16 - Main Stage.png\"\n  ]\n}\n", readManifest(t, dir))
}

func TestBuild_GalleryUsesImagesKey(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.jpg", "a.jpg")

	_, err := NewBuilder(nil).Build(dir, Options{Kind: KindGallery})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"images\": [\n    \"a.jpg\",\n    \"b.jpg\"\n  ]\n}\n", readManifest(t, dir))
}

func TestBuild_MissingDirWritesEmptyManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "flyers")
	core, logs := observer.New(zap.WarnLevel)

	res, err := NewBuilder(zap.New(core)).Build(dir, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Equal(t, "{\n  \"files\": []\n}\n", readManifest(t, dir))
	assert.Equal(t, 1, logs.FilterMessage("media directory unreadable, writing empty manifest").Len())
}

func TestBuild_ReplacesPriorManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"files":["stale.png"]}`), 0o644))
	touch(t, dir, "8 - Full Festival Flyer.png", "08 - Full Festival Flyer (copy).png")

	_, err := NewBuilder(nil).Build(dir, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	require.NoError(t, err)

	files, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"8 - Full Festival Flyer.png"}, files)
}

func TestBuild_RenamesVariantToSlotName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1 - 10:16 - main stage.png")

	res, err := NewBuilder(nil).Build(dir, Options{Kind: KindFlyers, Slots: defaultSlots(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 - 10-16 - Main Stage.png"}, res.Files)

	_, err = os.Stat(filepath.Join(dir, "1 - 10-16 - Main Stage.png"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "1 - 10:16 - main stage.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_LogsAmbiguity(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "main one.png", "main two.png")
	core, logs := observer.New(zap.WarnLevel)

	slots, err := CompileSlots([]SlotSpec{{Name: "main.png", Pattern: `^main`}})
	require.NoError(t, err)

	res, err := NewBuilder(zap.New(core)).Build(dir, Options{Kind: KindFlyers, Slots: slots})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.png"}, res.Files)
	assert.Equal(t, 1, logs.FilterMessage("several files match slot").Len())

	_, err = os.Stat(filepath.Join(dir, "main one.png"))
	assert.True(t, os.IsNotExist(err), "first candidate should have been renamed")
}

func TestBuild_WriteFailureReturnsWriteError(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "flyers")
	// A regular file where the directory should be: listing and writing both fail.
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o644))

	_, err := NewBuilder(nil).Build(dir, Options{Kind: KindFlyers})
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, dir, we.Dir)
}

func TestRead_MissingManifest(t *testing.T) {
	files, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}
