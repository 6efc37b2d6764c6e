package subscribers

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freakfest/pkg/database"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r := NewRepo(db)
	clock := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return r
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Fan@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "fan@example.com", got)

	for _, bad := range []string{"", "   ", "no-at-sign", "@example.com", "fan@", "fan @example.com", strings.Repeat("a", 250) + "@example.com"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}

func TestRepo_SubscribeOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	first, existing, err := r.Subscribe(ctx, "Fan@Example.com", " Fan ")
	require.NoError(t, err)
	assert.False(t, existing)
	assert.Equal(t, "fan@example.com", first.Email)
	assert.Equal(t, "Fan", first.Name)
	assert.NotEmpty(t, first.ID)

	again, existing, err := r.Subscribe(ctx, "fan@example.com", "Other")
	require.NoError(t, err)
	assert.True(t, existing)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Fan", again.Name)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepo_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	for _, e := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		_, _, err := r.Subscribe(ctx, e, "")
		require.NoError(t, err)
	}

	items, err := r.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c@x.io", items[0].Email)
	assert.Equal(t, "b@x.io", items[1].Email)

	items, err = r.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a@x.io", items[0].Email)
}

func TestRepo_CSVRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestRepo(t)
	_, _, err := src.Subscribe(ctx, "a@x.io", "Amy")
	require.NoError(t, err)
	_, _, err = src.Subscribe(ctx, "b@x.io", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := src.ExportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, strings.HasPrefix(buf.String(), "id,email,name,created_at\n"))

	dst := newTestRepo(t)
	imported, skipped, err := dst.ImportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Zero(t, skipped)

	got, err := dst.GetByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Amy", got.Name)
}

func TestRepo_ImportSkipsBadRowsAndMerges(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	_, _, err := r.Subscribe(ctx, "a@x.io", "Amy")
	require.NoError(t, err)

	in := "Email,Name\nA@X.io,\nnot-an-email,Bob\nc@x.io,Cat\n"
	imported, skipped, err := r.ImportCSV(ctx, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 1, skipped)

	got, err := r.GetByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, "Amy", got.Name, "blank name must not overwrite")

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRepo_ImportRequiresEmailColumn(t *testing.T) {
	_, _, err := newTestRepo(t).ImportCSV(context.Background(), strings.NewReader("id,name\n1,x\n"))
	assert.Error(t, err)
}

func TestRepo_GetByEmailMissing(t *testing.T) {
	got, err := newTestRepo(t).GetByEmail(context.Background(), "nobody@x.io")
	require.NoError(t, err)
	assert.Nil(t, got)
}
