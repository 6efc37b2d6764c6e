package artists

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freakfest/pkg/models"
)

func row(kv ...string) Row {
	r := make(Row, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		r = append(r, Cell{Header: kv[i], Value: kv[i+1]})
	}
	return r
}

func TestNormalize(t *testing.T) {
	rows := []Row{
		row("artist name", "Hex Band", "instagram handle", "https://www.instagram.com/hexband/", "photo", "https://cdn.example.com/hex.PNG"),
		row("artist name", "", "instagram handle", "@nobody"),
		row("artist name", "DJ Ø", "instagram handle", ""),
	}

	got := Normalize(rows)
	require.Len(t, got, 2)

	assert.Equal(t, models.Artist{
		ID:              "hex-band-hexband",
		Name:            "Hex Band",
		InstagramHandle: "hexband",
		InstagramURL:    "https://instagram.com/hexband",
		ProfileImageURL: "https://cdn.example.com/hex.PNG",
	}, got[0])

	assert.Equal(t, "dj", got[1].ID)
	assert.Empty(t, got[1].InstagramURL)
	assert.Empty(t, got[1].ProfileImageURL)
}

func TestPickFirstKey(t *testing.T) {
	// "band" never gets a look: "name" resolves to the first header
	// containing it, and that cell has a value.
	r := row("band", "Loud", "stage name", "Quiet")
	assert.Equal(t, "Quiet", pickFirstKey(r, nameKeys))

	// An empty cell for one key falls through to the next key.
	r = row("name", "", "act", "Fallback")
	assert.Equal(t, "Fallback", pickFirstKey(r, nameKeys))

	// Only the first matching header is consulted for a key.
	r = row("artist", "", "artist 2", "Second")
	assert.Equal(t, "", pickFirstKey(r, []string{"artist"}))
}

func TestCleanInstagram(t *testing.T) {
	tests := map[string]string{
		"@handle":                                  "handle",
		"handle":                                   "handle",
		"https://instagram.com/handle/":            "handle",
		"http://www.instagram.com/handle":          "handle",
		"HTTPS://WWW.INSTAGRAM.COM/handle/?igsh=x": "handle",
		"  ":                                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanInstagram(in), in)
	}
}

func TestProfileImage(t *testing.T) {
	assert.Equal(t, "https://scontent.cdninstagram.com/v/a.jpg?x=1",
		profileImage(row("a", "x", "b", "https://scontent.cdninstagram.com/v/a.jpg?x=1")))
	assert.Equal(t, "http://host/a.jpeg", profileImage(row("a", "http://host/a.jpeg")))
	assert.Equal(t, "", profileImage(row("a", "a.jpg", "b", "https://host/a.gif")))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "the-hex-band-hex-band", Slug("The Hex Band!-@hex.band"))
	assert.Equal(t, "x", Slug("--x--"))
}
