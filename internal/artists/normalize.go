package artists

import (
	"regexp"
	"strings"

	"freakfest/pkg/models"
)

var (
	nameKeys      = []string{"artist", "name", "band", "act"}
	instagramKeys = []string{"instagram", "ig", "instagram handle", "instagram_username", "instagram user", "insta"}

	instagramPrefixRE = regexp.MustCompile(`(?i)^https?://(www\.)?instagram\.com/`)
	instagramImageRE  = regexp.MustCompile(`(?i)(instagram|cdninstagram)\.com/.+\.(jpg|jpeg|png)`)
	imageSuffixRE     = regexp.MustCompile(`(?i)\.(jpg|jpeg|png)$`)
	slugRE            = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize maps sheet rows to artists. Rows without a name are dropped;
// the order of the sheet is kept.
func Normalize(rows []Row) []models.Artist {
	out := make([]models.Artist, 0, len(rows))
	for _, row := range rows {
		if a, ok := normalizeRow(row); ok {
			out = append(out, a)
		}
	}
	return out
}

func normalizeRow(row Row) (models.Artist, bool) {
	name := pickFirstKey(row, nameKeys)
	if name == "" {
		return models.Artist{}, false
	}

	handle := CleanInstagram(pickFirstKey(row, instagramKeys))
	a := models.Artist{
		ID:              Slug(name + "-" + handle),
		Name:            name,
		InstagramHandle: handle,
		ProfileImageURL: profileImage(row),
	}
	if handle != "" {
		a.InstagramURL = "https://instagram.com/" + handle
	}
	return a, true
}

// pickFirstKey tries keys in order. Each key resolves to the first header
// equal to or containing it; an empty cell there moves on to the next key.
func pickFirstKey(row Row, keys []string) string {
	for _, k := range keys {
		for _, c := range row {
			if c.Header == k || strings.Contains(c.Header, k) {
				if c.Value != "" {
					return c.Value
				}
				break
			}
		}
	}
	return ""
}

// CleanInstagram reduces a profile URL or "@handle" to the bare handle.
func CleanInstagram(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if loc := instagramPrefixRE.FindStringIndex(v); loc != nil {
		v = v[loc[1]:]
		if i := strings.IndexAny(v, "?#"); i >= 0 {
			v = v[:i]
		}
	}
	v = strings.TrimSuffix(v, "/")
	v = strings.TrimPrefix(v, "@")
	return v
}

func profileImage(row Row) string {
	for _, c := range row {
		if instagramImageRE.MatchString(c.Value) {
			return c.Value
		}
		if imageSuffixRE.MatchString(c.Value) && strings.Contains(c.Value, "http") {
			return c.Value
		}
	}
	return ""
}

// Slug lower-cases s and joins its alphanumeric runs with "-".
func Slug(s string) string {
	return strings.Trim(slugRE.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
