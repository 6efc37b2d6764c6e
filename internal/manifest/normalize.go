package manifest

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// "1 - ", "08 -", "3- " but not the "10-16" of a leading date.
	ordinalRE = regexp.MustCompile(`^\s*\d+(?:\s+-\s*|\s*-\s+)`)

	// Suffixes added by export tools and file managers: "(copy)", "(copy 2)",
	// "(1)", " copy" and "_1758052176341" style millisecond timestamps.
	artifactRE = regexp.MustCompile(`(?:\s*\(\s*(?:copy(?:\s+\d+)?|\d+)\s*\)|\s+copy|[\s_-]+\d{10,13})+$`)

	spaceRE     = regexp.MustCompile(`\s+`)
	separatorRE = regexp.MustCompile(`[-_\s]+`)
)

// NormalizeKey maps a filename to the key used for duplicate detection.
// Names differing only in extension, case, ordinal prefix, export suffix, or
// the punctuation between date digits share a key. Keys are never persisted.
func NormalizeKey(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	folded := strings.ToLower(stem)

	s := ordinalRE.ReplaceAllString(folded, "")
	s = artifactRE.ReplaceAllString(s, "")
	s = collapseNumericPairs(s)
	s = spaceRE.ReplaceAllString(s, " ")
	s = separatorRE.ReplaceAllString(s, "-")
	s = strings.Trim(s, "- ")

	if s == "" {
		// Nothing but prefix/suffix noise; fall back to the bare stem so
		// unrelated names like "(1).png" and "(2).png" stay distinct.
		return strings.TrimSpace(folded)
	}
	return s
}

// collapseNumericPairs rewrites digit pairs joined by whitespace and at most
// one of ":._-" into "H-M", so "10:16", "10.16" and "10 - 16" all read "10-16".
func collapseNumericPairs(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		b.WriteByte(c)
		if !isDigit(c) {
			continue
		}

		j := skipSpace(s, i+1)
		if j < len(s) && strings.IndexByte(":._-", s[j]) >= 0 {
			j = skipSpace(s, j+1)
		}
		if j == i+1 || j >= len(s) || !isDigit(s[j]) {
			continue
		}
		b.WriteByte('-')
		i = j - 1
	}
	return b.String()
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
