// Package manifest turns the file listing of an extracted media folder into
// the ordered, duplicate-free list the frontend galleries read from
// manifest.json.
//
// Resolution runs in layers: filter image files, normalize each name to a
// comparison key, keep one name per key, then either place names into the
// configured canonical slots or fall back to a case-insensitive sort.
package manifest

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Kind selects the JSON key the manifest is written under.
type Kind string

const (
	KindFlyers  Kind = "files"
	KindGallery Kind = "images"
)

// Options controls one resolution. With no Slots the output is sorted;
// with Slots only names that land in a slot are kept.
type Options struct {
	Kind  Kind
	Slots []Slot
}

// Remap records a variant filename that was accepted for a canonical slot.
type Remap struct {
	From string
	To   string
}

// Ambiguity records a slot whose pattern matched more than one file.
// The first candidate was used.
type Ambiguity struct {
	Slot       string
	Candidates []string
}

type Resolution struct {
	Files      []string
	Remapped   []Remap
	Ambiguous  []Ambiguity
	Duplicates int
}

var imageExtRE = regexp.MustCompile(`(?i)\.(jpe?g|png|webp|avif)$`)

// IsImage reports whether name is a candidate image: an accepted extension
// and not an AppleDouble "._" resource-fork entry.
func IsImage(name string) bool {
	return !strings.HasPrefix(name, "._") && imageExtRE.MatchString(name)
}

// Resolve is pure: it never touches the filesystem and returns the same
// result for the same set of names regardless of input order.
func Resolve(names []string, opts Options) Resolution {
	images := make([]string, 0, len(names))
	for _, n := range names {
		if IsImage(n) {
			images = append(images, n)
		}
	}

	if len(opts.Slots) == 0 {
		unique := Dedupe(images)
		return Resolution{Files: sortFold(unique), Duplicates: len(images) - len(unique)}
	}

	canonical := make(map[string]bool, len(opts.Slots))
	for _, s := range opts.Slots {
		canonical[s.Name] = true
	}
	unique := dedupe(images, canonical)
	res := Resolution{Duplicates: len(images) - len(unique)}
	res.Files, res.Remapped, res.Ambiguous = matchSlots(unique, opts.Slots)
	return res
}

// Dedupe keeps one name per NormalizeKey: the shortest, with ties going to
// the name that sorts first byte-wise. Output follows that sorted order.
func Dedupe(names []string) []string {
	return dedupe(names, nil)
}

// dedupe is Dedupe where a name in keep always wins its key group.
// CompileSlots guarantees no two slot names share a key.
func dedupe(names []string, keep map[string]bool) []string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	best := make(map[string]string, len(sorted))
	keys := make([]string, 0, len(sorted))
	for _, n := range sorted {
		k := NormalizeKey(n)
		cur, ok := best[k]
		if !ok {
			best[k] = n
			keys = append(keys, k)
			continue
		}
		switch {
		case keep[cur]:
		case keep[n]:
			best[k] = n
		case utf8.RuneCountInString(n) < utf8.RuneCountInString(cur):
			best[k] = n
		}
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, best[k])
	}
	return out
}

func matchSlots(files []string, slots []Slot) (out []string, remaps []Remap, ambiguous []Ambiguity) {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	claimed := make(map[string]bool, len(slots))
	chosen := make([]bool, len(slots))

	// Exact names first, so a loose pattern on an earlier slot cannot take
	// a file that is some later slot's canonical name.
	for i, s := range slots {
		if present[s.Name] && !claimed[s.Name] {
			chosen[i] = true
			claimed[s.Name] = true
		}
	}

	for i, s := range slots {
		if chosen[i] || s.Pattern == nil {
			continue
		}
		var cands []string
		for _, f := range files {
			if !claimed[f] && s.Pattern.MatchString(f) {
				cands = append(cands, f)
			}
		}
		if len(cands) == 0 {
			continue
		}
		sort.Strings(cands)
		if len(cands) > 1 {
			ambiguous = append(ambiguous, Ambiguity{Slot: s.Name, Candidates: cands})
		}
		claimed[cands[0]] = true
		chosen[i] = true
		remaps = append(remaps, Remap{From: cands[0], To: s.Name})
	}

	out = make([]string, 0, len(slots))
	for i, s := range slots {
		if chosen[i] {
			out = append(out, s.Name)
		}
	}
	return out, remaps, ambiguous
}

func sortFold(names []string) []string {
	out := append(make([]string, 0, len(names)), names...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i]), strings.ToLower(out[j])
		if a != b {
			return a < b
		}
		return out[i] < out[j]
	})
	return out
}
