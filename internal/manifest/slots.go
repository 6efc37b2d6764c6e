package manifest

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Slot is one expected flyer. Name is the display filename written to the
// manifest; Pattern accepts historical variants of it.
type Slot struct {
	Name    string
	Pattern *regexp.Regexp
}

// SlotSpec is the on-disk form of a Slot.
type SlotSpec struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern,omitempty"`
}

type slotFile struct {
	Slots []SlotSpec `yaml:"slots"`
}

// DefaultFlyerSlots is the festival's running order of flyers.
func DefaultFlyerSlots() []SlotSpec {
	return []SlotSpec{
		{Name: "1 - 10-16 - Main Stage.png", Pattern: `^1\s*-\s*10[:\-]16\s*-\s*Main\s*Stage\.png$`},
		{Name: "2 - 10-17 - Main Stage.png", Pattern: `^2\s*-\s*10[:\-]17\s*-\s*Main\s*Stage\.png$`},
		{Name: "3 - 10-17 - Club Stage.png", Pattern: `^3\s*-\s*10[:\-]17\s*-\s*Club\s*Stage\.png$`},
		{Name: "4 - 10-17 - Playhouse Stage.png", Pattern: `^4\s*-\s*10[:\-]17\s*-\s*Playhouse\s*Stage\.png$`},
		{Name: "5 - 10-18 - Main Stage.png", Pattern: `^5\s*-\s*10[:\-]18\s*-\s*Main\s*Stage\.png$`},
		{Name: "6 - 10-18 - Club Stage.png", Pattern: `^6\s*-\s*10[:\-]18\s*-\s*Club\s*Stage\.png$`},
		{Name: "7 - 10-19 - Main Stage.png", Pattern: `^7\s*-\s*10[:\-]19\s*-\s*Main\s*Stage\.png$`},
		{Name: "8 - Full Festival Flyer.png", Pattern: `^8\s*-\s*Full\s*Festival\s*Flyer\.png$`},
	}
}

// CompileSlots validates specs and compiles their patterns case-insensitively.
// Two slots whose names normalize to the same key are rejected, since they
// could never both appear in one deduplicated listing.
func CompileSlots(specs []SlotSpec) ([]Slot, error) {
	out := make([]Slot, 0, len(specs))
	seen := make(map[string]string, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("slot %d: name is required", i)
		}
		if !IsImage(s.Name) {
			return nil, fmt.Errorf("slot %q: not an image filename", s.Name)
		}
		k := NormalizeKey(s.Name)
		if prev, ok := seen[k]; ok {
			return nil, fmt.Errorf("slot %q duplicates slot %q", s.Name, prev)
		}
		seen[k] = s.Name

		slot := Slot{Name: s.Name}
		if s.Pattern != "" {
			re, err := regexp.Compile("(?i)" + s.Pattern)
			if err != nil {
				return nil, fmt.Errorf("slot %q: compile pattern: %w", s.Name, err)
			}
			slot.Pattern = re
		}
		out = append(out, slot)
	}
	return out, nil
}

// LoadSlotFile reads a YAML document of the form
//
//	slots:
//	  - name: "1 - 10-16 - Main Stage.png"
//	    pattern: '^1\s*-\s*10[:\-]16\s*-\s*Main\s*Stage\.png$'
func LoadSlotFile(path string) ([]SlotSpec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slot file: %w", err)
	}
	var f slotFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse slot file %s: %w", path, err)
	}
	if len(f.Slots) == 0 {
		return nil, errors.New("slot file has no slots")
	}
	return f.Slots, nil
}
