package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"freakfest/internal/fsx"
	"freakfest/pkg/models"
)

// FileName is the manifest written into each media directory.
const FileName = "manifest.json"

// WriteError means the manifest could not be replaced. Any prior manifest
// is left as it was.
type WriteError struct {
	Dir string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write manifest in %s: %v", e.Dir, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

type Builder struct {
	Log *zap.Logger
}

func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{Log: log}
}

// Build lists dir, resolves the listing and replaces dir/manifest.json.
// An unreadable directory yields an empty manifest. Files picked for a slot
// under a variant name are renamed to the slot name so every manifest entry
// exists on disk.
func (b *Builder) Build(dir string, opts Options) (Resolution, error) {
	log := b.Log.With(zap.String("dir", dir), zap.String("kind", string(opts.Kind)))

	names, err := ListDir(dir)
	if err != nil {
		log.Warn("media directory unreadable, writing empty manifest", zap.Error(err))
		names = nil
	}

	res := Resolve(names, opts)
	for _, a := range res.Ambiguous {
		log.Warn("several files match slot",
			zap.String("slot", a.Slot),
			zap.Strings("candidates", a.Candidates),
			zap.String("chosen", a.Candidates[0]))
	}
	res.Files = b.applyRemaps(dir, res, log)

	if err := Write(dir, opts.Kind, res.Files); err != nil {
		log.Error("manifest write failed", zap.Error(err))
		return res, &WriteError{Dir: dir, Err: err}
	}

	log.Info("wrote manifest",
		zap.Int("count", len(res.Files)),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("remapped", len(res.Remapped)))
	return res, nil
}

func (b *Builder) applyRemaps(dir string, res Resolution, log *zap.Logger) []string {
	if len(res.Remapped) == 0 {
		return res.Files
	}
	files := append([]string(nil), res.Files...)
	for _, r := range res.Remapped {
		dst := filepath.Join(dir, r.To)
		if _, err := os.Lstat(dst); err == nil {
			continue
		}
		if err := os.Rename(filepath.Join(dir, r.From), dst); err != nil {
			// Keep the manifest pointing at a file that exists.
			log.Warn("rename to slot name failed, keeping original name",
				zap.String("from", r.From), zap.String("to", r.To), zap.Error(err))
			replace(files, r.To, r.From)
			continue
		}
		log.Debug("renamed variant to slot name", zap.String("from", r.From), zap.String("to", r.To))
	}
	return files
}

func replace(s []string, old, repl string) {
	for i := range s {
		if s[i] == old {
			s[i] = repl
		}
	}
}

// ListDir returns the names of regular files directly inside dir.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Encode renders files as the manifest document for kind, indented by two
// spaces with a trailing newline.
func Encode(kind Kind, files []string) ([]byte, error) {
	if files == nil {
		files = []string{}
	}
	var doc any
	switch kind {
	case KindGallery:
		doc = models.GalleryManifest{Images: files}
	default:
		doc = models.FlyerManifest{Files: files}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Write atomically replaces dir/manifest.json.
func Write(dir string, kind Kind, files []string) error {
	data, err := Encode(kind, files)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, FileName, data)
}

// Read loads dir/manifest.json written by Build. A missing manifest returns
// an empty list and no error.
func Read(dir string) ([]string, error) {
	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var doc struct {
		Files  []string `json:"files"`
		Images []string `json:"images"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", dir, err)
	}
	if doc.Images != nil {
		return doc.Images, nil
	}
	if doc.Files == nil {
		return []string{}, nil
	}
	return doc.Files, nil
}
