package media

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ExtractStats counts what Extract did with each archive entry.
type ExtractStats struct {
	Files   int
	Dirs    int
	Skipped int
}

// ExtractTarGz unpacks a gzipped tar stream into dest, dropping the first
// strip path components of every entry. Entries that would land outside
// dest, links, devices and entries consumed entirely by strip are skipped.
func ExtractTarGz(r io.Reader, dest string, strip int) (ExtractStats, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return ExtractStats{}, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	return ExtractTar(zr, dest, strip)
}

func ExtractTar(r io.Reader, dest string, strip int) (ExtractStats, error) {
	var st ExtractStats
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("read tar: %w", err)
		}

		rel, ok := stripPath(hdr.Name, strip)
		if !ok {
			st.Skipped++
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if !within(dest, target) {
			st.Skipped++
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return st, fmt.Errorf("mkdir %s: %w", rel, err)
			}
			st.Dirs++
		case tar.TypeReg:
			if err := writeEntry(target, tr); err != nil {
				return st, fmt.Errorf("extract %s: %w", rel, err)
			}
			st.Files++
		default:
			st.Skipped++
		}
	}
}

// stripPath cleans an archive name and removes its first n components.
// Absolute names and names climbing out with ".." are refused.
func stripPath(name string, n int) (string, bool) {
	name = path.Clean(name)
	if name == "." || name == ".." || path.IsAbs(name) || strings.HasPrefix(name, "../") {
		return "", false
	}
	parts := strings.Split(name, "/")
	if len(parts) <= n {
		return "", false
	}
	return strings.Join(parts[n:], "/"), true
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
