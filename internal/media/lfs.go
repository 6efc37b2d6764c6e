package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LFSPointerPrefix starts every Git LFS pointer file. A deploy that checked
// out the repo without LFS ships these instead of the images.
const LFSPointerPrefix = "version https://git-lfs.github.com/spec/v1"

// Pointer files are tiny; anything bigger is real content.
const maxPointerSize = 1024

var guardedExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

func IsLFSPointer(b []byte) bool {
	return bytes.HasPrefix(b, []byte(LFSPointerPrefix))
}

// FileIsLFSPointer reports whether the file at p is an LFS pointer.
func FileIsLFSPointer(p string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() > maxPointerSize {
		return false, nil
	}
	buf := make([]byte, len(LFSPointerPrefix))
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return IsLFSPointer(buf), nil
}

// TargetFor returns the target whose directory holds the asset path rel.
func (s *Syncer) TargetFor(rel string) (Target, bool) {
	for _, t := range s.Targets {
		if t.owns(rel) {
			return t, true
		}
	}
	return Target{}, false
}

// Repair re-fetches the target owning rel from the latest release when the
// file there is an LFS pointer. Concurrent repairs of one target share a
// single download. It reports whether the file is real content afterwards.
func (s *Syncer) Repair(ctx context.Context, rel string) bool {
	full := filepath.Join(s.AssetsRoot, filepath.FromSlash(rel))
	ptr, err := FileIsLFSPointer(full)
	if err != nil || !ptr {
		return err == nil
	}

	t, ok := s.TargetFor(rel)
	if !ok {
		s.Log.Warn("lfs pointer outside any media target", zap.String("path", rel))
		return false
	}

	s.Log.Info("lfs pointer served, refetching", zap.String("path", rel), zap.String("target", t.Name))
	_, _, _ = s.flight.Do("repair:"+t.Name, func() (any, error) {
		return s.Sync(context.WithoutCancel(ctx), t, LatestTag), nil
	})

	ptr, err = FileIsLFSPointer(full)
	return err == nil && !ptr
}

// LFSGuard is gin middleware for the static assets under prefix (e.g.
// "/assets"). Image requests that would serve an LFS pointer trigger a
// repair; if that fails the request ends with 404.
func (s *Syncer) LFSGuard(prefix string) gin.HandlerFunc {
	prefix = strings.TrimRight(prefix, "/") + "/"
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}
		if !strings.HasPrefix(p, prefix) || !guardedExts[strings.ToLower(path.Ext(p))] {
			c.Next()
			return
		}

		rel := strings.TrimPrefix(path.Clean(p), prefix)
		if rel == "" || strings.HasPrefix(rel, "..") {
			c.Next()
			return
		}
		full := filepath.Join(s.AssetsRoot, filepath.FromSlash(rel))
		if ptr, err := FileIsLFSPointer(full); err != nil || !ptr {
			c.Next()
			return
		}

		if !s.Repair(c.Request.Context(), rel) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Media file not available"})
			return
		}
		c.Next()
	}
}
