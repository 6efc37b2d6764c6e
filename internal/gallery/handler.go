// Package gallery serves the festival photo gallery: a live manifest of the
// extracted images and resized thumbnails of them.
package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freakfest/internal/fsx"
	"freakfest/internal/manifest"
)

const thumbCacheControl = "public, max-age=31536000, immutable"

var fileNameRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type Handler struct {
	// Dir holds the extracted gallery images.
	Dir string
	// CacheDir, when set, keeps encoded thumbnails between requests.
	CacheDir string
	Log      *zap.Logger
}

func NewHandler(dir, cacheDir string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Dir: dir, CacheDir: cacheDir, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/gallery-manifest", h.manifest) // GET /api/gallery-manifest
	rg.GET("/gallery-thumb", h.thumb)       // GET /api/gallery-thumb?f=&w=&q=&fmt=&square=
}

func (h *Handler) manifest(c *gin.Context) {
	names, err := manifest.ListDir(h.Dir)
	if err != nil {
		h.Log.Debug("gallery dir unreadable", zap.String("dir", h.Dir), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"images": []string{}})
		return
	}
	res := manifest.Resolve(names, manifest.Options{Kind: manifest.KindGallery})
	c.JSON(http.StatusOK, gin.H{"images": res.Files})
}

func (h *Handler) thumb(c *gin.Context) {
	name := c.Query("f")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing 'f' (filename)"})
		return
	}
	if !fileNameRE.MatchString(name) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid filename"})
		return
	}
	full, ok := h.resolve(name)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid path"})
		return
	}

	opts := ThumbOptions{
		Width:   clampInt(c.Query("w"), 480, 64, 2048),
		Quality: clampInt(c.Query("q"), 60, 30, 95),
		Square:  c.Query("square") == "1",
		Format:  ParseFormat(strings.ToLower(c.DefaultQuery("fmt", "auto"))),
	}

	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		c.JSON(http.StatusNotFound, gin.H{"message": "Image not found"})
		return
	}

	cacheName := thumbCacheName(name, info, opts)
	if data, ok := h.cached(cacheName); ok {
		h.writeThumb(c, opts, data)
		return
	}

	f, err := os.Open(full)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Image not found"})
		return
	}
	defer f.Close()

	data, err := Thumbnail(f, opts)
	if errors.Is(err, ErrTooManyPixels) {
		h.Log.Warn("thumbnail source too large", zap.String("file", name), zap.Error(err))
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Image too large"})
		return
	}
	if err != nil {
		h.Log.Warn("thumbnail failed", zap.String("file", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to generate thumbnail"})
		return
	}
	h.store(cacheName, data)
	h.writeThumb(c, opts, data)
}

func (h *Handler) writeThumb(c *gin.Context, opts ThumbOptions, data []byte) {
	c.Header("Cache-Control", thumbCacheControl)
	c.Data(http.StatusOK, opts.Format.ContentType(), data)
}

// resolve joins name onto Dir and refuses anything that leaves it.
func (h *Handler) resolve(name string) (string, bool) {
	base, err := filepath.Abs(h.Dir)
	if err != nil {
		return "", false
	}
	full := filepath.Join(base, name)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func thumbCacheName(name string, info fs.FileInfo, o ThumbOptions) string {
	sq := 0
	if o.Square {
		sq = 1
	}
	return fmt.Sprintf("%s.%d.%d-%d-%d-%d.%s", name, info.ModTime().UnixNano(), info.Size(), o.Width, o.Quality, sq, o.Format)
}

func (h *Handler) cached(name string) ([]byte, bool) {
	if h.CacheDir == "" {
		return nil, false
	}
	b, err := os.ReadFile(filepath.Join(h.CacheDir, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.Log.Debug("thumb cache read", zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

func (h *Handler) store(name string, data []byte) {
	if h.CacheDir == "" {
		return
	}
	if err := fsx.WriteFileAtomic(h.CacheDir, name, data); err != nil {
		h.Log.Warn("thumb cache write", zap.String("name", name), zap.Error(err))
	}
}

// clampInt parses s, using def when it is missing, unparsable or zero.
func clampInt(s string, def, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n == 0 {
		n = def
	}
	return min(max(n, lo), hi)
}
