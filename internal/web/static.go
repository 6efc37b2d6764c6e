// Package web serves the built frontend and the request log.
package web

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	assetsCacheControl = "public, max-age=31536000, immutable"
	indexFile          = "index.html"
)

// Mount serves publicDir on r. Files under /assets are long-lived; guards run
// before them (the LFS pointer check). Any other unknown GET path gets
// index.html so client-side routes load, except under /api which answers
// 404 JSON.
func Mount(r *gin.Engine, publicDir string, guards ...gin.HandlerFunc) error {
	info, err := os.Stat(publicDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("could not find the build directory: %s, make sure to build the client first", publicDir)
	}
	s := &static{dir: publicDir}

	assets := append(append([]gin.HandlerFunc{}, guards...), s.asset)
	r.GET("/assets/*filepath", assets...)
	r.HEAD("/assets/*filepath", assets...)
	r.NoRoute(s.fallback)
	return nil
}

type static struct {
	dir string
}

// file maps a slash path to a regular file inside s.dir.
func (s *static) file(p string) (string, bool) {
	full := filepath.Join(s.dir, filepath.FromSlash(path.Clean("/"+p)))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return full, true
}

func (s *static) asset(c *gin.Context) {
	full, ok := s.file("/assets/" + c.Param("filepath"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	c.Header("Cache-Control", assetsCacheControl)
	c.File(full)
}

func (s *static) fallback(c *gin.Context) {
	p := c.Request.URL.Path
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}

	if full, ok := s.file(p); ok && path.Base(p) != indexFile {
		c.File(full)
		return
	}

	index, ok := s.file(indexFile)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.File(index)
}
