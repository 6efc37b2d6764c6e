// Package imageproxy relays Instagram profile images and avatars so the
// browser never talks to Instagram's CDN directly.
package imageproxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freakfest/internal/httpx"
)

const (
	DefaultAvatarBase = "https://unavatar.io/instagram/"
	DefaultMaxBytes   = 15 << 20

	cacheControl = "public, max-age=86400, s-maxage=86400, immutable"
	browserUA    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	imageAccept  = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
)

var errTooLarge = errors.New("upstream image too large")

type Handler struct {
	Client     *http.Client
	AvatarBase string
	MaxBytes   int64
	Log        *zap.Logger
}

func NewHandler(log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Client:     httpx.NewImageClient(),
		AvatarBase: DefaultAvatarBase,
		MaxBytes:   DefaultMaxBytes,
		Log:        log,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/instagram-image", h.image)   // GET /api/instagram-image?u=
	rg.GET("/instagram-avatar", h.avatar) // GET /api/instagram-avatar?handle=
}

func (h *Handler) image(c *gin.Context) {
	raw := c.Query("u")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing 'u' query param"})
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid 'u' query param"})
		return
	}

	hdr := http.Header{
		"User-Agent": {browserUA},
		"Accept":     {imageAccept},
		"Referer":    {"https://instagram.com/"},
	}
	h.relay(c, u.String(), hdr)
}

func (h *Handler) avatar(c *gin.Context) {
	handle := strings.TrimPrefix(strings.TrimSpace(c.Query("handle")), "@")
	if handle == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing 'handle'"})
		return
	}

	hdr := http.Header{
		"User-Agent": {browserUA},
		"Accept":     {imageAccept},
	}
	h.relay(c, strings.TrimRight(h.AvatarBase, "/")+"/"+url.PathEscape(handle), hdr)
}

func (h *Handler) relay(c *gin.Context, target string, hdr http.Header) {
	resp, err := httpx.Get(c.Request.Context(), h.Client, target, hdr)
	if err != nil {
		if errors.Is(err, httpx.ErrBlockedAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Upstream address not allowed"})
			return
		}
		var se *httpx.StatusError
		if errors.As(err, &se) {
			c.JSON(http.StatusBadGateway, gin.H{"message": fmt.Sprintf("Upstream error: %d", se.StatusCode)})
			return
		}
		h.Log.Warn("image proxy fetch failed", zap.String("url", target), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to proxy image"})
		return
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	if !strings.HasPrefix(strings.ToLower(ct), "image/") {
		h.Log.Warn("image proxy upstream not an image", zap.String("url", target), zap.String("content_type", ct))
		c.JSON(http.StatusBadGateway, gin.H{"message": "Upstream did not return an image"})
		return
	}

	body, err := readCapped(resp.Body, h.maxBytes())
	if err != nil {
		if errors.Is(err, errTooLarge) {
			c.JSON(http.StatusBadGateway, gin.H{"message": "Upstream image too large"})
			return
		}
		h.Log.Warn("image proxy read failed", zap.String("url", target), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to proxy image"})
		return
	}

	c.Header("Cache-Control", cacheControl)
	c.Data(http.StatusOK, ct, body)
}

func (h *Handler) maxBytes() int64 {
	if h.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return h.MaxBytes
}

func readCapped(r io.Reader, max int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, errTooLarge
	}
	return b, nil
}
