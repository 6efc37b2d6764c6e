package artists

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"freakfest/pkg/models"
)

// Lineup is what the handler needs from a Loader.
type Lineup interface {
	Load(ctx context.Context) ([]models.Artist, error)
}

type Handler struct {
	Lineup Lineup
	Cache  *Cache
	Log    *zap.Logger

	group singleflight.Group
}

func NewHandler(lineup Lineup, cache *Cache, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Lineup: lineup, Cache: cache, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/artists", h.list) // GET /api/artists
}

// RegisterAdminRoutes expects rg to already carry the admin auth middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/artists/refresh", h.refresh) // POST /api/admin/artists/refresh
}

func (h *Handler) list(c *gin.Context) {
	force := c.Query("refresh") == "1" ||
		strings.Contains(strings.ToLower(c.GetHeader("Cache-Control")), "no-cache")

	if !force {
		if artists, ok := h.Cache.Get(); ok {
			if age, ok := h.Cache.Age(); ok {
				c.Header("Age", strconv.Itoa(int(age.Seconds())))
			}
			c.JSON(http.StatusOK, gin.H{"artists": artists, "cached": true})
			return
		}
	}

	artists, err := h.Refresh(c.Request.Context())
	if err != nil {
		h.Log.Error("load artists", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists, "cached": false})
}

// refresh drops the cached lineup and reloads it, so a sheet edit shows up
// without waiting for the TTL.
func (h *Handler) refresh(c *gin.Context) {
	h.Cache.Invalidate()
	artists, err := h.Refresh(c.Request.Context())
	if err != nil {
		h.Log.Error("refresh artists", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(artists)})
}

// Refresh loads the lineup and fills the cache. Concurrent callers share
// one upstream fetch.
func (h *Handler) Refresh(ctx context.Context) ([]models.Artist, error) {
	v, err, _ := h.group.Do("artists", func() (any, error) {
		artists, err := h.Lineup.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if artists == nil {
			artists = []models.Artist{}
		}
		h.Cache.Set(artists)
		return artists, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Artist), nil
}
