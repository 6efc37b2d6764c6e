package media

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the admin media endpoints. BaseCtx bounds background
// refreshes to the server's lifetime.
type Handler struct {
	Syncer  *Syncer
	BaseCtx context.Context
}

func NewHandler(ctx context.Context, s *Syncer) *Handler {
	return &Handler{Syncer: s, BaseCtx: ctx}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/media/refresh", h.refresh) // POST /api/admin/media/refresh
	rg.GET("/media/status", h.status)    // GET  /api/admin/media/status
}

func (h *Handler) refresh(c *gin.Context) {
	go h.Syncer.EnsureOnce(h.BaseCtx)
	c.JSON(http.StatusAccepted, gin.H{"message": "media refresh started", "tag": h.Syncer.Tag})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tag": h.Syncer.Tag, "targets": h.Syncer.Status()})
}
