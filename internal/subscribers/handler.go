package subscribers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Repo *Repo
	Log  *zap.Logger
}

func NewHandler(repo *Repo, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Repo: repo, Log: log}
}

// RegisterRoutes mounts the public signup endpoint.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/subscribe", h.subscribe) // POST /api/subscribe
}

// RegisterAdminRoutes expects rg to already carry the admin auth middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/subscribers", h.list) // GET /api/admin/subscribers
}

type subscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	sub, existing, err := h.Repo.Subscribe(c.Request.Context(), req.Email, req.Name)
	if errors.Is(err, ErrInvalidEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid email"})
		return
	}
	if err != nil {
		h.Log.Error("subscribe failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to subscribe"})
		return
	}

	if existing {
		c.JSON(http.StatusOK, gin.H{"subscribed": true, "existing": true})
		return
	}
	h.Log.Info("new subscriber", zap.String("id", sub.ID))
	c.JSON(http.StatusCreated, gin.H{"subscribed": true})
}

func (h *Handler) list(c *gin.Context) {
	limit := parseInt(c.Query("limit"), 100)
	offset := parseInt(c.Query("offset"), 0)

	total, err := h.Repo.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "count failed"})
		return
	}
	items, err := h.Repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
