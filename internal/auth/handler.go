// Package auth guards the admin API: a single bcrypt-hashed password is
// exchanged for a short-lived HS256 token.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminSubject is the subject of every admin token.
const AdminSubject = "admin"

type Handler struct {
	Tokens       TokenService
	PasswordHash string
	Log          *zap.Logger
}

func NewHandler(tokens TokenService, passwordHash string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Tokens: tokens, PasswordHash: passwordHash, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.login)                    // POST /api/admin/login
	rg.GET("/me", AuthMiddleware(h.Tokens), h.me) // GET  /api/admin/me
}

type loginReq struct {
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	if h.PasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "admin login is not configured"})
		return
	}

	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	if req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "password required"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.PasswordHash), []byte(req.Password)); err != nil {
		h.Log.Warn("admin login rejected", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	token, exp, err := h.Tokens.Sign(AdminSubject)
	if err != nil {
		h.Log.Error("sign admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) me(c *gin.Context) {
	claims := MustGetClaims(c)
	c.JSON(http.StatusOK, gin.H{
		"subject":    claims.Subject,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// HashPassword returns the bcrypt hash stored in auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	if len(password) < 8 || len(password) > 72 {
		return "", errors.New("password must be 8-72 chars")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
