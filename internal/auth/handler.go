package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	refreshCookieName = "jid"
	refreshCookiePath = "/refresh_token"
)

type Handler struct {
	service *Service
	log     *slog.Logger
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register answers with a bare boolean; the reason for a failure is logged,
// not leaked.
func (h *Handler) Register(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	if err := h.service.Register(c.Request.Context(), creds.Email, creds.Password); err != nil {
		h.log.Warn("registration failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Login(c *gin.Context) {
	var creds credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	pair, err := h.service.Login(c.Request.Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": ErrInvalidCredentials.Error()})
			return
		}
		h.log.Error("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	h.sendRefreshToken(c, pair.RefreshToken)
	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken})
}

// RefreshToken redeems the refresh cookie. The response is 200 with a
// uniform body on every denial, matching the flow's information-hiding
// contract.
func (h *Handler) RefreshToken(c *gin.Context) {
	raw, err := c.Cookie(refreshCookieName)
	if err != nil {
		raw = ""
	}

	res := h.service.Refresh(c.Request.Context(), raw)
	if !res.OK {
		c.JSON(http.StatusOK, gin.H{"ok": false, "accessToken": ""})
		return
	}

	h.sendRefreshToken(c, res.RefreshToken)
	c.JSON(http.StatusOK, gin.H{"ok": true, "accessToken": res.AccessToken})
}

func (h *Handler) RevokeTokens(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	if err := h.service.RevokeAll(c.Request.Context(), id); err != nil {
		h.log.Error("revocation failed", "userId", id, "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Me(c *gin.Context) {
	id, ok := UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": id})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.service.Users(c.Request.Context())
	if err != nil {
		h.log.Error("listing users failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// sendRefreshToken delivers the refresh token out of band: an HTTP-only
// cookie scoped to the refresh endpoint.
func (h *Handler) sendRefreshToken(c *gin.Context, refreshToken string) {
	maxAge := int(h.service.tokens.RefreshTTL().Seconds())
	c.SetCookie(refreshCookieName, refreshToken, maxAge, refreshCookiePath, "", false, true)
}
