package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/usecase"
)

const (
	ContextUserID    = "userID"
	ContextSessionID = "sessionID"
)

// Finder looks up a session by the cookie value.
type Finder interface {
	FindByID(ctx context.Context, id string) (*entity.Session, error)
}

// AuthRequired resolves the session cookie and aborts with 401 unless it names a
// live session. On success the user and session IDs are stored on the gin context.
func AuthRequired(store Finder, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cfg.CookieName)
		if err != nil || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		s, err := store.FindByID(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, usecase.ErrSessionNotFound) {
				slog.Error("session lookup failed", "error", err, "remote_addr", c.ClientIP())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !s.IsValid() {
			ClearCookie(c, cfg)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(ContextUserID, s.UserID)
		c.Set(ContextSessionID, s.ID)
		c.Next()
	}
}

// UserID returns the authenticated user's ID set by AuthRequired.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// SetCookie writes the session cookie for s.
func SetCookie(c *gin.Context, cfg Config, s *entity.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	c.SetCookie(cfg.CookieName, s.ID, maxAge, "/", "", cfg.CookieSecure, true)
}

// ClearCookie expires the session cookie on the client.
func ClearCookie(c *gin.Context, cfg Config) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.CookieSecure, true)
}
