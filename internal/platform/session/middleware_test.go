package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type mockFinder struct {
	FindByIDFunc func(ctx context.Context, id string) (*entity.Session, error)
}

func (m *mockFinder) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, usecase.ErrSessionNotFound
}

func TestAuthRequired(t *testing.T) {
	cfg := Config{CookieName: "session_id"}
	revokedAt := time.Now()

	tests := []struct {
		name       string
		cookie     string
		find       func(ctx context.Context, id string) (*entity.Session, error)
		wantStatus int
	}{
		{
			name:       "no cookie",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown session",
			cookie:     "unknown",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "revoked session",
			cookie: "revoked",
			find: func(ctx context.Context, id string) (*entity.Session, error) {
				return &entity.Session{ID: id, UserID: 1, ExpiresAt: time.Now().Add(time.Hour), RevokedAt: &revokedAt}, nil
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "expired session",
			cookie: "expired",
			find: func(ctx context.Context, id string) (*entity.Session, error) {
				return &entity.Session{ID: id, UserID: 1, ExpiresAt: time.Now().Add(-time.Hour)}, nil
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "store failure",
			cookie: "boom",
			find: func(ctx context.Context, id string) (*entity.Session, error) {
				return nil, errors.New("redis down")
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "valid session",
			cookie: "good",
			find: func(ctx context.Context, id string) (*entity.Session, error) {
				return &entity.Session{ID: id, UserID: 42, ExpiresAt: time.Now().Add(time.Hour)}, nil
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/me", AuthRequired(&mockFinder{FindByIDFunc: tt.find}, cfg), func(c *gin.Context) {
				id, ok := UserID(c)
				assert.True(t, ok)
				assert.Equal(t, uint(42), id)
				assert.Equal(t, "good", c.GetString(ContextSessionID))
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestUserID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := UserID(c)

	assert.False(t, ok)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SESSION_COOKIE_NAME", "sid")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SESSION_MAX_PER_USER", "0")

	cfg := LoadConfig()

	assert.Equal(t, "sid", cfg.CookieName)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, time.Hour, cfg.TTL)
	assert.Zero(t, cfg.MaxPerUser)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SESSION_COOKIE_NAME", "")
	t.Setenv("COOKIE_SECURE", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SESSION_MAX_PER_USER", "")

	cfg := LoadConfig()

	assert.Equal(t, DefaultCookieName, cfg.CookieName)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, DefaultTTL, cfg.TTL)
	assert.Equal(t, int64(DefaultMaxPerUser), cfg.MaxPerUser)
}
