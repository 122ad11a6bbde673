package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authadapters "auth_backend/internal/feature/auth/adapters"
	"auth_backend/internal/feature/auth/domain/entity"
	authhandler "auth_backend/internal/feature/auth/transport/handler"
	"auth_backend/internal/feature/auth/usecase"
	"auth_backend/internal/platform/db"
	jwtmw "auth_backend/internal/platform/jwt"
	"auth_backend/internal/platform/session"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mailbox records outgoing mail.
type mailbox struct {
	mu     sync.Mutex
	bodies []string
}

func (m *mailbox) Send(ctx context.Context, subject, body, from string, to []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *mailbox) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.bodies, "no mail was sent")

	body := m.bodies[len(m.bodies)-1]
	_, link, found := strings.Cut(body, "verify your email: ")
	require.True(t, found, "unexpected mail body %q", body)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type testServer struct {
	engine *gin.Engine
	mail   *mailbox
}

func newTestServer(t *testing.T, origins ...string) *testServer {
	t.Helper()

	gdb, err := db.OpenDB(db.Config{Driver: db.DriverSQLite, SQLitePath: ":memory:", RunMigrations: true},
		&entity.User{}, &authadapters.SessionModel{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	sessions := authadapters.NewSessionGorm(gdb)
	cookies := session.Config{CookieName: session.DefaultCookieName, TTL: time.Hour, MaxPerUser: 2}
	tokens, err := jwtmw.NewVerificationTokens(jwtmw.Config{Secret: "test-secret", TTL: time.Hour, Issuer: jwtmw.DefaultIssuer})
	require.NoError(t, err)
	mail := &mailbox{}
	uc := usecase.NewAuthUsecase(authadapters.NewUserGorm(gdb), sessions, tokens, mail, usecase.Config{
		VerifyURLBase:      "http://localhost:3000/verify-email",
		MailFrom:           "no-reply@example.com",
		SessionTTL:         cookies.TTL,
		MaxSessionsPerUser: cookies.MaxPerUser,
	})

	engine := NewRouter(Deps{
		Auth:           authhandler.NewAuthHandler(uc, cookies),
		Sessions:       sessions,
		Cookies:        cookies,
		DB:             sqlDB,
		AllowedOrigins: origins,
	})
	return &testServer{engine: engine, mail: mail}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func bodyOf(t *testing.T, w *httptest.ResponseRecorder) gin.H {
	t.Helper()
	var b gin.H
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b), "body: %s", w.Body.String())
	return b
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", session.DefaultCookieName)
	return nil
}

func TestSignupVerifyLoginFlow(t *testing.T) {
	s := newTestServer(t)
	creds := gin.H{"email": "a@x.com", "password": "pw123"}

	w := s.do(t, http.MethodPost, "/api/auth/signup/", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := bodyOf(t, w)["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "a", user["username"])
	assert.Equal(t, false, user["email_verified"])

	w = s.do(t, http.MethodPost, "/api/auth/login/", creds)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please verify your email before logging in.", bodyOf(t, w)["error"])

	token := s.mail.lastToken(t)
	w = s.do(t, http.MethodPost, "/api/auth/verify-email/", gin.H{"token": token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Email verified successfully.", bodyOf(t, w)["message"])

	w = s.do(t, http.MethodPost, "/api/auth/verify-email/", gin.H{"token": token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email already verified.", bodyOf(t, w)["message"])

	w = s.do(t, http.MethodPost, "/api/auth/login/", gin.H{"email": "a@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid credentials", bodyOf(t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/auth/login/", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := sessionCookie(t, w)
	assert.Len(t, cookie.Value, 64)

	w = s.do(t, http.MethodGet, "/api/auth/me/", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	me := bodyOf(t, w)["user"].(map[string]any)
	assert.Equal(t, true, me["email_verified"])

	w = s.do(t, http.MethodPost, "/api/auth/logout/", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully.", bodyOf(t, w)["message"])

	w = s.do(t, http.MethodGet, "/api/auth/me/", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	creds := gin.H{"email": "a@x.com", "password": "pw123456"}

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/auth/signup/", creds).Code)

	w := s.do(t, http.MethodPost, "/api/auth/signup/", creds)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := bodyOf(t, w)
	assert.Equal(t, "A user with this email already exists.", body["error"])
	assert.Contains(t, body["fields"], "email")
	assert.Len(t, s.mail.bodies, 1)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/verify-email/", gin.H{"token": "not-a-token"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid verification token.", bodyOf(t, w)["error"])
}

func TestLogout_WithoutSession(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/logout/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMe_RequiresSession(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/auth/me/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/auth/me/", nil, &http.Cookie{Name: session.DefaultCookieName, Value: "unknown"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutes_TrailingSlashOptional(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/auth/logout", "/api/auth/logout/"} {
		w := s.do(t, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gin.H{"status": "ok"}, bodyOf(t, w))
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, "http://localhost:3000")

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestAllowedOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, ,http://b.example")
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, AllowedOriginsFromEnv())

	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	assert.Empty(t, AllowedOriginsFromEnv())
}
