package router

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	authhandler "auth_backend/internal/feature/auth/transport/handler"
	"auth_backend/internal/platform/http/handler"
	"auth_backend/internal/platform/session"
)

// Deps are the components the HTTP surface is assembled from.
type Deps struct {
	Auth     *authhandler.AuthHandler
	Sessions session.Finder
	Cookies  session.Config
	DB       handler.Pinger
	// AllowedOrigins enables CORS with credentials for these origins. Empty disables CORS.
	AllowedOrigins []string
}

// AllowedOriginsFromEnv splits CORS_ALLOWED_ORIGINS on commas.
func AllowedOriginsFromEnv() []string {
	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()
	// Every route is registered with and without the trailing slash; no redirects.
	r.RedirectTrailingSlash = false

	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 導通確認用
	r.GET("/healthz", handler.Health(d.DB))
	r.HEAD("/healthz", handler.Health(d.DB))

	api := r.Group("/api/auth")
	// 認証不要
	handle(api, "POST", "/signup", d.Auth.Signup)
	handle(api, "POST", "/login", d.Auth.Login)
	handle(api, "POST", "/logout", d.Auth.Logout)
	handle(api, "POST", "/verify-email", d.Auth.VerifyEmail)

	// 認証必須のルート
	authed := api.Group("")
	authed.Use(session.AuthRequired(d.Sessions, d.Cookies))
	{
		handle(authed, "GET", "/me", d.Auth.Me)
	}

	return r
}

// handle registers path both with and without a trailing slash.
func handle(g *gin.RouterGroup, method, path string, h gin.HandlerFunc) {
	g.Handle(method, path, h)
	g.Handle(method, path+"/", h)
}
