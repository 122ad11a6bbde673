package di

import (
	"os"

	"auth_backend/internal/feature/auth/usecase"
	"auth_backend/internal/platform/mail"
	"auth_backend/internal/platform/session"
)

// DefaultVerifyURLBase is the frontend page that receives verification links.
const DefaultVerifyURLBase = "http://localhost:3000/verify-email"

// NewAuthConfig assembles the usecase settings from the mail and session configs
// plus VERIFY_URL_BASE.
func NewAuthConfig(mailCfg mail.Config, sessCfg session.Config) usecase.Config {
	base := os.Getenv("VERIFY_URL_BASE")
	if base == "" {
		base = DefaultVerifyURLBase
	}
	return usecase.Config{
		VerifyURLBase:      base,
		MailFrom:           mailCfg.From,
		MailFailSilently:   mailCfg.FailSilently,
		SessionTTL:         sessCfg.TTL,
		MaxSessionsPerUser: sessCfg.MaxPerUser,
	}
}
