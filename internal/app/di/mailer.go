package di

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"auth_backend/internal/feature/auth/usecase"
	infrahttp "auth_backend/internal/platform/http"
	"auth_backend/internal/platform/mail"
	"auth_backend/internal/shared/ratelimiter"
)

// NewNotifier builds the mail transport selected by cfg.Provider. A positive
// RatePerMinute wraps it in an outbound throttle.
func NewNotifier(cfg mail.Config, logger *slog.Logger) (usecase.Notifier, error) {
	var n mail.Notifier
	switch cfg.Provider {
	case mail.ProviderSMTP:
		if cfg.SMTPHost == "" {
			return nil, errors.New("SMTP_HOST is required for the smtp mail provider")
		}
		n = mail.NewSMTPNotifier(cfg)
	case mail.ProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, errors.New("SENDGRID_API_KEY is required for the sendgrid mail provider")
		}
		n = mail.NewSendGridNotifier(cfg, infrahttp.NewHTTPClient(cfg.Timeout))
	case mail.ProviderLog:
		n = mail.NewLogNotifier(logger)
	default:
		return nil, fmt.Errorf("unsupported MAIL_PROVIDER %q", cfg.Provider)
	}

	if cfg.RatePerMinute > 0 {
		n = mail.NewThrottled(n, ratelimiter.NewRateLimiter(cfg.RatePerMinute, time.Minute))
	}
	return n, nil
}
