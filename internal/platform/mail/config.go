// Package mail delivers outgoing mail through SMTP, SendGrid or the application log.
package mail

import (
	"os"
	"strconv"
	"time"
)

const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
	ProviderLog      = "log"
)

// Config holds mail transport settings.
type Config struct {
	Provider     string
	From         string
	FailSilently bool
	// RatePerMinute caps outbound sends; zero means unlimited.
	RatePerMinute int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	SendGridAPIKey   string
	SendGridEndpoint string
	Timeout          time.Duration
}

// LoadConfig reads the MAIL_*, SMTP_* and SENDGRID_* environment variables.
// Without a provider it falls back to logging messages, which suits local development.
func LoadConfig() Config {
	cfg := Config{
		Provider:         os.Getenv("MAIL_PROVIDER"),
		From:             os.Getenv("MAIL_FROM"),
		FailSilently:     os.Getenv("MAIL_FAIL_SILENTLY") == "true",
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         os.Getenv("SMTP_PORT"),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		SendGridEndpoint: DefaultSendGridEndpoint,
		Timeout:          10 * time.Second,
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderLog
	}
	if cfg.From == "" {
		cfg.From = "no-reply@localhost"
	}
	if cfg.SMTPPort == "" {
		cfg.SMTPPort = "587"
	}
	if v := os.Getenv("MAIL_RATE_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RatePerMinute = n
		}
	}
	return cfg
}
