package session

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultCookieName  = "session_id"
	DefaultTTL         = 14 * 24 * time.Hour
	DefaultMaxPerUser  = 5
	DefaultRedisPrefix = "session"
)

// Config holds session and cookie settings.
type Config struct {
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
	MaxPerUser   int64
}

// LoadConfig reads SESSION_COOKIE_NAME, COOKIE_SECURE, SESSION_TTL and SESSION_MAX_PER_USER.
func LoadConfig() Config {
	cfg := Config{
		CookieName: DefaultCookieName,
		TTL:        DefaultTTL,
		MaxPerUser: DefaultMaxPerUser,
	}
	if v := os.Getenv("SESSION_COOKIE_NAME"); v != "" {
		cfg.CookieName = v
	}
	cfg.CookieSecure = os.Getenv("COOKIE_SECURE") == "true"
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TTL = d
		}
	}
	if v := os.Getenv("SESSION_MAX_PER_USER"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			cfg.MaxPerUser = n
		}
	}
	return cfg
}
