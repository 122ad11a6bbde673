// Package jwtmw issues and validates the signed email verification tokens.
package jwtmw

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"auth_backend/internal/feature/auth/usecase"
)

const (
	// EnvKeyJWTSecret names the environment variable holding the HMAC secret.
	EnvKeyJWTSecret = "JWT_SECRET"

	// DefaultTTL is how long a verification link stays valid.
	DefaultTTL = 24 * time.Hour

	DefaultIssuer = "auth_backend"
)

var (
	// ErrTokenMalformed covers bad signatures, wrong algorithms and broken structure.
	ErrTokenMalformed = fmt.Errorf("%w: malformed", usecase.ErrTokenInvalid)

	// ErrTokenExpired is returned for tokens past their exp claim.
	ErrTokenExpired = usecase.ErrTokenExpired

	// ErrSecretRequired is returned when no HMAC secret is configured.
	ErrSecretRequired = errors.New(EnvKeyJWTSecret + " must be set")
)

// Config holds the token settings read from the environment.
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// LoadConfig reads JWT_SECRET, VERIFY_TOKEN_TTL and TOKEN_ISSUER.
func LoadConfig() Config {
	cfg := Config{
		Secret: os.Getenv(EnvKeyJWTSecret),
		TTL:    DefaultTTL,
		Issuer: DefaultIssuer,
	}
	if v := os.Getenv("VERIFY_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TTL = d
		}
	}
	if v := os.Getenv("TOKEN_ISSUER"); v != "" {
		cfg.Issuer = v
	}
	return cfg
}

// VerificationClaims is the payload of a verification token.
type VerificationClaims struct {
	jwt.RegisteredClaims
	UserID uint `json:"uid"`
}

// VerificationTokens issues and validates HS256 verification tokens.
type VerificationTokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

var _ usecase.TokenService = (*VerificationTokens)(nil)

// Option customises VerificationTokens.
type Option func(*VerificationTokens)

// WithClock replaces time.Now for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(v *VerificationTokens) { v.now = now }
}

// NewVerificationTokens creates the token service. It fails with ErrSecretRequired on an
// empty secret. A non-positive TTL falls back to DefaultTTL.
func NewVerificationTokens(cfg Config, opts ...Option) (*VerificationTokens, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretRequired
	}
	v := &VerificationTokens{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	if v.ttl <= 0 {
		v.ttl = DefaultTTL
	}
	if v.issuer == "" {
		v.issuer = DefaultIssuer
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Issue returns a signed token for userID expiring after the configured TTL.
func (v *VerificationTokens) Issue(userID uint) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrSecretRequired
	}
	now := v.now()
	claims := VerificationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			ID:        uuid.NewString(),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature and expiry and returns the embedded user ID.
func (v *VerificationTokens) Validate(tokenStr string) (uint, error) {
	if len(v.secret) == 0 {
		return 0, ErrTokenMalformed
	}
	claims := &VerificationClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		// only HMAC is accepted
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !token.Valid {
		return 0, ErrTokenMalformed
	}

	sub, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || sub == 0 || uint(sub) != claims.UserID {
		return 0, ErrTokenMalformed
	}
	return claims.UserID, nil
}
