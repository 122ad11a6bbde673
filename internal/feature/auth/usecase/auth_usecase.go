package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"auth_backend/internal/feature/auth/domain/entity"

	"golang.org/x/crypto/bcrypt"
)

const (
	// maxPasswordBytes is the longest input bcrypt accepts.
	maxPasswordBytes = 72

	verificationSubject = "Verify your email"
)

// dummyHash keeps Login's timing constant when the email is unknown.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserRepository はユーザーエンティティの永続化層を抽象化します。
type UserRepository interface {
	// Create persists a new user. It returns ErrEmailAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail returns ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID returns ErrUserNotFound when no user has the ID.
	FindByID(ctx context.Context, id uint) (*entity.User, error)

	// MarkEmailVerified sets email_verified to true if it is still false.
	// It reports whether a row was changed.
	MarkEmailVerified(ctx context.Context, id uint) (bool, error)
}

// TokenService issues and validates email verification tokens.
// Validate returns ErrTokenExpired or an error wrapping ErrTokenInvalid.
type TokenService interface {
	Issue(userID uint) (string, error)
	Validate(token string) (uint, error)
}

// Notifier delivers mail to one or more recipients.
type Notifier interface {
	Send(ctx context.Context, subject, body, from string, to []string) error
}

// Config holds the tunables of the auth flows.
type Config struct {
	// VerifyURLBase is the link the token is appended to as the "token" query parameter.
	VerifyURLBase string
	// MailFrom is the sender address of verification mail.
	MailFrom string
	// MailFailSilently makes signup succeed even when the verification mail cannot be sent.
	MailFailSilently bool
	// SessionTTL is the lifetime of a login session.
	SessionTTL time.Duration
	// MaxSessionsPerUser caps concurrent sessions; the oldest is evicted. Zero disables the cap.
	MaxSessionsPerUser int64
}

// ClientInfo identifies the client that opens a session.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// VerificationResult is the outcome of a successful VerifyEmail call.
type VerificationResult int

const (
	// EmailVerified means the flag was flipped by this call.
	EmailVerified VerificationResult = iota
	// EmailAlreadyVerified means the user had been verified before; nothing changed.
	EmailAlreadyVerified
)

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users    UserRepository
	sessions SessionRepository
	tokens   TokenService
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(users UserRepository, sessions SessionRepository, tokens TokenService,
	notifier Notifier, cfg Config) *authUsecase {
	return &authUsecase{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// validatePassword はパスワードがハッシュ可能かチェックします。
func validatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "this field is required")
	}
	if len(password) > maxPasswordBytes {
		return NewValidationError("password",
			fmt.Sprintf("must be at most %d bytes long", maxPasswordBytes))
	}
	return nil
}

// normalizeEmail trims whitespace and lowercases the domain part.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, found := strings.Cut(email, "@")
	if !found {
		return email
	}
	return local + "@" + strings.ToLower(domain)
}

// Signup registers an unverified user and mails a verification link.
// When the mail cannot be sent and MailFailSilently is off, the created user is
// returned together with the error.
func (u *authUsecase) Signup(ctx context.Context, email, password string) (*entity.User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, NewValidationError("email", "enter a valid email address")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{
		Email:    email,
		Username: entity.UsernameFromEmail(email),
		Password: string(hashed),
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := u.sendVerification(ctx, user); err != nil {
		if !u.cfg.MailFailSilently {
			return user, err
		}
		slog.Warn("verification email not sent", "error", err, "user_id", user.ID)
	}
	return user, nil
}

func (u *authUsecase) sendVerification(ctx context.Context, user *entity.User) error {
	token, err := u.tokens.Issue(user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}
	link, err := verificationLink(u.cfg.VerifyURLBase, token)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Please click this link to verify your email: %s", link)
	if err := u.notifier.Send(ctx, verificationSubject, body, u.cfg.MailFrom, []string{user.Email}); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// verificationLink sets the token query parameter on base, keeping any existing query.
func verificationLink(base, token string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid verification url %q: %w", base, err)
	}
	q := parsed.Query()
	q.Set("token", token)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// Login checks the credentials of a verified user and opens a session.
// A registered but unverified email yields ErrEmailNotVerified whatever the password.
// bcrypt is always run, even for unknown emails, so response timing does not reveal registration.
func (u *authUsecase) Login(ctx context.Context, email, password string, client ClientInfo) (*entity.User, *entity.Session, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}

	passwordHash := dummyHash
	if err == nil {
		passwordHash = user.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	// Unverified accounts are refused before the password result is looked at.
	if !user.EmailVerified {
		return nil, nil, ErrEmailNotVerified
	}
	if compareErr != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := u.openSession(ctx, user.ID, client)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

func (u *authUsecase) openSession(ctx context.Context, userID uint, client ClientInfo) (*entity.Session, error) {
	if u.cfg.MaxSessionsPerUser > 0 {
		count, err := u.sessions.CountByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count sessions: %w", err)
		}
		if count >= u.cfg.MaxSessionsPerUser {
			if err := u.sessions.DeleteOldestByUserID(ctx, userID); err != nil {
				return nil, fmt.Errorf("failed to evict oldest session: %w", err)
			}
		}
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	now := u.now()
	session := &entity.Session{
		ID:        id,
		UserID:    userID,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(u.cfg.SessionTTL),
	}
	if err := u.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// newSessionID returns 32 random bytes as 64 hex characters.
func newSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Logout revokes the session. Unknown or empty IDs are not an error.
func (u *authUsecase) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := u.sessions.Revoke(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// VerifyEmail consumes a verification token. Tokens are not tracked, so a token can be
// replayed until it expires; a replay only reports EmailAlreadyVerified.
func (u *authUsecase) VerifyEmail(ctx context.Context, token string) (VerificationResult, error) {
	userID, err := u.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, ErrTokenInvalid
		}
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.EmailVerified {
		return EmailAlreadyVerified, nil
	}

	changed, err := u.users.MarkEmailVerified(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark email verified: %w", err)
	}
	if !changed {
		return EmailAlreadyVerified, nil
	}
	return EmailVerified, nil
}

// CurrentUser returns the user that owns an authenticated session.
func (u *authUsecase) CurrentUser(ctx context.Context, userID uint) (*entity.User, error) {
	return u.users.FindByID(ctx, userID)
}
