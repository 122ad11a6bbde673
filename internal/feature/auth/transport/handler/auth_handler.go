// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"auth_backend/internal/feature/auth/domain/entity"
	"auth_backend/internal/feature/auth/transport/http/dto"
	"auth_backend/internal/feature/auth/usecase"
	"auth_backend/internal/platform/session"
)

const (
	msgSignup          = "User created successfully. Please check your email to verify your account."
	msgLogin           = "Logged in successfully."
	msgLogout          = "Logged out successfully."
	msgVerified        = "Email verified successfully."
	msgAlreadyVerified = "Email already verified."
)

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	Signup(ctx context.Context, email, password string) (*entity.User, error)
	Login(ctx context.Context, email, password string, client usecase.ClientInfo) (*entity.User, *entity.Session, error)
	Logout(ctx context.Context, sessionID string) error
	VerifyEmail(ctx context.Context, token string) (usecase.VerificationResult, error)
	CurrentUser(ctx context.Context, userID uint) (*entity.User, error)
}

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth    AuthUsecase
	cookies session.Config
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase, cookies session.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cookies: cookies}
}

// Signup はユーザー登録APIエンドポイントを処理します。
// - 入力不正・メール重複は400
// - 成功時は201とユーザー情報
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("signup validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("signup failed", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		writeError(c, err)
		return
	}
	slog.Info("user signup successful", "user_id", user.ID, "email", user.Email, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, dto.UserMessageRes{User: dto.NewUserRes(user), Message: msgSignup})
}

// Login はユーザーログインAPIエンドポイントを処理します。
// 成功時はセッションCookieを発行し、ユーザー情報を返します。
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}

	client := usecase.ClientInfo{UserAgent: c.Request.UserAgent(), IPAddress: c.ClientIP()}
	user, s, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, client)
	if err != nil {
		slog.Warn("login failed", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		writeError(c, err)
		return
	}

	session.SetCookie(c, h.cookies, s)
	slog.Info("user login successful", "user_id", user.ID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, dto.UserMessageRes{User: dto.NewUserRes(user), Message: msgLogin})
}

// Logout always succeeds: the cookie is cleared even when the session is unknown
// or the store could not be reached.
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, _ := c.Cookie(h.cookies.CookieName)
	if err := h.auth.Logout(c.Request.Context(), sessionID); err != nil {
		slog.Error("logout: failed to revoke session", "error", err, "remote_addr", c.ClientIP())
	}
	session.ClearCookie(c, h.cookies)
	c.JSON(http.StatusOK, dto.MessageRes{Message: msgLogout})
}

// VerifyEmail consumes the token from a verification link.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindingError(err))
		return
	}

	result, err := h.auth.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		slog.Warn("email verification failed", "error", err, "remote_addr", c.ClientIP())
		writeError(c, err)
		return
	}

	msg := msgVerified
	if result == usecase.EmailAlreadyVerified {
		msg = msgAlreadyVerified
	}
	c.JSON(http.StatusOK, dto.MessageRes{Message: msg})
}

// Me returns the user behind the current session. It must run behind session.AuthRequired.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := session.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorRes{Error: "authentication required"})
		return
	}
	user, err := h.auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, dto.ErrorRes{Error: "authentication required"})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UserEnvelopeRes{User: dto.NewUserRes(user)})
}
