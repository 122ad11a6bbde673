package dto

import "auth_backend/internal/feature/auth/domain/entity"

// UserRes is the public view of a user; the password hash is never included.
type UserRes struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	EmailVerified bool   `json:"email_verified"`
}

func NewUserRes(u *entity.User) UserRes {
	return UserRes{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		EmailVerified: u.EmailVerified,
	}
}

// UserMessageRes is returned by signup and login.
type UserMessageRes struct {
	User    UserRes `json:"user"`
	Message string  `json:"message"`
}

type UserEnvelopeRes struct {
	User UserRes `json:"user"`
}

type MessageRes struct {
	Message string `json:"message"`
}

// ErrorRes carries a short message and, for validation failures, per-field messages.
type ErrorRes struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
