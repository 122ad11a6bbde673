package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"auth_backend/internal/feature/auth/transport/http/dto"
	"auth_backend/internal/feature/auth/usecase"
)

// writeError maps usecase errors to responses. Anything unrecognised is a 500
// with a generic message.
func writeError(c *gin.Context, err error) {
	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "invalid request", Fields: verr.Fields})
	case errors.Is(err, usecase.ErrEmailAlreadyExists):
		c.JSON(http.StatusBadRequest, dto.ErrorRes{
			Error:  "A user with this email already exists.",
			Fields: map[string]string{"email": "already registered"},
		})
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "Invalid credentials"})
	case errors.Is(err, usecase.ErrEmailNotVerified):
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "Please verify your email before logging in."})
	case errors.Is(err, usecase.ErrTokenExpired):
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "Verification link has expired."})
	case errors.Is(err, usecase.ErrTokenInvalid):
		c.JSON(http.StatusBadRequest, dto.ErrorRes{Error: "Invalid verification token."})
	default:
		slog.Error("request failed", "error", err, "path", c.FullPath(), "remote_addr", c.ClientIP())
		c.JSON(http.StatusInternalServerError, dto.ErrorRes{Error: "internal server error"})
	}
}

// bindingError turns gin binding failures into per-field messages keyed by JSON name.
func bindingError(err error) dto.ErrorRes {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dto.ErrorRes{Error: "invalid request"}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	return dto.ErrorRes{Error: "invalid request", Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}
