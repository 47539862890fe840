package render

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/calendar/internal/apperrors"
)

type logger interface {
	Error(msg string, args ...any)
}

// Render service error with status matching the error kind
// Unexpected errors are logged and rendered as 500 without details
func Error(w http.ResponseWriter, err error, l logger) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		ServiceError(w, "Invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrTokenExpired):
		ServiceError(w, "Token expired", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrInvalidSignature), errors.Is(err, apperrors.ErrTokenMalformed):
		ServiceError(w, "Invalid token", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrSessionRevoked):
		ServiceError(w, "Session revoked", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrAccountSuspended):
		ServiceError(w, "Account suspended", http.StatusForbidden)
	case errors.Is(err, apperrors.ErrPermissionDenied):
		ServiceError(w, "Permission denied", http.StatusForbidden)
	case errors.Is(err, apperrors.ErrUserNotFound):
		ServiceError(w, "User not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrSessionNotFound):
		ServiceError(w, "Session not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrDuplicateEmail):
		ServiceError(w, "Email already taken", http.StatusConflict)
	case errors.Is(err, apperrors.ErrDuplicateUsername):
		ServiceError(w, "Username already taken", http.StatusConflict)
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		l.Error("Storage unavailable", "error", err)
		ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		l.Error("Internal server error", "error", err)
		ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
