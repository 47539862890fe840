package auth

import (
	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
)

// The only place that decides who may act on a user account.
// Fails with apperrors.ErrPermissionDenied unless the caller is the target or an admin.
func AuthorizeSelfOrAdmin(claims models.Claims, targetUserID uuid.UUID) error {
	if claims.UserID == targetUserID && targetUserID != uuid.Nil {
		return nil
	}
	return AuthorizeAdmin(claims)
}

func AuthorizeAdmin(claims models.Claims) error {
	if claims.Role == models.RoleAdmin {
		return nil
	}
	return apperrors.ErrPermissionDenied
}
