package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return error apperrors.ErrDuplicateEmail.
	// Uniqueness must be enforced by the store itself, not by a prior read.
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Apply not nil params in one atomic write and return the updated user
	// Must return apperrors.ErrDuplicateEmail or apperrors.ErrUserNotFound
	UpdateUser(ctx context.Context, userID uuid.UUID, params UpdateUserParams) (models.User, error)

	// Delete user. Must return apperrors.ErrUserNotFound if nothing deleted
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	// List users ordered by creation time
	ListUsers(ctx context.Context, page models.Page) ([]models.User, error)
	ListUsersByID(ctx context.Context, ids []uuid.UUID, page models.Page) ([]models.User, error)
}

type UpdateUserParams struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Role         *models.Role

	// true sets suspended_at to SuspendAt unless already suspended, false clears it
	Suspended *bool
	SuspendAt time.Time
}

// Refresh session repository interface
// All deletes are idempotent: deleting absent rows is not an error
type SessionRepo interface {
	// Persist new session. Many sessions per user are allowed
	CreateSession(ctx context.Context, session models.Session) (models.Session, error)

	// Must return apperrors.ErrSessionNotFound if token or id unknown
	GetSessionByToken(ctx context.Context, token string) (models.Session, error)
	GetSessionByID(ctx context.Context, sessionID uuid.UUID) (models.Session, error)

	DeleteSessionByToken(ctx context.Context, token string) error
	DeleteSessionByID(ctx context.Context, sessionID uuid.UUID) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
}

// Storage with all the repos
type Storage interface {
	User() UserRepo
	Session() SessionRepo
}
