package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/logger"
	"github.com/nkiryanov/calendar/internal/models"
	"github.com/nkiryanov/calendar/internal/repository"
	"github.com/nkiryanov/calendar/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/calendar/internal/service/user"
)

// Auth service: login, registration, refresh sessions and authorization of user management
type AuthService struct {
	// Manager to issue and parse tokens (access and refresh)
	tokens *tokenmanager.TokenManager

	// Owner of user records
	users *user.UserService

	// Repository of refresh sessions
	sessions repository.SessionRepo

	logger logger.Logger
	now    func() time.Time
}

func NewService(
	tokens *tokenmanager.TokenManager,
	users *user.UserService,
	sessions repository.SessionRepo,
	l logger.Logger,
) (*AuthService, error) {
	if tokens == nil || users == nil || sessions == nil {
		return nil, errors.New("token manager, user service and session repo must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &AuthService{
		tokens:   tokens,
		users:    users,
		sessions: sessions,
		logger:   l,
		now:      time.Now,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, username string, email string, password string) (models.Credentials, error) {
	u, err := s.users.Register(ctx, username, email, password)
	if err != nil {
		return models.Credentials{}, err
	}

	s.logger.Info("User registered", "user_id", u.ID)
	return s.startSession(ctx, u)
}

// Verify credentials and open new session
// Nothing persisted if credentials rejected
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.Credentials, error) {
	u, err := s.users.Verify(ctx, email, password)
	if err != nil {
		return models.Credentials{}, err
	}

	return s.startSession(ctx, u)
}

// Issue new access token for the session behind refresh token
// Role and suspension are read from the store, not from any previous token
// The refresh token itself stays the same. An expired one drops its session row
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.IssuedToken, error) {
	claims, err := s.tokens.ParseRefresh(refresh)
	if errors.Is(err, apperrors.ErrTokenExpired) {
		if delErr := s.sessions.DeleteSessionByToken(ctx, refresh); delErr != nil {
			s.logger.Warn("Failed to drop expired session", "error", delErr)
		}
	}
	if err != nil {
		return models.IssuedToken{}, err
	}

	session, err := s.sessions.GetSessionByToken(ctx, refresh)
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return models.IssuedToken{}, apperrors.ErrSessionRevoked
	case err != nil:
		return models.IssuedToken{}, fmt.Errorf("can't get session. Err: %w", err)
	case session.ID != claims.SessionID || session.UserID != claims.UserID:
		return models.IssuedToken{}, apperrors.ErrSessionRevoked
	}

	u, err := s.users.FindByID(ctx, session.UserID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		s.revoke(ctx, session)
		return models.IssuedToken{}, apperrors.ErrSessionRevoked
	case err != nil:
		return models.IssuedToken{}, fmt.Errorf("can't get session user. Err: %w", err)
	case u.IsSuspended():
		s.revoke(ctx, session)
		return models.IssuedToken{}, apperrors.ErrAccountSuspended
	}

	return s.tokens.IssueAccess(u, session.ID)
}

// Revoke the session the access token was issued for
// Logging out already revoked session is not an error
func (s *AuthService) Logout(ctx context.Context, access string) error {
	claims, err := s.tokens.Guard().Validate(access)
	if err != nil {
		return err
	}

	if err := s.sessions.DeleteSessionByID(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("can't delete session. Err: %w", err)
	}

	s.logger.Info("User logged out", "user_id", claims.UserID)
	return nil
}

// Resolve the bearer of access token to the current user record
func (s *AuthService) Authenticate(ctx context.Context, access string) (models.User, error) {
	claims, err := s.tokens.Guard().Validate(access)
	if err != nil {
		return models.User{}, err
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.User{}, apperrors.ErrSessionRevoked
	case err != nil:
		return models.User{}, err
	case u.IsSuspended():
		return models.User{}, apperrors.ErrAccountSuspended
	}

	return u, nil
}

// Update user on behalf of the caller
//
// Role and suspension may be changed by admins only. New password revokes every session of the
// target. Suspended users keep their session rows until the next refresh reports suspension.
// When callers update themselves their current session is replaced and fresh tokens returned;
// otherwise Credentials.Tokens is empty. Self-updates need the caller's session to be alive,
// so a logged out access token can't be traded for a new session.
func (s *AuthService) UpdateUser(ctx context.Context, claims models.Claims, targetID uuid.UUID, update models.UserUpdate) (models.Credentials, error) {
	if err := AuthorizeSelfOrAdmin(claims, targetID); err != nil {
		return models.Credentials{}, err
	}
	if update.Role != nil || update.Suspended != nil {
		if err := AuthorizeAdmin(claims); err != nil {
			return models.Credentials{}, err
		}
	}

	self := claims.UserID == targetID
	if self {
		if err := s.requireSession(ctx, claims); err != nil {
			return models.Credentials{}, err
		}
	}

	u, err := s.users.Update(ctx, targetID, update)
	if err != nil {
		return models.Credentials{}, err
	}

	revokeAll := update.Password != nil
	if revokeAll {
		if err := s.sessions.DeleteUserSessions(ctx, targetID); err != nil {
			s.logger.Error("Password changed but sessions left, remove them manually", "user_id", targetID, "error", err)
			return models.Credentials{}, fmt.Errorf("password changed, sessions not revoked: %w: %w", apperrors.ErrStorageUnavailable, err)
		}
		s.logger.Info("User sessions revoked", "user_id", targetID, "by", claims.UserID)
	}

	if !self || u.IsSuspended() {
		return models.Credentials{User: u}, nil
	}

	if !revokeAll {
		if err := s.sessions.DeleteSessionByID(ctx, claims.SessionID); err != nil {
			return models.Credentials{}, fmt.Errorf("can't replace session. Err: %w", err)
		}
	}
	return s.startSession(ctx, u)
}

// Delete user with every session of it
//
// There is no transaction across the two stores. If sessions can't be deleted after the user is,
// the error wraps apperrors.ErrStorageUnavailable and leftover sessions have to be cleaned by operator.
func (s *AuthService) DeleteUser(ctx context.Context, claims models.Claims, targetID uuid.UUID) error {
	if err := AuthorizeSelfOrAdmin(claims, targetID); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		return err
	}

	if err := s.sessions.DeleteUserSessions(ctx, targetID); err != nil {
		s.logger.Error("User deleted but sessions left, remove them manually", "user_id", targetID, "error", err)
		return fmt.Errorf("user deleted, sessions not: %w: %w", apperrors.ErrStorageUnavailable, err)
	}

	s.logger.Info("User deleted", "user_id", targetID, "by", claims.UserID)
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) GetUsersByID(ctx context.Context, ids []uuid.UUID, page models.Page) ([]models.User, error) {
	return s.users.FindByIDs(ctx, ids, page)
}

// List every user. Admins only
func (s *AuthService) GetAllUsers(ctx context.Context, claims models.Claims, page models.Page) ([]models.User, error) {
	if err := AuthorizeAdmin(claims); err != nil {
		return nil, err
	}
	return s.users.List(ctx, page)
}

func (s *AuthService) startSession(ctx context.Context, u models.User) (models.Credentials, error) {
	sessionID := uuid.New()

	pair, err := s.tokens.IssuePair(u, sessionID)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	_, err = s.sessions.CreateSession(ctx, models.Session{
		ID:        sessionID,
		UserID:    u.ID,
		Token:     pair.Refresh.Value,
		CreatedAt: s.now(),
		ExpiresAt: pair.Refresh.ExpiresAt,
	})
	if err != nil {
		return models.Credentials{}, fmt.Errorf("error while saving session. Err: %w", err)
	}

	return models.Credentials{Tokens: pair, User: u}, nil
}

// Session the access token was issued for must still exist
func (s *AuthService) requireSession(ctx context.Context, claims models.Claims) error {
	session, err := s.sessions.GetSessionByID(ctx, claims.SessionID)
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return apperrors.ErrSessionRevoked
	case err != nil:
		return fmt.Errorf("can't get session. Err: %w", err)
	case session.UserID != claims.UserID:
		return apperrors.ErrSessionRevoked
	}
	return nil
}

// Best effort: the caller already fails, so delete error is only logged
func (s *AuthService) revoke(ctx context.Context, session models.Session) {
	if err := s.sessions.DeleteSessionByID(ctx, session.ID); err != nil {
		s.logger.Warn("Failed to revoke session", "session_id", session.ID, "error", err)
	}
}
