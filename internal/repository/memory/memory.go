// Package memory is an in-process repository.Storage for tests and local runs.
// It keeps the same contracts as the postgres one: unique emails (ignoring case)
// and usernames, idempotent session deletes and well known errors.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
	"github.com/nkiryanov/calendar/internal/repository"
)

type Storage struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	sessions map[string]models.Session

	// Injected failures, returned by every call of the repo when set
	userErr    error
	sessionErr error
}

func NewStorage() *Storage {
	return &Storage{
		users:    make(map[uuid.UUID]models.User),
		sessions: make(map[string]models.Session),
	}
}

func (s *Storage) User() repository.UserRepo {
	return &UserRepo{s: s}
}

func (s *Storage) Session() repository.SessionRepo {
	return &SessionRepo{s: s}
}

// Make every following user repo call fail with err (nil to recover)
func (s *Storage) FailUsers(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userErr = err
}

// Make every following session repo call fail with err (nil to recover)
func (s *Storage) FailSessions(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionErr = err
}

// Number of stored sessions
func (s *Storage) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type UserRepo struct {
	s *Storage
}

func (r *UserRepo) CreateUser(_ context.Context, u models.User) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.userErr != nil {
		return models.User{}, r.s.userErr
	}
	if _, taken := r.emailOwner(u.Email); taken {
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrDuplicateEmail)
	}
	if _, taken := r.usernameOwner(u.Username); taken {
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrDuplicateUsername)
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	r.s.users[u.ID] = u
	return u, nil
}

func (r *UserRepo) GetUserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.userErr != nil {
		return models.User{}, r.s.userErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	return u, nil
}

func (r *UserRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.userErr != nil {
		return models.User{}, r.s.userErr
	}
	u, ok := r.emailOwner(email)
	if !ok {
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	return u, nil
}

func (r *UserRepo) UpdateUser(_ context.Context, id uuid.UUID, p repository.UpdateUserParams) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.userErr != nil {
		return models.User{}, r.s.userErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	if p.Email != nil {
		if owner, taken := r.emailOwner(*p.Email); taken && owner.ID != id {
			return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrDuplicateEmail)
		}
		u.Email = *p.Email
	}
	if p.Username != nil {
		if owner, taken := r.usernameOwner(*p.Username); taken && owner.ID != id {
			return models.User{}, fmt.Errorf("repo error: %w", apperrors.ErrDuplicateUsername)
		}
		u.Username = *p.Username
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	switch {
	case p.Suspended == nil:
	case *p.Suspended && u.SuspendedAt == nil:
		at := p.SuspendAt
		u.SuspendedAt = &at
	case !*p.Suspended:
		u.SuspendedAt = nil
	}

	r.s.users[id] = u
	return u, nil
}

func (r *UserRepo) DeleteUser(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.userErr != nil {
		return r.s.userErr
	}
	if _, ok := r.s.users[id]; !ok {
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	}
	delete(r.s.users, id)
	return nil
}

func (r *UserRepo) ListUsers(_ context.Context, page models.Page) ([]models.User, error) {
	return r.list(page, func(models.User) bool { return true })
}

func (r *UserRepo) ListUsersByID(_ context.Context, ids []uuid.UUID, page models.Page) ([]models.User, error) {
	return r.list(page, func(u models.User) bool { return slices.Contains(ids, u.ID) })
}

func (r *UserRepo) list(page models.Page, keep func(models.User) bool) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.userErr != nil {
		return nil, r.s.userErr
	}

	users := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if keep(u) {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b models.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	offset := min(page.Offset(), len(users))
	users = users[offset:]
	if page.PerPage >= 0 && page.PerPage < len(users) {
		users = users[:page.PerPage]
	}
	return users, nil
}

// Must be called with lock held. Emails compare ignoring case
func (r *UserRepo) emailOwner(email string) (models.User, bool) {
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return models.User{}, false
}

// Must be called with lock held
func (r *UserRepo) usernameOwner(username string) (models.User, bool) {
	for _, u := range r.s.users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}

type SessionRepo struct {
	s *Storage
}

func (r *SessionRepo) CreateSession(_ context.Context, session models.Session) (models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.sessionErr != nil {
		return models.Session{}, r.s.sessionErr
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if _, exists := r.s.sessions[session.Token]; exists {
		return models.Session{}, fmt.Errorf("repo error: duplicate session token")
	}

	r.s.sessions[session.Token] = session
	return session, nil
}

func (r *SessionRepo) GetSessionByToken(_ context.Context, token string) (models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.sessionErr != nil {
		return models.Session{}, r.s.sessionErr
	}
	session, ok := r.s.sessions[token]
	if !ok {
		return models.Session{}, fmt.Errorf("repo error: %w", apperrors.ErrSessionNotFound)
	}
	return session, nil
}

func (r *SessionRepo) GetSessionByID(_ context.Context, id uuid.UUID) (models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.sessionErr != nil {
		return models.Session{}, r.s.sessionErr
	}
	for _, session := range r.s.sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return models.Session{}, fmt.Errorf("repo error: %w", apperrors.ErrSessionNotFound)
}

func (r *SessionRepo) DeleteSessionByToken(_ context.Context, token string) error {
	return r.deleteWhere(func(s models.Session) bool { return s.Token == token })
}

func (r *SessionRepo) DeleteSessionByID(_ context.Context, id uuid.UUID) error {
	return r.deleteWhere(func(s models.Session) bool { return s.ID == id })
}

func (r *SessionRepo) DeleteUserSessions(_ context.Context, userID uuid.UUID) error {
	return r.deleteWhere(func(s models.Session) bool { return s.UserID == userID })
}

func (r *SessionRepo) deleteWhere(match func(models.Session) bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.sessionErr != nil {
		return r.s.sessionErr
	}
	for token, s := range r.s.sessions {
		if match(s) {
			delete(r.s.sessions, token)
		}
	}
	return nil
}
