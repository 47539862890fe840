package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
	"github.com/nkiryanov/calendar/internal/repository"
)

// Owns user records: hashes passwords, verifies credentials and applies updates
type UserService struct {
	hasher   PasswordHasher
	userRepo repository.UserRepo

	// Hash compared against when no user has the email, so both paths cost the same
	dummyHash func() (string, error)

	now func() time.Time
}

func NewService(hasher PasswordHasher, userRepo repository.UserRepo) *UserService {
	if hasher == nil {
		hasher = DefaultHasher
	}

	return &UserService{
		hasher:   hasher,
		userRepo: userRepo,
		dummyHash: sync.OnceValues(func() (string, error) {
			return hasher.Hash(uuid.NewString())
		}),
		now: time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, username string, email string, password string) (models.User, error) {
	if password == "" {
		return models.User{}, errors.New("can't use empty password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

// Verify email and password pair
// Password checked before suspension, so suspension state is not revealed to whoever does not know the password
func (s *UserService) Verify(ctx context.Context, email string, password string) (models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		if hash, hashErr := s.dummyHash(); hashErr == nil {
			_ = s.hasher.Compare(hash, password)
		}
		return models.User{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return models.User{}, fmt.Errorf("can't get user. Err: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	if user.IsSuspended() {
		return models.User{}, apperrors.ErrAccountSuspended
	}

	return user, nil
}

func (s *UserService) FindByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *UserService) FindByIDs(ctx context.Context, ids []uuid.UUID, page models.Page) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.userRepo.ListUsersByID(ctx, ids, page)
}

func (s *UserService) List(ctx context.Context, page models.Page) ([]models.User, error) {
	return s.userRepo.ListUsers(ctx, page)
}

// Apply update in one write. New password is hashed here, plaintext never reaches the repo
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, update models.UserUpdate) (models.User, error) {
	params := repository.UpdateUserParams{
		Username:  update.Username,
		Email:     update.Email,
		Role:      update.Role,
		Suspended: update.Suspended,
		SuspendAt: s.now(),
	}

	if update.Role != nil && !update.Role.Valid() {
		return models.User{}, fmt.Errorf("unknown role %q", *update.Role)
	}

	if update.Password != nil {
		if *update.Password == "" {
			return models.User{}, errors.New("can't use empty password")
		}
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("can't use this as password, Err: %w", err)
		}
		params.PasswordHash = &hash
	}

	user, err := s.userRepo.UpdateUser(ctx, userID, params)
	if err != nil {
		return models.User{}, fmt.Errorf("can't update user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("can't delete user. Err: %w", err)
	}
	return nil
}
