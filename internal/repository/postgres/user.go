package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
	"github.com/nkiryanov/calendar/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, username, email, password_hash, role, suspended_at`

const createUser = `-- name: CreateUser
INSERT INTO users (id, created_at, username, email, password_hash, role, suspended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

// Create user. ID and CreatedAt are generated if zero
func (r *UserRepo) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	rows, _ := r.DB.Query(ctx, createUser, u.ID, u.CreatedAt, u.Username, u.Email, u.PasswordHash, string(u.Role), u.SuspendedAt)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		if dupErr := duplicateUserError(err); dupErr != nil {
			return user, dupErr
		}
		return user, dbError(err)
	}
	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	return collectUser(rows)
}

// Emails are unique case-insensitively, see users_email_key
const getUserByEmail = `-- name: GetUserByEmail
SELECT ` + userColumns + ` FROM users
WHERE lower(email) = lower($1)
`

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByEmail, email)
	return collectUser(rows)
}

// Single statement, so concurrent updates never interleave field by field
const updateUser = `-- name: UpdateUser
UPDATE users SET
	username = COALESCE($2, username),
	email = COALESCE($3, email),
	password_hash = COALESCE($4, password_hash),
	role = COALESCE($5, role),
	suspended_at = CASE
		WHEN $6::boolean IS NULL THEN suspended_at
		WHEN $6::boolean THEN COALESCE(suspended_at, $7)
		ELSE NULL
	END
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateUser(ctx context.Context, id uuid.UUID, p repository.UpdateUserParams) (models.User, error) {
	var role *string
	if p.Role != nil {
		v := string(*p.Role)
		role = &v
	}

	rows, _ := r.DB.Query(ctx, updateUser, id, p.Username, p.Email, p.PasswordHash, role, p.Suspended, p.SuspendAt)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	case duplicateUserError(err) != nil:
		return user, duplicateUserError(err)
	default:
		return user, dbError(err)
	}
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

func (r *UserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteUser, id)
	switch {
	case err != nil:
		return dbError(err)
	case tag.RowsAffected() == 0:
		return fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return nil
	}
}

// LIMIT NULL means no limit
const listUsers = `-- name: ListUsers
SELECT ` + userColumns + ` FROM users
ORDER BY created_at, id
LIMIT $1 OFFSET $2
`

func (r *UserRepo) ListUsers(ctx context.Context, page models.Page) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers, pageLimit(page), page.Offset())
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, dbError(err)
	}
	return users, nil
}

const listUsersByID = `-- name: ListUsersByID
SELECT ` + userColumns + ` FROM users
WHERE id = ANY($1)
ORDER BY created_at, id
LIMIT $2 OFFSET $3
`

func (r *UserRepo) ListUsersByID(ctx context.Context, ids []uuid.UUID, page models.Page) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsersByID, ids, pageLimit(page), page.Offset())
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, dbError(err)
	}
	return users, nil
}

func pageLimit(page models.Page) *int {
	if page.PerPage < 0 {
		return nil
	}
	limit := page.Limit()
	return &limit
}

func collectUser(rows pgx.Rows) (models.User, error) {
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, fmt.Errorf("repo error: %w", apperrors.ErrUserNotFound)
	default:
		return user, dbError(err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.SuspendedAt)
	return u, err
}
