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
)

type SessionRepo struct {
	DB DBTX
}

const createSession = `-- name: CreateSession
INSERT INTO sessions (id, user_id, token, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, token, created_at, expires_at
`

func (r *SessionRepo) CreateSession(ctx context.Context, s models.Session) (models.Session, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createSession, s.ID, s.UserID, s.Token, s.CreatedAt, s.ExpiresAt)
	session, err := pgx.CollectOneRow(rows, rowToSession)
	if err != nil {
		return session, dbError(err)
	}

	return session, nil
}

const getSessionByToken = `-- name: GetSessionByToken
SELECT id, user_id, token, created_at, expires_at
FROM sessions
WHERE token = $1
`

// Get session even if it expired; expiry is the caller's decision
func (r *SessionRepo) GetSessionByToken(ctx context.Context, token string) (models.Session, error) {
	rows, _ := r.DB.Query(ctx, getSessionByToken, token)
	return collectSession(rows)
}

func collectSession(rows pgx.Rows) (models.Session, error) {
	session, err := pgx.CollectOneRow(rows, rowToSession)

	switch {
	case err == nil:
		return session, nil
	case errors.Is(err, pgx.ErrNoRows):
		return session, fmt.Errorf("repo error: %w", apperrors.ErrSessionNotFound)
	default:
		return session, dbError(err)
	}
}

const getSessionByID = `-- name: GetSessionByID
SELECT id, user_id, token, created_at, expires_at
FROM sessions
WHERE id = $1
`

func (r *SessionRepo) GetSessionByID(ctx context.Context, id uuid.UUID) (models.Session, error) {
	rows, _ := r.DB.Query(ctx, getSessionByID, id)
	return collectSession(rows)
}

const deleteSessionByToken = `-- name: DeleteSessionByToken
DELETE FROM sessions WHERE token = $1
`

func (r *SessionRepo) DeleteSessionByToken(ctx context.Context, token string) error {
	return r.exec(ctx, deleteSessionByToken, token)
}

const deleteSessionByID = `-- name: DeleteSessionByID
DELETE FROM sessions WHERE id = $1
`

func (r *SessionRepo) DeleteSessionByID(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, deleteSessionByID, id)
}

const deleteUserSessions = `-- name: DeleteUserSessions
DELETE FROM sessions WHERE user_id = $1
`

func (r *SessionRepo) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	return r.exec(ctx, deleteUserSessions, userID)
}

const deleteExpiredSessions = `-- name: DeleteExpiredSessions
DELETE FROM sessions WHERE expires_at <= $1
`

// Remove sessions whose refresh token expired by the moment. Returns number of removed rows
func (r *SessionRepo) DeleteExpiredSessions(ctx context.Context, at time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, deleteExpiredSessions, at)
	if err != nil {
		return 0, dbError(err)
	}
	return tag.RowsAffected(), nil
}

// Deleting nothing is fine
func (r *SessionRepo) exec(ctx context.Context, sql string, args ...any) error {
	if _, err := r.DB.Exec(ctx, sql, args...); err != nil {
		return dbError(err)
	}
	return nil
}

func rowToSession(row pgx.CollectableRow) (models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}
