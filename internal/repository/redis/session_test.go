package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
	"github.com/nkiryanov/calendar/internal/testutil"
)

func Test_SessionRepo(t *testing.T) {
	t.Parallel()

	rd := testutil.StartRedisContainer(t)
	t.Cleanup(rd.Terminate)

	// Every subtest gets an empty db
	withRepo := func(t *testing.T, fn func(repo *SessionRepo)) {
		require.NoError(t, rd.Client.FlushDB(t.Context()).Err())
		fn(NewSessionRepo(rd.Client))
	}

	newSession := func(userID uuid.UUID, token string) models.Session {
		now := time.Now().Truncate(time.Second)
		return models.Session{
			ID:        uuid.New(),
			UserID:    userID,
			Token:     token,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}
	}

	t.Run("create and get", func(t *testing.T) {
		withRepo(t, func(repo *SessionRepo) {
			session := newSession(uuid.New(), "secret-token")

			_, err := repo.CreateSession(t.Context(), session)
			require.NoError(t, err)

			got, err := repo.GetSessionByToken(t.Context(), "secret-token")
			require.NoError(t, err)
			assert.Equal(t, session.ID, got.ID)
			assert.Equal(t, session.UserID, got.UserID)
			assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, 0)

			ttl, err := rd.Client.TTL(t.Context(), tokenKey("secret-token")).Result()
			require.NoError(t, err)
			assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5, "key expires with the session")
		})
	})

	t.Run("create expired fail", func(t *testing.T) {
		withRepo(t, func(repo *SessionRepo) {
			session := newSession(uuid.New(), "late")
			session.ExpiresAt = time.Now().Add(-time.Second)

			_, err := repo.CreateSession(t.Context(), session)

			require.Error(t, err)
		})
	})

	t.Run("get session by id", func(t *testing.T) {
		withRepo(t, func(repo *SessionRepo) {
			session, err := repo.CreateSession(t.Context(), newSession(uuid.New(), "secret-token"))
			require.NoError(t, err)

			got, err := repo.GetSessionByID(t.Context(), session.ID)
			require.NoError(t, err)
			assert.Equal(t, "secret-token", got.Token)

			_, err = repo.GetSessionByID(t.Context(), uuid.New())
			require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
		})
	})

	t.Run("get unknown token", func(t *testing.T) {
		withRepo(t, func(repo *SessionRepo) {
			_, err := repo.GetSessionByToken(t.Context(), "unknown")

			require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
		})
	})

	t.Run("delete by token is idempotent", func(t *testing.T) {
		withRepo(t, func(repo *SessionRepo) {
			userID := uuid.New()
			_, err := repo.CreateSession(t.Context(), newSession(userID, "first"))
			require.NoError(t, err)
			_, err = repo.CreateSession(t.Context(), newSession(userID, "second"))
			require.NoError(t, err)

			require.NoError(t, repo.DeleteSessionByToken(t.Context(), "first"))
			require.NoError(t, repo.DeleteSessionByToken(t.Context(), "first"), "second delete must not fail")

			_, err = repo.GetSessionByToken(t.Context(), "first")
			require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
			_, err = repo.GetSessionByToken(t.Context(), "second")
			require.NoError(t, err, "other session of the same user stays")

			members, err := rd.Client.SMembers(t.Context(), userKey(userID)).Result()
			require.NoError(t, err)
			assert.Len(t, members, 1, "deleted session id removed from user set")
		})
	})

	t.Run("delete by id", func(t *testing.T) {
		withRepo(t, func(repo *SessionRepo) {
			session, err := repo.CreateSession(t.Context(), newSession(uuid.New(), "token"))
			require.NoError(t, err)

			require.NoError(t, repo.DeleteSessionByID(t.Context(), session.ID))
			require.NoError(t, repo.DeleteSessionByID(t.Context(), session.ID))

			_, err = repo.GetSessionByToken(t.Context(), "token")
			require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
			_, err = repo.GetSessionByID(t.Context(), session.ID)
			require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
		})
	})

	t.Run("delete all user sessions", func(t *testing.T) {
		withRepo(t, func(repo *SessionRepo) {
			userID := uuid.New()
			other, err := repo.CreateSession(t.Context(), newSession(uuid.New(), "other-user"))
			require.NoError(t, err)
			for _, token := range []string{"one", "two", "three"} {
				_, err := repo.CreateSession(t.Context(), newSession(userID, token))
				require.NoError(t, err)
			}

			require.NoError(t, repo.DeleteUserSessions(t.Context(), userID))
			require.NoError(t, repo.DeleteUserSessions(t.Context(), userID))

			for _, token := range []string{"one", "two", "three"} {
				_, err := repo.GetSessionByToken(t.Context(), token)
				require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
			}
			got, err := repo.GetSessionByToken(t.Context(), "other-user")
			require.NoError(t, err, "sessions of other users untouched")
			assert.Equal(t, other.ID, got.ID)
		})
	})
}

func Test_redisError(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		err := redisError(errors.New("dial tcp: connection refused"))

		require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	})

	t.Run("server reply", func(t *testing.T) {
		err := redisError(redis.TxFailedErr)

		require.NotErrorIs(t, err, apperrors.ErrStorageUnavailable)
	})
}
