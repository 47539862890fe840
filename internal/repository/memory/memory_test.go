package memory

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
	"github.com/nkiryanov/calendar/internal/repository"
)

func TestUserRepo(t *testing.T) {
	t.Run("duplicate email under concurrency", func(t *testing.T) {
		users := NewStorage().User()

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := users.CreateUser(t.Context(), models.User{Email: "a@b.com", Username: "a"})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)
			}()
		}
		wg.Wait()

		require.Equal(t, 1, succeeded)
	})

	t.Run("update to own email ok", func(t *testing.T) {
		users := NewStorage().User()
		u, err := users.CreateUser(t.Context(), models.User{Email: "a@b.com"})
		require.NoError(t, err)

		email := "a@b.com"
		_, err = users.UpdateUser(t.Context(), u.ID, repository.UpdateUserParams{Email: &email})

		require.NoError(t, err)
	})

	t.Run("list pages", func(t *testing.T) {
		users := NewStorage().User()
		base := time.Now()
		for i := range 3 {
			_, err := users.CreateUser(t.Context(), models.User{
				Email:     uuid.NewString(),
				Username:  uuid.NewString(),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}

		got, err := users.ListUsers(t.Context(), models.Page{Number: 2, PerPage: 2})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.WithinDuration(t, base.Add(2*time.Second), got[0].CreatedAt, 0)

		got, err = users.ListUsers(t.Context(), models.Page{Number: 9, PerPage: 2})
		require.NoError(t, err)
		require.Empty(t, got, "page past the end is empty")

		got, err = users.ListUsers(t.Context(), models.Page{Number: math.MaxInt, PerPage: 100})
		require.NoError(t, err)
		require.Empty(t, got, "huge page number is past the end too")
	})

	t.Run("email taken ignoring case", func(t *testing.T) {
		users := NewStorage().User()
		alice, err := users.CreateUser(t.Context(), models.User{Email: "a@b.com", Username: "alice"})
		require.NoError(t, err)

		_, err = users.CreateUser(t.Context(), models.User{Email: "A@B.com", Username: "mallory"})
		require.ErrorIs(t, err, apperrors.ErrDuplicateEmail)

		got, err := users.GetUserByEmail(t.Context(), "A@b.COM")
		require.NoError(t, err)
		require.Equal(t, alice.ID, got.ID)
	})

	t.Run("username taken", func(t *testing.T) {
		users := NewStorage().User()
		_, err := users.CreateUser(t.Context(), models.User{Email: "a@b.com", Username: "alice"})
		require.NoError(t, err)
		bob, err := users.CreateUser(t.Context(), models.User{Email: "bob@b.com", Username: "bob"})
		require.NoError(t, err)

		_, err = users.CreateUser(t.Context(), models.User{Email: "other@b.com", Username: "alice"})
		require.ErrorIs(t, err, apperrors.ErrDuplicateUsername)

		alice := "alice"
		_, err = users.UpdateUser(t.Context(), bob.ID, repository.UpdateUserParams{Username: &alice})
		require.ErrorIs(t, err, apperrors.ErrDuplicateUsername)

		own := "bob"
		_, err = users.UpdateUser(t.Context(), bob.ID, repository.UpdateUserParams{Username: &own})
		require.NoError(t, err, "keeping own username is fine")
	})
}

func TestSessionRepo(t *testing.T) {
	sessions := NewStorage().Session()
	created, err := sessions.CreateSession(t.Context(), models.Session{UserID: uuid.New(), Token: "token"})
	require.NoError(t, err)

	got, err := sessions.GetSessionByID(t.Context(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "token", got.Token)

	require.NoError(t, sessions.DeleteSessionByID(t.Context(), created.ID))
	_, err = sessions.GetSessionByID(t.Context(), created.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestStorage_Fail(t *testing.T) {
	s := NewStorage()
	boom := errors.New("boom")

	s.FailSessions(boom)

	_, err := s.Session().GetSessionByToken(t.Context(), "x")
	require.ErrorIs(t, err, boom)
	_, err = s.User().CreateUser(t.Context(), models.User{Email: "a@b.com"})
	require.NoError(t, err, "users are not affected")

	s.FailSessions(nil)
	require.NoError(t, s.Session().DeleteSessionByToken(t.Context(), "x"))
}
