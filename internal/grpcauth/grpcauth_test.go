package grpcauth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
	"github.com/nkiryanov/calendar/internal/service/auth/tokenmanager"
)

func Test_UnaryServerInterceptor(t *testing.T) {
	t.Parallel()

	tokens, err := tokenmanager.New(tokenmanager.Config{AccessSecret: "access", RefreshSecret: "refresh"})
	require.NoError(t, err)
	guard, err := tokenmanager.NewGuard("access")
	require.NoError(t, err, "other services build guard from access secret only")

	alice := models.User{ID: uuid.New(), Role: models.RoleUser}
	access, err := tokens.IssueAccess(alice, uuid.New())
	require.NoError(t, err)
	refresh, err := tokens.IssueRefresh(alice, uuid.New())
	require.NoError(t, err)

	interceptor := UnaryServerInterceptor(guard, "/calendar.Health/Check")
	private := &grpc.UnaryServerInfo{FullMethod: "/calendar.events.v1.EventService/ListEvents"}

	withToken := func(value string) context.Context {
		return metadata.NewIncomingContext(t.Context(), metadata.Pairs("authorization", value))
	}

	t.Run("public method allowed without token", func(t *testing.T) {
		called := false
		h := func(ctx context.Context, req any) (any, error) {
			called = true
			return "ok", nil
		}

		resp, err := interceptor(t.Context(), nil, &grpc.UnaryServerInfo{FullMethod: "/calendar.Health/Check"}, h)

		require.NoError(t, err)
		require.True(t, called, "handler was not called")
		require.Equal(t, "ok", resp)
	})

	t.Run("valid token", func(t *testing.T) {
		h := func(ctx context.Context, req any) (any, error) {
			claims, ok := ClaimsFromContext(ctx)
			require.True(t, ok, "claims has to be in context")
			return claims.UserID, nil
		}

		resp, err := interceptor(withToken("Bearer "+access.Value), nil, private, h)

		require.NoError(t, err)
		require.Equal(t, alice.ID, resp)
	})

	t.Run("missing token", func(t *testing.T) {
		h := func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler should not be called when token missing")
			return nil, nil
		}

		for _, ctx := range []context.Context{t.Context(), withToken(access.Value), withToken("Bearer ")} {
			_, err := interceptor(ctx, nil, private, h)

			require.Equal(t, codes.Unauthenticated, status.Code(err))
			require.Equal(t, "missing token", status.Convert(err).Message())
		}
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		h := func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler should not be called for refresh token")
			return nil, nil
		}

		_, err := interceptor(withToken("Bearer "+refresh.Value), nil, private, h)

		require.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

func Test_RequireSelfOrAdmin(t *testing.T) {
	t.Parallel()

	self := uuid.New()
	ctxWith := func(claims models.Claims) context.Context {
		return context.WithValue(t.Context(), claimsKey, claims)
	}

	require.NoError(t, RequireSelfOrAdmin(ctxWith(models.Claims{UserID: self, Role: models.RoleUser}), self))
	require.NoError(t, RequireSelfOrAdmin(ctxWith(models.Claims{UserID: self, Role: models.RoleAdmin}), uuid.New()))

	err := RequireSelfOrAdmin(ctxWith(models.Claims{UserID: self, Role: models.RoleUser}), uuid.New())
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	err = RequireSelfOrAdmin(t.Context(), self)
	require.Equal(t, codes.Unauthenticated, status.Code(err), "no claims without interceptor")
}

func Test_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code codes.Code
	}{
		{nil, codes.OK},
		{apperrors.ErrInvalidCredentials, codes.Unauthenticated},
		{apperrors.ErrTokenExpired, codes.Unauthenticated},
		{apperrors.ErrInvalidSignature, codes.Unauthenticated},
		{apperrors.ErrTokenMalformed, codes.Unauthenticated},
		{apperrors.ErrSessionRevoked, codes.Unauthenticated},
		{apperrors.ErrAccountSuspended, codes.PermissionDenied},
		{apperrors.ErrPermissionDenied, codes.PermissionDenied},
		{apperrors.ErrUserNotFound, codes.NotFound},
		{apperrors.ErrSessionNotFound, codes.NotFound},
		{apperrors.ErrDuplicateEmail, codes.AlreadyExists},
		{apperrors.ErrDuplicateUsername, codes.AlreadyExists},
		{apperrors.ErrStorageUnavailable, codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.err), func(t *testing.T) {
			err := Status(fmt.Errorf("wrapped: %w", tt.err))
			if tt.err == nil {
				err = Status(nil)
			}

			require.Equal(t, tt.code, status.Code(err))
		})
	}
}
