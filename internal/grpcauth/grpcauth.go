// Package grpcauth lets calendar services behind the gateway authenticate callers
// with access tokens issued by the identity service.
//
// Only the access secret is needed: tokens are validated locally by tokenmanager.Guard,
// the identity service is not called per request.
package grpcauth

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nkiryanov/calendar/internal/apperrors"
	"github.com/nkiryanov/calendar/internal/models"
	"github.com/nkiryanov/calendar/internal/service/auth"
)

const authorizationKey = "authorization"

type ctxKey string

const claimsKey ctxKey = "claims"

type guard interface {
	Validate(access string) (models.Claims, error)
}

// Interceptor that requires valid bearer token for every method except publicMethods
// Methods are full names like "/calendar.events.v1.EventService/ListEvents"
func UnaryServerInterceptor(g guard, publicMethods ...string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if slices.Contains(publicMethods, info.FullMethod) {
			return handler(ctx, req)
		}

		token, ok := bearerFromMetadata(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		claims, err := g.Validate(token)
		if err != nil {
			return nil, Status(err)
		}

		return handler(context.WithValue(ctx, claimsKey, claims), req)
	}
}

// Claims of the authenticated caller, set by UnaryServerInterceptor
func ClaimsFromContext(ctx context.Context) (models.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(models.Claims)
	return claims, ok
}

// Allow caller acting on own resources or admin, as gRPC status error
func RequireSelfOrAdmin(ctx context.Context, targetUserID uuid.UUID) error {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if err := auth.AuthorizeSelfOrAdmin(claims, targetUserID); err != nil {
		return Status(err)
	}
	return nil
}

// Convert service error to gRPC status error
// Unknown errors become codes.Internal without details
func Status(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "token expired")
	case errors.Is(err, apperrors.ErrInvalidSignature), errors.Is(err, apperrors.ErrTokenMalformed):
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, apperrors.ErrSessionRevoked):
		return status.Error(codes.Unauthenticated, "session revoked")
	case errors.Is(err, apperrors.ErrAccountSuspended):
		return status.Error(codes.PermissionDenied, "account suspended")
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, "permission denied")
	case apperrors.IsNotFound(err):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, apperrors.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, "email already taken")
	case errors.Is(err, apperrors.ErrDuplicateUsername):
		return status.Error(codes.AlreadyExists, "username already taken")
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		return status.Error(codes.Unavailable, "storage unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func bearerFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	for _, value := range md.Get(authorizationKey) {
		scheme, token, found := strings.Cut(value, " ")
		if found && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), true
		}
	}
	return "", false
}
