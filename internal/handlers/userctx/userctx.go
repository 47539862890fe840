package userctx

import (
	"context"

	"github.com/nkiryanov/calendar/internal/models"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Create a new context with the caller's access token claims
func New(ctx context.Context, claims models.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Extract the caller's claims from the context
func FromContext(ctx context.Context) (models.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(models.Claims)
	return claims, ok
}
