package middleware

import (
	"net/http"
	"strings"

	"github.com/nkiryanov/calendar/internal/handlers/render"
	"github.com/nkiryanov/calendar/internal/handlers/userctx"
	"github.com/nkiryanov/calendar/internal/models"
)

type guard interface {
	Validate(access string) (models.Claims, error)
}

type errorLogger interface {
	Error(msg string, args ...any)
}

// Validate bearer access token and put its claims to request context
// Storage is never touched here, so role or suspension changes apply after the token expires
func AuthMiddleware(g guard, l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := g.Validate(token)
			if err != nil {
				render.Error(w, err, l)
				return
			}

			ctx := userctx.New(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Token from 'Authorization: Bearer <token>' header
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
