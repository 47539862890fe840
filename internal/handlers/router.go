package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/handlers/middleware"
	"github.com/nkiryanov/calendar/internal/logger"
	"github.com/nkiryanov/calendar/internal/models"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	guard guard,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(guard, logger)

	api := http.NewServeMux()

	api.Handle("POST /login", handleLogin(authService, logger))
	api.Handle("POST /register", handleRegister(authService, logger))
	api.Handle("POST /token", handleToken(authService, logger))
	api.Handle("GET /auth", handleAuth(authService, logger))
	api.Handle("POST /logout", handleLogout(authService, logger))

	api.Handle("GET /users/{id}", withAuth(handleGetUser(authService, logger)))
	api.Handle("GET /users", withAuth(handleGetUsers(authService, logger)))
	api.Handle("PATCH /users/{id}", withAuth(handleUpdateUser(authService, logger)))
	api.Handle("DELETE /users/{id}", withAuth(handleDeleteUser(authService, logger)))
	api.Handle("GET /admin/users", withAuth(handleGetAllUsers(authService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/identity/", http.StripPrefix("/api/identity", api))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type guard interface {
	Validate(access string) (models.Claims, error)
}

type authService interface {
	// Register user and open first session
	// Has to return apperrors.ErrDuplicateEmail if email taken
	Register(ctx context.Context, username string, email string, password string) (models.Credentials, error)

	// Has to return apperrors.ErrInvalidCredentials or apperrors.ErrAccountSuspended
	Login(ctx context.Context, email string, password string) (models.Credentials, error)

	// New access token for refresh token
	// Has to return apperrors.ErrSessionRevoked if session no longer exists
	Refresh(ctx context.Context, refresh string) (models.IssuedToken, error)

	Logout(ctx context.Context, access string) error
	Authenticate(ctx context.Context, access string) (models.User, error)

	UpdateUser(ctx context.Context, claims models.Claims, targetID uuid.UUID, update models.UserUpdate) (models.Credentials, error)
	DeleteUser(ctx context.Context, claims models.Claims, targetID uuid.UUID) error

	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUsersByID(ctx context.Context, ids []uuid.UUID, page models.Page) ([]models.User, error)
	GetAllUsers(ctx context.Context, claims models.Claims, page models.Page) ([]models.User, error)
}
