package handlers

import (
	"net/http"

	"github.com/nkiryanov/calendar/internal/handlers/middleware"
	"github.com/nkiryanov/calendar/internal/handlers/render"
	"github.com/nkiryanov/calendar/internal/logger"
	"github.com/nkiryanov/calendar/internal/models"
)

type credentialsResponse struct {
	AccessToken  string       `json:"accessToken,omitempty"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	User         userResponse `json:"user"`
}

func newCredentialsResponse(creds models.Credentials) credentialsResponse {
	return credentialsResponse{
		AccessToken:  creds.Tokens.Access.Value,
		RefreshToken: creds.Tokens.Refresh.Value,
		User:         newUserResponse(creds.User),
	}
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		creds, err := authService.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			render.Error(w, err, l)
			return
		}

		render.JSON(w, newCredentialsResponse(creds))
	})
}

func handleRegister(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required,min=2,max=50"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		creds, err := authService.Register(r.Context(), data.Username, data.Email, data.Password)
		if err != nil {
			render.Error(w, err, l)
			return
		}

		render.JSON(w, newCredentialsResponse(creds))
	})
}

// Exchange refresh token for new access token
func handleToken(authService authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type response struct {
		AccessToken string `json:"accessToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		access, err := authService.Refresh(r.Context(), data.RefreshToken)
		if err != nil {
			render.Error(w, err, l)
			return
		}

		render.JSON(w, response{AccessToken: access.Value})
	})
}

// Resolve bearer to current user. Used by other services
func handleAuth(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := middleware.BearerToken(r)
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		u, err := authService.Authenticate(r.Context(), token)
		if err != nil {
			render.Error(w, err, l)
			return
		}

		render.JSON(w, newUserResponse(u))
	})
}

func handleLogout(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := middleware.BearerToken(r)
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if err := authService.Logout(r.Context(), token); err != nil {
			render.Error(w, err, l)
			return
		}

		render.NoContent(w)
	})
}
