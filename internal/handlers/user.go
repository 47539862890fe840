package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/handlers/render"
	"github.com/nkiryanov/calendar/internal/handlers/userctx"
	"github.com/nkiryanov/calendar/internal/logger"
	"github.com/nkiryanov/calendar/internal/models"
)

type userResponse struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	CreatedAt   time.Time   `json:"createdAt"`
	SuspendedAt *time.Time  `json:"suspendedAt,omitempty"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		SuspendedAt: u.SuspendedAt,
	}
}

type usersResponse struct {
	Users []userResponse `json:"users"`
}

func newUsersResponse(users []models.User) usersResponse {
	resp := usersResponse{Users: make([]userResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, newUserResponse(u))
	}
	return resp
}

// User id from the path. Renders error if not valid
func pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, "Invalid user id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func handleGetUser(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUserID(w, r)
		if !ok {
			return
		}

		u, err := authService.GetUserByID(r.Context(), id)
		if err != nil {
			render.Error(w, err, l)
			return
		}

		render.JSON(w, newUserResponse(u))
	})
}

// Users by ids: ?id=<uuid>&id=<uuid> or ?id=<uuid>,<uuid>
func handleGetUsers(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r.URL.Query())
		if err != nil {
			render.ServiceError(w, err.Error(), http.StatusBadRequest)
			return
		}

		ids, err := parseIDs(r.URL.Query()["id"])
		if err != nil {
			render.ServiceError(w, err.Error(), http.StatusBadRequest)
			return
		}

		users, err := authService.GetUsersByID(r.Context(), ids, page)
		if err != nil {
			render.Error(w, err, l)
			return
		}

		render.JSON(w, newUsersResponse(users))
	})
}

func handleGetAllUsers(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		page, err := parsePage(r.URL.Query())
		if err != nil {
			render.ServiceError(w, err.Error(), http.StatusBadRequest)
			return
		}

		users, err := authService.GetAllUsers(r.Context(), claims, page)
		if err != nil {
			render.Error(w, err, l)
			return
		}

		render.JSON(w, newUsersResponse(users))
	})
}

func handleUpdateUser(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Username  *string `json:"username" validate:"omitnil,min=2,max=50"`
		Email     *string `json:"email" validate:"omitnil,email"`
		Password  *string `json:"password" validate:"omitnil,min=6"`
		Role      *string `json:"role" validate:"omitnil,role"`
		Suspended *bool   `json:"suspended"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		id, ok := pathUserID(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		update := models.UserUpdate{
			Username:  data.Username,
			Email:     data.Email,
			Password:  data.Password,
			Suspended: data.Suspended,
		}
		if data.Role != nil {
			role := models.Role(*data.Role)
			update.Role = &role
		}

		creds, err := authService.UpdateUser(r.Context(), claims, id, update)
		if err != nil {
			render.Error(w, err, l)
			return
		}

		render.JSON(w, newCredentialsResponse(creds))
	})
}

func handleDeleteUser(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		id, ok := pathUserID(w, r)
		if !ok {
			return
		}

		if err := authService.DeleteUser(r.Context(), claims, id); err != nil {
			render.Error(w, err, l)
			return
		}

		render.NoContent(w)
	})
}
