package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type updateRequest struct {
	Username *string `json:"username" validate:"omitnil,min=2,max=50"`
	Role     *string `json:"role" validate:"omitnil,role"`
}

func bind[T Struct](t *testing.T, body string) (T, *httptest.ResponseRecorder, error) {
	t.Helper()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	value, err := BindAndValidate[T](w, r)
	return value, w, err
}

func TestRender_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, map[string]any{"accessToken": "a", "user": map[string]string{"role": "USER"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"accessToken":"a","user":{"role":"USER"}}`, w.Body.String())
}

func TestRender_NoContent(t *testing.T) {
	w := httptest.NewRecorder()

	NoContent(w)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.String())
	require.Empty(t, w.Header().Get("Content-Type"))
}

func TestRender_ServiceError(t *testing.T) {
	w := httptest.NewRecorder()

	ServiceError(w, "Session revoked", http.StatusUnauthorized)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"service_error","message":"Session revoked"}`, w.Body.String())
}

func TestRender_BindAndValidate(t *testing.T) {
	t.Run("register ok", func(t *testing.T) {
		got, w, err := bind[registerRequest](t, `{"username":"alice","email":"alice@example.com","password":"secret1"}`)

		require.NoError(t, err)
		require.Equal(t, registerRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"}, got)
		require.Zero(t, w.Body.Len(), "nothing rendered on success")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, w, err := bind[registerRequest](t, `{"username":`)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{
			"error": "decoding_failed",
			"message": "Failed to parse JSON: unexpected EOF"
		}`, w.Body.String())
	})

	t.Run("wrong field type", func(t *testing.T) {
		_, w, err := bind[registerRequest](t, `{"username":"alice","email":"alice@example.com","password":123456}`)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{
			"error": "decoding_failed",
			"message": "Invalid data type for field 'password'"
		}`, w.Body.String())
	})

	t.Run("register fields invalid", func(t *testing.T) {
		_, w, err := bind[registerRequest](t, `{"username":"a","email":"not-an-email","password":"123"}`)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{
			"error": "validation_failed",
			"message": "Request validation failed",
			"fields": {
				"username": "Value is too short (minimum 2)",
				"email": "Invalid email",
				"password": "Value is too short (minimum 6)"
			}
		}`, w.Body.String())
	})

	t.Run("register fields missing", func(t *testing.T) {
		_, w, err := bind[registerRequest](t, `{}`)

		require.Error(t, err)
		assert.JSONEq(t, `{
			"error": "validation_failed",
			"message": "Request validation failed",
			"fields": {
				"username": "This field is required",
				"email": "This field is required",
				"password": "This field is required"
			}
		}`, w.Body.String())
	})

	t.Run("username too long", func(t *testing.T) {
		_, w, err := bind[registerRequest](t, `{"username":"`+strings.Repeat("a", 51)+`","email":"a@b.com","password":"secret1"}`)

		require.Error(t, err)
		assert.JSONEq(t, `{
			"error": "validation_failed",
			"message": "Request validation failed",
			"fields": {"username": "Value is too long (maximum 50)"}
		}`, w.Body.String())
	})

	t.Run("update role", func(t *testing.T) {
		tests := []struct {
			body    string
			wantErr bool
		}{
			{`{"role":"ADMIN"}`, false},
			{`{"role":"USER"}`, false},
			{`{}`, false},
			{`{"role":"admin"}`, true},
			{`{"role":"ROOT"}`, true},
		}

		for _, tt := range tests {
			t.Run(tt.body, func(t *testing.T) {
				_, w, err := bind[updateRequest](t, tt.body)

				if !tt.wantErr {
					require.NoError(t, err)
					return
				}
				require.Error(t, err)
				require.Equal(t, http.StatusBadRequest, w.Code)
				assert.JSONEq(t, `{
					"error": "validation_failed",
					"message": "Request validation failed",
					"fields": {"role": "Unknown role"}
				}`, w.Body.String())
			})
		}
	})
}
