package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	require.True(t, IsNotFound(fmt.Errorf("repo error: %w", ErrUserNotFound)))
	require.True(t, IsNotFound(fmt.Errorf("repo error: %w", ErrSessionNotFound)))
	require.False(t, IsNotFound(ErrSessionRevoked), "revoked session is not a lookup miss")
	require.False(t, IsNotFound(errors.New("boom")))
}

func TestIsTokenError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{fmt.Errorf("parse: %w", ErrTokenMalformed), true},
		{fmt.Errorf("parse: %w", ErrInvalidSignature), true},
		{fmt.Errorf("parse: %w", ErrTokenExpired), true},
		{ErrInvalidCredentials, false},
		{nil, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.err), func(t *testing.T) {
			require.Equal(t, tt.expected, IsTokenError(tt.err))
		})
	}
}
