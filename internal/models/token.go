package models

import (
	"time"

	"github.com/google/uuid"
)

// Persisted refresh session: one long lived login on one device
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issues by TokenManager, AuthService
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Decoded access token payload
type Claims struct {
	UserID    uuid.UUID
	Role      Role
	SessionID uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// What login, register and self update return to the caller
type Credentials struct {
	Tokens TokenPair
	User   User
}
