package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Username     string
	Email        string
	PasswordHash string
	Role         Role

	// Set when account suspended, nil otherwise
	SuspendedAt *time.Time
}

func (u User) IsSuspended() bool {
	return u.SuspendedAt != nil
}

// Fields to change on user update. Nil means leave as is.
type UserUpdate struct {
	Username *string
	Email    *string
	Password *string
	Role     *Role

	// true suspends the account (keeps original time if already suspended), false lifts suspension
	Suspended *bool
}

// Page of list queries. PerPage < 0 means no limit
type Page struct {
	Number  int
	PerPage int
}

func (p Page) Limit() int {
	return p.PerPage
}

// Offset of the page first item. Saturates at math.MaxInt, so pages past
// any real data are just empty
func (p Page) Offset() int {
	if p.PerPage <= 0 || p.Number <= 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Number - 1) * p.PerPage
}
