package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Password string    `json:"password,omitempty"`

	// Wins only ever goes up; it is bumped once per won round.
	Wins int `json:"wins"`

	CreatedAt time.Time `json:"created_at"`
}

// HasPassword reports whether the account was created with a password.
// Accounts without one log in by username alone.
func (u *User) HasPassword() bool {
	return u.Password != ""
}
