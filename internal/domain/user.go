// Package domain contains entities and their invariants, no transport or storage.
package domain

import "strings"

const (
	MaxUserIDLen   = 64
	MaxUsernameLen = 64
)

type UserID string

type User struct {
	ID       UserID `json:"user_id"`
	Username string `json:"username"`
}

// NewUser validates the identity a client presents on connect.
// Identity is asserted by the client; the connection itself is not authenticated.
func NewUser(id, username string) (*User, error) {
	id = strings.TrimSpace(id)
	username = strings.TrimSpace(username)
	if id == "" {
		return nil, ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	if username == "" {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{ID: UserID(id), Username: username}, nil
}
