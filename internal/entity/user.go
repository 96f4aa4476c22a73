package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is what a verified token tells us about the caller.
type Identity struct {
	UserID  string `json:"uid"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}
