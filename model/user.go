package model

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is an identity that owns accounts. Password always holds the bcrypt
// hash, never the plaintext.
type User struct {
	ID        int64     `json:"-"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Roles     []string  `json:"roles"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
