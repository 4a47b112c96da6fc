package domain

import (
	"errors"
	"strings"
	"time"
)

// User is a registered account. UserKey is the stable identity every
// emission record is owned by; PasswordHash is a bcrypt hash and is
// never exposed through the API.
type User struct {
	UserKey      string
	Username     string
	PasswordHash string
	Email        string
	NodalPerson  string
	Designation  string
	Company      string
	Phone        string
	Roles        []string
	CreatedAt    time.Time
}

func (u User) Validate() error {
	if strings.TrimSpace(u.UserKey) == "" {
		return errors.New("user key is required")
	}
	if strings.TrimSpace(u.Username) == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	if strings.TrimSpace(u.PasswordHash) == "" {
		return errors.New("password hash is required")
	}
	return nil
}
