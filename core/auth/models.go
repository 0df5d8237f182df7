package auth

import (
	"strings"
	"time"

	"github.com/trezcool/academia/core"
)

// Account is the login view of an admin, instructor or student row.
type Account struct {
	ID           int
	Role         core.Role
	Name         string
	Email        string
	PasswordHash []byte
	IsActive     bool
}

func (a Account) Identity() core.Identity {
	return core.Identity{UserID: a.ID, Role: a.Role, Name: a.Name, Email: a.Email}
}

type Admin struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash []byte     `json:"-"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Credentials is a login attempt.
type Credentials struct {
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	AccountType core.Role `json:"account_type"`
}

// NewAccount is a self registration of an instructor or a student.
type NewAccount struct {
	AccountType     core.Role `json:"account_type"`
	FirstName       string    `json:"first_name" validate:"required,min=2,personname"`
	LastName        string    `json:"last_name" validate:"required,min=2,personname"`
	Email           string    `json:"email" validate:"required,email"`
	Phone           string    `json:"phone" validate:"omitempty,phone"`
	Department      string    `json:"department"`
	Password        string    `json:"password" validate:"required"`
	PasswordConfirm string    `json:"password_confirm" validate:"eqfield=Password"`
}

func (na *NewAccount) clean() {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = strings.ToLower(core.CleanString(na.Email))
	na.Phone = core.CleanString(na.Phone)
	na.Department = core.CleanString(na.Department)
}

// NewAdmin creates or replaces the admin account with Email.
type NewAdmin struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// passwordReset carries the personal details the new password is compared to.
type passwordReset struct {
	Password string `json:"password" validate:"required"`
	name     string
	email    string
}
