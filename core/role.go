package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Role is the closed set of account kinds. The zero Role is "no role".
type Role struct {
	slug string
}

var (
	RoleAdmin      = Role{"admin"}
	RoleInstructor = Role{"instructor"}
	RoleStudent    = Role{"student"}

	Roles = []Role{RoleAdmin, RoleInstructor, RoleStudent}

	ErrUnknownRole = errors.New("unknown role")
)

func ParseRole(s string) (Role, error) {
	switch CleanString(s, true /* lower */) {
	case RoleAdmin.slug:
		return RoleAdmin, nil
	case RoleInstructor.slug:
		return RoleInstructor, nil
	case RoleStudent.slug:
		return RoleStudent, nil
	}
	return Role{}, errors.Wrap(ErrUnknownRole, fmt.Sprintf("parsing %q", s))
}

func (r Role) String() string { return r.slug }
func (r Role) IsZero() bool   { return r.slug == "" }

// IsStaff reports whether r sees full tables (admins and instructors).
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleInstructor:
		return true
	case RoleStudent:
		return false
	}
	return false
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.slug), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = Role{}
		return nil
	}
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Identity is the caller resolved from session state.
type Identity struct {
	UserID int    `json:"user_id"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Anonymous is the identity of a caller without a logged in session.
var Anonymous = Identity{}

func (id Identity) IsAuthenticated() bool {
	return id.UserID > 0 && !id.Role.IsZero()
}

func (id Identity) Is(role Role) bool {
	return id.IsAuthenticated() && id.Role == role
}
