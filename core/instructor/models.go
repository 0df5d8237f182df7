package instructor

import (
	"strings"
	"time"

	"github.com/trezcool/academia/core"
)

type Instructor struct {
	ID             int        `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	PasswordHash   []byte     `json:"-"`
	Phone          string     `json:"phone"`
	Department     string     `json:"department"`
	Specialization string     `json:"specialization"`
	Bio            string     `json:"bio"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
}

func (i Instructor) Name() string {
	return i.FirstName + " " + i.LastName
}

// Listing is an Instructor annotated with the number of courses assigned to them.
type Listing struct {
	Instructor
	CourseCount int `json:"course_count"`
}

// NewInstructor contains the information needed to create or replace an Instructor.
type NewInstructor struct {
	FirstName      string `json:"first_name" validate:"required,min=2,personname"`
	LastName       string `json:"last_name" validate:"required,min=2,personname"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"omitempty,phone"`
	Department     string `json:"department" validate:"required"`
	Specialization string `json:"specialization" validate:"required"`
	Bio            string `json:"bio"`
	Password       string `json:"password"`
	IsActive       *bool  `json:"is_active"`
}

func (ni *NewInstructor) clean() {
	ni.FirstName = core.CleanString(ni.FirstName)
	ni.LastName = core.CleanString(ni.LastName)
	ni.Email = strings.ToLower(core.CleanString(ni.Email))
	ni.Phone = core.CleanString(ni.Phone)
	ni.Department = core.CleanString(ni.Department)
	ni.Specialization = core.CleanString(ni.Specialization)
	ni.Bio = core.CleanString(ni.Bio)
}
