package student

import (
	"strings"
	"time"

	"github.com/trezcool/academia/core"
)

type Student struct {
	ID             int        `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	PasswordHash   []byte     `json:"-"`
	Phone          string     `json:"phone"`
	EnrollmentDate string     `json:"enrollment_date"` // core.DateLayout
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
}

func (s Student) Name() string {
	return s.FirstName + " " + s.LastName
}

// Listing is a Student annotated with the number of courses they are actively enrolled in.
type Listing struct {
	Student
	CourseCount int `json:"course_count"`
}

// NewStudent contains the information needed to create or replace a Student.
// An empty EnrollmentDate means today.
type NewStudent struct {
	FirstName      string `json:"first_name" validate:"required,min=2,personname"`
	LastName       string `json:"last_name" validate:"required,min=2,personname"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"omitempty,phone"`
	EnrollmentDate string `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02,notfuture"`
	Password       string `json:"password"`
	IsActive       *bool  `json:"is_active"`
}

func (ns *NewStudent) clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = strings.ToLower(core.CleanString(ns.Email))
	ns.Phone = core.CleanString(ns.Phone)
	ns.EnrollmentDate = core.CleanString(ns.EnrollmentDate)
}
