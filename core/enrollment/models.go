package enrollment

import (
	"github.com/trezcool/academia/core"
)

// Status of an enrollment. NoRecord -> Active -> Dropped; a Dropped pair may be enrolled again.
type Status string

const (
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
	StatusDropped   Status = "Dropped"
)

type Enrollment struct {
	ID                     int     `json:"id"`
	StudentID              int     `json:"student_id"`
	CourseID               int     `json:"course_id"`
	EnrollmentDate         string  `json:"enrollment_date"` // core.DateLayout
	Status                 Status  `json:"status"`
	Grade                  *string `json:"grade"`
	EnrolledByInstructorID *int    `json:"enrolled_by_instructor_id"`
}

// Detail is an Enrollment joined with the names of the rows it links.
type Detail struct {
	Enrollment
	StudentName        string `json:"student_name"`
	CourseName         string `json:"course_name"`
	CourseCode         string `json:"course_code"`
	CourseInstructorID *int   `json:"course_instructor_id"`
	InstructorName     string `json:"instructor_name"`
	EnrolledByName     string `json:"enrolled_by_name"`
}

// NewEnrollment contains the information needed to enroll a student. An empty EnrollmentDate means today.
type NewEnrollment struct {
	StudentID      int    `json:"student_id" validate:"required,gt=0"`
	CourseID       int    `json:"course_id" validate:"required,gt=0"`
	EnrollmentDate string `json:"enrollment_date" validate:"omitempty,datetime=2006-01-02"`
}

func (ne *NewEnrollment) clean() {
	ne.EnrollmentDate = core.CleanString(ne.EnrollmentDate)
}

type QueryFilter struct {
	StudentID int    `query:"student"`
	CourseID  int    `query:"course"`
	Status    Status `query:"status"`
}

// Snapshot is what the store read about a (student, course) pair while holding the course lock.
type Snapshot struct {
	StudentExists   bool
	CourseExists    bool
	MaxStudents     int
	ActiveCount     int
	AlreadyEnrolled bool
	InstructorID    *int
}

// Guard decides on a Snapshot whether the insert may proceed.
type Guard func(Snapshot) error
