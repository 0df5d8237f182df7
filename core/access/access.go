// Package access decides what each role may list, view and change.
package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/student"
)

// ErrDenied is the cause of every access denial.
var ErrDenied = errors.New("You don't have permission to access that page.")

type denial struct {
	msg string
}

// Deny returns an access denial carrying a specific message.
func Deny(msg string) error {
	return &denial{msg: msg}
}

func (d *denial) Error() string { return d.msg }
func (d *denial) Cause() error  { return ErrDenied }

// Message returns the user-facing message of an access denial.
func Message(err error) string {
	var d *denial
	if errors.As(err, &d) {
		return d.msg
	}
	return ErrDenied.Error()
}

type (
	// CourseView is a course as listed for a caller. Students also see their own enrollment on it.
	CourseView struct {
		course.Listing
		EnrollmentStatus string  `json:"enrollment_status,omitempty"`
		Grade            *string `json:"grade,omitempty"`
		EnrollmentDate   string  `json:"enrollment_date,omitempty"`
	}

	InstructorView struct {
		instructor.Instructor
		CourseCount    *int `json:"course_count,omitempty"`
		MyCoursesCount *int `json:"my_courses_count,omitempty"`
	}

	StudentView struct {
		student.Student
		CourseCount   *int `json:"course_count,omitempty"`
		SharedCourses *int `json:"shared_courses,omitempty"`
	}

	// Repository answers the relationship questions scoping depends on.
	Repository interface {
		// StudentCourses lists the courses with any enrollment row of studentID, whatever its status.
		StudentCourses(ctx context.Context, studentID int) ([]CourseView, error)
		// StudentInstructors lists instructors of courses studentID has any enrollment in.
		StudentInstructors(ctx context.Context, studentID int) ([]InstructorView, error)
		// Classmates lists the other students sharing a course with studentID, both enrollments being Active.
		Classmates(ctx context.Context, studentID int) ([]StudentView, error)

		StudentHasCourse(ctx context.Context, studentID, courseID int) (bool, error)
		StudentHasInstructor(ctx context.Context, studentID, instructorID int) (bool, error)
		ShareActiveCourse(ctx context.Context, studentID, otherID int) (bool, error)
		// CourseInstructor returns the instructor assigned to courseID, if any, or course.ErrNotFound.
		CourseInstructor(ctx context.Context, courseID int) (*int, error)
	}

	Service struct {
		repo        Repository
		courses     *course.Service
		instructors *instructor.Service
		students    *student.Service
	}
)

func NewService(repo Repository, courses *course.Service, instructors *instructor.Service, students *student.Service) *Service {
	return &Service{repo: repo, courses: courses, instructors: instructors, students: students}
}

func unknownRole(id core.Identity) error {
	return errors.Wrapf(core.ErrUnknownRole, "scoping for %q", id.Role)
}

// RequireStaff denies student callers. It guards every mutating course, instructor and student operation.
func RequireStaff(id core.Identity) error {
	if !id.IsAuthenticated() {
		return ErrDenied
	}
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
		return nil
	case core.RoleStudent:
		return ErrDenied
	}
	return unknownRole(id)
}

// RequireAdmin denies every caller but admins.
func RequireAdmin(id core.Identity) error {
	if !id.IsAuthenticated() {
		return ErrDenied
	}
	switch id.Role {
	case core.RoleAdmin:
		return nil
	case core.RoleInstructor, core.RoleStudent:
		return ErrDenied
	}
	return unknownRole(id)
}

func (svc *Service) ListCoursesFor(ctx context.Context, id core.Identity, ordering []core.DBOrdering) ([]CourseView, error) {
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
		listings, err := svc.courses.Search(ctx, course.SearchFilter{}, ordering)
		if err != nil {
			return nil, err
		}
		views := make([]CourseView, 0, len(listings))
		for _, l := range listings {
			views = append(views, CourseView{Listing: l})
		}
		return views, nil
	case core.RoleStudent:
		return svc.repo.StudentCourses(ctx, id.UserID)
	}
	return nil, unknownRole(id)
}

func (svc *Service) ListInstructorsFor(ctx context.Context, id core.Identity, ordering []core.DBOrdering) ([]InstructorView, error) {
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
		listings, err := svc.instructors.List(ctx, ordering)
		if err != nil {
			return nil, err
		}
		views := make([]InstructorView, 0, len(listings))
		for i := range listings {
			views = append(views, InstructorView{Instructor: listings[i].Instructor, CourseCount: &listings[i].CourseCount})
		}
		return views, nil
	case core.RoleStudent:
		return svc.repo.StudentInstructors(ctx, id.UserID)
	}
	return nil, unknownRole(id)
}

func (svc *Service) ListStudentsFor(ctx context.Context, id core.Identity, ordering []core.DBOrdering) ([]StudentView, error) {
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
		listings, err := svc.students.List(ctx, ordering)
		if err != nil {
			return nil, err
		}
		views := make([]StudentView, 0, len(listings))
		for i := range listings {
			views = append(views, StudentView{Student: listings[i].Student, CourseCount: &listings[i].CourseCount})
		}
		return views, nil
	case core.RoleStudent:
		return svc.repo.Classmates(ctx, id.UserID)
	}
	return nil, unknownRole(id)
}

// CanViewCourse returns nil when id may open course courseID.
func (svc *Service) CanViewCourse(ctx context.Context, id core.Identity, courseID int) error {
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
		return nil
	case core.RoleStudent:
		ok, err := svc.repo.StudentHasCourse(ctx, id.UserID, courseID)
		return allowIf(ok, err)
	}
	return unknownRole(id)
}

// CanViewInstructor returns nil when id may open instructor instructorID.
func (svc *Service) CanViewInstructor(ctx context.Context, id core.Identity, instructorID int) error {
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
		return nil
	case core.RoleStudent:
		ok, err := svc.repo.StudentHasInstructor(ctx, id.UserID, instructorID)
		return allowIf(ok, err)
	}
	return unknownRole(id)
}

// CanViewStudent returns nil when id may open student studentID.
// Students may see themselves and the classmates of their Active courses.
func (svc *Service) CanViewStudent(ctx context.Context, id core.Identity, studentID int) error {
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
		return nil
	case core.RoleStudent:
		if id.UserID == studentID {
			return nil
		}
		ok, err := svc.repo.ShareActiveCourse(ctx, id.UserID, studentID)
		return allowIf(ok, err)
	}
	return unknownRole(id)
}

// CheckCourseOwnership lets admins through and instructors only into courses assigned to them.
func (svc *Service) CheckCourseOwnership(ctx context.Context, id core.Identity, courseID int) error {
	switch id.Role {
	case core.RoleAdmin:
		return nil
	case core.RoleInstructor:
		instructorID, err := svc.repo.CourseInstructor(ctx, courseID)
		if err != nil {
			return err
		}
		return allowIf(instructorID != nil && *instructorID == id.UserID, nil)
	case core.RoleStudent:
		return ErrDenied
	}
	return unknownRole(id)
}

func allowIf(ok bool, err error) error {
	if err != nil {
		return errors.Wrap(err, "checking access")
	}
	if !ok {
		return ErrDenied
	}
	return nil
}
