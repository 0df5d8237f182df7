package enrollment

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

var (
	// errors
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("Student is already enrolled in this course")
	ErrCourseFull      = errors.New("Course is full - no available slots")
	ErrUnavailable     = errors.New("Unable to unenroll student")

	msgStudentNotFound   = "Selected student does not exist"
	msgCourseNotFound    = "Selected course does not exist"
	msgInvalidCourse     = "Invalid course selection"
	msgUnenrolledPattern = "%s has been unenrolled from %s"

	fieldOrder = []string{"student_id", "course_id", "enrollment_date"}

	messages = map[string]string{
		"student_id.required":      "Please select a student",
		"student_id.gt":            "Please select a student",
		"course_id.required":       "Please select a course",
		"course_id.gt":             "Please select a course",
		"enrollment_date.datetime": "Invalid enrollment date",
	}
)

// InitValidators registers the enrollment messages.
func InitValidators(_ *validator.Validate, translator ut.Translator) {
	core.RegisterFieldMessages(translator, messages)
}

type (
	Repository interface {
		// Enroll reads the Snapshot of the pair and inserts en only if guard accepts it, atomically.
		// It returns ErrAlreadyEnrolled when the one-Active-row constraint rejects the insert.
		Enroll(ctx context.Context, en Enrollment, guard Guard) (Enrollment, error)
		GetEnrollment(ctx context.Context, id int) (Detail, error)
		// SetStatus moves enrollment id from status `from` to `to`; it returns ErrUnavailable if it is not in `from`.
		SetStatus(ctx context.Context, id int, from, to Status) error
		ListEnrollments(ctx context.Context, filter QueryFilter) ([]Detail, error)
	}

	Service struct {
		repo Repository
		v    *core.Validator
	}
)

func NewService(repo Repository, v *core.Validator) *Service {
	return &Service{repo: repo, v: v}
}

// guard returns the enrollment rules applied on behalf of id.
// Duplicate and capacity are only checked once both rows are known to exist.
func guard(id core.Identity, violations []core.FieldError) Guard {
	return func(snap Snapshot) error {
		flds := append([]core.FieldError(nil), violations...)
		if !core.HasFieldError(flds, "student_id") && !snap.StudentExists {
			flds = core.InsertFieldError(flds, core.FieldError{Field: "student_id", Error: msgStudentNotFound}, fieldOrder)
		}
		if !core.HasFieldError(flds, "course_id") && !snap.CourseExists {
			flds = core.InsertFieldError(flds, core.FieldError{Field: "course_id", Error: msgCourseNotFound}, fieldOrder)
		}
		if snap.CourseExists && id.Is(core.RoleInstructor) {
			if snap.InstructorID == nil || *snap.InstructorID != id.UserID {
				return access.Deny(msgInvalidCourse)
			}
		}
		if snap.StudentExists && snap.CourseExists {
			if snap.AlreadyEnrolled {
				flds = core.InsertFieldError(flds, core.FieldError{Field: "course_id", Error: ErrAlreadyEnrolled.Error()}, fieldOrder)
			}
			if snap.ActiveCount >= snap.MaxStudents {
				flds = core.InsertFieldError(flds, core.FieldError{Field: "course_id", Error: ErrCourseFull.Error()}, fieldOrder)
			}
		}
		if len(flds) > 0 {
			return core.NewValidationError(nil, flds...)
		}
		return nil
	}
}

// Enroll adds an Active enrollment of ne.StudentID into ne.CourseID.
// Instructors may only enroll into their own courses and are recorded as the enrolling instructor.
func (svc *Service) Enroll(ctx context.Context, id core.Identity, ne NewEnrollment) (Enrollment, error) {
	var enrolledBy *int
	switch id.Role {
	case core.RoleAdmin:
	case core.RoleInstructor:
		instructorID := id.UserID
		enrolledBy = &instructorID
	case core.RoleStudent:
		return Enrollment{}, access.ErrDenied
	default:
		return Enrollment{}, errors.Wrapf(core.ErrUnknownRole, "enrolling as %q", id.Role)
	}

	ne.clean()
	flds, err := svc.v.Struct(ne)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "validating enrollment")
	}
	if core.HasFieldError(flds, "student_id") && core.HasFieldError(flds, "course_id") {
		return Enrollment{}, core.NewValidationError(nil, flds...)
	}

	date := ne.EnrollmentDate
	if date == "" {
		date = time.Now().Format(core.DateLayout)
	}
	en, err := svc.repo.Enroll(ctx, Enrollment{
		StudentID:              ne.StudentID,
		CourseID:               ne.CourseID,
		EnrollmentDate:         date,
		Status:                 StatusActive,
		EnrolledByInstructorID: enrolledBy,
	}, guard(id, flds))
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled, core.FieldError{Field: "course_id", Error: ErrAlreadyEnrolled.Error()})
		}
		return Enrollment{}, err
	}
	return en, nil
}

// Unenroll drops an Active enrollment and returns the confirmation message.
// Admins may drop any enrollment, instructors only those of their own courses.
func (svc *Service) Unenroll(ctx context.Context, id core.Identity, enrollmentID int) (string, error) {
	d, err := svc.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return "", err
	}
	switch id.Role {
	case core.RoleAdmin:
	case core.RoleInstructor:
		if d.CourseInstructorID == nil || *d.CourseInstructorID != id.UserID {
			return "", access.ErrDenied
		}
	case core.RoleStudent:
		return "", access.ErrDenied
	default:
		return "", errors.Wrapf(core.ErrUnknownRole, "unenrolling as %q", id.Role)
	}
	if d.Status != StatusActive {
		return "", ErrUnavailable
	}
	if err = svc.repo.SetStatus(ctx, enrollmentID, StatusActive, StatusDropped); err != nil {
		return "", err
	}
	return fmt.Sprintf(msgUnenrolledPattern, d.StudentName, d.CourseName), nil
}

func (svc *Service) GetByID(ctx context.Context, id core.Identity, enrollmentID int) (Detail, error) {
	d, err := svc.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Detail{}, err
	}
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
		return d, nil
	case core.RoleStudent:
		if d.StudentID != id.UserID {
			return Detail{}, access.ErrDenied
		}
		return d, nil
	}
	return Detail{}, errors.Wrapf(core.ErrUnknownRole, "reading enrollment as %q", id.Role)
}

// List returns every enrollment matching filter to staff, and their own to students.
func (svc *Service) List(ctx context.Context, id core.Identity, filter QueryFilter) ([]Detail, error) {
	switch id.Role {
	case core.RoleAdmin, core.RoleInstructor:
	case core.RoleStudent:
		filter.StudentID = id.UserID
	default:
		return nil, errors.Wrapf(core.ErrUnknownRole, "listing enrollments as %q", id.Role)
	}
	return svc.repo.ListEnrollments(ctx, filter)
}
