package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
)

var (
	recentCoursesLimit     = 5
	popularCoursesLimit    = 5
	recentEnrollmentsLimit = 10
)

type (
	Totals struct {
		Courses           int `json:"courses"`
		Instructors       int `json:"instructors"`
		Students          int `json:"students"`
		ActiveEnrollments int `json:"active_enrollments"`
	}

	Admin struct {
		Totals         Totals           `json:"totals"`
		RecentCourses  []course.Listing `json:"recent_courses"`
		PopularCourses []course.Listing `json:"popular_courses"`
	}

	Instructor struct {
		Courses           []course.Listing    `json:"courses"`
		RecentEnrollments []enrollment.Detail `json:"recent_enrollments"`
	}

	Student struct {
		Enrollments      []enrollment.Detail `json:"enrollments"`
		ActiveCredits    int                 `json:"active_credits"`
		ActiveCourses    int                 `json:"active_courses"`
		CompletedCourses int                 `json:"completed_courses"`
	}

	// Dashboard holds the summary of the caller's role only.
	Dashboard struct {
		Role       core.Role   `json:"role"`
		Admin      *Admin      `json:"admin,omitempty"`
		Instructor *Instructor `json:"instructor,omitempty"`
		Student    *Student    `json:"student,omitempty"`
	}

	// StudentEnrollment is an enrollment of the student dashboard with the credits of its course.
	StudentEnrollment struct {
		enrollment.Detail
		Credits int
	}

	Repository interface {
		Totals(ctx context.Context) (Totals, error)
		RecentCourses(ctx context.Context, limit int) ([]course.Listing, error)
		// PopularCourses ranks courses by Active enrollments.
		PopularCourses(ctx context.Context, limit int) ([]course.Listing, error)
		// InstructorCourses lists the active courses assigned to instructorID.
		InstructorCourses(ctx context.Context, instructorID int) ([]course.Listing, error)
		RecentInstructorEnrollments(ctx context.Context, instructorID, limit int) ([]enrollment.Detail, error)
		StudentEnrollments(ctx context.Context, studentID int) ([]StudentEnrollment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) For(ctx context.Context, id core.Identity) (Dashboard, error) {
	dash := Dashboard{Role: id.Role}
	var err error
	switch id.Role {
	case core.RoleAdmin:
		dash.Admin, err = svc.admin(ctx)
	case core.RoleInstructor:
		dash.Instructor, err = svc.instructor(ctx, id.UserID)
	case core.RoleStudent:
		dash.Student, err = svc.student(ctx, id.UserID)
	default:
		err = errors.Wrapf(core.ErrUnknownRole, "dashboard of %q", id.Role)
	}
	if err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func (svc *Service) admin(ctx context.Context) (*Admin, error) {
	totals, err := svc.repo.Totals(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "counting totals")
	}
	recent, err := svc.repo.RecentCourses(ctx, recentCoursesLimit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent courses")
	}
	popular, err := svc.repo.PopularCourses(ctx, popularCoursesLimit)
	if err != nil {
		return nil, errors.Wrap(err, "querying popular courses")
	}
	return &Admin{Totals: totals, RecentCourses: recent, PopularCourses: popular}, nil
}

func (svc *Service) instructor(ctx context.Context, instructorID int) (*Instructor, error) {
	courses, err := svc.repo.InstructorCourses(ctx, instructorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying instructor courses")
	}
	recent, err := svc.repo.RecentInstructorEnrollments(ctx, instructorID, recentEnrollmentsLimit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent enrollments")
	}
	return &Instructor{Courses: courses, RecentEnrollments: recent}, nil
}

func (svc *Service) student(ctx context.Context, studentID int) (*Student, error) {
	rows, err := svc.repo.StudentEnrollments(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student enrollments")
	}
	dash := &Student{Enrollments: make([]enrollment.Detail, 0, len(rows))}
	for _, row := range rows {
		dash.Enrollments = append(dash.Enrollments, row.Detail)
		switch row.Status {
		case enrollment.StatusActive:
			dash.ActiveCourses++
			dash.ActiveCredits += row.Credits
		case enrollment.StatusCompleted:
			dash.CompletedCourses++
		case enrollment.StatusDropped:
		}
	}
	return dash, nil
}
