package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/dashboard"
	"github.com/trezcool/academia/core/enrollment"
)

type dashboardRepository struct {
	db *sqlx.DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *sqlx.DB) dashboard.Repository {
	return &dashboardRepository{db: db}
}

func (repo *dashboardRepository) Totals(ctx context.Context) (dashboard.Totals, error) {
	var row struct {
		Courses           int `db:"courses"`
		Instructors       int `db:"instructors"`
		Students          int `db:"students"`
		ActiveEnrollments int `db:"active_enrollments"`
	}
	q := psql.Select(
		"(SELECT COUNT(*) FROM courses) AS courses",
		"(SELECT COUNT(*) FROM instructors) AS instructors",
		"(SELECT COUNT(*) FROM students) AS students",
		"(SELECT COUNT(*) FROM enrollments WHERE status = 'Active') AS active_enrollments",
	)
	if err := get(ctx, repo.db, &row, q); err != nil {
		return dashboard.Totals{}, errors.Wrap(err, "counting totals")
	}
	return dashboard.Totals(row), nil
}

func (repo *dashboardRepository) courseListings(ctx context.Context, q sq.SelectBuilder, msg string) ([]course.Listing, error) {
	rows := make([]courseListingRow, 0)
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, msg)
	}
	return listings(rows), nil
}

func (repo *dashboardRepository) RecentCourses(ctx context.Context, limit int) ([]course.Listing, error) {
	q := courseListings().OrderBy("c.created_at DESC", "c.id DESC").Limit(uint64(limit))
	return repo.courseListings(ctx, q, "listing recent courses")
}

func (repo *dashboardRepository) PopularCourses(ctx context.Context, limit int) ([]course.Listing, error) {
	q := courseListings().
		Where(activeCountExpr + " > 0").
		OrderBy("enrolled_count DESC", "c.course_name ASC").
		Limit(uint64(limit))
	return repo.courseListings(ctx, q, "listing popular courses")
}

func (repo *dashboardRepository) InstructorCourses(ctx context.Context, instructorID int) ([]course.Listing, error) {
	q := courseListings().
		Where(sq.Eq{"c.instructor_id": instructorID, "c.is_active": true}).
		OrderBy("c.course_name ASC")
	return repo.courseListings(ctx, q, "listing instructor courses")
}

func (repo *dashboardRepository) RecentInstructorEnrollments(ctx context.Context, instructorID, limit int) ([]enrollment.Detail, error) {
	q := enrollmentDetails().
		Where(sq.Eq{"c.instructor_id": instructorID}).
		OrderBy("e.enrollment_date DESC", "e.id DESC").
		Limit(uint64(limit))

	rows := make([]enrollmentDetailRow, 0)
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "listing recent enrollments")
	}
	return details(rows), nil
}

func (repo *dashboardRepository) StudentEnrollments(ctx context.Context, studentID int) ([]dashboard.StudentEnrollment, error) {
	q := enrollmentDetails("c.credits").
		Where(sq.Eq{"e.student_id": studentID}).
		OrderBy("e.status = 'Active' DESC", "e.enrollment_date DESC", "e.id DESC")

	var rows []struct {
		enrollmentDetailRow
		Credits int `db:"credits"`
	}
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "listing student enrollments")
	}
	enrollments := make([]dashboard.StudentEnrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, dashboard.StudentEnrollment{Detail: row.detail(), Credits: row.Credits})
	}
	return enrollments, nil
}
