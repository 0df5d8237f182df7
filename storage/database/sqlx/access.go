package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
)

type accessRepository struct {
	db *sqlx.DB
}

var _ access.Repository = (*accessRepository)(nil) // interface compliance check

func NewAccessRepository(db *sqlx.DB) access.Repository {
	return &accessRepository{db: db}
}

// StudentCourses keeps one row per course: the Active enrollment if any, else the most recent one.
func (repo *accessRepository) StudentCourses(ctx context.Context, studentID int) ([]access.CourseView, error) {
	latest := psql.Select(
		"DISTINCT ON (e.course_id) e.course_id", "e.status", "e.grade", "e.enrollment_date",
	).
		From("enrollments e").
		Where(sq.Eq{"e.student_id": studentID}).
		OrderBy("e.course_id", "e.status = 'Active' DESC", "e.enrollment_date DESC", "e.id DESC")

	q := courseListings().
		Columns("le.status AS enrollment_status", "le.grade", "le.enrollment_date").
		JoinClause(latest.Prefix("JOIN (").Suffix(") le ON le.course_id = c.id")).
		OrderBy("le.status = 'Active' DESC", "LOWER(c.course_name) ASC")

	var rows []struct {
		courseListingRow
		EnrollmentStatus string      `db:"enrollment_status"`
		Grade            null.String `db:"grade"`
		EnrollmentDate   time.Time   `db:"enrollment_date"`
	}
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "listing student courses")
	}
	views := make([]access.CourseView, 0, len(rows))
	for _, row := range rows {
		views = append(views, access.CourseView{
			Listing:          row.listing(),
			EnrollmentStatus: row.EnrollmentStatus,
			Grade:            row.Grade.Ptr(),
			EnrollmentDate:   row.EnrollmentDate.Format(core.DateLayout),
		})
	}
	return views, nil
}

func (repo *accessRepository) StudentInstructors(ctx context.Context, studentID int) ([]access.InstructorView, error) {
	mine := psql.Select("c.instructor_id", "COUNT(*) AS my_courses_count").
		From("enrollments e").
		Join("courses c ON c.id = e.course_id").
		Where(sq.Eq{"e.student_id": studentID}).
		Where(sq.NotEq{"c.instructor_id": nil}).
		GroupBy("c.instructor_id")

	cols := append(append([]string(nil), instructorColumns...),
		"(SELECT COUNT(*) FROM courses c WHERE c.instructor_id = i.id) AS course_count",
		"m.my_courses_count",
	)
	q := psql.Select(cols...).
		From("instructors i").
		JoinClause(mine.Prefix("JOIN (").Suffix(") m ON m.instructor_id = i.id")).
		OrderBy("i.first_name ASC", "i.last_name ASC")

	var rows []struct {
		instructorRow
		CourseCount    int `db:"course_count"`
		MyCoursesCount int `db:"my_courses_count"`
	}
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "listing student instructors")
	}
	views := make([]access.InstructorView, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		views = append(views, access.InstructorView{
			Instructor:     row.instructor(),
			CourseCount:    &row.CourseCount,
			MyCoursesCount: &row.MyCoursesCount,
		})
	}
	return views, nil
}

func (repo *accessRepository) Classmates(ctx context.Context, studentID int) ([]access.StudentView, error) {
	shared := psql.Select("o.student_id", "COUNT(DISTINCT o.course_id) AS shared_courses").
		From("enrollments o").
		Join("enrollments m ON m.course_id = o.course_id AND m.status = 'Active'").
		Where(sq.Eq{"m.student_id": studentID, "o.status": "Active"}).
		Where(sq.NotEq{"o.student_id": studentID}).
		GroupBy("o.student_id")

	cols := append(append([]string(nil), studentColumns...),
		"(SELECT COUNT(DISTINCT e.course_id) FROM enrollments e WHERE e.student_id = s.id AND e.status = 'Active') AS course_count",
		"sh.shared_courses",
	)
	q := psql.Select(cols...).
		From("students s").
		JoinClause(shared.Prefix("JOIN (").Suffix(") sh ON sh.student_id = s.id")).
		OrderBy("s.first_name ASC", "s.last_name ASC")

	var rows []struct {
		studentRow
		CourseCount   int `db:"course_count"`
		SharedCourses int `db:"shared_courses"`
	}
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "listing classmates")
	}
	views := make([]access.StudentView, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		views = append(views, access.StudentView{
			Student:       row.student(),
			CourseCount:   &row.CourseCount,
			SharedCourses: &row.SharedCourses,
		})
	}
	return views, nil
}

func (repo *accessRepository) exists(ctx context.Context, q sq.SelectBuilder, msg string) (bool, error) {
	var ok bool
	if err := get(ctx, repo.db, &ok, psql.Select().Column(sq.Expr("EXISTS (?)", q))); err != nil {
		return false, errors.Wrap(err, msg)
	}
	return ok, nil
}

func (repo *accessRepository) StudentHasCourse(ctx context.Context, studentID, courseID int) (bool, error) {
	q := psql.Select("1").From("enrollments").Where(sq.Eq{"student_id": studentID, "course_id": courseID})
	return repo.exists(ctx, q, "checking student course")
}

func (repo *accessRepository) StudentHasInstructor(ctx context.Context, studentID, instructorID int) (bool, error) {
	q := psql.Select("1").
		From("enrollments e").
		Join("courses c ON c.id = e.course_id").
		Where(sq.Eq{"e.student_id": studentID, "c.instructor_id": instructorID})
	return repo.exists(ctx, q, "checking student instructor")
}

func (repo *accessRepository) ShareActiveCourse(ctx context.Context, studentID, otherID int) (bool, error) {
	q := psql.Select("1").
		From("enrollments m").
		Join("enrollments o ON o.course_id = m.course_id AND o.status = 'Active'").
		Where(sq.Eq{"m.student_id": studentID, "m.status": "Active", "o.student_id": otherID})
	return repo.exists(ctx, q, "checking shared courses")
}

func (repo *accessRepository) CourseInstructor(ctx context.Context, courseID int) (*int, error) {
	var instID null.Int
	q := psql.Select("instructor_id").From("courses").Where(sq.Eq{"id": courseID})
	if err := get(ctx, repo.db, &instID, q); err != nil {
		return nil, trapNoRows(err, course.ErrNotFound, "querying course instructor")
	}
	return instID.Ptr(), nil
}
