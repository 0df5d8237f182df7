package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
)

type enrollmentDetailRow struct {
	ID                     int         `db:"id"`
	StudentID              int         `db:"student_id"`
	CourseID               int         `db:"course_id"`
	EnrollmentDate         time.Time   `db:"enrollment_date"`
	Status                 string      `db:"status"`
	Grade                  null.String `db:"grade"`
	EnrolledByInstructorID null.Int    `db:"enrolled_by_instructor_id"`
	StudentName            string      `db:"student_name"`
	CourseName             string      `db:"course_name"`
	CourseCode             string      `db:"course_code"`
	CourseInstructorID     null.Int    `db:"course_instructor_id"`
	InstructorName         string      `db:"instructor_name"`
	EnrolledByName         string      `db:"enrolled_by_name"`
}

func (row enrollmentDetailRow) detail() enrollment.Detail {
	return enrollment.Detail{
		Enrollment: enrollment.Enrollment{
			ID:                     row.ID,
			StudentID:              row.StudentID,
			CourseID:               row.CourseID,
			EnrollmentDate:         row.EnrollmentDate.Format(core.DateLayout),
			Status:                 enrollment.Status(row.Status),
			Grade:                  row.Grade.Ptr(),
			EnrolledByInstructorID: row.EnrolledByInstructorID.Ptr(),
		},
		StudentName:        row.StudentName,
		CourseName:         row.CourseName,
		CourseCode:         row.CourseCode,
		CourseInstructorID: row.CourseInstructorID.Ptr(),
		InstructorName:     row.InstructorName,
		EnrolledByName:     row.EnrolledByName,
	}
}

func details(rows []enrollmentDetailRow) []enrollment.Detail {
	ds := make([]enrollment.Detail, 0, len(rows))
	for _, row := range rows {
		ds = append(ds, row.detail())
	}
	return ds
}

// enrollmentDetails selects enrollments joined with the names of their student, course and instructors.
func enrollmentDetails(extraColumns ...string) sq.SelectBuilder {
	cols := append([]string{
		"e.id", "e.student_id", "e.course_id", "e.enrollment_date", "e.status", "e.grade", "e.enrolled_by_instructor_id",
		"s.first_name || ' ' || s.last_name AS student_name",
		"c.course_name", "c.course_code", "c.instructor_id AS course_instructor_id",
		"COALESCE(i.first_name || ' ' || i.last_name, '') AS instructor_name",
		"COALESCE(b.first_name || ' ' || b.last_name, '') AS enrolled_by_name",
	}, extraColumns...)
	return psql.Select(cols...).
		From("enrollments e").
		Join("students s ON s.id = e.student_id").
		Join("courses c ON c.id = e.course_id").
		LeftJoin("instructors i ON i.id = c.instructor_id").
		LeftJoin("instructors b ON b.id = e.enrolled_by_instructor_id")
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

// snapshot reads the state of the pair, locking the course row until the end of tx.
func (repo *enrollmentRepository) snapshot(ctx context.Context, tx *sqlx.Tx, studentID, courseID int) (enrollment.Snapshot, error) {
	var snap enrollment.Snapshot

	var c struct {
		MaxStudents  int      `db:"max_students"`
		InstructorID null.Int `db:"instructor_id"`
	}
	err := get(ctx, tx, &c, psql.Select("max_students", "instructor_id").From("courses").Where(sq.Eq{"id": courseID}).Suffix("FOR UPDATE"))
	switch {
	case err == nil:
		snap.CourseExists = true
		snap.MaxStudents = c.MaxStudents
		snap.InstructorID = c.InstructorID.Ptr()
	case errors.Cause(err) != sql.ErrNoRows:
		return snap, errors.Wrap(err, "locking course")
	}

	if err = get(ctx, tx, &snap.StudentExists, psql.Select("COUNT(*) > 0").From("students").Where(sq.Eq{"id": studentID})); err != nil {
		return snap, errors.Wrap(err, "checking student")
	}
	if !snap.CourseExists {
		return snap, nil
	}

	var counts struct {
		Active int  `db:"active"`
		Mine   bool `db:"mine"`
	}
	q := psql.Select("COUNT(*) AS active").
		Column(sq.Expr("COALESCE(BOOL_OR(student_id = ?), FALSE) AS mine", studentID)).
		From("enrollments").
		Where(sq.Eq{"course_id": courseID, "status": string(enrollment.StatusActive)})
	if err = get(ctx, tx, &counts, q); err != nil {
		return snap, errors.Wrap(err, "counting enrollments")
	}
	snap.ActiveCount = counts.Active
	snap.AlreadyEnrolled = counts.Mine
	return snap, nil
}

// Enroll serializes enrollments into a course on its row lock; the partial unique index
// enrollments_one_active_key backs the duplicate check.
func (repo *enrollmentRepository) Enroll(ctx context.Context, en enrollment.Enrollment, guard enrollment.Guard) (enrollment.Enrollment, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		snap, err := repo.snapshot(ctx, tx, en.StudentID, en.CourseID)
		if err != nil {
			return err
		}
		if err = guard(snap); err != nil {
			return err
		}
		q := psql.Insert("enrollments").
			Columns("student_id", "course_id", "enrollment_date", "status", "enrolled_by_instructor_id").
			Values(en.StudentID, en.CourseID, en.EnrollmentDate, string(en.Status), null.IntFromPtr(en.EnrolledByInstructorID)).
			Suffix("RETURNING id")
		return get(ctx, tx, &en.ID, q)
	})
	if err != nil {
		if code, constraint := pqError(err); code == pqUniqueViolation && constraint == "enrollments_one_active_key" {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, err
	}
	return en, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id int) (enrollment.Detail, error) {
	var row enrollmentDetailRow
	if err := get(ctx, repo.db, &row, enrollmentDetails().Where(sq.Eq{"e.id": id})); err != nil {
		return enrollment.Detail{}, trapNoRows(err, enrollment.ErrNotFound, "querying enrollment")
	}
	return row.detail(), nil
}

func (repo *enrollmentRepository) SetStatus(ctx context.Context, id int, from, to enrollment.Status) error {
	q := psql.Update("enrollments").
		Set("status", string(to)).
		Where(sq.Eq{"id": id, "status": string(from)})
	res, err := exec(ctx, repo.db, q)
	if err != nil {
		if code, _ := pqError(err); code == pqUniqueViolation {
			return enrollment.ErrAlreadyEnrolled
		}
		return errors.Wrap(err, "updating enrollment status")
	}
	if err = mustAffect(res, enrollment.ErrUnavailable); err == nil {
		return nil
	}

	var exists bool
	if qErr := get(ctx, repo.db, &exists, psql.Select("COUNT(*) > 0").From("enrollments").Where(sq.Eq{"id": id})); qErr != nil {
		return errors.Wrap(qErr, "checking enrollment")
	}
	if !exists {
		return enrollment.ErrNotFound
	}
	return err
}

func (repo *enrollmentRepository) ListEnrollments(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Detail, error) {
	q := enrollmentDetails()
	if filter.StudentID > 0 {
		q = q.Where(sq.Eq{"e.student_id": filter.StudentID})
	}
	if filter.CourseID > 0 {
		q = q.Where(sq.Eq{"e.course_id": filter.CourseID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"e.status": string(filter.Status)})
	}
	q = q.OrderBy("e.enrollment_date DESC", "e.id DESC")

	rows := make([]enrollmentDetailRow, 0)
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	return details(rows), nil
}
