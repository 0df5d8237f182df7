package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

var (
	studentColumns = []string{
		"s.id", "s.first_name", "s.last_name", "s.email", "s.password_hash", "s.phone",
		"s.enrollment_date", "s.is_active", "s.last_login", "s.created_at",
	}

	studentOrdering = map[string]string{
		"first_name":      "s.first_name",
		"last_name":       "s.last_name",
		"email":           "s.email",
		"enrollment_date": "s.enrollment_date",
		"created_at":      "s.created_at",
		"course_count":    "course_count",
	}
)

type studentRow struct {
	ID             int        `db:"id"`
	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	Email          string     `db:"email"`
	PasswordHash   null.Bytes `db:"password_hash"`
	Phone          string     `db:"phone"`
	EnrollmentDate time.Time  `db:"enrollment_date"`
	IsActive       bool       `db:"is_active"`
	LastLogin      null.Time  `db:"last_login"`
	CreatedAt      time.Time  `db:"created_at"`
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:             row.ID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash.Bytes,
		Phone:          row.Phone,
		EnrollmentDate: row.EnrollmentDate.Format(core.DateLayout),
		IsActive:       row.IsActive,
		LastLogin:      utcPtr(row.LastLogin),
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) trapWriteErr(err error, msg string) error {
	if code, constraint := pqError(err); code == pqUniqueViolation && constraint == "students_email_key" {
		return student.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo *studentRepository) EmailExists(ctx context.Context, email string, excludeID int) (bool, error) {
	q := psql.Select("COUNT(*) > 0").From("students").Where(sq.Eq{"email": email})
	if excludeID > 0 {
		q = q.Where(sq.NotEq{"id": excludeID})
	}
	var exists bool
	if err := get(ctx, repo.db, &exists, q); err != nil {
		return false, errors.Wrap(err, "checking student email")
	}
	return exists, nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q := psql.Insert("students").
		Columns("first_name", "last_name", "email", "password_hash", "phone", "enrollment_date", "is_active", "created_at").
		Values(std.FirstName, std.LastName, std.Email, nullBytes(std.PasswordHash), std.Phone, std.EnrollmentDate, std.IsActive, std.CreatedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &std.ID, q); err != nil {
		return student.Student{}, repo.trapWriteErr(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id int) (student.Student, error) {
	var row studentRow
	q := psql.Select(studentColumns...).From("students s").Where(sq.Eq{"s.id": id})
	if err := get(ctx, repo.db, &row, q); err != nil {
		return student.Student{}, trapNoRows(err, student.ErrNotFound, "querying student")
	}
	return row.student(), nil
}

func (repo *studentRepository) ListStudents(ctx context.Context, ordering []core.DBOrdering) ([]student.Listing, error) {
	cols := append(append([]string(nil), studentColumns...),
		"(SELECT COUNT(DISTINCT e.course_id) FROM enrollments e WHERE e.student_id = s.id AND e.status = 'Active') AS course_count")
	q := psql.Select(cols...).
		From("students s").
		OrderBy(core.OrderByClauses(ordering, studentOrdering)...).
		OrderBy("s.first_name ASC", "s.last_name ASC")

	var rows []struct {
		studentRow
		CourseCount int `db:"course_count"`
	}
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	listings := make([]student.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, student.Listing{Student: row.student(), CourseCount: row.CourseCount})
	}
	return listings, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	set := map[string]interface{}{
		"first_name":      std.FirstName,
		"last_name":       std.LastName,
		"email":           std.Email,
		"phone":           std.Phone,
		"enrollment_date": std.EnrollmentDate,
		"is_active":       std.IsActive,
	}
	if len(std.PasswordHash) > 0 {
		set["password_hash"] = std.PasswordHash
	}
	res, err := exec(ctx, repo.db, psql.Update("students").SetMap(set).Where(sq.Eq{"id": std.ID}))
	if err != nil {
		return student.Student{}, repo.trapWriteErr(err, "updating student")
	}
	if err = mustAffect(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudent(ctx, std.ID)
}

// DeleteStudent removes the student together with their enrollments (ON DELETE CASCADE).
func (repo *studentRepository) DeleteStudent(ctx context.Context, id int) error {
	res, err := exec(ctx, repo.db, psql.Delete("students").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return mustAffect(res, student.ErrNotFound)
}
