package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/instructor"
)

var (
	instructorColumns = []string{
		"i.id", "i.first_name", "i.last_name", "i.email", "i.password_hash", "i.phone",
		"i.department", "i.specialization", "i.bio", "i.is_active", "i.last_login", "i.created_at",
	}

	instructorOrdering = map[string]string{
		"first_name":   "i.first_name",
		"last_name":    "i.last_name",
		"email":        "i.email",
		"department":   "i.department",
		"created_at":   "i.created_at",
		"course_count": "course_count",
	}
)

type instructorRow struct {
	ID             int        `db:"id"`
	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	Email          string     `db:"email"`
	PasswordHash   null.Bytes `db:"password_hash"`
	Phone          string     `db:"phone"`
	Department     string     `db:"department"`
	Specialization string     `db:"specialization"`
	Bio            string     `db:"bio"`
	IsActive       bool       `db:"is_active"`
	LastLogin      null.Time  `db:"last_login"`
	CreatedAt      time.Time  `db:"created_at"`
}

func (row instructorRow) instructor() instructor.Instructor {
	return instructor.Instructor{
		ID:             row.ID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash.Bytes,
		Phone:          row.Phone,
		Department:     row.Department,
		Specialization: row.Specialization,
		Bio:            row.Bio,
		IsActive:       row.IsActive,
		LastLogin:      utcPtr(row.LastLogin),
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nullBytes(b []byte) null.Bytes {
	return null.NewBytes(b, len(b) > 0)
}

type instructorRepository struct {
	db *sqlx.DB
}

var _ instructor.Repository = (*instructorRepository)(nil) // interface compliance check

func NewInstructorRepository(db *sqlx.DB) instructor.Repository {
	return &instructorRepository{db: db}
}

func (repo *instructorRepository) trapWriteErr(err error, msg string) error {
	if code, constraint := pqError(err); code == pqUniqueViolation && constraint == "instructors_email_key" {
		return instructor.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo *instructorRepository) EmailExists(ctx context.Context, email string, excludeID int) (bool, error) {
	q := psql.Select("COUNT(*) > 0").From("instructors").Where(sq.Eq{"email": email})
	if excludeID > 0 {
		q = q.Where(sq.NotEq{"id": excludeID})
	}
	var exists bool
	if err := get(ctx, repo.db, &exists, q); err != nil {
		return false, errors.Wrap(err, "checking instructor email")
	}
	return exists, nil
}

func (repo *instructorRepository) CreateInstructor(ctx context.Context, inst instructor.Instructor) (instructor.Instructor, error) {
	q := psql.Insert("instructors").
		Columns("first_name", "last_name", "email", "password_hash", "phone", "department", "specialization", "bio", "is_active", "created_at").
		Values(inst.FirstName, inst.LastName, inst.Email, nullBytes(inst.PasswordHash), inst.Phone, inst.Department, inst.Specialization, inst.Bio, inst.IsActive, inst.CreatedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &inst.ID, q); err != nil {
		return instructor.Instructor{}, repo.trapWriteErr(err, "inserting instructor")
	}
	return inst, nil
}

func (repo *instructorRepository) GetInstructor(ctx context.Context, id int) (instructor.Instructor, error) {
	var row instructorRow
	q := psql.Select(instructorColumns...).From("instructors i").Where(sq.Eq{"i.id": id})
	if err := get(ctx, repo.db, &row, q); err != nil {
		return instructor.Instructor{}, trapNoRows(err, instructor.ErrNotFound, "querying instructor")
	}
	return row.instructor(), nil
}

func (repo *instructorRepository) ListInstructors(ctx context.Context, ordering []core.DBOrdering) ([]instructor.Listing, error) {
	cols := append(append([]string(nil), instructorColumns...),
		"(SELECT COUNT(*) FROM courses c WHERE c.instructor_id = i.id) AS course_count")
	q := psql.Select(cols...).
		From("instructors i").
		OrderBy(core.OrderByClauses(ordering, instructorOrdering)...).
		OrderBy("i.first_name ASC", "i.last_name ASC")

	var rows []struct {
		instructorRow
		CourseCount int `db:"course_count"`
	}
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "listing instructors")
	}
	listings := make([]instructor.Listing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, instructor.Listing{Instructor: row.instructor(), CourseCount: row.CourseCount})
	}
	return listings, nil
}

func (repo *instructorRepository) UpdateInstructor(ctx context.Context, inst instructor.Instructor) (instructor.Instructor, error) {
	set := map[string]interface{}{
		"first_name":     inst.FirstName,
		"last_name":      inst.LastName,
		"email":          inst.Email,
		"phone":          inst.Phone,
		"department":     inst.Department,
		"specialization": inst.Specialization,
		"bio":            inst.Bio,
		"is_active":      inst.IsActive,
	}
	if len(inst.PasswordHash) > 0 {
		set["password_hash"] = inst.PasswordHash
	}
	res, err := exec(ctx, repo.db, psql.Update("instructors").SetMap(set).Where(sq.Eq{"id": inst.ID}))
	if err != nil {
		return instructor.Instructor{}, repo.trapWriteErr(err, "updating instructor")
	}
	if err = mustAffect(res, instructor.ErrNotFound); err != nil {
		return instructor.Instructor{}, err
	}
	return repo.GetInstructor(ctx, inst.ID)
}

// DeleteInstructor removes the instructor. Their courses and enrollments are unassigned (ON DELETE SET NULL).
func (repo *instructorRepository) DeleteInstructor(ctx context.Context, id int) error {
	res, err := exec(ctx, repo.db, psql.Delete("instructors").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting instructor")
	}
	return mustAffect(res, instructor.ErrNotFound)
}
