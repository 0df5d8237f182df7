package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

const activeCountExpr = "(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = 'Active')"

var courseOrdering = map[string]string{
	"course_name":    "c.course_name",
	"course_code":    "c.course_code",
	"category":       "c.category",
	"level":          "c.level",
	"credits":        "c.credits",
	"created_at":     "c.created_at",
	"enrolled_count": "enrolled_count",
}

type courseRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"course_name"`
	Code         string    `db:"course_code"`
	Description  string    `db:"description"`
	Category     string    `db:"category"`
	Level        string    `db:"level"`
	Credits      int       `db:"credits"`
	MaxStudents  int       `db:"max_students"`
	InstructorID null.Int  `db:"instructor_id"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

func (row courseRow) course() course.Course {
	return course.Course{
		ID:           row.ID,
		Name:         row.Name,
		Code:         row.Code,
		Description:  row.Description,
		Category:     row.Category,
		Level:        course.Level(row.Level),
		Credits:      row.Credits,
		MaxStudents:  row.MaxStudents,
		InstructorID: row.InstructorID.Ptr(),
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
	}
}

type courseListingRow struct {
	courseRow
	InstructorName string `db:"instructor_name"`
	EnrolledCount  int    `db:"enrolled_count"`
}

func (row courseListingRow) listing() course.Listing {
	return course.Listing{Course: row.course(), InstructorName: row.InstructorName, EnrolledCount: row.EnrolledCount}
}

func listings(rows []courseListingRow) []course.Listing {
	ls := make([]course.Listing, 0, len(rows))
	for _, row := range rows {
		ls = append(ls, row.listing())
	}
	return ls
}

var courseColumns = []string{
	"c.id", "c.course_name", "c.course_code", "c.description", "c.category", "c.level",
	"c.credits", "c.max_students", "c.instructor_id", "c.is_active", "c.created_at",
}

// courseListings selects courses with their instructor's name and Active enrollment count.
func courseListings() sq.SelectBuilder {
	cols := append(append([]string(nil), courseColumns...),
		"COALESCE(i.first_name || ' ' || i.last_name, '') AS instructor_name",
		activeCountExpr+" AS enrolled_count",
	)
	return psql.Select(cols...).
		From("courses c").
		LeftJoin("instructors i ON i.id = c.instructor_id")
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

// trapWriteErr maps constraint violations to course errors.
func (repo *courseRepository) trapWriteErr(err error, msg string) error {
	switch code, constraint := pqError(err); {
	case code == pqUniqueViolation && constraint == "courses_code_key":
		return course.ErrCodeExists
	case code == pqForeignKeyViolation && constraint == "courses_instructor_id_fkey":
		return course.ErrInstructorNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *courseRepository) CodeExists(ctx context.Context, code string, excludeID int) (bool, error) {
	q := psql.Select("COUNT(*) > 0").From("courses").Where("UPPER(course_code) = UPPER(?)", code)
	if excludeID > 0 {
		q = q.Where(sq.NotEq{"id": excludeID})
	}
	var exists bool
	if err := get(ctx, repo.db, &exists, q); err != nil {
		return false, errors.Wrap(err, "checking course code")
	}
	return exists, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := psql.Insert("courses").
		Columns("course_name", "course_code", "description", "category", "level", "credits", "max_students", "instructor_id", "is_active", "created_at").
		Values(c.Name, c.Code, c.Description, c.Category, string(c.Level), c.Credits, c.MaxStudents, null.IntFromPtr(c.InstructorID), c.IsActive, c.CreatedAt.UTC()).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &c.ID, q); err != nil {
		return course.Course{}, repo.trapWriteErr(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	q := psql.Select(courseColumns...).From("courses c").Where(sq.Eq{"c.id": id})
	if err := get(ctx, repo.db, &row, q); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "querying course")
	}
	return row.course(), nil
}

func (repo *courseRepository) SearchCourses(ctx context.Context, filter course.SearchFilter, ordering []core.DBOrdering) ([]course.Listing, error) {
	q := courseListings()
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		q = q.Where(sq.Or{
			sq.ILike{"c.course_name": pattern},
			sq.ILike{"c.course_code": pattern},
			sq.ILike{"c.description": pattern},
		})
	}
	if filter.Category != "" {
		q = q.Where(sq.Eq{"c.category": filter.Category})
	}
	if filter.Level != "" {
		q = q.Where(sq.Eq{"c.level": string(filter.Level)})
	}
	if filter.InstructorID > 0 {
		q = q.Where(sq.Eq{"c.instructor_id": filter.InstructorID})
	}
	q = q.OrderBy(core.OrderByClauses(ordering, courseOrdering)...).OrderBy("c.course_name ASC", "c.course_code ASC")

	rows := make([]courseListingRow, 0)
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "searching courses")
	}
	return listings(rows), nil
}

func (repo *courseRepository) SuggestCourses(ctx context.Context, keyword string, limit int) ([]course.Suggestion, error) {
	pattern := likePattern(keyword)
	q := psql.Select("id", "course_name", "course_code", "category", "level").
		From("courses").
		Where(sq.Or{sq.ILike{"course_name": pattern}, sq.ILike{"course_code": pattern}}).
		OrderBy("course_name ASC", "course_code ASC").
		Limit(uint64(limit))

	var rows []struct {
		ID       int    `db:"id"`
		Name     string `db:"course_name"`
		Code     string `db:"course_code"`
		Category string `db:"category"`
		Level    string `db:"level"`
	}
	if err := selectAll(ctx, repo.db, &rows, q); err != nil {
		return nil, errors.Wrap(err, "suggesting courses")
	}
	suggestions := make([]course.Suggestion, 0, len(rows))
	for _, row := range rows {
		suggestions = append(suggestions, course.Suggestion{ID: row.ID, Name: row.Name, Code: row.Code, Category: row.Category, Level: course.Level(row.Level)})
	}
	return suggestions, nil
}

func (repo *courseRepository) GetCapacity(ctx context.Context, id int) (course.Capacity, error) {
	var row struct {
		Name     string `db:"course_name"`
		Max      int    `db:"max_students"`
		Enrolled int    `db:"enrolled"`
	}
	q := psql.Select("c.course_name", "c.max_students", activeCountExpr+" AS enrolled").
		From("courses c").
		Where(sq.Eq{"c.id": id})
	if err := get(ctx, repo.db, &row, q); err != nil {
		return course.Capacity{}, trapNoRows(err, course.ErrNotFound, "querying course capacity")
	}
	return course.NewCapacity(row.Name, row.Max, row.Enrolled), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := psql.Update("courses").
		SetMap(map[string]interface{}{
			"course_name":   c.Name,
			"course_code":   c.Code,
			"description":   c.Description,
			"category":      c.Category,
			"level":         string(c.Level),
			"credits":       c.Credits,
			"max_students":  c.MaxStudents,
			"instructor_id": null.IntFromPtr(c.InstructorID),
			"is_active":     c.IsActive,
		}).
		Where(sq.Eq{"id": c.ID})
	res, err := exec(ctx, repo.db, q)
	if err != nil {
		return course.Course{}, repo.trapWriteErr(err, "updating course")
	}
	if err = mustAffect(res, course.ErrNotFound); err != nil {
		return course.Course{}, err
	}
	return c, nil
}

// DeleteCourse removes the course; its enrollments go with it (ON DELETE CASCADE).
func (repo *courseRepository) DeleteCourse(ctx context.Context, id int) error {
	res, err := exec(ctx, repo.db, psql.Delete("courses").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return mustAffect(res, course.ErrNotFound)
}
