package sqlxrepos

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/enrollment"
)

var (
	lockCourseQuery   = regexp.QuoteMeta(`SELECT max_students, instructor_id FROM courses WHERE id = $1 FOR UPDATE`)
	studentExistsSQL  = regexp.QuoteMeta(`SELECT COUNT(*) > 0 FROM students WHERE id = $1`)
	countActiveQuery  = regexp.QuoteMeta(`SELECT COUNT(*) AS active, COALESCE(BOOL_OR(student_id = $1), FALSE) AS mine FROM enrollments WHERE course_id = $2 AND status = $3`)
	insertEnrollQuery = regexp.QuoteMeta(`INSERT INTO enrollments (student_id,course_id,enrollment_date,status,enrolled_by_instructor_id) VALUES ($1,$2,$3,$4,$5) RETURNING id`)
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func newEnrollment(studentID, courseID int) enrollment.Enrollment {
	return enrollment.Enrollment{
		StudentID:      studentID,
		CourseID:       courseID,
		EnrollmentDate: "2024-03-01",
		Status:         enrollment.StatusActive,
	}
}

// expectSnapshot expects the reads of Enroll on a course of instructor 5 holding `active` Active enrollments.
func expectSnapshot(mock sqlmock.Sqlmock, studentID, courseID, maxStudents, active int, mine bool) {
	mock.ExpectBegin()
	mock.ExpectQuery(lockCourseQuery).
		WithArgs(courseID).
		WillReturnRows(sqlmock.NewRows([]string{"max_students", "instructor_id"}).AddRow(maxStudents, 5))
	mock.ExpectQuery(studentExistsSQL).
		WithArgs(studentID).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
	mock.ExpectQuery(countActiveQuery).
		WithArgs(studentID, courseID, "Active").
		WillReturnRows(sqlmock.NewRows([]string{"active", "mine"}).AddRow(active, mine))
}

func TestEnrollmentRepository_Enroll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	expectSnapshot(mock, 7, 3, 2, 1, false)
	mock.ExpectQuery(insertEnrollQuery).
		WithArgs(7, 3, "2024-03-01", "Active", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	var snap enrollment.Snapshot
	en, err := repo.Enroll(context.Background(), newEnrollment(7, 3), func(s enrollment.Snapshot) error {
		snap = s
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, en.ID)

	instructorID := 5
	assert.Equal(t, enrollment.Snapshot{
		StudentExists: true,
		CourseExists:  true,
		MaxStudents:   2,
		ActiveCount:   1,
		InstructorID:  &instructorID,
	}, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepository_Enroll_guardRejects(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	expectSnapshot(mock, 7, 3, 2, 2, false)
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), newEnrollment(7, 3), func(s enrollment.Snapshot) error {
		if s.ActiveCount >= s.MaxStudents {
			return enrollment.ErrCourseFull
		}
		return nil
	})
	assert.Equal(t, enrollment.ErrCourseFull, err)
	assert.NoError(t, mock.ExpectationsWereMet()) // nothing inserted
}

func TestEnrollmentRepository_Enroll_uniqueViolation(t *testing.T) {
	tests := []struct {
		name    string
		pqErr   *pq.Error
		wantErr error
	}{
		{
			name:    "one active enrollment per pair",
			pqErr:   &pq.Error{Code: "23505", Constraint: "enrollments_one_active_key"},
			wantErr: enrollment.ErrAlreadyEnrolled,
		},
		{
			name:  "other constraint",
			pqErr: &pq.Error{Code: "23503", Constraint: "enrollments_student_id_fkey"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewEnrollmentRepository(db)

			expectSnapshot(mock, 7, 3, 2, 0, false)
			mock.ExpectQuery(insertEnrollQuery).WillReturnError(tt.pqErr)
			mock.ExpectRollback()

			_, err := repo.Enroll(context.Background(), newEnrollment(7, 3), func(enrollment.Snapshot) error { return nil })
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				var pqErr *pq.Error
				assert.True(t, errors.As(err, &pqErr))
				assert.NotEqual(t, enrollment.ErrAlreadyEnrolled, errors.Cause(err))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEnrollmentRepository_Enroll_unknownCourse(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockCourseQuery).
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{"max_students", "instructor_id"}))
	mock.ExpectQuery(studentExistsSQL).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))
	mock.ExpectRollback()

	var snap enrollment.Snapshot
	_, err := repo.Enroll(context.Background(), newEnrollment(7, 999), func(s enrollment.Snapshot) error {
		snap = s
		return enrollment.ErrNotFound
	})
	assert.Equal(t, enrollment.ErrNotFound, err)
	assert.Equal(t, enrollment.Snapshot{StudentExists: true}, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}
