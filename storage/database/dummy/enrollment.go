package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/academia/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

// Enroll holds the write lock from the snapshot read to the insert.
func (repo *enrollmentRepository) Enroll(_ context.Context, en enrollment.Enrollment, guard enrollment.Guard) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var snap enrollment.Snapshot
	_, snap.StudentExists = repo.db.students[en.StudentID]
	if c, ok := repo.db.courses[en.CourseID]; ok {
		snap.CourseExists = true
		snap.MaxStudents = c.MaxStudents
		snap.InstructorID = copyIntPtr(c.InstructorID)
		snap.ActiveCount = repo.db.activeCount(c.ID)
	}
	for _, other := range repo.db.enrollments {
		if other.StudentID == en.StudentID && other.CourseID == en.CourseID && other.Status == enrollment.StatusActive {
			snap.AlreadyEnrolled = true
			break
		}
	}
	if err := guard(snap); err != nil {
		return enrollment.Enrollment{}, err
	}
	if snap.AlreadyEnrolled {
		return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
	}

	en.ID = repo.db.nextPK("enrollments")
	en.EnrolledByInstructorID = copyIntPtr(en.EnrolledByInstructorID)
	repo.db.enrollments[en.ID] = &en
	return en, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id int) (enrollment.Detail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if en, ok := repo.db.enrollments[id]; ok {
		return repo.db.enrollmentDetail(*en), nil
	}
	return enrollment.Detail{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) SetStatus(_ context.Context, id int, from, to enrollment.Status) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	en, ok := repo.db.enrollments[id]
	if !ok {
		return enrollment.ErrNotFound
	}
	if en.Status != from {
		return enrollment.ErrUnavailable
	}
	en.Status = to
	return nil
}

// byDateDesc orders enrollments from the most recent one.
func byDateDesc(a, b enrollment.Detail) int {
	if r := strings.Compare(b.EnrollmentDate, a.EnrollmentDate); r != 0 {
		return r
	}
	return b.ID - a.ID
}

func (repo *enrollmentRepository) ListEnrollments(_ context.Context, filter enrollment.QueryFilter) ([]enrollment.Detail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	details := make([]enrollment.Detail, 0)
	for _, en := range repo.db.enrollments {
		if filter.StudentID > 0 && en.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID > 0 && en.CourseID != filter.CourseID {
			continue
		}
		if filter.Status != "" && en.Status != filter.Status {
			continue
		}
		details = append(details, repo.db.enrollmentDetail(*en))
	}
	sortRows(details, nil, nil, byDateDesc)
	return details, nil
}
