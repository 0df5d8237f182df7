package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
)

var studentColumns = map[string]compareFunc[student.Listing]{
	"first_name":      func(a, b student.Listing) int { return foldCompare(a.FirstName, b.FirstName) },
	"last_name":       func(a, b student.Listing) int { return foldCompare(a.LastName, b.LastName) },
	"email":           func(a, b student.Listing) int { return foldCompare(a.Email, b.Email) },
	"enrollment_date": func(a, b student.Listing) int { return strings.Compare(a.EnrollmentDate, b.EnrollmentDate) },
	"created_at":      func(a, b student.Listing) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"course_count":    func(a, b student.Listing) int { return a.CourseCount - b.CourseCount },
}

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

// emailTaken must be called with the lock held.
func (repo *studentRepository) emailTaken(email string, excludeID int) bool {
	for _, std := range repo.db.students {
		if std.ID != excludeID && std.Email == email {
			return true
		}
	}
	return false
}

func (repo *studentRepository) EmailExists(_ context.Context, email string, excludeID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.emailTaken(email, excludeID), nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(std.Email, 0) {
		return student.Student{}, student.ErrEmailExists
	}
	std.ID = repo.db.nextPK("students")
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id int) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

// activeCourses must be called with the lock held.
func (db *DB) activeCourses(studentID int) map[int]bool {
	courses := make(map[int]bool)
	for _, en := range db.enrollments {
		if en.StudentID == studentID && en.Status == enrollment.StatusActive {
			courses[en.CourseID] = true
		}
	}
	return courses
}

func (repo *studentRepository) ListStudents(_ context.Context, ordering []core.DBOrdering) ([]student.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := make([]student.Listing, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		listings = append(listings, student.Listing{Student: *std, CourseCount: len(repo.db.activeCourses(std.ID))})
	}
	sortRows(listings, ordering, studentColumns, studentColumns["first_name"], studentColumns["last_name"])
	return listings, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.students[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.emailTaken(std.Email, std.ID) {
		return student.Student{}, student.ErrEmailExists
	}
	if len(std.PasswordHash) == 0 {
		std.PasswordHash = orig.PasswordHash
	}
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students, id)
	for enID, en := range repo.db.enrollments {
		if en.StudentID == id {
			delete(repo.db.enrollments, enID)
		}
	}
	return nil
}
