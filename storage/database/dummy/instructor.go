package dummydb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/instructor"
)

var instructorColumns = map[string]compareFunc[instructor.Listing]{
	"first_name":   func(a, b instructor.Listing) int { return foldCompare(a.FirstName, b.FirstName) },
	"last_name":    func(a, b instructor.Listing) int { return foldCompare(a.LastName, b.LastName) },
	"email":        func(a, b instructor.Listing) int { return foldCompare(a.Email, b.Email) },
	"department":   func(a, b instructor.Listing) int { return foldCompare(a.Department, b.Department) },
	"created_at":   func(a, b instructor.Listing) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"course_count": func(a, b instructor.Listing) int { return a.CourseCount - b.CourseCount },
}

type instructorRepository struct {
	db *DB
}

var _ instructor.Repository = (*instructorRepository)(nil) // interface compliance check

func NewInstructorRepository(db *DB) instructor.Repository {
	return &instructorRepository{db: db}
}

// emailTaken must be called with the lock held.
func (repo *instructorRepository) emailTaken(email string, excludeID int) bool {
	for _, inst := range repo.db.instructors {
		if inst.ID != excludeID && inst.Email == email {
			return true
		}
	}
	return false
}

func (repo *instructorRepository) EmailExists(_ context.Context, email string, excludeID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.emailTaken(email, excludeID), nil
}

func (repo *instructorRepository) CreateInstructor(_ context.Context, inst instructor.Instructor) (instructor.Instructor, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(inst.Email, 0) {
		return instructor.Instructor{}, instructor.ErrEmailExists
	}
	inst.ID = repo.db.nextPK("instructors")
	repo.db.instructors[inst.ID] = &inst
	return inst, nil
}

func (repo *instructorRepository) GetInstructor(_ context.Context, id int) (instructor.Instructor, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inst, ok := repo.db.instructors[id]; ok {
		return *inst, nil
	}
	return instructor.Instructor{}, instructor.ErrNotFound
}

func (repo *instructorRepository) ListInstructors(_ context.Context, ordering []core.DBOrdering) ([]instructor.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := make([]instructor.Listing, 0, len(repo.db.instructors))
	for _, inst := range repo.db.instructors {
		l := instructor.Listing{Instructor: *inst}
		for _, c := range repo.db.courses {
			if c.InstructorID != nil && *c.InstructorID == inst.ID {
				l.CourseCount++
			}
		}
		listings = append(listings, l)
	}
	sortRows(listings, ordering, instructorColumns, instructorColumns["first_name"], instructorColumns["last_name"])
	return listings, nil
}

func (repo *instructorRepository) UpdateInstructor(_ context.Context, inst instructor.Instructor) (instructor.Instructor, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.instructors[inst.ID]
	if !ok {
		return instructor.Instructor{}, instructor.ErrNotFound
	}
	if repo.emailTaken(inst.Email, inst.ID) {
		return instructor.Instructor{}, instructor.ErrEmailExists
	}
	if len(inst.PasswordHash) == 0 {
		inst.PasswordHash = orig.PasswordHash
	}
	repo.db.instructors[inst.ID] = &inst
	return inst, nil
}

// DeleteInstructor unassigns the courses of the instructor and forgets who enrolled whom.
func (repo *instructorRepository) DeleteInstructor(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.instructors[id]; !ok {
		return instructor.ErrNotFound
	}
	delete(repo.db.instructors, id)
	for _, c := range repo.db.courses {
		if c.InstructorID != nil && *c.InstructorID == id {
			c.InstructorID = nil
		}
	}
	for _, en := range repo.db.enrollments {
		if en.EnrolledByInstructorID != nil && *en.EnrolledByInstructorID == id {
			en.EnrolledByInstructorID = nil
		}
	}
	return nil
}
