package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

var courseColumns = map[string]compareFunc[course.Listing]{
	"course_name":    func(a, b course.Listing) int { return foldCompare(a.Name, b.Name) },
	"course_code":    func(a, b course.Listing) int { return strings.Compare(a.Code, b.Code) },
	"category":       func(a, b course.Listing) int { return foldCompare(a.Category, b.Category) },
	"level":          func(a, b course.Listing) int { return strings.Compare(string(a.Level), string(b.Level)) },
	"credits":        func(a, b course.Listing) int { return a.Credits - b.Credits },
	"created_at":     func(a, b course.Listing) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"enrolled_count": func(a, b course.Listing) int { return a.EnrolledCount - b.EnrolledCount },
}

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CodeExists(_ context.Context, code string, excludeID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.courses {
		if c.ID != excludeID && strings.EqualFold(c.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

// checkRefs must be called with the lock held.
func (repo *courseRepository) checkRefs(c course.Course, excludeID int) error {
	if c.InstructorID != nil {
		if _, ok := repo.db.instructors[*c.InstructorID]; !ok {
			return course.ErrInstructorNotFound
		}
	}
	for _, other := range repo.db.courses {
		if other.ID != excludeID && strings.EqualFold(other.Code, c.Code) {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkRefs(c, 0); err != nil {
		return course.Course{}, err
	}
	c.ID = repo.db.nextPK("courses")
	c.InstructorID = copyIntPtr(c.InstructorID)
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		cp := *c
		cp.InstructorID = copyIntPtr(c.InstructorID)
		return cp, nil
	}
	return course.Course{}, course.ErrNotFound
}

func matchesFilter(c *course.Course, filter course.SearchFilter) bool {
	if filter.Search != "" &&
		!containsFold(c.Name, filter.Search) &&
		!containsFold(c.Code, filter.Search) &&
		!containsFold(c.Description, filter.Search) {
		return false
	}
	if filter.Category != "" && c.Category != filter.Category {
		return false
	}
	if filter.Level != "" && c.Level != filter.Level {
		return false
	}
	if filter.InstructorID > 0 && (c.InstructorID == nil || *c.InstructorID != filter.InstructorID) {
		return false
	}
	return true
}

func (repo *courseRepository) SearchCourses(_ context.Context, filter course.SearchFilter, ordering []core.DBOrdering) ([]course.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := make([]course.Listing, 0)
	for _, c := range repo.db.courses {
		if matchesFilter(c, filter) {
			listings = append(listings, repo.db.courseListing(*c))
		}
	}
	sortRows(listings, ordering, courseColumns, courseColumns["course_name"], courseColumns["course_code"])
	return listings, nil
}

func (repo *courseRepository) SuggestCourses(_ context.Context, keyword string, limit int) ([]course.Suggestion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := make([]course.Listing, 0)
	for _, c := range repo.db.courses {
		if containsFold(c.Name, keyword) || containsFold(c.Code, keyword) {
			listings = append(listings, course.Listing{Course: *c})
		}
	}
	sortRows(listings, nil, courseColumns, courseColumns["course_name"], courseColumns["course_code"])
	if len(listings) > limit {
		listings = listings[:limit]
	}
	suggestions := make([]course.Suggestion, 0, len(listings))
	for _, l := range listings {
		suggestions = append(suggestions, course.Suggestion{ID: l.ID, Name: l.Name, Code: l.Code, Category: l.Category, Level: l.Level})
	}
	return suggestions, nil
}

func (repo *courseRepository) GetCapacity(_ context.Context, id int) (course.Capacity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	c, ok := repo.db.courses[id]
	if !ok {
		return course.Capacity{}, course.ErrNotFound
	}
	return course.NewCapacity(c.Name, c.MaxStudents, repo.db.activeCount(id)), nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	if err := repo.checkRefs(c, c.ID); err != nil {
		return course.Course{}, err
	}
	c.InstructorID = copyIntPtr(c.InstructorID)
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	for enID, en := range repo.db.enrollments {
		if en.CourseID == id {
			delete(repo.db.enrollments, enID)
		}
	}
	return nil
}
