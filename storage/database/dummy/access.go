package dummydb

import (
	"context"

	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
)

type accessRepository struct {
	db *DB
}

var _ access.Repository = (*accessRepository)(nil) // interface compliance check

func NewAccessRepository(db *DB) access.Repository {
	return &accessRepository{db: db}
}

// StudentCourses keeps one row per course: the Active enrollment if any, else the most recent one.
func (repo *accessRepository) StudentCourses(_ context.Context, studentID int) ([]access.CourseView, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	latest := make(map[int]*enrollment.Enrollment)
	for _, en := range repo.db.enrollments {
		if en.StudentID != studentID {
			continue
		}
		cur, ok := latest[en.CourseID]
		switch {
		case !ok, en.Status == enrollment.StatusActive:
			latest[en.CourseID] = en
		case cur.Status != enrollment.StatusActive && (en.EnrollmentDate > cur.EnrollmentDate || (en.EnrollmentDate == cur.EnrollmentDate && en.ID > cur.ID)):
			latest[en.CourseID] = en
		}
	}

	views := make([]access.CourseView, 0, len(latest))
	for courseID, en := range latest {
		c, ok := repo.db.courses[courseID]
		if !ok {
			continue
		}
		views = append(views, access.CourseView{
			Listing:          repo.db.courseListing(*c),
			EnrollmentStatus: string(en.Status),
			Grade:            en.Grade,
			EnrollmentDate:   en.EnrollmentDate,
		})
	}
	activeFirst := func(a, b access.CourseView) int {
		return boolRank(b.EnrollmentStatus == string(enrollment.StatusActive)) - boolRank(a.EnrollmentStatus == string(enrollment.StatusActive))
	}
	byName := func(a, b access.CourseView) int { return foldCompare(a.Name, b.Name) }
	sortRows(views, nil, nil, activeFirst, byName)
	return views, nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (repo *accessRepository) StudentInstructors(_ context.Context, studentID int) ([]access.InstructorView, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	myCourses := make(map[int]int) // instructor -> enrollments of the student into their courses
	for _, en := range repo.db.enrollments {
		if en.StudentID != studentID {
			continue
		}
		if c, ok := repo.db.courses[en.CourseID]; ok && c.InstructorID != nil {
			myCourses[*c.InstructorID]++
		}
	}

	views := make([]access.InstructorView, 0, len(myCourses))
	for instID, mine := range myCourses {
		inst, ok := repo.db.instructors[instID]
		if !ok {
			continue
		}
		var count int
		for _, c := range repo.db.courses {
			if c.InstructorID != nil && *c.InstructorID == instID {
				count++
			}
		}
		views = append(views, access.InstructorView{Instructor: *inst, CourseCount: &count, MyCoursesCount: &mine})
	}
	sortRows(views, nil, nil,
		func(a, b access.InstructorView) int { return foldCompare(a.FirstName, b.FirstName) },
		func(a, b access.InstructorView) int { return foldCompare(a.LastName, b.LastName) },
	)
	return views, nil
}

func (repo *accessRepository) Classmates(_ context.Context, studentID int) ([]access.StudentView, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mine := repo.db.activeCourses(studentID)
	shared := make(map[int]map[int]bool) // classmate -> shared courses
	for _, en := range repo.db.enrollments {
		if en.StudentID == studentID || en.Status != enrollment.StatusActive || !mine[en.CourseID] {
			continue
		}
		if shared[en.StudentID] == nil {
			shared[en.StudentID] = make(map[int]bool)
		}
		shared[en.StudentID][en.CourseID] = true
	}

	views := make([]access.StudentView, 0, len(shared))
	for stdID, courses := range shared {
		std, ok := repo.db.students[stdID]
		if !ok {
			continue
		}
		count := len(repo.db.activeCourses(stdID))
		sharedCount := len(courses)
		views = append(views, access.StudentView{Student: *std, CourseCount: &count, SharedCourses: &sharedCount})
	}
	sortRows(views, nil, nil,
		func(a, b access.StudentView) int { return foldCompare(a.FirstName, b.FirstName) },
		func(a, b access.StudentView) int { return foldCompare(a.LastName, b.LastName) },
	)
	return views, nil
}

func (repo *accessRepository) StudentHasCourse(_ context.Context, studentID, courseID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, en := range repo.db.enrollments {
		if en.StudentID == studentID && en.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *accessRepository) StudentHasInstructor(_ context.Context, studentID, instructorID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, en := range repo.db.enrollments {
		if en.StudentID != studentID {
			continue
		}
		if c, ok := repo.db.courses[en.CourseID]; ok && c.InstructorID != nil && *c.InstructorID == instructorID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *accessRepository) ShareActiveCourse(_ context.Context, studentID, otherID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mine := repo.db.activeCourses(studentID)
	for courseID := range repo.db.activeCourses(otherID) {
		if mine[courseID] {
			return true, nil
		}
	}
	return false, nil
}

func (repo *accessRepository) CourseInstructor(_ context.Context, courseID int) (*int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	c, ok := repo.db.courses[courseID]
	if !ok {
		return nil, course.ErrNotFound
	}
	return copyIntPtr(c.InstructorID), nil
}
