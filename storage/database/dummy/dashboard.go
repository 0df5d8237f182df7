package dummydb

import (
	"context"

	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/dashboard"
	"github.com/trezcool/academia/core/enrollment"
)

type dashboardRepository struct {
	db *DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *DB) dashboard.Repository {
	return &dashboardRepository{db: db}
}

func (repo *dashboardRepository) Totals(_ context.Context) (dashboard.Totals, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	totals := dashboard.Totals{
		Courses:     len(repo.db.courses),
		Instructors: len(repo.db.instructors),
		Students:    len(repo.db.students),
	}
	for _, en := range repo.db.enrollments {
		if en.Status == enrollment.StatusActive {
			totals.ActiveEnrollments++
		}
	}
	return totals, nil
}

// listings must be called with the lock held.
func (repo *dashboardRepository) listings(keep func(c *course.Course) bool) []course.Listing {
	listings := make([]course.Listing, 0)
	for _, c := range repo.db.courses {
		if keep(c) {
			listings = append(listings, repo.db.courseListing(*c))
		}
	}
	return listings
}

func limitListings(listings []course.Listing, limit int) []course.Listing {
	if len(listings) > limit {
		return listings[:limit]
	}
	return listings
}

func (repo *dashboardRepository) RecentCourses(_ context.Context, limit int) ([]course.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := repo.listings(func(*course.Course) bool { return true })
	sortRows(listings, nil, nil,
		func(a, b course.Listing) int { return b.CreatedAt.Compare(a.CreatedAt) },
		func(a, b course.Listing) int { return b.ID - a.ID },
	)
	return limitListings(listings, limit), nil
}

func (repo *dashboardRepository) PopularCourses(_ context.Context, limit int) ([]course.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := repo.listings(func(c *course.Course) bool { return repo.db.activeCount(c.ID) > 0 })
	sortRows(listings, nil, nil,
		func(a, b course.Listing) int { return b.EnrolledCount - a.EnrolledCount },
		courseColumns["course_name"],
	)
	return limitListings(listings, limit), nil
}

func (repo *dashboardRepository) InstructorCourses(_ context.Context, instructorID int) ([]course.Listing, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	listings := repo.listings(func(c *course.Course) bool {
		return c.IsActive && c.InstructorID != nil && *c.InstructorID == instructorID
	})
	sortRows(listings, nil, nil, courseColumns["course_name"])
	return listings, nil
}

func (repo *dashboardRepository) RecentInstructorEnrollments(_ context.Context, instructorID, limit int) ([]enrollment.Detail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	details := make([]enrollment.Detail, 0)
	for _, en := range repo.db.enrollments {
		c, ok := repo.db.courses[en.CourseID]
		if ok && c.InstructorID != nil && *c.InstructorID == instructorID {
			details = append(details, repo.db.enrollmentDetail(*en))
		}
	}
	sortRows(details, nil, nil, byDateDesc)
	if len(details) > limit {
		details = details[:limit]
	}
	return details, nil
}

func (repo *dashboardRepository) StudentEnrollments(_ context.Context, studentID int) ([]dashboard.StudentEnrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]dashboard.StudentEnrollment, 0)
	for _, en := range repo.db.enrollments {
		if en.StudentID != studentID {
			continue
		}
		row := dashboard.StudentEnrollment{Detail: repo.db.enrollmentDetail(*en)}
		if c, ok := repo.db.courses[en.CourseID]; ok {
			row.Credits = c.Credits
		}
		rows = append(rows, row)
	}
	sortRows(rows, nil, nil,
		func(a, b dashboard.StudentEnrollment) int {
			return boolRank(b.Status == enrollment.StatusActive) - boolRank(a.Status == enrollment.StatusActive)
		},
		func(a, b dashboard.StudentEnrollment) int { return byDateDesc(a.Detail, b.Detail) },
	)
	return rows, nil
}
