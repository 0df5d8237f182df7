package dummydb

import (
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/student"
)

// DB keeps every table in memory. One lock guards all of them since most reads join tables.
type DB struct {
	sync.RWMutex

	admins      map[int]*auth.Admin
	courses     map[int]*course.Course
	instructors map[int]*instructor.Instructor
	students    map[int]*student.Student
	enrollments map[int]*enrollment.Enrollment

	pkCount map[string]int
}

func Open() *DB {
	db := &DB{}
	db.Reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()

	db.admins = make(map[int]*auth.Admin)
	db.courses = make(map[int]*course.Course)
	db.instructors = make(map[int]*instructor.Instructor)
	db.students = make(map[int]*student.Student)
	db.enrollments = make(map[int]*enrollment.Enrollment)
	db.pkCount = make(map[string]int)
}

func (db *DB) nextPK(table string) int {
	db.pkCount[table]++
	return db.pkCount[table]
}

// activeCount must be called with the lock held.
func (db *DB) activeCount(courseID int) int {
	var n int
	for _, en := range db.enrollments {
		if en.CourseID == courseID && en.Status == enrollment.StatusActive {
			n++
		}
	}
	return n
}

func (db *DB) courseListing(c course.Course) course.Listing {
	l := course.Listing{Course: c, EnrolledCount: db.activeCount(c.ID)}
	if c.InstructorID != nil {
		if inst, ok := db.instructors[*c.InstructorID]; ok {
			l.InstructorName = inst.Name()
		}
	}
	return l
}

func (db *DB) enrollmentDetail(en enrollment.Enrollment) enrollment.Detail {
	d := enrollment.Detail{Enrollment: en}
	if std, ok := db.students[en.StudentID]; ok {
		d.StudentName = std.Name()
	}
	if c, ok := db.courses[en.CourseID]; ok {
		d.CourseName = c.Name
		d.CourseCode = c.Code
		d.CourseInstructorID = copyIntPtr(c.InstructorID)
		if c.InstructorID != nil {
			if inst, ok := db.instructors[*c.InstructorID]; ok {
				d.InstructorName = inst.Name()
			}
		}
	}
	if en.EnrolledByInstructorID != nil {
		if inst, ok := db.instructors[*en.EnrolledByInstructorID]; ok {
			d.EnrolledByName = inst.Name()
		}
	}
	return d
}

func copyIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

type compareFunc[T any] func(a, b T) int

func foldCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// sortRows orders rows on `ordering` (fields unknown to `columns` are ignored), then on `defaults`.
func sortRows[T any](rows []T, ordering []core.DBOrdering, columns map[string]compareFunc[T], defaults ...compareFunc[T]) {
	cmps := make([]compareFunc[T], 0, len(ordering)+len(defaults))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		if ord.Ascending {
			cmps = append(cmps, col)
		} else {
			cmps = append(cmps, func(a, b T) int { return col(b, a) })
		}
	}
	cmps = append(cmps, defaults...)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, cmp := range cmps {
			if r := cmp(rows[i], rows[j]); r != 0 {
				return r < 0
			}
		}
		return false
	})
}
