package access_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/storage/database/dummy"
	"github.com/trezcool/academia/tests"
)

type world struct {
	svc                *access.Service
	alan, ada          instructor.Instructor
	cs101, cs102, m201 course.Course
	grace, bob, carol  student.Student
}

// newWorld enrolls
//
//	grace: cs101 Active, cs102 Dropped
//	bob:   cs101 Active, m201 Active
//	carol: cs101 Dropped
func newWorld(t *testing.T) world {
	db := dummydb.Open()
	v := testutil.NewValidator()
	courseRepo := dummydb.NewCourseRepository(db)
	instRepo := dummydb.NewInstructorRepository(db)
	stdRepo := dummydb.NewStudentRepository(db)
	enRepo := dummydb.NewEnrollmentRepository(db)

	w := world{
		svc: access.NewService(
			dummydb.NewAccessRepository(db),
			course.NewService(courseRepo, v),
			instructor.NewService(instRepo, v, 4),
			student.NewService(stdRepo, v, 4),
		),
		alan: testutil.CreateInstructor(t, instRepo, "Alan", "Turing", "alan@test.cd", "", true),
		ada:  testutil.CreateInstructor(t, instRepo, "Ada", "Lovelace", "ada@test.cd", "", true),
	}
	w.cs101 = testutil.CreateCourse(t, courseRepo, "Programming", "CS101", 30, &w.alan.ID)
	w.cs102 = testutil.CreateCourse(t, courseRepo, "Data Structures", "CS102", 30, &w.alan.ID)
	w.m201 = testutil.CreateCourse(t, courseRepo, "Linear Algebra", "MATH201", 30, &w.ada.ID)
	w.grace = testutil.CreateStudent(t, stdRepo, "Grace", "Hopper", "grace@test.cd", "", true)
	w.bob = testutil.CreateStudent(t, stdRepo, "Bob", "Kahn", "bob@test.cd", "", true)
	w.carol = testutil.CreateStudent(t, stdRepo, "Carol", "Shaw", "carol@test.cd", "", true)

	testutil.Enroll(t, enRepo, w.grace.ID, w.cs101.ID, enrollment.StatusActive)
	testutil.Enroll(t, enRepo, w.grace.ID, w.cs102.ID, enrollment.StatusDropped)
	testutil.Enroll(t, enRepo, w.bob.ID, w.cs101.ID, enrollment.StatusActive)
	testutil.Enroll(t, enRepo, w.bob.ID, w.m201.ID, enrollment.StatusActive)
	testutil.Enroll(t, enRepo, w.carol.ID, w.cs101.ID, enrollment.StatusDropped)
	return w
}

func (w world) as(std student.Student) core.Identity {
	return testutil.Identity(core.RoleStudent, std.ID, std.Name(), std.Email)
}

func TestRequireStaff(t *testing.T) {
	tests := []struct {
		name    string
		id      core.Identity
		wantErr error
	}{
		{name: "admin", id: testutil.Identity(core.RoleAdmin, 1, "", "")},
		{name: "instructor", id: testutil.Identity(core.RoleInstructor, 1, "", "")},
		{name: "student", id: testutil.Identity(core.RoleStudent, 1, "", ""), wantErr: access.ErrDenied},
		{name: "anonymous", id: core.Anonymous, wantErr: access.ErrDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, access.RequireStaff(tt.id))
		})
	}

	assert.NoError(t, access.RequireAdmin(testutil.Identity(core.RoleAdmin, 1, "", "")))
	assert.Equal(t, access.ErrDenied, access.RequireAdmin(testutil.Identity(core.RoleInstructor, 1, "", "")))
}

func TestService_ListCoursesFor(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	staff, err := w.svc.ListCoursesFor(ctx, testutil.Identity(core.RoleInstructor, w.ada.ID, "", ""), nil)
	if err != nil {
		t.Fatalf("ListCoursesFor() failed: %v", err)
	}
	assert.Len(t, staff, 3)

	mine, err := w.svc.ListCoursesFor(ctx, w.as(w.grace), nil)
	if err != nil {
		t.Fatalf("ListCoursesFor() failed: %v", err)
	}
	if assert.Len(t, mine, 2) {
		// Active first
		assert.Equal(t, w.cs101.ID, mine[0].ID)
		assert.Equal(t, "Active", mine[0].EnrollmentStatus)
		assert.Equal(t, 2, mine[0].EnrolledCount)
		assert.Equal(t, w.cs102.ID, mine[1].ID)
		assert.Equal(t, "Dropped", mine[1].EnrollmentStatus)
	}

	// every listed course can be opened, every other one is denied
	listed := make(map[int]bool)
	for _, c := range mine {
		listed[c.ID] = true
	}
	for _, c := range []course.Course{w.cs101, w.cs102, w.m201} {
		err := w.svc.CanViewCourse(ctx, w.as(w.grace), c.ID)
		if listed[c.ID] {
			assert.NoError(t, err, c.Code)
		} else {
			assert.Equal(t, access.ErrDenied, err, c.Code)
		}
	}
}

func TestService_ListInstructorsFor(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	got, err := w.svc.ListInstructorsFor(ctx, w.as(w.grace), nil)
	if err != nil {
		t.Fatalf("ListInstructorsFor() failed: %v", err)
	}
	if assert.Len(t, got, 1) {
		assert.Equal(t, w.alan.ID, got[0].ID)
		assert.Equal(t, 2, *got[0].CourseCount)
		assert.Equal(t, 2, *got[0].MyCoursesCount)
	}
	assert.NoError(t, w.svc.CanViewInstructor(ctx, w.as(w.grace), w.alan.ID))
	assert.Equal(t, access.ErrDenied, w.svc.CanViewInstructor(ctx, w.as(w.grace), w.ada.ID))

	staff, _ := w.svc.ListInstructorsFor(ctx, testutil.Identity(core.RoleAdmin, 1, "", ""), nil)
	if assert.Len(t, staff, 2) {
		assert.Equal(t, "Ada", staff[0].FirstName)
		assert.Nil(t, staff[0].MyCoursesCount)
	}
}

func TestService_ListStudentsFor(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	got, err := w.svc.ListStudentsFor(ctx, w.as(w.grace), nil)
	if err != nil {
		t.Fatalf("ListStudentsFor() failed: %v", err)
	}
	if assert.Len(t, got, 1) {
		assert.Equal(t, w.bob.ID, got[0].ID)
		assert.Equal(t, 2, *got[0].CourseCount)
		assert.Equal(t, 1, *got[0].SharedCourses)
	}

	tests := []struct {
		name    string
		target  student.Student
		wantErr error
	}{
		{name: "self", target: w.grace},
		{name: "classmate", target: w.bob},
		{name: "dropped classmate", target: w.carol, wantErr: access.ErrDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, w.svc.CanViewStudent(ctx, w.as(w.grace), tt.target.ID))
		})
	}

	staff, _ := w.svc.ListStudentsFor(ctx, testutil.Identity(core.RoleInstructor, w.alan.ID, "", ""), nil)
	assert.Len(t, staff, 3)
}

func TestService_CheckCourseOwnership(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		id       core.Identity
		courseID int
		wantErr  error
	}{
		{name: "admin", id: testutil.Identity(core.RoleAdmin, 1, "", ""), courseID: w.m201.ID},
		{name: "owner", id: testutil.Identity(core.RoleInstructor, w.alan.ID, "", ""), courseID: w.cs101.ID},
		{name: "other instructor", id: testutil.Identity(core.RoleInstructor, w.ada.ID, "", ""), courseID: w.cs101.ID, wantErr: access.ErrDenied},
		{name: "missing course", id: testutil.Identity(core.RoleInstructor, w.ada.ID, "", ""), courseID: 999, wantErr: course.ErrNotFound},
		{name: "student", id: w.as(w.bob), courseID: w.cs101.ID, wantErr: access.ErrDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, errors.Cause(w.svc.CheckCourseOwnership(ctx, tt.id, tt.courseID)))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Invalid course selection", access.Message(access.Deny("Invalid course selection")))
	assert.Equal(t, access.ErrDenied.Error(), access.Message(errors.Wrap(access.ErrDenied, "listing")))
	assert.Equal(t, access.ErrDenied, errors.Cause(errors.Wrap(access.Deny("nope"), "enrolling")))
}
