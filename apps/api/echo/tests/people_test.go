package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/tests"
)

func Test_instructorApi(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	jane := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	bob := testutil.CreateInstructor(t, e.insRepo, "Bob", "Ross", "bob@test.cd", pwd, true)
	std := testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	crs := testutil.CreateCourse(t, e.crsRepo, "Seminar", "SEM101", 10, &jane.ID)
	testutil.Enroll(t, e.enrRepo, std.ID, crs.ID, enrollment.StatusDropped)

	admin := e.login(t, core.RoleAdmin, "admin@test.cd")
	student := e.login(t, core.RoleStudent, "john@test.cd")

	listIDs := func(t *testing.T, c *client) []int {
		rec := c.do(http.MethodGet, "/v1/instructors", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var views []access.InstructorView
		unmarshal(t, rec, &views)
		ids := make([]int, 0, len(views))
		for _, v := range views {
			ids = append(ids, v.ID)
		}
		return ids
	}
	assert.ElementsMatch(t, []int{jane.ID, bob.ID}, listIDs(t, admin))
	// students see the instructors of the courses they have any enrollment in
	assert.Equal(t, []int{jane.ID}, listIDs(t, student))

	newInstructor := instructor.NewInstructor{
		FirstName:      "Mary",
		LastName:       "Jane",
		Email:          "JANE@test.cd",
		Department:     "Physics",
		Specialization: "Optics",
		Password:       pwd,
	}
	valid := newInstructor
	valid.Email = "mary@test.cd"
	edited := valid
	edited.Email = "jane@test.cd" // jane keeps her own email

	runHttpTests(t, []httpTest{
		{name: "student views their instructor", path: fmt.Sprintf("/v1/instructors/%d", jane.ID), client: student},
		{name: "student views another instructor", path: fmt.Sprintf("/v1/instructors/%d", bob.ID), client: student, wantCode: http.StatusForbidden},
		{name: "unknown", path: "/v1/instructors/999", client: admin, wantCode: http.StatusNotFound},
		{
			name: "students may not create", method: http.MethodPost, path: "/v1/instructors", client: student,
			body: valid, wantCode: http.StatusForbidden,
		},
		{
			name: "email exists", method: http.MethodPost, path: "/v1/instructors", client: admin,
			body: newInstructor, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[{"field":"email","error":"` + core.MsgEmailExists + `"}]}`),
		},
		{name: "create", method: http.MethodPost, path: "/v1/instructors", client: admin, body: valid, wantCode: http.StatusCreated},
		{
			name: "update excludes self from email check", method: http.MethodPut, path: fmt.Sprintf("/v1/instructors/%d", jane.ID),
			client: admin, body: edited,
		},
		{
			name: "delete", method: http.MethodDelete, path: fmt.Sprintf("/v1/instructors/%d", bob.ID), client: admin,
			wantData: marshalObj(t, httpSuccess{Success: "Instructor 'Bob Ross' deleted successfully!"}),
		},
	})

	// the account created by staff can log in; the deleted one is gone
	e.login(t, core.RoleInstructor, "mary@test.cd")
	_, err := e.insRepo.GetInstructor(context.Background(), bob.ID)
	assert.ErrorIs(t, err, instructor.ErrNotFound)
	// jane was renamed, her course kept
	got, err := e.crsRepo.GetCourse(context.Background(), crs.ID)
	require.NoError(t, err)
	require.NotNil(t, got.InstructorID)
	assert.Equal(t, jane.ID, *got.InstructorID)
}

func Test_studentApi(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	john := testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	mary := testutil.CreateStudent(t, e.stdRepo, "Mary", "Jane", "mary@test.cd", pwd, true)
	paul := testutil.CreateStudent(t, e.stdRepo, "Paul", "Smith", "paul@test.cd", pwd, true)
	ann := testutil.CreateStudent(t, e.stdRepo, "Ann", "Lee", "ann@test.cd", pwd, true)
	seminar := testutil.CreateCourse(t, e.crsRepo, "Seminar", "SEM101", 10, nil)
	algo := testutil.CreateCourse(t, e.crsRepo, "Algorithms", "CS201", 10, nil)

	testutil.Enroll(t, e.enrRepo, john.ID, seminar.ID, enrollment.StatusActive)
	testutil.Enroll(t, e.enrRepo, mary.ID, seminar.ID, enrollment.StatusActive)
	testutil.Enroll(t, e.enrRepo, john.ID, algo.ID, enrollment.StatusActive)
	testutil.Enroll(t, e.enrRepo, mary.ID, algo.ID, enrollment.StatusActive)
	testutil.Enroll(t, e.enrRepo, paul.ID, algo.ID, enrollment.StatusDropped)

	admin := e.login(t, core.RoleAdmin, "admin@test.cd")
	johnC := e.login(t, core.RoleStudent, "john@test.cd")

	t.Run("classmates", func(t *testing.T) {
		rec := johnC.do(http.MethodGet, "/v1/students", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var views []access.StudentView
		unmarshal(t, rec, &views)
		require.Len(t, views, 1)
		assert.Equal(t, mary.ID, views[0].ID)
		require.NotNil(t, views[0].SharedCourses)
		assert.Equal(t, 2, *views[0].SharedCourses)
	})

	t.Run("staff list", func(t *testing.T) {
		rec := admin.do(http.MethodGet, "/v1/students?ordering=first_name", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var views []access.StudentView
		unmarshal(t, rec, &views)
		require.Len(t, views, 4)
		assert.Equal(t, ann.ID, views[0].ID)
	})

	runHttpTests(t, []httpTest{
		{name: "self", path: fmt.Sprintf("/v1/students/%d", john.ID), client: johnC},
		{name: "classmate", path: fmt.Sprintf("/v1/students/%d", mary.ID), client: johnC},
		{name: "dropped classmate", path: fmt.Sprintf("/v1/students/%d", paul.ID), client: johnC, wantCode: http.StatusForbidden},
		{name: "stranger", path: fmt.Sprintf("/v1/students/%d", ann.ID), client: johnC, wantCode: http.StatusForbidden},
		{
			name: "no self edit", method: http.MethodPut, path: fmt.Sprintf("/v1/students/%d", john.ID), client: johnC,
			body: student.NewStudent{FirstName: "Johnny", LastName: "Doe", Email: "john@test.cd"}, wantCode: http.StatusForbidden,
		},
		{
			name: "future enrollment date", method: http.MethodPost, path: "/v1/students", client: admin,
			body: student.NewStudent{FirstName: "Zed", LastName: "Zulu", Email: "zed@test.cd", EnrollmentDate: "2999-01-01"},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "create", method: http.MethodPost, path: "/v1/students", client: admin,
			body: student.NewStudent{FirstName: "Zed", LastName: "Zulu", Email: "zed@test.cd"}, wantCode: http.StatusCreated,
		},
		{
			name: "delete", method: http.MethodDelete, path: fmt.Sprintf("/v1/students/%d", mary.ID), client: admin,
			wantData: marshalObj(t, httpSuccess{Success: "Student 'Mary Jane' deleted successfully!"}),
		},
	})

	// mary's enrollments went with her
	rec := johnC.do(http.MethodGet, "/v1/students", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
