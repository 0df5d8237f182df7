package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/tests"
)

func Test_enrollmentApi_enroll(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	std1 := testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	std2 := testutil.CreateStudent(t, e.stdRepo, "Mary", "Jane", "mary@test.cd", pwd, true)
	std3 := testutil.CreateStudent(t, e.stdRepo, "Paul", "Smith", "paul@test.cd", pwd, true)
	small := testutil.CreateCourse(t, e.crsRepo, "Seminar", "SEM101", 2, &ins.ID)
	other := testutil.CreateCourse(t, e.crsRepo, "Algorithms", "CS201", 30, nil)

	admin := e.login(t, core.RoleAdmin, "admin@test.cd")
	instructor := e.login(t, core.RoleInstructor, "jane@test.cd")
	enroll := func(sid, cid int) enrollment.NewEnrollment {
		return enrollment.NewEnrollment{StudentID: sid, CourseID: cid}
	}

	runHttpTests(t, []httpTest{
		{
			name: "students may not enroll", method: http.MethodPost, path: "/v1/enrollments",
			client: e.login(t, core.RoleStudent, "john@test.cd"), body: enroll(std1.ID, small.ID), wantCode: http.StatusForbidden,
		},
		{
			name: "nothing selected", method: http.MethodPost, path: "/v1/enrollments", client: admin,
			body: enroll(0, 0), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[
				{"field":"student_id","error":"Please select a student"},
				{"field":"course_id","error":"Please select a course"}
			]}`),
		},
		{
			name: "unknown rows", method: http.MethodPost, path: "/v1/enrollments", client: admin,
			body: enroll(999, 999), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[
				{"field":"student_id","error":"Selected student does not exist"},
				{"field":"course_id","error":"Selected course does not exist"}
			]}`),
		},
		{
			name: "instructor into another course", method: http.MethodPost, path: "/v1/enrollments", client: instructor,
			body: enroll(std1.ID, other.ID), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "Invalid course selection"}),
		},
		{
			name: "first seat", method: http.MethodPost, path: "/v1/enrollments", client: instructor,
			body: enroll(std1.ID, small.ID), wantCode: http.StatusCreated,
		},
		{
			name: "duplicate", method: http.MethodPost, path: "/v1/enrollments", client: admin,
			body: enroll(std1.ID, small.ID), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[{"field":"course_id","error":"Student is already enrolled in this course"}]}`),
		},
		{
			name: "last seat", method: http.MethodPost, path: "/v1/enrollments", client: admin,
			body: enroll(std2.ID, small.ID), wantCode: http.StatusCreated,
		},
		{
			name: "course full", method: http.MethodPost, path: "/v1/enrollments", client: admin,
			body: enroll(std3.ID, small.ID), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[{"field":"course_id","error":"Course is full - no available slots"}]}`),
		},
	})

	details, err := e.enrollments.List(context.Background(), testutil.Identity(core.RoleAdmin, 1, "Admin", "admin@test.cd"), enrollment.QueryFilter{CourseID: small.ID})
	require.NoError(t, err)
	require.Len(t, details, 2)
	for _, d := range details {
		assert.Equal(t, enrollment.StatusActive, d.Status)
	}
	// the instructor is recorded as the one who enrolled std1
	byStudent := map[int]enrollment.Detail{details[0].StudentID: details[0], details[1].StudentID: details[1]}
	require.NotNil(t, byStudent[std1.ID].EnrolledByInstructorID)
	assert.Equal(t, ins.ID, *byStudent[std1.ID].EnrolledByInstructorID)
	assert.Nil(t, byStudent[std2.ID].EnrolledByInstructorID)
}

func Test_enrollmentApi_unenroll(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	testutil.CreateInstructor(t, e.insRepo, "Other", "One", "other@test.cd", pwd, true)
	std := testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	crs := testutil.CreateCourse(t, e.crsRepo, "Seminar", "SEM101", 1, &ins.ID)
	en := testutil.Enroll(t, e.enrRepo, std.ID, crs.ID, enrollment.StatusActive)
	path := fmt.Sprintf("/v1/enrollments/%d/unenroll", en.ID)

	instructor := e.login(t, core.RoleInstructor, "jane@test.cd")
	runHttpTests(t, []httpTest{
		{name: "unknown", method: http.MethodPost, path: "/v1/enrollments/999/unenroll", client: instructor, wantCode: http.StatusNotFound},
		{
			name: "students may not unenroll", method: http.MethodPost, path: path,
			client: e.login(t, core.RoleStudent, "john@test.cd"), wantCode: http.StatusForbidden,
		},
		{
			name: "not their course", method: http.MethodPost, path: path,
			client: e.login(t, core.RoleInstructor, "other@test.cd"), wantCode: http.StatusForbidden,
		},
		{
			name: "success", method: http.MethodPost, path: path, client: instructor,
			wantData: marshalObj(t, httpSuccess{Success: "John Doe has been unenrolled from Seminar"}),
		},
		{
			name: "already dropped", method: http.MethodPost, path: path, client: instructor,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "Unable to unenroll student"}),
		},
		// the seat is free again and the dropped pair may enroll anew
		{
			name: "re-enroll", method: http.MethodPost, path: "/v1/enrollments", client: e.login(t, core.RoleAdmin, "admin@test.cd"),
			body: enrollment.NewEnrollment{StudentID: std.ID, CourseID: crs.ID, EnrollmentDate: "2024-09-01"}, wantCode: http.StatusCreated,
		},
	})

	assert.Equal(t, "John Doe has been unenrolled from Seminar", instructor.refresh().Flash)
}

func Test_enrollmentApi_list(t *testing.T) {
	e := newEnv(t)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	std1 := testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	std2 := testutil.CreateStudent(t, e.stdRepo, "Mary", "Jane", "mary@test.cd", pwd, true)
	crs := testutil.CreateCourse(t, e.crsRepo, "Seminar", "SEM101", 10, &ins.ID)
	en1 := testutil.Enroll(t, e.enrRepo, std1.ID, crs.ID, enrollment.StatusActive, "2024-09-01")
	en2 := testutil.Enroll(t, e.enrRepo, std2.ID, crs.ID, enrollment.StatusDropped, "2024-09-02")

	ids := func(t *testing.T, c *client, path string) []int {
		rec := c.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var details []enrollment.Detail
		unmarshal(t, rec, &details)
		res := make([]int, 0, len(details))
		for _, d := range details {
			res = append(res, d.ID)
		}
		return res
	}

	instructor := e.login(t, core.RoleInstructor, "jane@test.cd")
	student := e.login(t, core.RoleStudent, "john@test.cd")

	assert.Equal(t, []int{en2.ID, en1.ID}, ids(t, instructor, "/v1/enrollments"))
	assert.Equal(t, []int{en1.ID}, ids(t, instructor, "/v1/enrollments?status=Active"))
	assert.Equal(t, []int{en2.ID}, ids(t, instructor, fmt.Sprintf("/v1/enrollments?student=%d", std2.ID)))
	// students only see their own, whatever they ask for
	assert.Equal(t, []int{en1.ID}, ids(t, student, fmt.Sprintf("/v1/enrollments?student=%d", std2.ID)))

	rec := student.do(http.MethodGet, fmt.Sprintf("/v1/enrollments/%d", en2.ID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = student.do(http.MethodGet, fmt.Sprintf("/v1/enrollments/%d", en1.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var d enrollment.Detail
	unmarshal(t, rec, &d)
	assert.Equal(t, "Seminar", d.CourseName)
	assert.Equal(t, "Jane Doe", d.InstructorName)
}
