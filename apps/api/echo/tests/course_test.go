package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/tests"
)

func courseIDs(views []access.CourseView) []int {
	ids := make([]int, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func Test_courseApi_list(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	std := testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)

	web := testutil.CreateCourse(t, e.crsRepo, "Web Basics", "WEB101", 30, &ins.ID)
	algo := testutil.CreateCourse(t, e.crsRepo, "Algorithms", "CS201", 30, nil)
	db := testutil.CreateCourse(t, e.crsRepo, "Databases", "DB301", 30, &ins.ID)
	testutil.Enroll(t, e.enrRepo, std.ID, web.ID, enrollment.StatusActive)
	testutil.Enroll(t, e.enrRepo, std.ID, db.ID, enrollment.StatusDropped)

	t.Run("Auth required", func(t *testing.T) {
		rec := e.newClient(t).do(http.MethodGet, "/v1/courses", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"user not authenticated"}`, rec.Body.String())
	})

	tests := []struct {
		name    string
		client  *client
		path    string
		wantIDs []int
	}{
		{"admin sees every course", e.login(t, core.RoleAdmin, "admin@test.cd"), "/v1/courses", []int{algo.ID, db.ID, web.ID}},
		{"instructor sees every course", e.login(t, core.RoleInstructor, "jane@test.cd"), "/v1/courses", []int{algo.ID, db.ID, web.ID}},
		{"ordering", e.login(t, core.RoleAdmin, "admin@test.cd"), "/v1/courses?ordering=-course_code", []int{web.ID, db.ID, algo.ID}},
		// Active first, then the others
		{"student sees their courses", e.login(t, core.RoleStudent, "john@test.cd"), "/v1/courses", []int{web.ID, db.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.client.do(http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var views []access.CourseView
			unmarshal(t, rec, &views)
			assert.Equal(t, tt.wantIDs, courseIDs(views))
		})
	}

	t.Run("student view carries their enrollment", func(t *testing.T) {
		rec := e.login(t, core.RoleStudent, "john@test.cd").do(http.MethodGet, "/v1/courses", nil)
		var views []access.CourseView
		unmarshal(t, rec, &views)
		require.Len(t, views, 2)
		assert.Equal(t, "Active", views[0].EnrollmentStatus)
		assert.Equal(t, 1, views[0].EnrolledCount)
		assert.Equal(t, "Jane Doe", views[0].InstructorName)
		assert.Equal(t, "Dropped", views[1].EnrollmentStatus)
	})
}

func Test_courseApi_retrieve(t *testing.T) {
	e := newEnv(t)
	testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	std := testutil.CreateStudent(t, e.stdRepo, "Mary", "Jane", "mary@test.cd", pwd, true)
	mine := testutil.CreateCourse(t, e.crsRepo, "Web Basics", "WEB101", 30, nil)
	other := testutil.CreateCourse(t, e.crsRepo, "Algorithms", "CS201", 30, nil)
	testutil.Enroll(t, e.enrRepo, std.ID, mine.ID, enrollment.StatusDropped)

	c := e.login(t, core.RoleStudent, "mary@test.cd")
	runHttpTests(t, []httpTest{
		{name: "invalid id", path: "/v1/courses/lol", client: c, wantCode: http.StatusNotFound},
		{
			name: "unknown", path: "/v1/courses/999", client: c, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "Course not found"}),
		},
		{
			name: "not enrolled", path: fmt.Sprintf("/v1/courses/%d", other.ID), client: c, wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: access.ErrDenied.Error()}),
		},
		{name: "any enrollment row", path: fmt.Sprintf("/v1/courses/%d", mine.ID), client: c},
	})

	// denials are flashed
	assert.Equal(t, access.ErrDenied.Error(), c.refresh().Flash)
}

func newCourse(name, code string, instructorID *int) course.NewCourse {
	return course.NewCourse{
		Name:         name,
		Code:         code,
		Description:  name + " course",
		Category:     course.Categories[0],
		Level:        course.LevelBeginner,
		Credits:      3,
		MaxStudents:  30,
		InstructorID: instructorID,
	}
}

func Test_courseApi_create(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	testutil.CreateCourse(t, e.crsRepo, "Web Basics", "WEB101", 30, nil)

	admin := e.login(t, core.RoleAdmin, "admin@test.cd")
	bad := newCourse("Al", "101CS", nil)
	bad.Credits = 9

	runHttpTests(t, []httpTest{
		{
			name: "students may not create", method: http.MethodPost, path: "/v1/courses",
			client: e.login(t, core.RoleStudent, "john@test.cd"), body: newCourse("Algorithms", "CS201", nil),
			wantCode: http.StatusForbidden,
		},
		{
			name: "invalid fields", method: http.MethodPost, path: "/v1/courses", client: admin, body: bad,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[
				{"field":"course_name","error":"Course name must be at least 3 characters"},
				{"field":"course_code","error":"Course code must be in format: CS101, MATH201, etc."},
				{"field":"credits","error":"Credits must be between 1 and 6"}
			]}`),
		},
		{
			name: "unknown instructor", method: http.MethodPost, path: "/v1/courses", client: admin,
			body: newCourse("Algorithms", "CS201", testutil.IntPtr(999)), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[{"field":"instructor_id","error":"Selected instructor does not exist"}]}`),
		},
		{
			name: "duplicate code", method: http.MethodPost, path: "/v1/courses", client: admin,
			body: newCourse("Web Again", "web101", nil), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[{"field":"course_code","error":"Course code already exists"}]}`),
		},
		{
			name: "success", method: http.MethodPost, path: "/v1/courses", client: admin,
			body: newCourse("Algorithms", "cs201", nil), wantCode: http.StatusCreated,
		},
	})

	listings, err := e.crsRepo.SearchCourses(context.Background(), course.SearchFilter{Search: "CS201"}, nil)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.True(t, listings[0].IsActive)
	assert.Equal(t, "Course 'Algorithms' created successfully!", admin.refresh().Flash)
}

func Test_courseApi_update(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	testutil.CreateInstructor(t, e.insRepo, "Other", "One", "other@test.cd", pwd, true)
	crs := testutil.CreateCourse(t, e.crsRepo, "Web Basics", "WEB101", 30, &ins.ID, time.Now().Add(-time.Hour))
	path := fmt.Sprintf("/v1/courses/%d", crs.ID)

	unchanged := course.NewCourse{
		Name:         crs.Name,
		Code:         crs.Code,
		Description:  crs.Description,
		Category:     crs.Category,
		Level:        crs.Level,
		Credits:      crs.Credits,
		MaxStudents:  crs.MaxStudents,
		InstructorID: crs.InstructorID,
	}
	edited := unchanged
	edited.Name = "Web Development"

	runHttpTests(t, []httpTest{
		{
			name: "not their course", method: http.MethodPut, path: path,
			client: e.login(t, core.RoleInstructor, "other@test.cd"), body: edited, wantCode: http.StatusForbidden,
		},
		{
			name: "unchanged values", method: http.MethodPut, path: path,
			client: e.login(t, core.RoleInstructor, "jane@test.cd"), body: unchanged, wantData: marshalObj(t, crs),
		},
		{
			name: "admin edits any course", method: http.MethodPut, path: path,
			client: e.login(t, core.RoleAdmin, "admin@test.cd"), body: edited,
		},
	})

	got, err := e.crsRepo.GetCourse(context.Background(), crs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Web Development", got.Name)
	assert.Equal(t, crs.CreatedAt, got.CreatedAt)
}

func Test_courseApi_delete(t *testing.T) {
	e := newEnv(t)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	std := testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	crs := testutil.CreateCourse(t, e.crsRepo, "Web Basics", "WEB101", 30, &ins.ID)
	en := testutil.Enroll(t, e.enrRepo, std.ID, crs.ID, enrollment.StatusActive)
	path := fmt.Sprintf("/v1/courses/%d", crs.ID)

	c := e.login(t, core.RoleInstructor, "jane@test.cd")
	runHttpTests(t, []httpTest{
		{
			name: "students may not delete", method: http.MethodDelete, path: path,
			client: e.login(t, core.RoleStudent, "john@test.cd"), wantCode: http.StatusForbidden,
		},
		{
			name: "success", method: http.MethodDelete, path: path, client: c,
			wantData: marshalObj(t, httpSuccess{Success: "Course 'Web Basics' deleted successfully!"}),
		},
		{name: "gone", method: http.MethodDelete, path: path, client: c, wantCode: http.StatusNotFound},
	})

	_, err := e.enrRepo.GetEnrollment(context.Background(), en.ID)
	assert.ErrorIs(t, err, enrollment.ErrNotFound)
}

func Test_courseApi_search(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	web := testutil.CreateCourse(t, e.crsRepo, "Web Basics", "WEB101", 30, &ins.ID)
	algo := testutil.CreateCourse(t, e.crsRepo, "Algorithms", "CS201", 30, nil)

	admin := e.login(t, core.RoleAdmin, "admin@test.cd")
	search := func(t *testing.T, query string) []int {
		rec := admin.do(http.MethodGet, "/v1/courses/search"+query, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var listings []course.Listing
		unmarshal(t, rec, &listings)
		ids := make([]int, 0, len(listings))
		for _, l := range listings {
			ids = append(ids, l.ID)
		}
		return ids
	}

	assert.Equal(t, []int{algo.ID, web.ID}, search(t, ""))
	assert.Equal(t, []int{web.ID}, search(t, "?search=web"))
	assert.Equal(t, []int{web.ID}, search(t, fmt.Sprintf("?instructor=%d", ins.ID)))
	assert.Equal(t, []int{}, search(t, "?level=Advanced"))

	rec := e.login(t, core.RoleStudent, "john@test.cd").do(http.MethodGet, "/v1/courses/search", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = admin.do(http.MethodGet, "/v1/courses/catalogue", nil)
	var cat echoapi.CatalogueResponse
	unmarshal(t, rec, &cat)
	assert.Equal(t, course.Categories, cat.Categories)
	assert.Equal(t, course.Levels, cat.Levels)
}
