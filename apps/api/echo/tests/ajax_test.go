package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/tests"
)

func Test_ajaxApi(t *testing.T) {
	e := newEnv(t)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	std := testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	web := testutil.CreateCourse(t, e.crsRepo, "Web Basics", "WEB101", 2, &ins.ID)
	testutil.CreateCourse(t, e.crsRepo, "Algorithms", "CS201", 30, nil)
	testutil.Enroll(t, e.enrRepo, std.ID, web.ID, enrollment.StatusActive)

	c := e.login(t, core.RoleInstructor, "jane@test.cd")
	anon := e.newClient(t)

	runHttpTests(t, []httpTest{
		{name: "Auth required", path: "/v1/ajax/courses/search?keyword=web", client: anon, wantCode: http.StatusUnauthorized},
		// search
		{name: "keyword too short", path: "/v1/ajax/courses/search?keyword=%20w%20", client: c, wantData: []byte(`[]`)},
		{
			name: "keyword on code", path: "/v1/ajax/courses/search?keyword=web1", client: c,
			wantData: marshalObj(t, []course.Suggestion{{ID: web.ID, Name: web.Name, Code: web.Code, Category: web.Category, Level: web.Level}}),
		},
		// capacity
		{
			name: "capacity", path: fmt.Sprintf("/v1/ajax/courses/%d/capacity", web.ID), client: c,
			wantData: []byte(`{"name":"Web Basics","max":2,"enrolled":1,"available":1,"isFull":false}`),
		},
		{
			name: "capacity of invalid id", path: "/v1/ajax/courses/abc/capacity", client: c, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "Invalid course ID"}),
		},
		{
			name: "capacity of unknown course", path: "/v1/ajax/courses/999/capacity", client: c, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "Course not found"}),
		},
		// email-exists
		{name: "email taken", path: "/v1/ajax/email-exists?type=student&email=JOHN@test.cd", client: c, wantData: []byte(`{"exists":true}`)},
		{
			name: "email of the edited student", path: fmt.Sprintf("/v1/ajax/email-exists?type=student&email=john@test.cd&exclude_id=%d", std.ID),
			client: c, wantData: []byte(`{"exists":false}`),
		},
		{name: "email free among instructors", path: "/v1/ajax/email-exists?type=instructor&email=john@test.cd", client: c, wantData: []byte(`{"exists":false}`)},
		{name: "invalid type", path: "/v1/ajax/email-exists?type=admin&email=john@test.cd", client: c, wantCode: http.StatusBadRequest},
		{name: "invalid email", path: "/v1/ajax/email-exists?type=student&email=john", client: c, wantCode: http.StatusBadRequest},
	})
}
