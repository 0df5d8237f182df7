package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/dashboard"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/services/email/dummy"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database/dummy"
	"github.com/trezcool/academia/tests"
)

var pwd = "s3cretPwd!"

// env is a server over a fresh in-memory database.
type env struct {
	conf        *core.Config
	db          *dummydb.DB
	app         *Server
	accRepo     auth.AccountRepository
	crsRepo     course.Repository
	insRepo     instructor.Repository
	stdRepo     student.Repository
	enrRepo     enrollment.Repository
	enrollments *enrollment.Service
}

func newEnv(t *testing.T, configure ...func(conf *core.Config)) *env {
	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}

	db := dummydb.Open()
	e := &env{
		conf:    conf,
		db:      db,
		accRepo: dummydb.NewAccountRepository(db),
		crsRepo: dummydb.NewCourseRepository(db),
		insRepo: dummydb.NewInstructorRepository(db),
		stdRepo: dummydb.NewStudentRepository(db),
		enrRepo: dummydb.NewEnrollmentRepository(db),
	}

	v := testutil.NewValidator()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	mailSvc := dummymail.NewService(conf.AppName, conf.DefaultFromEmail.String(), true /* quiet */)

	courses := course.NewService(e.crsRepo, v)
	instructors := instructor.NewService(e.insRepo, v, conf.Auth.BcryptCost)
	students := student.NewService(e.stdRepo, v, conf.Auth.BcryptCost)
	e.enrollments = enrollment.NewService(e.enrRepo, v)

	e.app = NewServer(conf, logger, Deps{
		Sessions: session.NewManager(session.NewMemoryStore(), conf.Session.IdleTimeout),
		Auth: auth.NewService(
			e.accRepo, e.insRepo, e.stdRepo,
			auth.NewRateLimiter(conf.Auth.MaxLoginAttempts, conf.Auth.LoginAttemptWindow),
			mailSvc, v, conf.Auth.BcryptCost,
		),
		Access:      access.NewService(dummydb.NewAccessRepository(db), courses, instructors, students),
		Courses:     courses,
		Instructors: instructors,
		Students:    students,
		Enrollments: e.enrollments,
		Dashboard:   dashboard.NewService(dummydb.NewDashboardRepository(db)),
		Validator:   v,
	})
	return e
}

type httpErr struct {
	Error string `json:"error"`
}

type httpSuccess struct {
	Success string `json:"success"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	client   *client
	wantCode int
	wantData []byte
}

// client is a browser: it keeps the session cookie and sends the CSRF token on writes.
type client struct {
	t      *testing.T
	e      *env
	cookie *http.Cookie
	csrf   string
}

func (e *env) newClient(t *testing.T) *client {
	c := &client{t: t, e: e}
	c.refresh()
	return c
}

func (c *client) do(method, path string, data interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	switch d := data.(type) {
	case nil:
	case []byte:
		body.Write(d)
	default:
		body.Write(marshalObj(c.t, d))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	rec := httptest.NewRecorder()
	c.e.app.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == c.e.conf.Session.CookieName {
			c.cookie = ck
		}
	}
	return rec
}

// refresh reads the session, picking up its CSRF token.
func (c *client) refresh() SessionResponse {
	rec := c.do(http.MethodGet, "/v1/auth/session", nil)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SessionResponse
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	c.csrf = resp.CSRFToken
	return resp
}

func (c *client) tryLogin(role core.Role, email, password string) *httptest.ResponseRecorder {
	rec := c.do(http.MethodPost, "/v1/auth/login", auth.Credentials{Email: email, Password: password, AccountType: role})
	if rec.Code == http.StatusOK {
		var resp SessionResponse
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
		c.csrf = resp.CSRFToken
	}
	return rec
}

func (e *env) login(t *testing.T, role core.Role, email string) *client {
	c := e.newClient(t)
	rec := c.tryLogin(role, email, pwd)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return c
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func runHttpTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := tt.client.do(method, tt.path, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
