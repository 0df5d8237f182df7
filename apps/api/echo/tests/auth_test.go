package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/tests"
)

func Test_home(t *testing.T) {
	e := newEnv(t)
	rec := e.newClient(t).do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Academia API!", rec.Body.String())
}

func Test_authApi_session(t *testing.T) {
	e := newEnv(t)
	c := e.newClient(t)

	resp := c.refresh()
	assert.False(t, resp.Authenticated)
	assert.Len(t, resp.CSRFToken, 64)
	assert.NotNil(t, c.cookie)

	// the same cookie keeps the same session
	again := c.refresh()
	assert.Equal(t, resp.CSRFToken, again.CSRFToken)
}

func Test_authApi_login(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	ins := testutil.CreateInstructor(t, e.insRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	testutil.CreateInstructor(t, e.insRepo, "Off", "Line", "off@test.cd", pwd, false)
	testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", "", true)

	invalidCreds := marshalObj(t, httpErr{Error: auth.ErrInvalidCredentials.Error()})
	tests := []struct {
		name     string
		creds    auth.Credentials
		wantCode int
		wantData []byte
	}{
		{
			name:     "missing password",
			creds:    auth.Credentials{Email: "admin@test.cd", AccountType: core.RoleAdmin},
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[{"field":"email","error":"Please enter both email and password"}]}`),
		},
		{
			name:     "wrong password",
			creds:    auth.Credentials{Email: "admin@test.cd", Password: "nope", AccountType: core.RoleAdmin},
			wantCode: http.StatusBadRequest,
			wantData: invalidCreds,
		},
		{
			name:     "wrong account type",
			creds:    auth.Credentials{Email: "admin@test.cd", Password: pwd, AccountType: core.RoleStudent},
			wantCode: http.StatusBadRequest,
			wantData: invalidCreds,
		},
		{
			name:     "inactive account",
			creds:    auth.Credentials{Email: "off@test.cd", Password: pwd, AccountType: core.RoleInstructor},
			wantCode: http.StatusBadRequest,
			wantData: invalidCreds,
		},
		{
			name:     "account without password",
			creds:    auth.Credentials{Email: "john@test.cd", Password: pwd, AccountType: core.RoleStudent},
			wantCode: http.StatusBadRequest,
			wantData: invalidCreds,
		},
		{
			name:     "success",
			creds:    auth.Credentials{Email: " JANE@test.cd ", Password: pwd, AccountType: core.RoleInstructor},
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.newClient(t)
			rec := c.do(http.MethodPost, "/v1/auth/login", tt.creds)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantData != nil {
				assert.JSONEq(t, string(tt.wantData), rec.Body.String())
			}
		})
	}

	t.Run("identity of the session", func(t *testing.T) {
		c := e.login(t, core.RoleInstructor, "jane@test.cd")
		resp := c.refresh()
		assert.True(t, resp.Authenticated)
		assert.Equal(t, testutil.Identity(core.RoleInstructor, ins.ID, "Jane Doe", "jane@test.cd"), resp.Identity)
	})
}

func Test_authApi_loginRegeneratesSession(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)

	c := e.newClient(t)
	anonCookie, anonCSRF := c.cookie, c.csrf

	rec := c.tryLogin(core.RoleAdmin, "admin@test.cd", pwd)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEqual(t, anonCookie.Value, c.cookie.Value)
	assert.NotEqual(t, anonCSRF, c.csrf)

	// the pre-login session is gone: replaying its cookie gives a fresh anonymous session
	fixated := &client{t: t, e: e, cookie: anonCookie}
	resp := fixated.refresh()
	assert.False(t, resp.Authenticated)
	assert.NotEqual(t, anonCSRF, resp.CSRFToken)
}

func Test_csrf(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	invalid := marshalObj(t, httpErr{Error: "Invalid form submission. Please try again."})

	anon := e.newClient(t)
	anon.csrf = ""
	admin := e.login(t, core.RoleAdmin, "admin@test.cd")
	forged := e.login(t, core.RoleAdmin, "admin@test.cd")
	forged.csrf = anon.refresh().CSRFToken // token of another session
	anon.csrf = ""

	runHttpTests(t, []httpTest{
		{
			name: "login without token", method: http.MethodPost, path: "/v1/auth/login", client: anon,
			body: auth.Credentials{Email: "admin@test.cd", Password: pwd, AccountType: core.RoleAdmin},
			wantCode: http.StatusForbidden, wantData: invalid,
		},
		{
			name: "token of another session", method: http.MethodPost, path: "/v1/auth/logout", client: forged,
			wantCode: http.StatusForbidden, wantData: invalid,
		},
		{name: "reads need no token", path: "/v1/dashboard", client: forged},
		{
			name: "valid token", method: http.MethodPost, path: "/v1/auth/logout", client: admin,
			wantData: marshalObj(t, httpSuccess{Success: "You have been logged out successfully."}),
		},
	})
}

func Test_authApi_logout(t *testing.T) {
	e := newEnv(t)
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	c := e.login(t, core.RoleAdmin, "admin@test.cd")

	rec := c.do(http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := c.refresh()
	assert.False(t, resp.Authenticated)
	rec = c.do(http.MethodGet, "/v1/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_authApi_rateLimit(t *testing.T) {
	e := newEnv(t, func(conf *core.Config) {
		conf.Auth.MaxLoginAttempts = 3
		conf.Auth.LoginAttemptWindow = time.Hour
	})
	testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)
	c := e.newClient(t)

	for i := 0; i < 3; i++ {
		rec := c.tryLogin(core.RoleStudent, "john@test.cd", "wrong")
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	}

	// blocked, even with the right password
	rec := c.tryLogin(core.RoleStudent, "john@test.cd", pwd)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Too many failed login attempts. Please try again in 60 minutes."}`, rec.Body.String())

	// other emails are not affected
	testutil.CreateStudent(t, e.stdRepo, "Jane", "Doe", "jane@test.cd", pwd, true)
	rec = c.tryLogin(core.RoleStudent, "jane@test.cd", pwd)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_idleTimeout(t *testing.T) {
	e := newEnv(t, func(conf *core.Config) {
		conf.Session.IdleTimeout = 200 * time.Millisecond
	})
	testutil.CreateAdmin(t, e.accRepo, "Admin", "admin@test.cd", pwd)
	c := e.login(t, core.RoleAdmin, "admin@test.cd")

	rec := c.do(http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	time.Sleep(300 * time.Millisecond)
	expired := "Your session has expired. Please login again."
	rec = c.do(http.MethodGet, "/v1/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, string(marshalObj(t, httpErr{Error: expired})), rec.Body.String())

	// logged out, with the reason flashed once
	resp := c.refresh()
	assert.False(t, resp.Authenticated)
	assert.Equal(t, expired, resp.Flash)
	assert.Empty(t, c.refresh().Flash)
}

func Test_authApi_register(t *testing.T) {
	e := newEnv(t)
	testutil.CreateStudent(t, e.stdRepo, "John", "Doe", "john@test.cd", pwd, true)

	newAccount := func(role core.Role, email string) auth.NewAccount {
		return auth.NewAccount{
			AccountType:     role,
			FirstName:       "Mary",
			LastName:        "Jane",
			Email:           email,
			Department:      "Physics",
			Password:        pwd,
			PasswordConfirm: pwd,
		}
	}
	mismatch := newAccount(core.RoleStudent, "mary@test.cd")
	mismatch.PasswordConfirm = "other"

	c := e.newClient(t)
	runHttpTests(t, []httpTest{
		{
			name: "email taken by a student", method: http.MethodPost, path: "/v1/auth/register", client: c,
			body: newAccount(core.RoleInstructor, "JOHN@test.cd"), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"errors":[{"field":"email","error":"` + core.MsgEmailExists + `"}]}`),
		},
		{
			name: "passwords mismatch", method: http.MethodPost, path: "/v1/auth/register", client: c,
			body: mismatch, wantCode: http.StatusBadRequest,
		},
		{
			name: "success", method: http.MethodPost, path: "/v1/auth/register", client: c,
			body: newAccount(core.RoleInstructor, "mary@test.cd"), wantCode: http.StatusCreated,
			wantData: marshalObj(t, httpSuccess{Success: "Registration successful! Please login."}),
		},
	})

	assert.Equal(t, "Registration successful! Please login.", c.refresh().Flash)
	e.login(t, core.RoleInstructor, "mary@test.cd")
}
