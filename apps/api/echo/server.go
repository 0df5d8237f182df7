package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/dashboard"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
)

// Deps are the services the API serves.
type Deps struct {
	Sessions    *session.Manager
	Auth        *auth.Service
	Access      *access.Service
	Courses     *course.Service
	Instructors *instructor.Service
	Students    *student.Service
	Enrollments *enrollment.Service
	Dashboard   *dashboard.Service
	Validator   *core.Validator
}

type Server struct {
	conf     *core.Config
	logger   core.Logger
	deps     Deps
	app      *echo.Echo
	cookies  *securecookie.SecureCookie
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(conf *core.Config, logger core.Logger, deps Deps) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		app:      echo.New(),
		cookies:  securecookie.New([]byte(conf.SecretKey), nil),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.cookies.MaxAge(0) // expiry is enforced server side
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = s.newAppHTTPErrorHandler(s.signalShutdown)
	s.app.Debug = s.conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1", s.sessionMiddleware, s.csrfMiddleware, s.flashMiddleware)
	authed := v1.Group("", s.authMiddleware)

	registerAuthAPI(v1, authed, s)
	registerDashboardAPI(authed, s.deps.Dashboard)
	registerCourseAPI(authed, s.deps.Courses, s.deps.Access)
	registerInstructorAPI(authed, s.deps.Instructors, s.deps.Access)
	registerStudentAPI(authed, s.deps.Students, s.deps.Access)
	registerEnrollmentAPI(authed, s.deps.Enrollments)
	registerAjaxAPI(authed, s.deps.Courses, s.deps.Instructors, s.deps.Students, s.deps.Validator)
}

// Start serves until the server is shut down; any other failure is reported on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Academia API!")
}
