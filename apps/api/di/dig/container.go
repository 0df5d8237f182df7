package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/dashboard"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	dummymail "github.com/trezcool/academia/services/email/dummy"
	sendgridmail "github.com/trezcool/academia/services/email/sendgrid"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

// memoryEngine keeps every table in process; data is lost on exit.
const memoryEngine = "memory"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are the stores of one database engine. DB is nil for the memory engine.
type Repositories struct {
	dig.Out

	DB          *sqlx.DB
	Sessions    session.Store
	Accounts    auth.AccountRepository
	Access      access.Repository
	Courses     course.Repository
	Instructors instructor.Repository
	Students    student.Repository
	Enrollments enrollment.Repository
	Dashboard   dashboard.Repository
}

type depsParams struct {
	dig.In

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

func newLogger(conf *core.Config) *logsvc.RollbarLogger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Engine == memoryEngine {
		loggerParam.Logger.Info("using the in-memory database")
		db := dummydb.Open()
		return Repositories{
			Sessions:    session.NewMemoryStore(),
			Accounts:    dummydb.NewAccountRepository(db),
			Access:      dummydb.NewAccessRepository(db),
			Courses:     dummydb.NewCourseRepository(db),
			Instructors: dummydb.NewInstructorRepository(db),
			Students:    dummydb.NewStudentRepository(db),
			Enrollments: dummydb.NewEnrollmentRepository(db),
			Dashboard:   dummydb.NewDashboardRepository(db),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := setUpDB(ctx, conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Repositories{
		DB:          db,
		Sessions:    sqlxrepos.NewSessionStore(db),
		Accounts:    sqlxrepos.NewAccountRepository(db),
		Access:      sqlxrepos.NewAccessRepository(db),
		Courses:     sqlxrepos.NewCourseRepository(db),
		Instructors: sqlxrepos.NewInstructorRepository(db),
		Students:    sqlxrepos.NewStudentRepository(db),
		Enrollments: sqlxrepos.NewEnrollmentRepository(db),
		Dashboard:   sqlxrepos.NewDashboardRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return dummymail.NewService(conf.AppName, conf.DefaultFromEmail.String(), false /* quiet */)
	}
	return sendgridmail.NewService(conf.SendgridApiKey, conf.AppName, conf.DefaultFromEmail, logger)
}

// newValidator registers the messages of every domain on one validator.
func newValidator() *core.Validator {
	v := core.NewValidator()
	auth.InitValidators(v.Engine, v.Translator)
	course.InitValidators(v.Engine, v.Translator)
	enrollment.InitValidators(v.Engine, v.Translator)
	instructor.InitValidators(v.Engine, v.Translator)
	student.InitValidators(v.Engine, v.Translator)
	return v
}

func newSessionManager(store session.Store, conf *core.Config) *session.Manager {
	return session.NewManager(store, conf.Session.IdleTimeout)
}

func newRateLimiter(conf *core.Config) *auth.RateLimiter {
	return auth.NewRateLimiter(conf.Auth.MaxLoginAttempts, conf.Auth.LoginAttemptWindow)
}

func newAuthService(
	conf *core.Config,
	accounts auth.AccountRepository,
	instructors instructor.Repository,
	students student.Repository,
	limiter *auth.RateLimiter,
	mailSvc core.EmailService,
	v *core.Validator,
) *auth.Service {
	return auth.NewService(accounts, instructors, students, limiter, mailSvc, v, conf.Auth.BcryptCost)
}

func newInstructorService(conf *core.Config, repo instructor.Repository, v *core.Validator) *instructor.Service {
	return instructor.NewService(repo, v, conf.Auth.BcryptCost)
}

func newStudentService(conf *core.Config, repo student.Repository, v *core.Validator) *student.Service {
	return student.NewService(repo, v, conf.Auth.BcryptCost)
}

func newDeps(p depsParams) echoapi.Deps {
	return echoapi.Deps{
		Sessions:    p.Sessions,
		Auth:        p.Auth,
		Access:      p.Access,
		Courses:     p.Courses,
		Instructors: p.Instructors,
		Students:    p.Students,
		Enrollments: p.Enrollments,
		Dashboard:   p.Dashboard,
		Validator:   p.Validator,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(func(l *logsvc.RollbarLogger) core.Logger { return l }))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(newSessionManager))
	must(c.Provide(newRateLimiter))
	must(c.Provide(newAuthService))
	must(c.Provide(course.NewService))
	must(c.Provide(newInstructorService))
	must(c.Provide(newStudentService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(access.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
