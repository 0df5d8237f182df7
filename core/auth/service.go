package auth

import (
	"context"
	"net/mail"
	texttmpl "text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/student"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrInvalidCredentials = errors.New("Invalid email or password")

	welcomeTmpl = texttmpl.Must(texttmpl.New("welcome").Parse(
		"Hello {{.Name}},\n\nYour {{.Role}} account has been created. You can now login with {{.Email}}.\n"))
)

type (
	// AccountRepository looks accounts up across the admin, instructor and student tables.
	AccountRepository interface {
		// GetAccountByEmail returns ErrNotFound if no account of role has email.
		GetAccountByEmail(ctx context.Context, role core.Role, email string) (Account, error)
		SetLastLogin(ctx context.Context, role core.Role, id int, at time.Time) error
		SetPassword(ctx context.Context, role core.Role, id int, hash []byte) error
		// EmailExists reports whether an instructor or a student uses email.
		EmailExists(ctx context.Context, email string) (bool, error)
		// UpsertAdmin creates the admin with adm.Email or replaces its name and password.
		UpsertAdmin(ctx context.Context, adm Admin) (Admin, error)
	}

	Service struct {
		accounts    AccountRepository
		instructors instructor.Repository
		students    student.Repository
		limiter     *RateLimiter
		mailSvc     core.EmailService
		v           *core.Validator
		bcryptCost  int
	}
)

func NewService(
	accounts AccountRepository,
	instructors instructor.Repository,
	students student.Repository,
	limiter *RateLimiter,
	mailSvc core.EmailService,
	v *core.Validator,
	bcryptCost int,
) *Service {
	return &Service{
		accounts:    accounts,
		instructors: instructors,
		students:    students,
		limiter:     limiter,
		mailSvc:     mailSvc,
		v:           v,
		bcryptCost:  bcryptCost,
	}
}

func (svc *Service) validateCredentials(creds *Credentials) error {
	creds.Email = core.CleanString(creds.Email, true /* lower */)
	if creds.Email == "" || creds.Password == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "email", Error: msgMissingCredentials})
	}
	if err := svc.v.Engine.Var(creds.Email, "email"); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "email", Error: msgInvalidLoginEmail})
	}
	switch creds.AccountType {
	case core.RoleAdmin, core.RoleInstructor, core.RoleStudent:
		return nil
	}
	return core.NewValidationError(nil, core.FieldError{Field: "account_type", Error: messages["account_type."+accountTypeTag]})
}

// Authenticate resolves the identity behind creds. Every attempt counts against the email's rate limit;
// a successful one clears it.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (core.Identity, error) {
	if err := svc.validateCredentials(&creds); err != nil {
		return core.Anonymous, err
	}
	if err := svc.limiter.Hit(creds.Email); err != nil {
		return core.Anonymous, err
	}

	acc, err := svc.accounts.GetAccountByEmail(ctx, creds.AccountType, creds.Email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.Anonymous, ErrInvalidCredentials
		}
		return core.Anonymous, errors.Wrap(err, "looking account up")
	}
	if !acc.IsActive || len(acc.PasswordHash) == 0 {
		return core.Anonymous, ErrInvalidCredentials
	}
	if err = core.CheckPassword(acc.PasswordHash, creds.Password); err != nil {
		return core.Anonymous, ErrInvalidCredentials
	}

	if err = svc.accounts.SetLastLogin(ctx, acc.Role, acc.ID, time.Now().UTC()); err != nil {
		return core.Anonymous, errors.Wrap(err, "setting last login")
	}
	svc.limiter.Reset(creds.Email)
	return acc.Identity(), nil
}

// Register creates an active instructor or student account and sends them a welcome email.
// The email must be free among instructors and students alike.
func (svc *Service) Register(ctx context.Context, na NewAccount) (core.Identity, error) {
	na.clean()
	flds, err := svc.v.Struct(na)
	if err != nil {
		return core.Anonymous, errors.Wrap(err, "validating account")
	}
	core.SortFieldErrors(flds, fieldOrder)
	if !core.HasFieldError(flds, "email") {
		exists, err := svc.accounts.EmailExists(ctx, na.Email)
		if err != nil {
			return core.Anonymous, errors.Wrap(err, "checking email uniqueness")
		}
		if exists {
			flds = core.InsertFieldError(flds, core.FieldError{Field: "email", Error: core.MsgEmailExists}, fieldOrder)
		}
	}
	if len(flds) > 0 {
		return core.Anonymous, core.NewValidationError(nil, flds...)
	}

	hash, err := core.HashPassword(na.Password, svc.bcryptCost)
	if err != nil {
		return core.Anonymous, errors.Wrap(err, "hashing password")
	}

	now := time.Now()
	var id core.Identity
	switch na.AccountType {
	case core.RoleInstructor:
		inst, err := svc.instructors.CreateInstructor(ctx, instructor.Instructor{
			FirstName:    na.FirstName,
			LastName:     na.LastName,
			Email:        na.Email,
			PasswordHash: hash,
			Phone:        na.Phone,
			Department:   na.Department,
			IsActive:     true,
			CreatedAt:    now.UTC(),
		})
		if err != nil {
			return core.Anonymous, trapEmailErr(err)
		}
		id = core.Identity{UserID: inst.ID, Role: core.RoleInstructor, Name: inst.Name(), Email: inst.Email}
	case core.RoleStudent:
		std, err := svc.students.CreateStudent(ctx, student.Student{
			FirstName:      na.FirstName,
			LastName:       na.LastName,
			Email:          na.Email,
			PasswordHash:   hash,
			Phone:          na.Phone,
			EnrollmentDate: now.Format(core.DateLayout),
			IsActive:       true,
			CreatedAt:      now.UTC(),
		})
		if err != nil {
			return core.Anonymous, trapEmailErr(err)
		}
		id = core.Identity{UserID: std.ID, Role: core.RoleStudent, Name: std.Name(), Email: std.Email}
	default:
		return core.Anonymous, errors.Wrapf(core.ErrUnknownRole, "registering %q", na.AccountType)
	}

	svc.sendWelcomeMail(id)
	return id, nil
}

func trapEmailErr(err error) error {
	switch errors.Cause(err) {
	case instructor.ErrEmailExists, student.ErrEmailExists:
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: core.MsgEmailExists})
	}
	return errors.Wrap(err, "creating account")
}

func (svc *Service) sendWelcomeMail(id core.Identity) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: id.Name, Address: id.Email}},
		Subject:      "Welcome",
		Template:     welcomeTmpl,
		TemplateData: id,
	})
}

// CreateAdmin creates the admin account with na.Email, or replaces its name and password.
func (svc *Service) CreateAdmin(ctx context.Context, na NewAdmin) (Admin, error) {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	flds, err := svc.v.Struct(na)
	if err != nil {
		return Admin{}, errors.Wrap(err, "validating admin")
	}
	if len(flds) > 0 {
		return Admin{}, core.NewValidationError(nil, flds...)
	}
	hash, err := core.HashPassword(na.Password, svc.bcryptCost)
	if err != nil {
		return Admin{}, errors.Wrap(err, "hashing password")
	}
	return svc.accounts.UpsertAdmin(ctx, Admin{
		Name:         na.Name,
		Email:        na.Email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	})
}

// ResetPassword replaces the password of the role account with email.
func (svc *Service) ResetPassword(ctx context.Context, role core.Role, email, pwd string) error {
	acc, err := svc.accounts.GetAccountByEmail(ctx, role, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	flds, err := svc.v.Struct(passwordReset{Password: pwd, name: acc.Name, email: acc.Email})
	if err != nil {
		return errors.Wrap(err, "validating password")
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	hash, err := core.HashPassword(pwd, svc.bcryptCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.accounts.SetPassword(ctx, role, acc.ID, hash)
}
