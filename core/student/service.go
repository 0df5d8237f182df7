package student

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound    = errors.New("student not found")
	ErrEmailExists = errors.New("a student with this email already exists")

	fieldOrder = []string{"first_name", "last_name", "email", "phone", "enrollment_date"}

	messages = map[string]string{
		"enrollment_date.datetime":  "Invalid enrollment date",
		"enrollment_date.notfuture": "Enrollment date cannot be in the future",
	}
)

// InitValidators registers the student messages.
func InitValidators(_ *validator.Validate, translator ut.Translator) {
	core.RegisterFieldMessages(translator, messages)
}

type (
	Repository interface {
		// EmailExists ignores the student with excludeID (0 excludes nothing).
		EmailExists(ctx context.Context, email string, excludeID int) (bool, error)
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		ListStudents(ctx context.Context, ordering []core.DBOrdering) ([]Listing, error)
		// UpdateStudent leaves the password hash untouched when std.PasswordHash is empty.
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudent(ctx context.Context, id int) error
	}

	Service struct {
		repo       Repository
		v          *core.Validator
		bcryptCost int
	}
)

func NewService(repo Repository, v *core.Validator, bcryptCost int) *Service {
	return &Service{repo: repo, v: v, bcryptCost: bcryptCost}
}

func (svc *Service) validate(ctx context.Context, ns *NewStudent, excludeID int) error {
	ns.clean()
	flds, err := svc.v.Struct(ns)
	if err != nil {
		return errors.Wrap(err, "validating student")
	}
	if !core.HasFieldError(flds, "email") {
		exists, err := svc.repo.EmailExists(ctx, ns.Email, excludeID)
		if err != nil {
			return errors.Wrap(err, "checking student email uniqueness")
		}
		if exists {
			flds = core.InsertFieldError(flds, core.FieldError{Field: "email", Error: core.MsgEmailExists}, fieldOrder)
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func trapStoreErr(err error) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: core.MsgEmailExists})
	}
	return err
}

// EmailExists reports whether another student than excludeID uses email.
func (svc *Service) EmailExists(ctx context.Context, email string, excludeID int) (bool, error) {
	return svc.repo.EmailExists(ctx, core.CleanString(email, true /* lower */), excludeID)
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.validate(ctx, &ns, 0); err != nil {
		return Student{}, err
	}
	now := time.Now()
	std := Student{
		FirstName:      ns.FirstName,
		LastName:       ns.LastName,
		Email:          ns.Email,
		Phone:          ns.Phone,
		EnrollmentDate: ns.EnrollmentDate,
		IsActive:       true,
		CreatedAt:      now.UTC(),
	}
	if std.EnrollmentDate == "" {
		std.EnrollmentDate = now.Format(core.DateLayout)
	}
	if ns.IsActive != nil {
		std.IsActive = *ns.IsActive
	}
	if ns.Password != "" {
		hash, err := core.HashPassword(ns.Password, svc.bcryptCost)
		if err != nil {
			return Student{}, errors.Wrap(err, "hashing password")
		}
		std.PasswordHash = hash
	}
	std, err := svc.repo.CreateStudent(ctx, std)
	if err != nil {
		return Student{}, trapStoreErr(err)
	}
	return std, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) List(ctx context.Context, ordering []core.DBOrdering) ([]Listing, error) {
	return svc.repo.ListStudents(ctx, ordering)
}

func (svc *Service) Update(ctx context.Context, id int, ns NewStudent) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err = svc.validate(ctx, &ns, id); err != nil {
		return Student{}, err
	}
	std.FirstName = ns.FirstName
	std.LastName = ns.LastName
	std.Email = ns.Email
	std.Phone = ns.Phone
	if ns.EnrollmentDate != "" {
		std.EnrollmentDate = ns.EnrollmentDate
	}
	std.PasswordHash = nil
	if ns.IsActive != nil {
		std.IsActive = *ns.IsActive
	}
	if ns.Password != "" {
		if std.PasswordHash, err = core.HashPassword(ns.Password, svc.bcryptCost); err != nil {
			return Student{}, errors.Wrap(err, "hashing password")
		}
	}
	std, err = svc.repo.UpdateStudent(ctx, std)
	if err != nil {
		return Student{}, trapStoreErr(err)
	}
	return std, nil
}

// Delete removes the student together with their enrollments.
func (svc *Service) Delete(ctx context.Context, id int) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err = svc.repo.DeleteStudent(ctx, id); err != nil {
		return Student{}, errors.Wrap(err, "deleting student")
	}
	return std, nil
}
