package instructor

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
	ErrNotFound    = errors.New("instructor not found")
	ErrEmailExists = errors.New("an instructor with this email already exists")

	fieldOrder = []string{"first_name", "last_name", "email", "phone", "department", "specialization", "bio"}

	messages = map[string]string{
		"department.required":     "Department is required",
		"specialization.required": "Specialization is required",
	}
)

// InitValidators registers the instructor messages.
func InitValidators(_ *validator.Validate, translator ut.Translator) {
	core.RegisterFieldMessages(translator, messages)
}

type (
	Repository interface {
		// EmailExists ignores the instructor with excludeID (0 excludes nothing).
		EmailExists(ctx context.Context, email string, excludeID int) (bool, error)
		CreateInstructor(ctx context.Context, inst Instructor) (Instructor, error)
		GetInstructor(ctx context.Context, id int) (Instructor, error)
		ListInstructors(ctx context.Context, ordering []core.DBOrdering) ([]Listing, error)
		// UpdateInstructor leaves the password hash untouched when inst.PasswordHash is empty.
		UpdateInstructor(ctx context.Context, inst Instructor) (Instructor, error)
		DeleteInstructor(ctx context.Context, id int) error
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

func (svc *Service) validate(ctx context.Context, ni *NewInstructor, excludeID int) error {
	ni.clean()
	flds, err := svc.v.Struct(ni)
	if err != nil {
		return errors.Wrap(err, "validating instructor")
	}
	if !core.HasFieldError(flds, "email") {
		exists, err := svc.repo.EmailExists(ctx, ni.Email, excludeID)
		if err != nil {
			return errors.Wrap(err, "checking instructor email uniqueness")
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

// EmailExists reports whether another instructor than excludeID uses email.
func (svc *Service) EmailExists(ctx context.Context, email string, excludeID int) (bool, error) {
	return svc.repo.EmailExists(ctx, core.CleanString(email, true /* lower */), excludeID)
}

func (svc *Service) Create(ctx context.Context, ni NewInstructor) (Instructor, error) {
	if err := svc.validate(ctx, &ni, 0); err != nil {
		return Instructor{}, err
	}
	inst := Instructor{
		FirstName:      ni.FirstName,
		LastName:       ni.LastName,
		Email:          ni.Email,
		Phone:          ni.Phone,
		Department:     ni.Department,
		Specialization: ni.Specialization,
		Bio:            ni.Bio,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	if ni.IsActive != nil {
		inst.IsActive = *ni.IsActive
	}
	if ni.Password != "" {
		hash, err := core.HashPassword(ni.Password, svc.bcryptCost)
		if err != nil {
			return Instructor{}, errors.Wrap(err, "hashing password")
		}
		inst.PasswordHash = hash
	}
	inst, err := svc.repo.CreateInstructor(ctx, inst)
	if err != nil {
		return Instructor{}, trapStoreErr(err)
	}
	return inst, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Instructor, error) {
	return svc.repo.GetInstructor(ctx, id)
}

func (svc *Service) List(ctx context.Context, ordering []core.DBOrdering) ([]Listing, error) {
	return svc.repo.ListInstructors(ctx, ordering)
}

func (svc *Service) Update(ctx context.Context, id int, ni NewInstructor) (Instructor, error) {
	inst, err := svc.repo.GetInstructor(ctx, id)
	if err != nil {
		return Instructor{}, err
	}
	if err = svc.validate(ctx, &ni, id); err != nil {
		return Instructor{}, err
	}
	inst.FirstName = ni.FirstName
	inst.LastName = ni.LastName
	inst.Email = ni.Email
	inst.Phone = ni.Phone
	inst.Department = ni.Department
	inst.Specialization = ni.Specialization
	inst.Bio = ni.Bio
	inst.PasswordHash = nil
	if ni.IsActive != nil {
		inst.IsActive = *ni.IsActive
	}
	if ni.Password != "" {
		if inst.PasswordHash, err = core.HashPassword(ni.Password, svc.bcryptCost); err != nil {
			return Instructor{}, errors.Wrap(err, "hashing password")
		}
	}
	inst, err = svc.repo.UpdateInstructor(ctx, inst)
	if err != nil {
		return Instructor{}, trapStoreErr(err)
	}
	return inst, nil
}

// Delete removes the instructor; their courses are kept unassigned.
func (svc *Service) Delete(ctx context.Context, id int) (Instructor, error) {
	inst, err := svc.repo.GetInstructor(ctx, id)
	if err != nil {
		return Instructor{}, err
	}
	if err = svc.repo.DeleteInstructor(ctx, id); err != nil {
		return Instructor{}, errors.Wrap(err, "deleting instructor")
	}
	return inst, nil
}
