package course

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
	ErrNotFound           = errors.New("course not found")
	ErrCodeExists         = errors.New("course code already exists")
	ErrInstructorNotFound = errors.New("instructor not found")
	errInvalidCourse      = errors.New("invalid course")

	msgCodeExists         = "Course code already exists"
	msgInstructorNotFound = "Selected instructor does not exist"

	fieldOrder = []string{"course_name", "course_code", "description", "category", "level", "credits", "max_students", "instructor_id"}

	messages = map[string]string{
		"course_name.required":   "Course name is required",
		"course_name.min":        "Course name must be at least 3 characters",
		"course_name.max":        "Course name must not exceed 200 characters",
		"course_code.required":   "Course code is required",
		"course_code.coursecode": "Course code must be in format: CS101, MATH201, etc.",
		"category.required":      "Category is required",
		"level.oneof":            "Invalid course level",
		"credits.min":            "Credits must be between 1 and 6",
		"credits.max":            "Credits must be between 1 and 6",
		"max_students.min":       "Max students must be between 1 and 200",
		"max_students.max":       "Max students must be between 1 and 200",
		"instructor_id.min":      msgInstructorNotFound,
	}

	suggestMinLen = 2
	suggestLimit  = 10
)

// InitValidators registers the course messages.
func InitValidators(_ *validator.Validate, translator ut.Translator) {
	core.RegisterFieldMessages(translator, messages)
}

type (
	Repository interface {
		// CodeExists ignores the course with excludeID (0 excludes nothing).
		CodeExists(ctx context.Context, code string, excludeID int) (bool, error)
		// CreateCourse returns ErrInstructorNotFound if the instructor reference is dangling
		// and ErrCodeExists if the code was taken concurrently.
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		// SearchCourses does a case-insensitive substring match of SearchFilter.Search on name, code or description.
		SearchCourses(ctx context.Context, filter SearchFilter, ordering []core.DBOrdering) ([]Listing, error)
		// SuggestCourses matches keyword on name or code.
		SuggestCourses(ctx context.Context, keyword string, limit int) ([]Suggestion, error)
		GetCapacity(ctx context.Context, id int) (Capacity, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
		v    *core.Validator
	}
)

func NewService(repo Repository, v *core.Validator) *Service {
	return &Service{repo: repo, v: v}
}

func (svc *Service) validate(ctx context.Context, nc *NewCourse, excludeID int) error {
	nc.clean()
	flds, err := svc.v.Struct(nc)
	if err != nil {
		return errors.Wrap(err, "validating course")
	}
	if !core.HasFieldError(flds, "course_code") {
		exists, err := svc.repo.CodeExists(ctx, nc.Code, excludeID)
		if err != nil {
			return errors.Wrap(err, "checking course code uniqueness")
		}
		if exists {
			flds = core.InsertFieldError(flds, core.FieldError{Field: "course_code", Error: msgCodeExists}, fieldOrder)
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// trapStoreErr turns constraint failures reported by the store into violations.
func trapStoreErr(err error) error {
	switch errors.Cause(err) {
	case ErrInstructorNotFound:
		return core.NewValidationError(errInvalidCourse, core.FieldError{Field: "instructor_id", Error: msgInstructorNotFound})
	case ErrCodeExists:
		return core.NewValidationError(errInvalidCourse, core.FieldError{Field: "course_code", Error: msgCodeExists})
	}
	return err
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := svc.validate(ctx, &nc, 0); err != nil {
		return Course{}, err
	}
	isActive := true
	if nc.IsActive != nil {
		isActive = *nc.IsActive
	}
	c, err := svc.repo.CreateCourse(ctx, Course{
		Name:         nc.Name,
		Code:         nc.Code,
		Description:  nc.Description,
		Category:     nc.Category,
		Level:        nc.Level,
		Credits:      nc.Credits,
		MaxStudents:  nc.MaxStudents,
		InstructorID: nc.InstructorID,
		IsActive:     isActive,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return Course{}, trapStoreErr(err)
	}
	return c, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// Update replaces every editable field of the course; the code uniqueness check excludes the course itself.
func (svc *Service) Update(ctx context.Context, id int, nc NewCourse) (Course, error) {
	orig, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.validate(ctx, &nc, id); err != nil {
		return Course{}, err
	}
	orig.Name = nc.Name
	orig.Code = nc.Code
	orig.Description = nc.Description
	orig.Category = nc.Category
	orig.Level = nc.Level
	orig.Credits = nc.Credits
	orig.MaxStudents = nc.MaxStudents
	orig.InstructorID = nc.InstructorID
	if nc.IsActive != nil {
		orig.IsActive = *nc.IsActive
	}
	c, err := svc.repo.UpdateCourse(ctx, orig)
	if err != nil {
		return Course{}, trapStoreErr(err)
	}
	return c, nil
}

// Delete removes the course (and, through the store, its enrollments) and returns what was deleted.
func (svc *Service) Delete(ctx context.Context, id int) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = svc.repo.DeleteCourse(ctx, id); err != nil {
		return Course{}, errors.Wrap(err, "deleting course")
	}
	return c, nil
}

func (svc *Service) Search(ctx context.Context, filter SearchFilter, ordering []core.DBOrdering) ([]Listing, error) {
	filter.Clean()
	return svc.repo.SearchCourses(ctx, filter, ordering)
}

// Suggest returns up to 10 courses whose name or code contains keyword; keywords shorter than 2 characters match nothing.
func (svc *Service) Suggest(ctx context.Context, keyword string) ([]Suggestion, error) {
	keyword = core.CleanString(keyword)
	if len([]rune(keyword)) < suggestMinLen {
		return []Suggestion{}, nil
	}
	return svc.repo.SuggestCourses(ctx, keyword, suggestLimit)
}

func (svc *Service) Capacity(ctx context.Context, id int) (Capacity, error) {
	return svc.repo.GetCapacity(ctx, id)
}
