package core

import (
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var (
	// custom validation tags & texts
	personNameTag   = "personname"
	personNameText  = "{0} can only contain letters, spaces, hyphens, and apostrophes"
	personNameRegex = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)

	phoneTag       = "phone"
	phoneText      = "{0} must contain at least 10 digits"
	phoneMinDigits = 10

	courseCodeTag   = "coursecode"
	courseCodeText  = "{0} must be in format: CS101, MATH201, etc."
	courseCodeRegex = regexp.MustCompile(`(?i)^[A-Z]{2,4}[0-9]{3}$`)

	notFutureTag  = "notfuture"
	notFutureText = "{0} cannot be in the future"

	requiredTag  = "required"
	requiredText = "{0} is required"

	// messages shared by instructors and students
	personMessages = map[string]string{
		"first_name.required":   "First name is required",
		"first_name.min":        "First name must be at least 2 characters",
		"first_name.personname": "First name can only contain letters, spaces, hyphens, and apostrophes",
		"last_name.required":    "Last name is required",
		"last_name.min":         "Last name must be at least 2 characters",
		"last_name.personname":  "Last name can only contain letters, spaces, hyphens, and apostrophes",
		"email.required":        "Email is required",
		"email.email":           "Invalid email format",
		"phone.phone":           "Phone number must contain at least 10 digits",
	}

	// MsgEmailExists is reported when an email is already taken.
	MsgEmailExists = "Email already exists"
)

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(personNameTag, personNameValidation)
	RegisterCustomTranslation(validate, translator, personNameTag, personNameText)

	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	_ = validate.RegisterValidation(courseCodeTag, courseCodeValidation)
	RegisterCustomTranslation(validate, translator, courseCodeTag, courseCodeText)

	_ = validate.RegisterValidation(notFutureTag, notFutureValidation)
	RegisterCustomTranslation(validate, translator, notFutureTag, notFutureText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)

	RegisterFieldMessages(translator, personMessages)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// RegisterFieldMessages adds field specific messages keyed by "<json field>.<tag>".
// They take precedence over the tag's generic translation.
func RegisterFieldMessages(translator ut.Translator, messages map[string]string) {
	for key, msg := range messages {
		_ = translator.Add(key, msg, true)
	}
}

// ValidateStruct runs the struct validations on s and returns the translated violations in field order.
// The returned error is only set when s could not be validated at all.
func ValidateStruct(validate *validator.Validate, translator ut.Translator, s interface{}) ([]FieldError, error) {
	err := validate.Struct(s)
	if err == nil {
		return nil, nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}
	return TranslateErrors(vErrs, translator), nil
}

func TranslateErrors(vErrs validator.ValidationErrors, translator ut.Translator) []FieldError {
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: translateFieldError(fe, translator)})
	}
	return flds
}

func translateFieldError(fe validator.FieldError, translator ut.Translator) string {
	if msg, err := translator.T(fe.Field() + "." + fe.Tag()); err == nil {
		return msg
	}
	return fe.Translate(translator)
}

// InsertFieldError places fe before the first error reported on a field that comes after fe.Field in `order`.
func InsertFieldError(flds []FieldError, fe FieldError, order []string) []FieldError {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	pos := len(flds)
	for i, f := range flds {
		if r, ok := rank[f.Field]; ok && r > rank[fe.Field] {
			pos = i
			break
		}
	}
	flds = append(flds, FieldError{})
	copy(flds[pos+1:], flds[pos:])
	flds[pos] = fe
	return flds
}

// Custom Global Validators

func personNameValidation(fl validator.FieldLevel) bool {
	return personNameRegex.MatchString(fl.Field().String())
}

// phoneValidation requires at least 10 digits once every other character is dropped.
func phoneValidation(fl validator.FieldLevel) bool {
	return len(DigitsOnly(fl.Field().String())) >= phoneMinDigits
}

func courseCodeValidation(fl validator.FieldLevel) bool {
	return courseCodeRegex.MatchString(fl.Field().String())
}

// notFutureValidation accepts dates up to today. Unparsable dates are left to the `datetime` tag.
func notFutureValidation(fl validator.FieldLevel) bool {
	var date time.Time
	switch v := fl.Field().Interface().(type) {
	case time.Time:
		date = v
	case string:
		d, err := time.ParseInLocation(DateLayout, v, time.Local)
		if err != nil {
			return true
		}
		date = d
	default:
		return false
	}
	y, m, d := time.Now().Date()
	endOfToday := time.Date(y, m, d+1, 0, 0, 0, 0, time.Local)
	return date.Before(endOfToday)
}

// Validator bundles the validation engine with the translator its messages are registered on.
type Validator struct {
	Engine     *validator.Validate
	Translator ut.Translator
}

// NewValidator returns a Validator with the global validators registered.
func NewValidator() *Validator {
	v := &Validator{Engine: validator.New(), Translator: NewTranslator()}
	InitValidators(v.Engine, v.Translator)
	return v
}

func (v *Validator) Struct(s interface{}) ([]FieldError, error) {
	return ValidateStruct(v.Engine, v.Translator, s)
}

// HasFieldError reports whether a violation was already recorded on field.
func HasFieldError(flds []FieldError, field string) bool {
	for _, f := range flds {
		if f.Field == field {
			return true
		}
	}
	return false
}

// SortFieldErrors orders flds by the rank of their field in `order`, keeping the order of errors on the same field.
func SortFieldErrors(flds []FieldError, order []string) {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	sort.SliceStable(flds, func(i, j int) bool { return rank[flds[i].Field] < rank[flds[j].Field] })
}
