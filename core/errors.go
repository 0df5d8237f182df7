package core

import (
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError carries every violation found on an input, in reporting order.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, fld := range err.Fields {
		msgs = append(msgs, fld.Error)
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the human-readable violations only.
func (err ValidationError) Messages() []string {
	msgs := make([]string, 0, len(err.Fields))
	for _, fld := range err.Fields {
		msgs = append(msgs, fld.Error)
	}
	return msgs
}

// AsValidationError unwraps err down to a *ValidationError, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	vErr, ok := errors.Cause(err).(*ValidationError)
	return vErr, ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
