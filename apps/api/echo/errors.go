package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")

	notFoundMessages = []struct {
		err error
		msg string
	}{
		{course.ErrNotFound, "Course not found"},
		{instructor.ErrNotFound, "Instructor not found"},
		{student.ErrNotFound, "Student not found"},
		{enrollment.ErrNotFound, "Enrollment not found"},
		{auth.ErrNotFound, "Account not found"},
	}
)

func notFoundMessage(cause error) string {
	for _, nf := range notFoundMessages {
		if cause == nf.err {
			return nf.msg
		}
	}
	return ""
}

type (
	errorResponse struct {
		Error string `json:"error"`
	}

	validationErrorResponse struct {
		Errors []core.FieldError `json:"errors"`
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func (s *Server) newAppHTTPErrorHandler(signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}
		var flash string

		cause := errors.Cause(err)
		var rateLimited *auth.RateLimitError

		switch {
		case errors.As(err, &rateLimited):
			code = http.StatusTooManyRequests
			message = rateLimited.Error()
		case cause == access.ErrDenied:
			code = http.StatusForbidden
			message = access.Message(err)
			flash = access.Message(err)
		case cause == session.ErrInvalidCSRF:
			code = http.StatusForbidden
			message = cause.Error()
		case cause == session.ErrExpired:
			code = http.StatusUnauthorized
			message = cause.Error()
		case cause == auth.ErrInvalidCredentials, cause == enrollment.ErrUnavailable:
			code = http.StatusBadRequest
			message = cause.Error()
		case notFoundMessage(cause) != "":
			code = http.StatusNotFound
			message = notFoundMessage(cause)
			flash = notFoundMessage(cause)
		default:
			code, message = s.mapOtherError(err, ctx, signalShutdown)
		}

		if flash != "" {
			sess := getContextSession(ctx)
			if sess.ID != "" {
				fErr := s.deps.Sessions.SetFlash(ctx.Request().Context(), sess, flash)
				if fErr != nil && errors.Cause(fErr) != session.ErrNotFound {
					s.logger.Error("setting flash", errors.Wrap(fErr, "setting flash"), sess.Identity)
				}
			}
		}
		if m, ok := message.(string); ok {
			message = errorResponse{Error: m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func (s *Server) mapOtherError(err error, ctx echo.Context, signalShutdown func()) (int, interface{}) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		return http.StatusBadRequest, validationErrorResponse{Errors: core.TranslateErrors(origErr, s.deps.Validator.Translator)}
	case *core.ValidationError:
		if len(origErr.Fields) == 0 {
			return http.StatusBadRequest, origErr.Error()
		}
		return http.StatusBadRequest, validationErrorResponse{Errors: origErr.Fields}
	}

	// any other error is a server error
	msg := http.StatusText(http.StatusInternalServerError)
	s.logger.Error(msg, errors.Wrap(err, msg), getContextIdentity(ctx))

	// shutting down...
	if core.IsShutdown(err) {
		signalShutdown()
	}
	if ctx.Echo().Debug {
		return http.StatusInternalServerError, err.Error()
	}
	return http.StatusInternalServerError, msg
}
