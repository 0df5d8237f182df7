package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/student"
)

var (
	errInvalidCourseID  = echo.NewHTTPError(http.StatusBadRequest, "Invalid course ID")
	errInvalidEmail     = echo.NewHTTPError(http.StatusBadRequest, "Invalid email")
	errInvalidEmailType = echo.NewHTTPError(http.StatusBadRequest, "Invalid type")
)

// ajaxApi serves the read-only lookups of the client side forms.
type ajaxApi struct {
	courses     *course.Service
	instructors *instructor.Service
	students    *student.Service
	validator   *core.Validator
}

func registerAjaxAPI(g *echo.Group, courses *course.Service, instructors *instructor.Service, students *student.Service, v *core.Validator) {
	api := ajaxApi{courses: courses, instructors: instructors, students: students, validator: v}

	ag := g.Group("/ajax")
	ag.GET("/courses/search", api.searchCourses)
	ag.GET("/courses/:id/capacity", api.courseCapacity)
	ag.GET("/email-exists", api.emailExists)
}

func (api *ajaxApi) searchCourses(ctx echo.Context) error {
	suggestions, err := api.courses.Suggest(ctx.Request().Context(), ctx.QueryParam("keyword"))
	if err != nil {
		return errors.Wrap(err, "suggesting courses")
	}
	return ctx.JSON(http.StatusOK, suggestions)
}

func (api *ajaxApi) courseCapacity(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return errInvalidCourseID
	}
	capacity, err := api.courses.Capacity(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, capacity)
}

type EmailExistsResponse struct {
	Exists bool `json:"exists"`
}

func (api *ajaxApi) emailExists(ctx echo.Context) error {
	email := core.CleanString(ctx.QueryParam("email"), true)
	if err := api.validator.Engine.Var(email, "required,email"); err != nil {
		return errInvalidEmail
	}
	excludeID, _ := strconv.Atoi(ctx.QueryParam("exclude_id")) // 0 excludes nothing

	var exists bool
	var err error
	reqCtx := ctx.Request().Context()
	switch ctx.QueryParam("type") {
	case "instructor":
		exists, err = api.instructors.EmailExists(reqCtx, email, excludeID)
	case "student":
		exists, err = api.students.EmailExists(reqCtx, email, excludeID)
	default:
		return errInvalidEmailType
	}
	if err != nil {
		return errors.Wrap(err, "checking email")
	}
	return ctx.JSON(http.StatusOK, EmailExistsResponse{Exists: exists})
}
