package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/enrollment"
)

var msgEnrolled = "Student enrolled successfully!"

type enrollmentApi struct {
	svc *enrollment.Service
}

func registerEnrollmentAPI(g *echo.Group, svc *enrollment.Service) {
	api := enrollmentApi{svc: svc}

	eg := g.Group("/enrollments")
	eg.GET("", api.list)
	eg.POST("", api.enroll)
	eg.GET("/:id", api.retrieve)
	eg.POST("/:id/unenroll", api.unenroll)
}

func (api *enrollmentApi) list(ctx echo.Context) error {
	filter := new(enrollment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	details, err := api.svc.List(ctx.Request().Context(), getContextIdentity(ctx), *filter)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, details)
}

// enroll applies the capacity and duplicate rules; violations come back as field errors.
func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	en, err := api.svc.Enroll(ctx.Request().Context(), getContextIdentity(ctx), data)
	if err != nil {
		return err
	}
	flash(ctx, msgEnrolled)
	return ctx.JSON(http.StatusCreated, en)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return errHttpNotFound
	}
	d, err := api.svc.GetByID(ctx.Request().Context(), getContextIdentity(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *enrollmentApi) unenroll(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return errHttpNotFound
	}
	msg, err := api.svc.Unenroll(ctx.Request().Context(), getContextIdentity(ctx), id)
	if err != nil {
		return err
	}
	flash(ctx, msg)
	return ctx.JSON(http.StatusOK, successResponse{Success: msg})
}
