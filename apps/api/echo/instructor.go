package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/instructor"
)

var (
	errInstructorNotFoundInCtx = errors.New("instructor object not found in echo.Context")

	msgInstructorCreated = "Instructor '%s' added successfully!"
	msgInstructorUpdated = "Instructor '%s' updated successfully!"
	msgInstructorDeleted = "Instructor '%s' deleted successfully!"
)

type instructorApi struct {
	svc    *instructor.Service
	access *access.Service
}

func registerInstructorAPI(g *echo.Group, svc *instructor.Service, accessSvc *access.Service) {
	api := instructorApi{svc: svc, access: accessSvc}

	ig := g.Group("/instructors")
	ig.GET("", api.list)
	ig.POST("", api.create, staffMiddleware)

	dg := ig.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware)
	dg.DELETE("", api.destroy, staffMiddleware)
}

func (api *instructorApi) list(ctx echo.Context) error {
	views, err := api.access.ListInstructorsFor(ctx.Request().Context(), getContextIdentity(ctx), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing instructors")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *instructorApi) create(ctx echo.Context) error {
	var data instructor.NewInstructor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstructor")
	}
	ins, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	flash(ctx, fmt.Sprintf(msgInstructorCreated, ins.Name()))
	return ctx.JSON(http.StatusCreated, ins)
}

func (api *instructorApi) retrieve(ctx echo.Context) error {
	ins, ok := ctx.Get("object").(instructor.Instructor)
	if !ok {
		return errors.Wrap(errInstructorNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, ins)
}

func (api *instructorApi) update(ctx echo.Context) error {
	ins, ok := ctx.Get("object").(instructor.Instructor)
	if !ok {
		return errors.Wrap(errInstructorNotFoundInCtx, "retrieving object from context")
	}

	var data instructor.NewInstructor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstructor")
	}
	ins, err := api.svc.Update(ctx.Request().Context(), ins.ID, data)
	if err != nil {
		return err
	}
	flash(ctx, fmt.Sprintf(msgInstructorUpdated, ins.Name()))
	return ctx.JSON(http.StatusOK, ins)
}

func (api *instructorApi) destroy(ctx echo.Context) error {
	ins, ok := ctx.Get("object").(instructor.Instructor)
	if !ok {
		return errors.Wrap(errInstructorNotFoundInCtx, "retrieving object from context")
	}
	deleted, err := api.svc.Delete(ctx.Request().Context(), ins.ID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf(msgInstructorDeleted, deleted.Name())
	flash(ctx, msg)
	return ctx.JSON(http.StatusOK, successResponse{Success: msg})
}

func (api *instructorApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, ok := paramID(ctx)
		if !ok {
			return errHttpNotFound
		}
		reqCtx := ctx.Request().Context()
		ins, err := api.svc.GetByID(reqCtx, id)
		if err != nil {
			return err
		}
		if err = api.access.CanViewInstructor(reqCtx, getContextIdentity(ctx), id); err != nil {
			return err
		}
		ctx.Set("object", ins)
		return next(ctx)
	}
}
