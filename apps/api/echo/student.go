package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/student"
)

var (
	errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")

	msgStudentCreated = "Student '%s' added successfully!"
	msgStudentUpdated = "Student '%s' updated successfully!"
	msgStudentDeleted = "Student '%s' deleted successfully!"
)

type studentApi struct {
	svc    *student.Service
	access *access.Service
}

func registerStudentAPI(g *echo.Group, svc *student.Service, accessSvc *access.Service) {
	api := studentApi{svc: svc, access: accessSvc}

	sg := g.Group("/students")
	sg.GET("", api.list)
	sg.POST("", api.create, staffMiddleware)

	dg := sg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware)
	dg.DELETE("", api.destroy, staffMiddleware)
}

func (api *studentApi) list(ctx echo.Context) error {
	views, err := api.access.ListStudentsFor(ctx.Request().Context(), getContextIdentity(ctx), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	st, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	flash(ctx, fmt.Sprintf(msgStudentCreated, st.Name()))
	return ctx.JSON(http.StatusCreated, st)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	st, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) update(ctx echo.Context) error {
	st, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}

	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	st, err := api.svc.Update(ctx.Request().Context(), st.ID, data)
	if err != nil {
		return err
	}
	flash(ctx, fmt.Sprintf(msgStudentUpdated, st.Name()))
	return ctx.JSON(http.StatusOK, st)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	st, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	deleted, err := api.svc.Delete(ctx.Request().Context(), st.ID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf(msgStudentDeleted, deleted.Name())
	flash(ctx, msg)
	return ctx.JSON(http.StatusOK, successResponse{Success: msg})
}

func (api *studentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, ok := paramID(ctx)
		if !ok {
			return errHttpNotFound
		}
		reqCtx := ctx.Request().Context()
		st, err := api.svc.GetByID(reqCtx, id)
		if err != nil {
			return err
		}
		if err = api.access.CanViewStudent(reqCtx, getContextIdentity(ctx), id); err != nil {
			return err
		}
		ctx.Set("object", st)
		return next(ctx)
	}
}
