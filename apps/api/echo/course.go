package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/course"
)

var (
	errCourseNotFoundInCtx = errors.New("course object not found in echo.Context")

	msgCourseCreated = "Course '%s' created successfully!"
	msgCourseUpdated = "Course '%s' updated successfully!"
	msgCourseDeleted = "Course '%s' deleted successfully!"
)

type courseApi struct {
	svc    *course.Service
	access *access.Service
}

func registerCourseAPI(g *echo.Group, svc *course.Service, accessSvc *access.Service) {
	api := courseApi{svc: svc, access: accessSvc}

	cg := g.Group("/courses")
	cg.GET("", api.list)
	cg.POST("", api.create, staffMiddleware)
	cg.GET("/search", api.search, staffMiddleware)
	cg.GET("/catalogue", api.catalogue)

	// detail endpoints
	dg := cg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware, api.ownerMiddleware)
	dg.DELETE("", api.destroy, staffMiddleware, api.ownerMiddleware)
}

// Handlers

func (api *courseApi) list(ctx echo.Context) error {
	views, err := api.access.ListCoursesFor(ctx.Request().Context(), getContextIdentity(ctx), bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *courseApi) search(ctx echo.Context) error {
	filter := new(course.SearchFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Listing{})
	}
	listings, err := api.svc.Search(ctx.Request().Context(), *filter, bindOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "searching courses")
	}
	return ctx.JSON(http.StatusOK, listings)
}

type CatalogueResponse struct {
	Categories []string       `json:"categories"`
	Levels     []course.Level `json:"levels"`
}

func (api *courseApi) catalogue(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, CatalogueResponse{Categories: course.Categories, Levels: course.Levels})
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	flash(ctx, fmt.Sprintf(msgCourseCreated, c.Name))
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}

	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.svc.Update(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return err
	}
	flash(ctx, fmt.Sprintf(msgCourseUpdated, c.Name))
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}
	deleted, err := api.svc.Delete(ctx.Request().Context(), c.ID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf(msgCourseDeleted, deleted.Name)
	flash(ctx, msg)
	return ctx.JSON(http.StatusOK, successResponse{Success: msg})
}

// objectMiddleware loads the course of the path into the context if the caller may view it.
func (api *courseApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, ok := paramID(ctx)
		if !ok {
			return errHttpNotFound
		}
		reqCtx := ctx.Request().Context()
		c, err := api.svc.GetByID(reqCtx, id)
		if err != nil {
			return err
		}
		if err = api.access.CanViewCourse(reqCtx, getContextIdentity(ctx), id); err != nil {
			return err
		}
		ctx.Set("object", c)
		return next(ctx)
	}
}

// ownerMiddleware restricts instructors to the courses assigned to them.
func (api *courseApi) ownerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, ok := ctx.Get("object").(course.Course)
		if !ok {
			return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
		}
		if err := api.access.CheckCourseOwnership(ctx.Request().Context(), getContextIdentity(ctx), c.ID); err != nil {
			return err
		}
		return next(ctx)
	}
}
