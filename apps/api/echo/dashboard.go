package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/dashboard"
)

func registerDashboardAPI(g *echo.Group, svc *dashboard.Service) {
	g.GET("/dashboard", func(ctx echo.Context) error {
		dash, err := svc.For(ctx.Request().Context(), getContextIdentity(ctx))
		if err != nil {
			return errors.Wrap(err, "building dashboard")
		}
		return ctx.JSON(http.StatusOK, dash)
	})
}
