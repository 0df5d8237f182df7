package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

var orderingParam = "ordering"

// Ordering binds `?ordering=field,-other` onto DB orderings ("-" means descending).
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

func bindOrdering(ctx echo.Context) []core.DBOrdering {
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return ordering.Orderings
}

// paramID parses the `:id` path parameter; ids are positive.
func paramID(ctx echo.Context) (int, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type successResponse struct {
	Success string `json:"success"`
}
