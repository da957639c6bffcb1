package status

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/periop/statusboard/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireAuthenticated())
	g.GET("/statuses", h.ListStatuses)
}

func (h *Handler) ListStatuses(c echo.Context) error {
	defs, err := h.svc.ListOrdered(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	return c.JSON(http.StatusOK, defs)
}
