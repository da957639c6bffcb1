package clinician

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/periop/statusboard/internal/platform/auth"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleSurgicalTeam))
	g.GET("/clinicians", h.ListClinicians)
}

// ListClinicians backs the surgeon picker; ?role= and ?email= narrow the list.
func (h *Handler) ListClinicians(c echo.Context) error {
	items, err := h.repo.List(c.Request().Context(), ListFilter{
		Role:  c.QueryParam("role"),
		Email: c.QueryParam("email"),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	if items == nil {
		items = []*Clinician{}
	}
	return c.JSON(http.StatusOK, items)
}
