package patient

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/periop/statusboard/internal/domain/clinician"
	"github.com/periop/statusboard/internal/platform/auth"
	"github.com/periop/statusboard/pkg/dates"
	"github.com/periop/statusboard/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Board endpoints – any signed-in user
	board := api.Group("", auth.RequireAuthenticated())
	board.GET("/patients/today", h.Today)

	// Read endpoints – admin, surgical team
	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleSurgicalTeam))
	read.GET("/patients", h.List)
	read.GET("/patients/search", h.Search)

	// Admin only
	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/patients", h.Create)
	admin.GET("/patients/stats", h.Stats)
	admin.GET("/patients/:number", h.Get)
	admin.PUT("/patients/:number", h.Update)
	admin.GET("/patients/:number/history", h.History)
}

// httpError maps service errors onto status codes. Storage failures are
// reported generically; the cause stays in the server log.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, clinician.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	summary, err := h.svc.Create(ctx, in, auth.UserIDFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, summary)
}

func (h *Handler) Update(c echo.Context) error {
	var patch Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	p, err := h.svc.Update(ctx, normalizeNumber(c.Param("number")), patch, auth.UserIDFromContext(ctx))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := h.svc.GetByNumber(c.Request().Context(), normalizeNumber(c.Param("number")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) History(c echo.Context) error {
	recs, err := h.svc.History(c.Request().Context(), normalizeNumber(c.Param("number")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) List(c echo.Context) error {
	res, err := h.svc.ListPaged(c.Request().Context(), pagination.FromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Search(c echo.Context) error {
	f := SearchFilter{
		Name:        strings.TrimSpace(c.QueryParam("name")),
		Status:      strings.TrimSpace(c.QueryParam("status")),
		SurgeonName: strings.TrimSpace(c.QueryParam("surgeon")),
	}
	if f.SurgeonName == "" {
		f.SurgeonName = strings.TrimSpace(c.QueryParam("surgeon_name"))
	}
	if v := c.QueryParam("scheduled_date"); v != "" {
		d, err := dates.ParseDay(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.ScheduledDate = &d
	}
	items, err := h.svc.Search(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Today(c echo.Context) error {
	items, err := h.svc.Today(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// Numbers are generated upper-case; accept what a person types off a wristband.
func normalizeNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
