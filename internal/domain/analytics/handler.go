package analytics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/periop/statusboard/internal/platform/auth"
	"github.com/periop/statusboard/internal/platform/export"
	"github.com/periop/statusboard/pkg/dates"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/analytics", auth.RequireRole(auth.RoleAdmin, auth.RoleSurgicalTeam))
	g.GET("/overview", h.Overview)
	g.GET("/overview/export", h.ExportOverview)
	g.GET("/recent-activity", h.RecentActivity)
	g.GET("/status-breakdown", h.StatusBreakdown)
}

func httpError(err error) error {
	if errors.Is(err, ErrInvalidRange) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// dateRange reads the optional start_date and end_date query parameters.
func dateRange(c echo.Context) (start, end *time.Time, err error) {
	parse := func(name string) (*time.Time, error) {
		v := c.QueryParam(name)
		if v == "" {
			return nil, nil
		}
		d, err := dates.ParseDay(v)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s: %v", name, err))
		}
		return &d, nil
	}
	if start, err = parse("start_date"); err != nil {
		return nil, nil, err
	}
	if end, err = parse("end_date"); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func (h *Handler) Overview(c echo.Context) error {
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	ov, err := h.svc.Overview(c.Request().Context(), start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ov)
}

func (h *Handler) ExportOverview(c echo.Context) error {
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	data, w, err := h.svc.OverviewWorkbook(c.Request().Context(), start, end)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", ReportName(w)))
	return c.Blob(http.StatusOK, export.XLSXContentType, data)
}

func (h *Handler) RecentActivity(c echo.Context) error {
	out, err := h.svc.RecentActivity(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) StatusBreakdown(c echo.Context) error {
	out, err := h.svc.StatusBreakdown(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}
