package analytics

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/periop/statusboard/internal/platform/auth"
	"github.com/periop/statusboard/internal/platform/export"
)

func newRequest(target string, roles ...string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if len(roles) == 0 {
		roles = []string{auth.RoleSurgicalTeam}
	}
	return req.WithContext(auth.WithIdentity(req.Context(), "user-1", roles))
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %T (%v)", err, err)
	assert.Equal(t, code, he.Code, "message: %v", he.Message)
}

func TestHandler_Overview(t *testing.T) {
	env := newTestEnv()
	env.patients.rows = []fakePatient{
		{id: uuid.New(), number: "AAA111", status: "Complete", scheduled: at(7, 0), created: at(6, 0)},
	}
	h := NewHandler(env.svc)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest("/api/v1/analytics/overview?start_date=2025-03-01&end_date=2025-03-10"), rec)

	require.NoError(t, h.Overview(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["new_patients"])
	assert.Equal(t, float64(1), body["surgeries_completed"])
	assert.Equal(t, float64(0), body["surgeries_remaining"])
	assert.Equal(t, float64(0), body["avg_wait_time_minutes"])
}

func TestHandler_Overview_InvalidRange(t *testing.T) {
	h := NewHandler(newTestEnv().svc)
	c := echo.New().NewContext(newRequest("/api/v1/analytics/overview?start_date=2025-03-10&end_date=2025-03-01"), httptest.NewRecorder())

	expectHTTPError(t, h.Overview(c), http.StatusBadRequest)
}

func TestHandler_Overview_BadDate(t *testing.T) {
	h := NewHandler(newTestEnv().svc)
	c := echo.New().NewContext(newRequest("/api/v1/analytics/overview?start_date=10/03/2025"), httptest.NewRecorder())

	expectHTTPError(t, h.Overview(c), http.StatusBadRequest)
}

func TestHandler_Overview_StoreError(t *testing.T) {
	env := newTestEnv()
	env.patients.err = errStore
	h := NewHandler(env.svc)
	c := echo.New().NewContext(newRequest("/api/v1/analytics/overview"), httptest.NewRecorder())

	err := h.Overview(c)
	expectHTTPError(t, err, http.StatusInternalServerError)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "internal error", he.Message)
	assert.ErrorIs(t, he.Internal, errStore)
}

func TestHandler_StatusBreakdown(t *testing.T) {
	env := newTestEnv()
	env.patients.rows = []fakePatient{{id: uuid.New(), number: "A1", status: "Recovery"}}
	h := NewHandler(env.svc)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest("/api/v1/analytics/status-breakdown"), rec)

	require.NoError(t, h.StatusBreakdown(c))
	var got []StatusCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Recovery", got[0].Status)
	assert.Equal(t, 1, got[0].Count)
}

func TestHandler_RecentActivity(t *testing.T) {
	env := newTestEnv()
	id := uuid.New()
	env.patients.rows = []fakePatient{{id: id, number: "AAA111", first: "Ada", status: "Checked In", created: at(8, 0)}}
	env.ledger.add(id, nil, "Checked In", at(8, 0))
	h := NewHandler(env.svc)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest("/api/v1/analytics/recent-activity"), rec)

	require.NoError(t, h.RecentActivity(c))
	var got RecentActivity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.StatusChanges, 1)
	assert.Equal(t, "Ada", got.StatusChanges[0].Name)
	assert.Equal(t, []string{}, got.CompletedToday)
	assert.Equal(t, []string{"AAA111"}, got.ActiveCases)
}

func TestHandler_ExportOverview(t *testing.T) {
	env := newTestEnv()
	env.patients.rows = []fakePatient{
		{id: uuid.New(), number: "AAA111", status: "Recovery", scheduled: at(7, 0), created: at(6, 0)},
	}
	h := NewHandler(env.svc)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest("/api/v1/analytics/overview/export?start_date=2025-03-01"), rec)

	require.NoError(t, h.ExportOverview(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.XLSXContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="overview_2025-03-01_2025-03-10.xlsx"`, rec.Header().Get(echo.HeaderContentDisposition))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Overview", "B4")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	rows, err := f.GetRows("Status Breakdown")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Recovery", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
}

func TestHandler_RoleGuard(t *testing.T) {
	e := echo.New()
	NewHandler(newTestEnv().svc).RegisterRoutes(e.Group("/api/v1"))

	tests := []struct {
		role string
		want int
	}{
		{auth.RoleAdmin, http.StatusOK},
		{auth.RoleSurgicalTeam, http.StatusOK},
		{"viewer", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, newRequest("/api/v1/analytics/status-breakdown", tt.role))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
