package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/periop/statusboard/internal/platform/export"
	"github.com/periop/statusboard/pkg/dates"
)

// OverviewWorkbook renders the overview for the resolved window and the
// current status breakdown as a two-sheet spreadsheet.
func (s *Service) OverviewWorkbook(ctx context.Context, start, end *time.Time) ([]byte, Window, error) {
	w, err := s.ResolveWindow(start, end)
	if err != nil {
		return nil, Window{}, err
	}
	ov, err := s.Overview(ctx, start, end)
	if err != nil {
		return nil, Window{}, err
	}
	breakdown, err := s.StatusBreakdown(ctx)
	if err != nil {
		return nil, Window{}, err
	}

	overview := export.Table{
		Name:    "Overview",
		Headers: []string{"Metric", "Value"},
		Widths:  []float64{30, 16},
		Rows: [][]interface{}{
			{"Window start", w.Start.Format(dates.DayLayout)},
			{"Window end", w.End.Format(dates.DayLayout)},
			{"New patients", ov.NewPatients},
			{"Surgeries scheduled", ov.SurgeriesTotal},
			{"Surgeries completed", ov.SurgeriesCompleted},
			{"Surgeries remaining", ov.SurgeriesRemaining},
			{"Average wait (minutes)", ov.AvgWaitTimeMinutes},
			{"Active cases", ov.ActiveCases},
		},
	}

	statuses := export.Table{
		Name:    "Status Breakdown",
		Headers: []string{"Status", "Patients", "Message", "Color"},
		Widths:  []float64{24, 10, 60, 10},
	}
	for _, b := range breakdown {
		statuses.Rows = append(statuses.Rows, []interface{}{b.Status, b.Count, b.Message, b.Color})
	}

	data, err := export.Workbook(overview, statuses)
	if err != nil {
		return nil, Window{}, fmt.Errorf("render overview: %w", err)
	}
	return data, w, nil
}

// ReportName is the file name an overview export is stored or served under.
func ReportName(w Window) string {
	return fmt.Sprintf("overview_%s_%s.xlsx", w.Start.Format(dates.DayLayout), w.End.Format(dates.DayLayout))
}
