package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/periop/statusboard/internal/domain/ledger"
	"github.com/periop/statusboard/internal/domain/patient"
	"github.com/periop/statusboard/internal/domain/status"
	"github.com/periop/statusboard/pkg/dates"
)

// PatientReader is the read side of the patient store used for aggregation.
type PatientReader interface {
	ListScheduledBetween(ctx context.Context, start, end time.Time) ([]*patient.PatientSummary, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error)
	CountActiveCreatedBetween(ctx context.Context, terminalStatus string, start, end time.Time) (int, error)
	ListActiveNumbers(ctx context.Context, terminalStatus string, createdBefore time.Time) ([]string, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	ListIdentities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]patient.Identity, error)
}

type Catalog interface {
	ListOrdered(ctx context.Context) ([]*status.Definition, error)
}

// Service computes read-only aggregates. It never writes, so it runs outside
// any transaction and tolerates reads that race with updates.
type Service struct {
	patients PatientReader
	ledger   ledger.Repository
	catalog  Catalog
	// complete is the terminal status for throughput and activity.
	complete string
	now      func() time.Time
}

func NewService(patients PatientReader, ledgerRepo ledger.Repository, catalog Catalog, completeStatus string) *Service {
	return &Service{
		patients: patients,
		ledger:   ledgerRepo,
		catalog:  catalog,
		complete: completeStatus,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock, for tests and report back-fills.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ResolveWindow turns optional calendar dates into an inclusive window:
// no dates means today; only end starts from 2000-01-01; only start ends
// today.
func (s *Service) ResolveWindow(start, end *time.Time) (Window, error) {
	today := dates.StartOfDay(s.now())
	var from, to time.Time
	switch {
	case start == nil && end == nil:
		from, to = today, today
	case start == nil:
		from, to = earliestDate, dates.StartOfDay(*end)
	case end == nil:
		from, to = dates.StartOfDay(*start), today
	default:
		from, to = dates.StartOfDay(*start), dates.StartOfDay(*end)
	}
	if from.After(to) {
		return Window{}, ErrInvalidRange
	}
	return Window{Start: from, End: dates.EndOfDay(to)}, nil
}

func (s *Service) Overview(ctx context.Context, start, end *time.Time) (*Overview, error) {
	w, err := s.ResolveWindow(start, end)
	if err != nil {
		return nil, err
	}

	var out Overview
	if out.NewPatients, err = s.patients.CountCreatedBetween(ctx, w.Start, w.End); err != nil {
		return nil, fmt.Errorf("count new patients: %w", err)
	}

	scheduled, err := s.patients.ListScheduledBetween(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("list scheduled surgeries: %w", err)
	}
	out.SurgeriesTotal = len(scheduled)
	for _, p := range scheduled {
		if p.Status == s.complete {
			out.SurgeriesCompleted++
		}
	}
	out.SurgeriesRemaining = out.SurgeriesTotal - out.SurgeriesCompleted

	all, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transition history: %w", err)
	}
	out.AvgWaitTimeMinutes = AverageFirstWait(all, w)

	if out.ActiveCases, err = s.patients.CountActiveCreatedBetween(ctx, s.complete, w.Start, w.End); err != nil {
		return nil, fmt.Errorf("count active cases: %w", err)
	}
	return &out, nil
}

// AverageFirstWait averages, in minutes, the gap between each patient's first
// and second recorded transitions. Only patients whose very first transition
// lies inside w count, and their second transition may fall outside it. The
// result is rounded to two decimals and is 0 when nobody qualifies.
func AverageFirstWait(records []*ledger.TransitionRecord, w Window) float64 {
	var total float64
	var n int
	for _, history := range ledger.GroupByPatient(records) {
		if len(history) < 2 {
			continue
		}
		first := history[0].ChangedAt
		if first.Before(w.Start) || first.After(w.End) {
			continue
		}
		total += history[1].ChangedAt.Sub(first).Minutes()
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(total/float64(n)*100) / 100
}

// RecentActivity always covers the current UTC day.
func (s *Service) RecentActivity(ctx context.Context) (*RecentActivity, error) {
	start, end := dates.Day(s.now())

	recs, err := s.ledger.ListInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load today's transitions: %w", err)
	}
	ledger.SortChronologically(recs)

	ids := make([]uuid.UUID, 0, len(recs))
	seen := make(map[uuid.UUID]bool)
	for _, r := range recs {
		if !seen[r.PatientID] {
			seen[r.PatientID] = true
			ids = append(ids, r.PatientID)
		}
	}
	who, err := s.patients.ListIdentities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve patients: %w", err)
	}

	out := &RecentActivity{
		StatusChanges:  make([]ActivityItem, 0, len(recs)),
		CompletedToday: []string{},
	}
	completed := make(map[uuid.UUID]bool)
	for _, r := range recs {
		id := who[r.PatientID]
		out.StatusChanges = append(out.StatusChanges, ActivityItem{
			PatientNumber:  id.PatientNumber,
			Name:           displayName(id),
			PreviousStatus: r.PreviousStatus,
			NewStatus:      r.NewStatus,
			ChangedBy:      r.ChangedBy,
			ChangedAt:      r.ChangedAt,
		})
		if r.NewStatus == s.complete && !completed[r.PatientID] {
			completed[r.PatientID] = true
			out.CompletedToday = append(out.CompletedToday, id.PatientNumber)
		}
	}

	active, err := s.patients.ListActiveNumbers(ctx, s.complete, end)
	if err != nil {
		return nil, fmt.Errorf("list active cases: %w", err)
	}
	if active == nil {
		active = []string{}
	}
	out.ActiveCases = active
	return out, nil
}

func displayName(id patient.Identity) string {
	if id.LastName == "" {
		return id.FirstName
	}
	return id.FirstName + " " + id.LastName
}

// StatusBreakdown counts patients per current status in catalog order.
// Statuses nobody is in are left out.
func (s *Service) StatusBreakdown(ctx context.Context) ([]StatusCount, error) {
	counts, err := s.patients.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defs, err := s.catalog.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("load status catalog: %w", err)
	}

	out := make([]StatusCount, 0, len(counts))
	for _, d := range defs {
		n := counts[d.Status]
		if n == 0 {
			continue
		}
		out = append(out, StatusCount{
			Status:     d.Status,
			Count:      n,
			Message:    d.Message,
			Color:      d.Color,
			OrderIndex: d.OrderIndex,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}
