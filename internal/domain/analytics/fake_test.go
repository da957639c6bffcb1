package analytics

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/periop/statusboard/internal/domain/ledger"
	"github.com/periop/statusboard/internal/domain/patient"
	"github.com/periop/statusboard/internal/domain/status"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakePatient struct {
	id        uuid.UUID
	number    string
	first     string
	last      string
	status    string
	scheduled time.Time
	created   time.Time
}

type fakePatients struct {
	rows []fakePatient
	err  error
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (f *fakePatients) ListScheduledBetween(_ context.Context, start, end time.Time) ([]*patient.PatientSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*patient.PatientSummary
	for _, p := range f.rows {
		if inRange(p.scheduled, start, end) {
			out = append(out, &patient.PatientSummary{
				PatientNumber: p.number,
				FirstName:     p.first,
				LastName:      p.last,
				Status:        p.status,
				ScheduledTime: p.scheduled,
				CreatedAt:     p.created,
			})
		}
	}
	return out, nil
}

func (f *fakePatients) CountCreatedBetween(_ context.Context, start, end time.Time) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n := 0
	for _, p := range f.rows {
		if inRange(p.created, start, end) {
			n++
		}
	}
	return n, nil
}

func (f *fakePatients) CountActiveCreatedBetween(_ context.Context, terminal string, start, end time.Time) (int, error) {
	n := 0
	for _, p := range f.rows {
		if p.status != terminal && inRange(p.created, start, end) {
			n++
		}
	}
	return n, nil
}

func (f *fakePatients) ListActiveNumbers(_ context.Context, terminal string, createdBefore time.Time) ([]string, error) {
	var out []string
	for _, p := range f.rows {
		if p.status != terminal && !p.created.After(createdBefore) {
			out = append(out, p.number)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakePatients) CountByStatus(_ context.Context) (map[string]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]int)
	for _, p := range f.rows {
		out[p.status]++
	}
	return out, nil
}

func (f *fakePatients) ListIdentities(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]patient.Identity, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uuid.UUID]patient.Identity)
	for _, p := range f.rows {
		if want[p.id] {
			out[p.id] = patient.Identity{ID: p.id, PatientNumber: p.number, FirstName: p.first, LastName: p.last}
		}
	}
	return out, nil
}

type fakeLedger struct {
	records []*ledger.TransitionRecord
	err     error
}

func (f *fakeLedger) Append(_ context.Context, r *ledger.TransitionRecord) error {
	f.records = append(f.records, r)
	return nil
}

// ListAll returns newest first so callers cannot rely on insertion order.
func (f *fakeLedger) ListAll(_ context.Context) ([]*ledger.TransitionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*ledger.TransitionRecord, len(f.records))
	for i, r := range f.records {
		out[len(f.records)-1-i] = r
	}
	return out, nil
}

func (f *fakeLedger) ListInRange(_ context.Context, start, end time.Time) ([]*ledger.TransitionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*ledger.TransitionRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if inRange(f.records[i].ChangedAt, start, end) {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeLedger) ListByPatient(_ context.Context, id uuid.UUID) ([]*ledger.TransitionRecord, error) {
	var out []*ledger.TransitionRecord
	for _, r := range f.records {
		if r.PatientID == id {
			out = append(out, r)
		}
	}
	ledger.SortChronologically(out)
	return out, nil
}

func (f *fakeLedger) add(id uuid.UUID, prev *string, next string, at time.Time) {
	f.records = append(f.records, &ledger.TransitionRecord{
		ID:             uuid.New(),
		PatientID:      id,
		PreviousStatus: prev,
		NewStatus:      next,
		ChangedBy:      "admin-1",
		ChangedAt:      at,
	})
}

type fakeCatalog struct {
	defs []*status.Definition
	err  error
}

func (f *fakeCatalog) ListOrdered(_ context.Context) ([]*status.Definition, error) {
	return f.defs, f.err
}

var errStore = errors.New("connection refused")

type testEnv struct {
	patients *fakePatients
	ledger   *fakeLedger
	catalog  *fakeCatalog
	svc      *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		patients: &fakePatients{},
		ledger:   &fakeLedger{},
		catalog:  &fakeCatalog{defs: status.DefaultCatalog()},
	}
	env.svc = NewService(env.patients, env.ledger, env.catalog, "Complete")
	env.svc.SetClock(func() time.Time { return testNow })
	return env
}

func strPtr(s string) *string {
	return &s
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
