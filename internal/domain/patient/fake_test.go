package patient

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/periop/statusboard/internal/domain/clinician"
	"github.com/periop/statusboard/internal/domain/ledger"
)

// memStore backs the fake repositories. memTx snapshots it per transaction
// and restores the snapshot when the transaction fails.
type memStore struct {
	mu         sync.Mutex
	patients   map[uuid.UUID]Patient
	records    []ledger.TransitionRecord
	clinicians []*clinician.Clinician

	appendErr error
	createErr error
}

func newMemStore() *memStore {
	return &memStore{patients: make(map[uuid.UUID]Patient)}
}

func (s *memStore) ledgerFor(id uuid.UUID) []ledger.TransitionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.TransitionRecord
	for _, r := range s.records {
		if r.PatientID == id {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) byNumber(number string) (Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if p.PatientNumber == number {
			return p, true
		}
	}
	return Patient{}, false
}

type memTx struct {
	store *memStore
	mu    sync.Mutex
	runs  int
}

type txKey struct{}

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs++

	t.store.mu.Lock()
	patients := make(map[uuid.UUID]Patient, len(t.store.patients))
	for k, v := range t.store.patients {
		patients[k] = v
	}
	records := append([]ledger.TransitionRecord(nil), t.store.records...)
	t.store.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.store.mu.Lock()
		t.store.patients = patients
		t.store.records = records
		t.store.mu.Unlock()
		return err
	}
	return nil
}

type fakePatientRepo struct {
	s *memStore
}

func (r *fakePatientRepo) Create(_ context.Context, p *Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return r.s.createErr
	}
	for _, existing := range r.s.patients {
		if existing.PatientNumber == p.PatientNumber {
			return ErrNumberTaken
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.s.patients[p.ID] = *p
	return nil
}

func (r *fakePatientRepo) GetByNumber(_ context.Context, number string) (*Patient, error) {
	p, ok := r.s.byNumber(number)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *fakePatientRepo) GetByNumberForUpdate(ctx context.Context, number string) (*Patient, error) {
	return r.GetByNumber(ctx, number)
}

func (r *fakePatientRepo) Update(_ context.Context, p *Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.patients[p.ID]; !ok {
		return ErrNotFound
	}
	r.s.patients[p.ID] = *p
	return nil
}

func (r *fakePatientRepo) sorted() []Patient {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]Patient, 0, len(r.s.patients))
	for _, p := range r.s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].PatientNumber < out[j].PatientNumber
	})
	return out
}

func toSummary(p Patient) *PatientSummary {
	return &PatientSummary{
		PatientNumber: p.PatientNumber,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Status:        p.Status,
		Email:         p.Email,
		Phone:         p.Phone,
		RoomNo:        p.RoomNo,
		Procedure:     p.Procedure,
		ScheduledTime: p.ScheduledTime,
		SurgeonName:   p.SurgeonName,
		CreatedAt:     p.CreatedAt,
	}
}

func (r *fakePatientRepo) List(_ context.Context, limit, offset int) ([]*PatientSummary, int, error) {
	all := r.sorted()
	var out []*PatientSummary
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, toSummary(all[i]))
	}
	return out, len(all), nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (r *fakePatientRepo) Search(_ context.Context, f SearchFilter) ([]*Patient, error) {
	var out []*Patient
	for _, p := range r.sorted() {
		p := p
		if f.Name != "" && !containsFold(p.FirstName, f.Name) && !containsFold(p.LastName, f.Name) &&
			!containsFold(p.FirstName+" "+p.LastName, f.Name) {
			continue
		}
		if f.Status != "" && !containsFold(p.Status, f.Status) {
			continue
		}
		if f.ScheduledDate != nil && p.ScheduledTime.Format("2006-01-02") != f.ScheduledDate.Format("2006-01-02") {
			continue
		}
		if f.SurgeonName != "" && (p.SurgeonName == nil || !containsFold(*p.SurgeonName, f.SurgeonName)) {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

func between(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (r *fakePatientRepo) CountStats(_ context.Context, terminal string, dayStart, dayEnd time.Time) (*Stats, error) {
	var st Stats
	for _, p := range r.sorted() {
		st.Total++
		if p.Status != terminal {
			st.Active++
		}
		if between(p.ScheduledTime, dayStart, dayEnd) {
			st.ScheduledToday++
		}
	}
	return &st, nil
}

func (r *fakePatientRepo) ListScheduledBetween(_ context.Context, start, end time.Time) ([]*PatientSummary, error) {
	var out []*PatientSummary
	for _, p := range r.sorted() {
		if between(p.ScheduledTime, start, end) {
			out = append(out, toSummary(p))
		}
	}
	return out, nil
}

func (r *fakePatientRepo) CountCreatedBetween(_ context.Context, start, end time.Time) (int, error) {
	n := 0
	for _, p := range r.sorted() {
		if between(p.CreatedAt, start, end) {
			n++
		}
	}
	return n, nil
}

func (r *fakePatientRepo) CountActiveCreatedBetween(_ context.Context, terminal string, start, end time.Time) (int, error) {
	n := 0
	for _, p := range r.sorted() {
		if p.Status != terminal && between(p.CreatedAt, start, end) {
			n++
		}
	}
	return n, nil
}

func (r *fakePatientRepo) ListActiveNumbers(_ context.Context, terminal string, createdBefore time.Time) ([]string, error) {
	var out []string
	for _, p := range r.sorted() {
		if p.Status != terminal && !p.CreatedAt.After(createdBefore) {
			out = append(out, p.PatientNumber)
		}
	}
	return out, nil
}

func (r *fakePatientRepo) CountByStatus(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, p := range r.sorted() {
		counts[p.Status]++
	}
	return counts, nil
}

func (r *fakePatientRepo) ListIdentities(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uuid.UUID]Identity)
	for _, id := range ids {
		if p, ok := r.s.patients[id]; ok {
			out[id] = Identity{ID: id, PatientNumber: p.PatientNumber, FirstName: p.FirstName, LastName: p.LastName}
		}
	}
	return out, nil
}

type fakeLedgerRepo struct {
	s *memStore
}

func (r *fakeLedgerRepo) Append(_ context.Context, rec *ledger.TransitionRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.appendErr != nil {
		return r.s.appendErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	r.s.records = append(r.s.records, *rec)
	return nil
}

func (r *fakeLedgerRepo) list(keep func(ledger.TransitionRecord) bool) []*ledger.TransitionRecord {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.TransitionRecord
	for _, rec := range r.s.records {
		rec := rec
		if keep(rec) {
			out = append(out, &rec)
		}
	}
	return out
}

func (r *fakeLedgerRepo) ListAll(_ context.Context) ([]*ledger.TransitionRecord, error) {
	return r.list(func(ledger.TransitionRecord) bool { return true }), nil
}

func (r *fakeLedgerRepo) ListInRange(_ context.Context, start, end time.Time) ([]*ledger.TransitionRecord, error) {
	return r.list(func(rec ledger.TransitionRecord) bool { return between(rec.ChangedAt, start, end) }), nil
}

func (r *fakeLedgerRepo) ListByPatient(_ context.Context, id uuid.UUID) ([]*ledger.TransitionRecord, error) {
	out := r.list(func(rec ledger.TransitionRecord) bool { return rec.PatientID == id })
	ledger.SortChronologically(out)
	return out, nil
}

type fakeClinicianRepo struct {
	s *memStore
}

func (r *fakeClinicianRepo) Create(_ context.Context, c *clinician.Clinician) error {
	c.ID = uuid.New()
	r.s.clinicians = append(r.s.clinicians, c)
	return nil
}

func (r *fakeClinicianRepo) GetByName(_ context.Context, name string) (*clinician.Clinician, error) {
	for _, c := range r.s.clinicians {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, clinician.ErrNotFound
}

func (r *fakeClinicianRepo) List(_ context.Context, _ clinician.ListFilter) ([]*clinician.Clinician, error) {
	return r.s.clinicians, nil
}

type fakeCatalog map[string]bool

func (f fakeCatalog) Exists(_ context.Context, code string) (bool, error) {
	return f[code], nil
}
