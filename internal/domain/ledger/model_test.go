package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestSortChronologically(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	recs := []*TransitionRecord{
		{NewStatus: "Recovery", ChangedAt: base.Add(3 * time.Hour)},
		{NewStatus: "Checked In", ChangedAt: base},
		{NewStatus: "In-progress", ChangedAt: base.Add(time.Hour)},
	}

	SortChronologically(recs)

	want := []string{"Checked In", "In-progress", "Recovery"}
	for i, w := range want {
		if recs[i].NewStatus != w {
			t.Errorf("position %d: got %q, want %q", i, recs[i].NewStatus, w)
		}
	}
}

func TestSortChronologically_StableOnTies(t *testing.T) {
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	recs := []*TransitionRecord{
		{NewStatus: "a", ChangedAt: at},
		{NewStatus: "b", ChangedAt: at},
	}

	SortChronologically(recs)

	if recs[0].NewStatus != "a" || recs[1].NewStatus != "b" {
		t.Errorf("expected input order preserved on equal timestamps")
	}
}

func TestGroupByPatient(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	recs := []*TransitionRecord{
		{PatientID: p1, PreviousStatus: strPtr("Checked In"), NewStatus: "Complete", ChangedAt: base.Add(45 * time.Minute)},
		{PatientID: p2, NewStatus: "Checked In", ChangedAt: base.Add(5 * time.Minute)},
		{PatientID: p1, NewStatus: "Checked In", ChangedAt: base},
	}

	groups := GroupByPatient(recs)

	if len(groups) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(groups))
	}
	h := groups[p1]
	if len(h) != 2 {
		t.Fatalf("expected 2 records for p1, got %d", len(h))
	}
	if h[0].PreviousStatus != nil {
		t.Error("expected creation record first")
	}
	if h[1].NewStatus != "Complete" {
		t.Errorf("expected Complete second, got %q", h[1].NewStatus)
	}
	if len(groups[p2]) != 1 {
		t.Errorf("expected 1 record for p2, got %d", len(groups[p2]))
	}
}
