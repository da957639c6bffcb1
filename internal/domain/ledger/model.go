package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TransitionRecord is one immutable status change of a patient. The record
// written at patient creation is the only one with a nil PreviousStatus.
type TransitionRecord struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PreviousStatus *string   `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
}

// SortChronologically orders records by ChangedAt in place. Ties keep their
// input order.
func SortChronologically(records []*TransitionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ChangedAt.Before(records[j].ChangedAt)
	})
}

// GroupByPatient buckets records per patient, each bucket sorted
// chronologically.
func GroupByPatient(records []*TransitionRecord) map[uuid.UUID][]*TransitionRecord {
	groups := make(map[uuid.UUID][]*TransitionRecord)
	for _, r := range records {
		groups[r.PatientID] = append(groups[r.PatientID], r)
	}
	for _, g := range groups {
		SortChronologically(g)
	}
	return groups
}
