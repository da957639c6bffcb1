// Package events publishes committed patient status transitions to a stream
// so wallboards and downstream consumers can react without polling.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransitionEvent mirrors a committed ledger record plus the patient number
// that status boards display.
type TransitionEvent struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PatientNumber  string    `json:"patient_number"`
	PreviousStatus *string   `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
}

type Publisher interface {
	PublishTransition(ctx context.Context, evt TransitionEvent) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishTransition(context.Context, TransitionEvent) error {
	return nil
}

func (Nop) Close() error {
	return nil
}
