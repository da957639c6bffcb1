package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the append-only store of transition records. It performs no
// business validation; callers decide when a transition happened.
type Repository interface {
	Append(ctx context.Context, r *TransitionRecord) error
	// ListAll and ListInRange make no ordering promise.
	ListAll(ctx context.Context) ([]*TransitionRecord, error)
	// ListInRange is inclusive on both ends.
	ListInRange(ctx context.Context, start, end time.Time) ([]*TransitionRecord, error)
	// ListByPatient returns the patient's history oldest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*TransitionRecord, error)
}
