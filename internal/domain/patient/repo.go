package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts p. A patient number collision yields ErrNumberTaken and
	// leaves any enclosing transaction usable.
	Create(ctx context.Context, p *Patient) error
	GetByNumber(ctx context.Context, number string) (*Patient, error)
	// GetByNumberForUpdate locks the row until the enclosing transaction ends.
	GetByNumberForUpdate(ctx context.Context, number string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, limit, offset int) ([]*PatientSummary, int, error)
	Search(ctx context.Context, f SearchFilter) ([]*Patient, error)
	CountStats(ctx context.Context, terminalStatus string, dayStart, dayEnd time.Time) (*Stats, error)

	// Read side used by analytics. Windows are inclusive on both ends.
	ListScheduledBetween(ctx context.Context, start, end time.Time) ([]*PatientSummary, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error)
	CountActiveCreatedBetween(ctx context.Context, terminalStatus string, start, end time.Time) (int, error)
	ListActiveNumbers(ctx context.Context, terminalStatus string, createdBefore time.Time) ([]string, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	ListIdentities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Identity, error)
}
