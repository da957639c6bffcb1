package clinician

import (
	"context"
)

// ListFilter fields are optional exact matches combined with AND.
type ListFilter struct {
	Role  string
	Email string
}

type Repository interface {
	// Create keeps a caller-assigned ID and CreatedAt and fills them in when
	// they are zero.
	Create(ctx context.Context, c *Clinician) error
	// GetByName is an exact, case-sensitive match. ErrNotFound when absent.
	GetByName(ctx context.Context, name string) (*Clinician, error)
	List(ctx context.Context, f ListFilter) ([]*Clinician, error)
}
