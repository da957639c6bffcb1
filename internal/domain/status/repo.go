package status

import "context"

type Repository interface {
	// ListOrdered returns every definition sorted ascending by OrderIndex.
	ListOrdered(ctx context.Context) ([]*Definition, error)
	Count(ctx context.Context) (int, error)
	// InsertAll provisions the catalog. Only the seed command calls it.
	InsertAll(ctx context.Context, defs []*Definition) error
}
