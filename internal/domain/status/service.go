package status

import (
	"context"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListOrdered never returns nil; an unseeded catalog yields an empty slice.
func (s *Service) ListOrdered(ctx context.Context) ([]*Definition, error) {
	defs, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	if defs == nil {
		defs = []*Definition{}
	}
	return defs, nil
}

// Lookup indexes the catalog by status code.
func (s *Service) Lookup(ctx context.Context) (map[string]*Definition, error) {
	defs, err := s.ListOrdered(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]*Definition, len(defs))
	for _, d := range defs {
		m[d.Status] = d
	}
	return m, nil
}

// Exists reports whether code is a catalog status. Matching is exact, like the
// foreign key on patient.status.
func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	m, err := s.Lookup(ctx)
	if err != nil {
		return false, err
	}
	_, ok := m[code]
	return ok, nil
}
