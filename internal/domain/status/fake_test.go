package status

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type fakeRepo struct {
	mu        sync.Mutex
	defs      []*Definition
	listCalls int
	err       error
	// insertFailAt makes InsertAll fail on that row, after the earlier rows
	// were written, the way a dropped connection would.
	insertFailAt int
}

func newFakeRepo(defs ...*Definition) *fakeRepo {
	return &fakeRepo{defs: defs}
}

func (f *fakeRepo) ListOrdered(_ context.Context) ([]*Definition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*Definition, len(f.defs))
	copy(out, f.defs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (f *fakeRepo) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.defs), f.err
}

func (f *fakeRepo) InsertAll(_ context.Context, defs []*Definition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range defs {
		if f.insertFailAt > 0 && i+1 == f.insertFailAt {
			return errors.New("connection reset")
		}
		for _, existing := range f.defs {
			if existing.Status == d.Status {
				return errors.New("duplicate status")
			}
		}
		f.defs = append(f.defs, d)
	}
	return nil
}

// fakeTx snapshots the repo and restores it when the unit of work fails.
type fakeTx struct {
	repo *fakeRepo
	runs int
}

func (t *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.runs++
	t.repo.mu.Lock()
	snapshot := append([]*Definition(nil), t.repo.defs...)
	t.repo.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.repo.mu.Lock()
		t.repo.defs = snapshot
		t.repo.mu.Unlock()
		return err
	}
	return nil
}
