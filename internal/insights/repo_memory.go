package insights

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo used in dev and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	data  map[string]Record
	order []string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Record)}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRepo) List(ctx context.Context, match Matcher) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		rec := r.data[id]
		if match == nil || match(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListChildren(ctx context.Context, parentID string) ([]Record, error) {
	if parentID == "" {
		return []Record{}, ctx.Err()
	}
	return r.List(ctx, func(rec Record) bool { return rec.ParentID() == parentID })
}

// Save inserts or replaces rec. Replacing keeps the original position.
func (r *MemoryRepo) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[rec.ID]; !ok {
		r.order = append(r.order, rec.ID)
	}
	rec.ChildIDs = nil
	r.data[rec.ID] = rec.Clone()
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, rec Record, expectedVersion int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.data[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.CurrentVersion != expectedVersion {
		return ErrVersionConflict
	}
	rec.ChildIDs = nil
	r.data[rec.ID] = rec.Clone()
	return nil
}
