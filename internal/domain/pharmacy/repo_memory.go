package pharmacy

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryStore keeps records in process memory, newest first when listed.
// Records are stored by value; slices inside them are shared.
type memoryStore[T any] struct {
	mu      sync.RWMutex
	items   map[string]*T
	id      func(*T) string
	created func(*T) time.Time
}

func newMemoryStore[T any](id func(*T) string, created func(*T) time.Time) *memoryStore[T] {
	return &memoryStore[T]{items: make(map[string]*T), id: id, created: created}
}

func NewPrescriptionStoreMemory() PrescriptionStore {
	return newMemoryStore(
		func(p *Prescription) string { return p.ID },
		func(p *Prescription) time.Time { return p.CreatedAt },
	)
}

func NewOrderStoreMemory() OrderStore {
	return newMemoryStore(
		func(o *Order) string { return o.ID },
		func(o *Order) time.Time { return o.CreatedAt },
	)
}

func (s *memoryStore[T]) Create(_ context.Context, v *T) error {
	cp := *v
	s.mu.Lock()
	s.items[s.id(v)] = &cp
	s.mu.Unlock()
	return nil
}

func (s *memoryStore[T]) Get(_ context.Context, id string) (*T, error) {
	s.mu.RLock()
	v, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *memoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *memoryStore[T]) List(_ context.Context, limit, offset int) ([]*T, int, error) {
	s.mu.RLock()
	all := make([]*T, 0, len(s.items))
	for _, v := range s.items {
		cp := *v
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		ci, cj := s.created(all[i]), s.created(all[j])
		if ci.Equal(cj) {
			return s.id(all[i]) < s.id(all[j])
		}
		return ci.After(cj)
	})

	total := len(all)
	if offset >= total {
		return []*T{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (s *memoryStore[T]) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}
