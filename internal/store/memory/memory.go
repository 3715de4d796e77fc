package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"qrbadge/api/internal/model"
)

// Store is an in-process store. A single mutex serializes all operations,
// which also makes the cascading badge delete atomic.
type Store struct {
	mu sync.Mutex

	badges   map[string]model.Badge
	accesses map[string]model.Access
	users    map[string]model.User

	// insertion order, used to break created_at ties
	seq   int64
	order map[string]int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		badges:   make(map[string]model.Badge),
		accesses: make(map[string]model.Access),
		users:    make(map[string]model.User),
		order:    make(map[string]int64),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for created_at/updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) nowUTC() time.Time {
	return s.now().UTC()
}

func (s *Store) newID() string {
	id := uuid.NewString()
	s.seq++
	s.order[id] = s.seq
	return id
}

// newerFirst orders by created_at desc, then by insertion desc.
func (s *Store) newerFirst(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return s.order[aID] > s.order[bID]
}
