package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps events in process. Used when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]Event)}
}

// Store saves e; an event with a known ID is ignored.
func (s *MemoryStore) Store(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Validate(e); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		s.events[e.ID] = e
	}
	return nil
}

func (s *MemoryStore) Summarize(ctx context.Context, from, to time.Time) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	sum := newSummary(from, to)
	users := make(map[string]struct{})

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.At.Before(from) || !e.At.Before(to) {
			continue
		}
		sum.Totals[e.Kind]++
		users[e.UserID] = struct{}{}
		if e.Kind == KindUpscaleSuccess && e.Tier != "" {
			sum.SuccessesByTier[e.Tier]++
		}
	}
	sum.UniqueUsers = len(users)
	return sum, nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Events returns a copy of the stored events.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	return out
}

var (
	_ Sink    = (*MemoryStore)(nil)
	_ Querier = (*MemoryStore)(nil)
)
