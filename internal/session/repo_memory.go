package session

import (
	"context"
	"sync"
	"time"

	"upscale-bot/internal/tier"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: make(map[string]Session)}
}

func (r *MemoryRepo) GetTier(ctx context.Context, userID string) (tier.Tier, bool, error) {
	if err := ctx.Err(); err != nil {
		return tier.Unset, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	if !ok || !s.Tier.Valid() {
		return tier.Unset, false, nil
	}
	return s.Tier, true, nil
}

func (r *MemoryRepo) SetTier(ctx context.Context, userID string, t tier.Tier) error {
	if !t.Valid() {
		return ErrInvalidTier
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.load(userID)
	s.Tier = t
	s.UpdatedAt = time.Now().UTC()
	r.sessions[userID] = s
	return nil
}

func (r *MemoryRepo) MarkDisclosureSeen(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.load(userID)
	if s.DisclosureSeen {
		return false, nil
	}
	s.DisclosureSeen = true
	s.UpdatedAt = time.Now().UTC()
	r.sessions[userID] = s
	return true, nil
}

// load returns the existing session or a fresh one. Caller holds mu.
func (r *MemoryRepo) load(userID string) Session {
	s, ok := r.sessions[userID]
	if !ok {
		now := time.Now().UTC()
		s = Session{UserID: userID, CreatedAt: now, UpdatedAt: now}
	}
	return s
}

var _ Store = (*MemoryRepo)(nil)
