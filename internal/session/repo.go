// Package session stores each user's selected tier and one-time flags.
package session

import (
	"context"
	"errors"

	"upscale-bot/internal/tier"
)

// ErrInvalidTier is returned when SetTier receives a tier outside the selectable set.
var ErrInvalidTier = errors.New("invalid tier")

// Store is the per-user session store. Implementations are safe for
// concurrent use; operations on the same user are linearizable.
type Store interface {
	// GetTier returns the user's selected tier; ok is false when none was chosen.
	GetTier(ctx context.Context, userID string) (t tier.Tier, ok bool, err error)
	// SetTier records the selection. Setting the same tier twice is a no-op.
	SetTier(ctx context.Context, userID string, t tier.Tier) error
	// MarkDisclosureSeen returns true exactly once per user.
	MarkDisclosureSeen(ctx context.Context, userID string) (bool, error)
}
