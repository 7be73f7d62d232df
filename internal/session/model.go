package session

import (
	"time"

	"upscale-bot/internal/tier"
)

// Session is a user's persisted workflow preferences.
type Session struct {
	UserID         string
	Tier           tier.Tier
	DisclosureSeen bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
