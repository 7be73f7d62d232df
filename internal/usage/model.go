package usage

import "time"

// Kind classifies a usage event.
type Kind string

const (
	KindStart          Kind = "start"
	KindTierChange     Kind = "tier_change"
	KindUpscaleSuccess Kind = "upscale_success"
	KindUpscaleFailure Kind = "upscale_failure"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{KindStart, KindTierChange, KindUpscaleSuccess, KindUpscaleFailure}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is one immutable usage fact.
type Event struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Kind   Kind      `json:"kind"`
	Tier   string    `json:"tier,omitempty"`
	At     time.Time `json:"at"`
}

// Summary aggregates events in [From, To).
type Summary struct {
	From            time.Time      `json:"from"`
	To              time.Time      `json:"to"`
	Totals          map[Kind]int   `json:"totals"`
	UniqueUsers     int            `json:"uniqueUsers"`
	SuccessesByTier map[string]int `json:"successesByTier"`
}

func newSummary(from, to time.Time) Summary {
	totals := make(map[Kind]int, len(Kinds))
	for _, k := range Kinds {
		totals[k] = 0
	}
	return Summary{
		From:            from,
		To:              to,
		Totals:          totals,
		SuccessesByTier: make(map[string]int),
	}
}
