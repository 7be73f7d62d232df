package usage

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"upscale-bot/internal/shared/telemetry"
)

// Notifier delivers a text message to an operator chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Reporter periodically sends the usage report to operator chats.
type Reporter struct {
	Querier  Querier
	Notifier Notifier
	ChatIDs  []int64
	Interval time.Duration
	Clock    clockwork.Clock
}

// Run blocks until ctx is done, sending one report per interval.
func (r *Reporter) Run(ctx context.Context) {
	if len(r.ChatIDs) == 0 || r.Interval <= 0 {
		return
	}
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ticker := clock.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.SendOnce(ctx, clock.Now())
		}
	}
}

// SendOnce builds the report for now and delivers it to every chat.
func (r *Reporter) SendOnce(ctx context.Context, now time.Time) {
	report, err := BuildReport(ctx, r.Querier, now)
	if err != nil {
		telemetry.Error("usage.report_failed", map[string]any{"error": telemetry.Err(err)})
		return
	}
	text := report.Format()
	for _, chatID := range r.ChatIDs {
		if err := r.Notifier.Notify(ctx, chatID, text); err != nil {
			telemetry.Warn("usage.report_delivery_failed", map[string]any{
				"chat_id": chatID,
				"error":   telemetry.Err(err),
			})
		}
	}
	telemetry.Info("usage.report_sent", map[string]any{
		"chats":         len(r.ChatIDs),
		"day_successes": report.Day.Totals[KindUpscaleSuccess],
	})
}
