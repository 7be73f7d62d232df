package usage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Querier is the read side over stored events.
type Querier interface {
	Summarize(ctx context.Context, from, to time.Time) (Summary, error)
}

// Period is a reporting window anchored to UTC calendar boundaries.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day" or "month"; empty means day.
func ParsePeriod(raw string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "day", "daily", "today":
		return PeriodDay, nil
	case "month", "monthly":
		return PeriodMonth, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Window returns [from, to) for the period containing now.
func (p Period) Window(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	switch p {
	case PeriodMonth:
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0)
	default:
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 0, 1)
	}
}

// Report is the daily and monthly rollup shown to operators.
type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Day         Summary   `json:"day"`
	Month       Summary   `json:"month"`
}

// SummarizePeriod summarizes the period containing now.
func SummarizePeriod(ctx context.Context, q Querier, p Period, now time.Time) (Summary, error) {
	from, to := p.Window(now)
	return q.Summarize(ctx, from, to)
}

// BuildReport gathers the day and month summaries for now.
func BuildReport(ctx context.Context, q Querier, now time.Time) (Report, error) {
	day, err := SummarizePeriod(ctx, q, PeriodDay, now)
	if err != nil {
		return Report{}, fmt.Errorf("daily summary: %w", err)
	}
	month, err := SummarizePeriod(ctx, q, PeriodMonth, now)
	if err != nil {
		return Report{}, fmt.Errorf("monthly summary: %w", err)
	}
	return Report{GeneratedAt: now.UTC(), Day: day, Month: month}, nil
}

// Format renders the report as a chat message.
func (r Report) Format() string {
	var b strings.Builder
	b.WriteString("📊 Usage report\n\n")
	writeSummary(&b, "Today", r.Day)
	b.WriteString("\n")
	writeSummary(&b, "This month", r.Month)
	return strings.TrimRight(b.String(), "\n")
}

func writeSummary(b *strings.Builder, title string, s Summary) {
	fmt.Fprintf(b, "%s (%s):\n", title, s.From.Format("2006-01-02"))
	fmt.Fprintf(b, "• Users: %d\n", s.UniqueUsers)
	fmt.Fprintf(b, "• Starts: %d\n", s.Totals[KindStart])
	fmt.Fprintf(b, "• Tier changes: %d\n", s.Totals[KindTierChange])
	fmt.Fprintf(b, "• Upscales: %d ok / %d failed\n", s.Totals[KindUpscaleSuccess], s.Totals[KindUpscaleFailure])
	if len(s.SuccessesByTier) > 0 {
		tiers := make([]string, 0, len(s.SuccessesByTier))
		for t := range s.SuccessesByTier {
			tiers = append(tiers, t)
		}
		sort.Strings(tiers)
		parts := make([]string, 0, len(tiers))
		for _, t := range tiers {
			parts = append(parts, fmt.Sprintf("%s %d", t, s.SuccessesByTier[t]))
		}
		fmt.Fprintf(b, "• By tier: %s\n", strings.Join(parts, ", "))
	}
}
