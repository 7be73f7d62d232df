package usage

import (
	"context"
	"database/sql"
	"time"
)

type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

// Store inserts e. Redelivered events with the same ID are ignored.
func (s *PGStore) Store(ctx context.Context, e Event) error {
	if err := Validate(e); err != nil {
		return err
	}
	const query = `
INSERT INTO usage_events (id, user_id, kind, tier, occurred_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`
	_, err := s.DB.ExecContext(ctx, query, e.ID, e.UserID, string(e.Kind), nullableString(e.Tier), e.At.UTC())
	return err
}

func (s *PGStore) Summarize(ctx context.Context, from, to time.Time) (Summary, error) {
	sum := newSummary(from, to)

	rows, err := s.DB.QueryContext(ctx, `
SELECT kind, COUNT(*)
FROM usage_events
WHERE occurred_at >= $1 AND occurred_at < $2
GROUP BY kind`, from.UTC(), to.UTC())
	if err != nil {
		return Summary{}, err
	}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			rows.Close()
			return Summary{}, err
		}
		sum.Totals[Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Summary{}, err
	}
	rows.Close()

	if err := s.DB.QueryRowContext(ctx, `
SELECT COUNT(DISTINCT user_id)
FROM usage_events
WHERE occurred_at >= $1 AND occurred_at < $2`, from.UTC(), to.UTC()).Scan(&sum.UniqueUsers); err != nil {
		return Summary{}, err
	}

	tierRows, err := s.DB.QueryContext(ctx, `
SELECT tier, COUNT(*)
FROM usage_events
WHERE occurred_at >= $1 AND occurred_at < $2 AND kind = $3 AND tier IS NOT NULL
GROUP BY tier`, from.UTC(), to.UTC(), string(KindUpscaleSuccess))
	if err != nil {
		return Summary{}, err
	}
	defer tierRows.Close()
	for tierRows.Next() {
		var t string
		var n int
		if err := tierRows.Scan(&t, &n); err != nil {
			return Summary{}, err
		}
		sum.SuccessesByTier[t] = n
	}
	if err := tierRows.Err(); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var (
	_ Sink    = (*PGStore)(nil)
	_ Querier = (*PGStore)(nil)
)
