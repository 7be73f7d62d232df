package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"upscale-bot/internal/tier"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) GetTier(ctx context.Context, userID string) (tier.Tier, bool, error) {
	const query = `
SELECT selected_tier
FROM user_sessions
WHERE user_id = $1
LIMIT 1`
	var raw sql.NullString
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tier.Unset, false, nil
		}
		return tier.Unset, false, err
	}
	if !raw.Valid || raw.String == "" {
		return tier.Unset, false, nil
	}
	t, err := tier.Parse(raw.String)
	if err != nil {
		return tier.Unset, false, fmt.Errorf("stored tier %q: %w", raw.String, err)
	}
	return t, true, nil
}

func (r *PGRepo) SetTier(ctx context.Context, userID string, t tier.Tier) error {
	if !t.Valid() {
		return ErrInvalidTier
	}
	const query = `
INSERT INTO user_sessions (user_id, selected_tier, created_at, updated_at)
VALUES ($1, $2, now(), now())
ON CONFLICT (user_id) DO UPDATE SET
  selected_tier = EXCLUDED.selected_tier,
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query, userID, t.String())
	return err
}

// MarkDisclosureSeen relies on the conditional upsert touching a row only
// while the flag is still false, so exactly one caller sees RowsAffected == 1.
func (r *PGRepo) MarkDisclosureSeen(ctx context.Context, userID string) (bool, error) {
	const query = `
INSERT INTO user_sessions (user_id, disclosure_seen, created_at, updated_at)
VALUES ($1, TRUE, now(), now())
ON CONFLICT (user_id) DO UPDATE SET
  disclosure_seen = TRUE,
  updated_at = now()
WHERE user_sessions.disclosure_seen = FALSE`
	res, err := r.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var _ Store = (*PGRepo)(nil)
