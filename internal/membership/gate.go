// Package membership decides whether a user may use the bot.
package membership

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"upscale-bot/internal/shared/metrics"
	"upscale-bot/internal/shared/telemetry"
)

// Checker looks up a user's membership in a group. Implemented by the transport.
type Checker interface {
	IsMemberOfGroup(ctx context.Context, userID int64, group string) (bool, error)
}

// GateCheckError wraps a failed membership lookup.
type GateCheckError struct {
	UserID int64
	Group  string
	Err    error
}

func (e *GateCheckError) Error() string {
	return fmt.Sprintf("membership check user=%d group=%s: %v", e.UserID, e.Group, e.Err)
}

func (e *GateCheckError) Unwrap() error { return e.Err }

// Gate is the live membership predicate. Nothing is cached: concurrent
// lookups for the same user share one transport call, later calls make a
// new one. Lookup failures deny access.
type Gate struct {
	Checker Checker
	Group   string

	flight singleflight.Group
}

// IsMember reports whether userID belongs to the configured group.
func (g *Gate) IsMember(ctx context.Context, userID int64) bool {
	ok, err := g.Check(ctx, userID)
	if err != nil {
		telemetry.Warn("membership.check_failed", map[string]any{
			"user_id": userID,
			"group":   g.Group,
			"error":   telemetry.Err(err),
		})
		return false
	}
	return ok
}

// Check is IsMember with the lookup error exposed as a *GateCheckError.
func (g *Gate) Check(ctx context.Context, userID int64) (bool, error) {
	v, err, _ := g.flight.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return g.Checker.IsMemberOfGroup(ctx, userID, g.Group)
	})
	if err != nil {
		metrics.IncMembershipCheck("error")
		return false, &GateCheckError{UserID: userID, Group: g.Group, Err: err}
	}
	ok := v.(bool)
	if ok {
		metrics.IncMembershipCheck("member")
	} else {
		metrics.IncMembershipCheck("non_member")
	}
	return ok, nil
}
