// Package workflow drives a user's interactions from the membership gate
// through tier selection to a delivered (or failed) upscale.
package workflow

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"upscale-bot/internal/jobs"
	"upscale-bot/internal/session"
	"upscale-bot/internal/shared/storage/object"
	"upscale-bot/internal/shared/telemetry"
	"upscale-bot/internal/tier"
	"upscale-bot/internal/usage"
)

// Orchestrator handles the four interaction kinds plus the supplementary
// help, text and document replies. Handlers may run concurrently; a user
// has at most one upscale in flight.
type Orchestrator struct {
	Transport Transport
	Gate      Gate
	Sessions  session.Store
	Jobs      jobs.Client
	Poller    *jobs.Poller
	Usage     usage.Recorder
	Scratch   object.ScratchStore

	// Channel is the group users must join, e.g. "@WallSwipe".
	Channel string
	// Brand names the bot in the welcome text and prefixes result files.
	Brand string
	Now   func() time.Time

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func sessionKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// acquire claims the user's in-flight slot.
func (o *Orchestrator) acquire(userID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight == nil {
		o.inFlight = make(map[int64]struct{})
	}
	if _, busy := o.inFlight[userID]; busy {
		return false
	}
	o.inFlight[userID] = struct{}{}
	return true
}

func (o *Orchestrator) release(userID int64) {
	o.mu.Lock()
	delete(o.inFlight, userID)
	o.mu.Unlock()
}

func (o *Orchestrator) record(userID int64, kind usage.Kind, t tier.Tier) {
	if o.Usage == nil {
		return
	}
	e := usage.Event{UserID: sessionKey(userID), Kind: kind, At: o.now().UTC()}
	if t.Valid() {
		e.Tier = t.String()
	}
	o.Usage.Record(e)
}

// guard isolates a panicking handler from the rest of the process.
func (o *Orchestrator) guard(state *State, handler string, u User) {
	p := recover()
	if p == nil {
		return
	}
	telemetry.Error("workflow.panic", map[string]any{
		"handler": handler,
		"user_id": u.ID,
		"panic":   fmt.Sprint(p),
	})
	*state = StateFailed
}

func (o *Orchestrator) send(ctx context.Context, chatID int64, text string, kb Keyboard) {
	if _, err := o.Transport.SendText(ctx, chatID, text, kb); err != nil {
		telemetry.Warn("workflow.send_failed", map[string]any{
			"chat_id": chatID,
			"error":   telemetry.Err(err),
		})
	}
}

func (o *Orchestrator) edit(ctx context.Context, ref MessageRef, text string, kb Keyboard) {
	if err := o.Transport.EditText(ctx, ref, text, kb); err != nil {
		telemetry.Warn("workflow.edit_failed", map[string]any{
			"chat_id":    ref.ChatID,
			"message_id": ref.MessageID,
			"error":      telemetry.Err(err),
		})
	}
}

func (o *Orchestrator) answer(ctx context.Context, interactionID, text string, alert bool) {
	if err := o.Transport.AnswerInteraction(ctx, interactionID, text, alert); err != nil {
		telemetry.Warn("workflow.answer_failed", map[string]any{
			"interaction_id": interactionID,
			"error":          telemetry.Err(err),
		})
	}
}

func (o *Orchestrator) sendJoinPrompt(ctx context.Context, chatID int64) {
	text, kb := o.joinPrompt()
	o.send(ctx, chatID, text, kb)
}

// disclose shows the one-time processing notice the first time it is
// reached for a user.
func (o *Orchestrator) disclose(ctx context.Context, u User) {
	first, err := o.Sessions.MarkDisclosureSeen(ctx, sessionKey(u.ID))
	if err != nil {
		telemetry.Warn("workflow.disclosure_failed", map[string]any{
			"user_id": u.ID,
			"error":   telemetry.Err(err),
		})
		return
	}
	if first {
		o.send(ctx, u.ChatID, msgDisclosure, nil)
	}
}
