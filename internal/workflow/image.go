package workflow

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"upscale-bot/internal/jobs"
	"upscale-bot/internal/shared/metrics"
	"upscale-bot/internal/shared/storage/object"
	"upscale-bot/internal/shared/telemetry"
	"upscale-bot/internal/tier"
	"upscale-bot/internal/usage"
)

// run is the state of one upscale request.
type run struct {
	id       string
	user     User
	tier     tier.Tier
	state    State
	started  time.Time
	status   *MessageRef
	attempts int
	finished bool
}

// OnImageReceived drives one image from gate check to delivery. It returns
// the state the request ended in.
func (o *Orchestrator) OnImageReceived(ctx context.Context, u User, att Attachment) (state State) {
	defer o.guard(&state, "image_received", u)

	if !o.Gate.IsMember(ctx, u.ID) {
		o.sendJoinPrompt(ctx, u.ChatID)
		return StateAwaitingMembership
	}
	t, ok, err := o.Sessions.GetTier(ctx, sessionKey(u.ID))
	if err != nil {
		telemetry.Warn("workflow.get_tier_failed", map[string]any{
			"user_id": u.ID,
			"error":   telemetry.Err(err),
		})
	}
	if !ok || err != nil {
		o.send(ctx, u.ChatID, msgNeedTier, TierKeyboard())
		return StateAwaitingTierSelection
	}
	if !o.acquire(u.ID) {
		o.send(ctx, u.ChatID, msgBusy, nil)
		return StateBusy
	}
	defer o.release(u.ID)

	o.disclose(ctx, u)
	return o.execute(ctx, u, att, t)
}

func (o *Orchestrator) execute(ctx context.Context, u User, att Attachment, t tier.Tier) (state State) {
	r := &run{id: uuid.NewString(), user: u, tier: t, state: StateAwaitingImage, started: o.now()}
	scope := object.NewScope(o.Scratch, sessionKey(u.ID))
	defer func() {
		if err := scope.Release(context.WithoutCancel(ctx)); err != nil {
			telemetry.Warn("workflow.scratch_release_failed", map[string]any{
				"run_id": r.id,
				"error":  telemetry.Err(err),
			})
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			telemetry.Error("workflow.panic", map[string]any{
				"handler": "image_received",
				"run_id":  r.id,
				"user_id": u.ID,
				"panic":   fmt.Sprint(p),
			})
			state = o.finish(ctx, r, fmt.Errorf("%w: %v", errPanic, p))
		}
	}()

	err := o.process(ctx, r, scope, att)
	return o.finish(ctx, r, err)
}

func (o *Orchestrator) process(ctx context.Context, r *run, scope *object.Scope, att Attachment) error {
	o.transition(r, StateUploading)
	if ref, err := o.Transport.SendText(ctx, r.user.ChatID, msgUploading, nil); err != nil {
		telemetry.Warn("workflow.progress_failed", map[string]any{
			"run_id": r.id,
			"error":  telemetry.Err(err),
		})
	} else {
		r.status = &ref
	}

	source, err := o.stageSource(ctx, scope, att)
	if err != nil {
		return &SourceError{Err: err}
	}
	job, err := o.Jobs.Submit(ctx, source, r.tier)
	if err != nil {
		return err
	}

	o.transition(r, StatePolling)
	o.progress(ctx, r, msgProcessing)
	job, err = o.Poller.Run(ctx, job, func(j jobs.Job) {
		o.progress(ctx, r, progressText(j.Attempt, j.MaxAttempts))
	})
	r.attempts = job.Attempt
	if err != nil {
		return err
	}

	o.transition(r, StateDelivering)
	o.progress(ctx, r, msgDownloading)
	result, err := o.Jobs.Fetch(ctx, job.ResultRef)
	if err != nil {
		return err
	}
	ext := jobs.Extension(result)
	name := o.resultFileName(r.tier, ext)
	staged, err := scope.Put(ctx, name, bytes.NewReader(result.Bytes))
	result.Bytes = nil
	if err != nil {
		return &DeliveryError{Err: err}
	}
	data, err := scope.ReadAll(ctx, staged)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	doc := Document{FileName: name, Bytes: data, Caption: resultCaption(r.tier, ext)}
	if err := o.Transport.SendDocument(ctx, r.user.ChatID, doc); err != nil {
		return &DeliveryError{Err: err}
	}
	return nil
}

func (o *Orchestrator) stageSource(ctx context.Context, scope *object.Scope, att Attachment) ([]byte, error) {
	rc, err := o.Transport.FetchAttachment(ctx, att)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	name := att.FileName
	if name == "" {
		name = "source.jpg"
	}
	obj, err := scope.Put(ctx, name, rc)
	if err != nil {
		return nil, err
	}
	return scope.ReadAll(ctx, obj)
}

// finish emits the single terminal message, usage event and metrics for r.
func (o *Orchestrator) finish(ctx context.Context, r *run, err error) State {
	if r.finished {
		return r.state
	}
	r.finished = true
	ctx = context.WithoutCancel(ctx)
	elapsed := o.now().Sub(r.started)

	fields := map[string]any{
		"run_id":      r.id,
		"user_id":     r.user.ID,
		"tier":        r.tier.String(),
		"attempts":    r.attempts,
		"duration_ms": elapsed.Milliseconds(),
	}
	metrics.IncUpscale(outcome(err))

	if err == nil {
		o.transition(r, StateDone)
		o.clearStatus(ctx, r)
		o.record(r.user.ID, usage.KindUpscaleSuccess, r.tier)
		metrics.ObserveUpscaleDuration(r.tier.String(), elapsed.Seconds())
		telemetry.Info("workflow.done", fields)
		return StateDone
	}

	o.transition(r, StateFailed)
	o.clearStatus(ctx, r)
	o.send(ctx, r.user.ChatID, failureText(err), nil)
	o.record(r.user.ID, usage.KindUpscaleFailure, r.tier)
	fields["error"] = telemetry.Err(err)
	telemetry.Warn("workflow.failed", fields)
	return StateFailed
}

func (o *Orchestrator) transition(r *run, next State) {
	telemetry.Info("workflow.transition", map[string]any{
		"run_id": r.id,
		"from":   string(r.state),
		"to":     string(next),
	})
	r.state = next
}

// progress edits the status message. Failures never affect the run.
func (o *Orchestrator) progress(ctx context.Context, r *run, text string) {
	if r.status == nil {
		return
	}
	if err := o.Transport.EditText(ctx, *r.status, text, nil); err != nil {
		telemetry.Warn("workflow.progress_failed", map[string]any{
			"run_id": r.id,
			"error":  telemetry.Err(err),
		})
	}
}

func (o *Orchestrator) clearStatus(ctx context.Context, r *run) {
	if r.status == nil {
		return
	}
	if err := o.Transport.DeleteMessage(ctx, *r.status); err != nil {
		telemetry.Warn("workflow.status_delete_failed", map[string]any{
			"run_id": r.id,
			"error":  telemetry.Err(err),
		})
	}
	r.status = nil
}
