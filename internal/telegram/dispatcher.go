package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"upscale-bot/internal/jobs"
	"upscale-bot/internal/shared/telemetry"
	"upscale-bot/internal/tier"
	"upscale-bot/internal/usage"
	"upscale-bot/internal/workflow"
)

// Workflow is the set of handlers updates are routed to.
type Workflow interface {
	OnImageReceived(ctx context.Context, u workflow.User, att workflow.Attachment) workflow.State
	OnTierChosen(ctx context.Context, u workflow.User, in workflow.Interaction, data string) workflow.State
	OnMembershipRecheckRequested(ctx context.Context, u workflow.User, in workflow.Interaction) workflow.State
	OnSessionReset(ctx context.Context, u workflow.User) workflow.State
	OnHelp(ctx context.Context, u workflow.User) workflow.State
	OnText(ctx context.Context, u workflow.User) workflow.State
	OnNonImageDocument(ctx context.Context, u workflow.User) workflow.State
}

// Dispatcher routes updates to the workflow, one goroutine per update.
type Dispatcher struct {
	Workflow Workflow
	// Reports and Notifier serve /stats; both may be nil.
	Reports  usage.Querier
	Notifier usage.Notifier
	IsAdmin  func(userID int64) bool
	Now      func() time.Time

	wg sync.WaitGroup
}

// Go handles update in the background.
func (d *Dispatcher) Go(ctx context.Context, update tgbotapi.Update) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				telemetry.Error("telegram.dispatch_panic", map[string]any{
					"update_id": update.UpdateID,
					"panic":     fmt.Sprint(p),
				})
			}
		}()
		d.Dispatch(ctx, update)
	}()
}

// Wait blocks until every update started with Go has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Dispatch handles update synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		d.dispatchCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		d.dispatchMessage(ctx, update.Message)
	}
}

func (d *Dispatcher) dispatchCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil {
		return
	}
	u := workflow.User{ID: cq.From.ID, ChatID: cq.From.ID}
	in := workflow.Interaction{ID: cq.ID}
	if cq.Message != nil && cq.Message.Chat != nil {
		u.ChatID = cq.Message.Chat.ID
		in.Message = workflow.MessageRef{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}
	}

	switch {
	case cq.Data == workflow.CallbackCheckMembership:
		d.Workflow.OnMembershipRecheckRequested(ctx, u, in)
	case strings.HasPrefix(cq.Data, tier.CallbackPrefix):
		d.Workflow.OnTierChosen(ctx, u, in, cq.Data)
	default:
		telemetry.Warn("telegram.unknown_callback", map[string]any{
			"user_id": u.ID,
			"data":    cq.Data,
		})
	}
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil {
		return
	}
	u := workflow.User{ID: m.From.ID, ChatID: m.Chat.ID}

	switch {
	case m.IsCommand():
		d.dispatchCommand(ctx, u, m.Command())
	case len(m.Photo) > 0:
		d.Workflow.OnImageReceived(ctx, u, largestPhoto(m.Photo))
	case m.Document != nil:
		if !jobs.IsImageMIME(m.Document.MimeType) {
			d.Workflow.OnNonImageDocument(ctx, u)
			return
		}
		d.Workflow.OnImageReceived(ctx, u, workflow.Attachment{
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			MimeType: m.Document.MimeType,
			Size:     int64(m.Document.FileSize),
		})
	case m.Text != "":
		d.Workflow.OnText(ctx, u)
	}
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, u workflow.User, cmd string) {
	switch cmd {
	case "start":
		d.Workflow.OnSessionReset(ctx, u)
	case "help":
		d.Workflow.OnHelp(ctx, u)
	case "stats":
		if d.IsAdmin != nil && d.IsAdmin(u.ID) && d.Reports != nil && d.Notifier != nil {
			d.sendStats(ctx, u)
			return
		}
		d.Workflow.OnText(ctx, u)
	default:
		d.Workflow.OnText(ctx, u)
	}
}

func (d *Dispatcher) sendStats(ctx context.Context, u workflow.User) {
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	text := "⚠️ Could not build the usage report."
	report, err := usage.BuildReport(ctx, d.Reports, now)
	if err != nil {
		telemetry.Error("telegram.stats_failed", map[string]any{
			"user_id": u.ID,
			"error":   telemetry.Err(err),
		})
	} else {
		text = report.Format()
	}
	if err := d.Notifier.Notify(ctx, u.ChatID, text); err != nil {
		telemetry.Warn("telegram.stats_delivery_failed", map[string]any{
			"user_id": u.ID,
			"error":   telemetry.Err(err),
		})
	}
}

// largestPhoto picks the biggest rendition Telegram offers.
func largestPhoto(sizes []tgbotapi.PhotoSize) workflow.Attachment {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return workflow.Attachment{
		FileID:   best.FileID,
		FileName: "photo.jpg",
		MimeType: "image/jpeg",
		Size:     int64(best.FileSize),
	}
}
