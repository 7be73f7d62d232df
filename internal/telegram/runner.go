package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"

	"upscale-bot/internal/shared/server/respond"
	"upscale-bot/internal/shared/telemetry"
)

// NewBot authenticates against the Bot API.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	telemetry.Info("telegram.authorized", map[string]any{"username": bot.Self.UserName})
	return bot, nil
}

// RunPolling long-polls for updates until ctx is done, then waits for
// in-flight updates to finish.
func RunPolling(ctx context.Context, bot *tgbotapi.BotAPI, d *Dispatcher) {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		telemetry.Warn("telegram.delete_webhook_failed", map[string]any{"error": telemetry.Err(err)})
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := bot.GetUpdatesChan(cfg)
	telemetry.Info("telegram.polling_started", nil)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			d.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				d.Wait()
				return
			}
			d.Go(ctx, update)
		}
	}
}

// RegisterWebhook points Telegram at url.
func RegisterWebhook(bot *tgbotapi.BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	telemetry.Info("telegram.webhook_registered", nil)
	return nil
}

// WebhookHandler accepts updates posted by Telegram. Each update is handled
// in the background under ctx so the call returns immediately.
func (d *Dispatcher) WebhookHandler(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_update", "invalid update payload", nil)
			return
		}
		c.Set("updateId", update.UpdateID)
		d.Go(ctx, update)
		respond.Ack(c)
	}
}
