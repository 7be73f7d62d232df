package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"upscale-bot/internal/bootstrap"
	"upscale-bot/internal/shared/config"
	"upscale-bot/internal/shared/server"
	"upscale-bot/internal/shared/telemetry"
	"upscale-bot/internal/telegram"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	if strings.TrimSpace(cfg.BotToken) == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	bot, err := telegram.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatalf("%v", err)
	}
	adapter := telegram.NewAdapter(bot)
	orch := app.Orchestrator(adapter, adapter)
	dispatcher := app.Dispatcher(orch, adapter)

	if reporter := app.Reporter(adapter); reporter != nil {
		go reporter.Run(ctx)
	}

	router := app.Router(nil)
	if cfg.BotMode == "webhook" {
		if cfg.WebhookURL == "" || cfg.WebhookSecret == "" {
			log.Fatal("BOT_MODE=webhook requires WEBHOOK_URL and WEBHOOK_SECRET")
		}
		router = app.Router(dispatcher.WebhookHandler(ctx))
		hookURL := strings.TrimRight(cfg.WebhookURL, "/") + "/telegram/webhook/" + cfg.WebhookSecret
		if err := telegram.RegisterWebhook(bot, hookURL); err != nil {
			log.Fatalf("%v", err)
		}
	}

	srv := &http.Server{Addr: server.Addr(cfg.Port), Handler: router}
	go func() {
		log.Printf("Starting HTTP server on %s mode=%s", srv.Addr, cfg.BotMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
			stop()
		}
	}()

	if cfg.BotMode == "webhook" {
		<-ctx.Done()
	} else {
		telegram.RunPolling(ctx, bot, dispatcher)
	}

	log.Printf("shutdown requested, waiting up to %s", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	dispatcher.Wait()
	if err := app.Close(shutdownCtx); err != nil {
		log.Printf("close: %v", err)
	}
}
