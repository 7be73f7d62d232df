package main

// Persist usage events published to SQS by the bot:
//   USAGE_SQS_QUEUE_URL=... DATABASE_URL=... go run ./cmd/worker

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"upscale-bot/internal/shared/config"
	"upscale-bot/internal/shared/storage/db"
	"upscale-bot/internal/shared/telemetry"
	"upscale-bot/internal/usage"
	"upscale-bot/internal/workerproc"
)

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	if strings.TrimSpace(cfg.UsageQueue) == "" {
		log.Fatal("USAGE_SQS_QUEUE_URL is required")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions(db.RoleWorker)))
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer sqlDB.Close()
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	consumer := &workerproc.Consumer{
		Client:      sqs.NewFromConfig(awsCfg),
		QueueURL:    cfg.UsageQueue,
		Sink:        usage.NewPGStore(sqlDB),
		Concurrency: cfg.WorkerConcurrency,
		Visibility:  cfg.WorkerVisibility,
	}
	if err := consumer.Run(ctx, cfg.WorkerShutdownGrace); err != nil {
		if errors.Is(err, workerproc.ErrDrainTimeout) {
			telemetry.Warn("worker.drain_timeout", map[string]any{"grace": cfg.WorkerShutdownGrace.String()})
			return
		}
		log.Fatalf("worker: %v", err)
	}
	telemetry.Info("worker.stopped", nil)
}
