package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"upscale-bot/internal/jobs"
	"upscale-bot/internal/membership"
	"upscale-bot/internal/queue"
	"upscale-bot/internal/session"
	"upscale-bot/internal/shared/config"
	"upscale-bot/internal/shared/server"
	"upscale-bot/internal/shared/storage/db"
	"upscale-bot/internal/shared/storage/object"
	localstore "upscale-bot/internal/shared/storage/object/local"
	s3store "upscale-bot/internal/shared/storage/object/s3"
	"upscale-bot/internal/telegram"
	"upscale-bot/internal/usage"
	"upscale-bot/internal/workflow"
)

const (
	redisSessionPrefix = "upscale:session:"
	usageBuffer        = 1024
)

// App holds shared dependencies. The Telegram bot itself is created by the
// caller so Build never touches the network beyond configured stores.
type App struct {
	Config   config.Config
	DB       *sql.DB
	Redis    redis.UniversalClient
	Sessions session.Store
	// Reports is nil when events go to SQS and no database is configured.
	Reports  usage.Querier
	Recorder *usage.AsyncRecorder
	Scratch  object.ScratchStore
	Jobs     jobs.Client
	Poller   *jobs.Poller
}

// Build prepares shared dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	if err := buildSessions(ctx, app); err != nil {
		app.Close(ctx)
		return nil, err
	}
	if err := buildUsage(ctx, app); err != nil {
		app.Close(ctx)
		return nil, err
	}
	if app.Scratch, err = buildScratch(ctx, cfg); err != nil {
		app.Close(ctx)
		return nil, err
	}

	client := jobs.NewHTTPClient(cfg.UpscalerBaseURL, cfg.UpscalerTimeout, cfg.PollMaxAttempts)
	app.Jobs = client
	app.Poller = jobs.NewPoller(client, cfg.PollInterval)
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	needsDB := cfg.SessionStore == "postgres" || cfg.UsageSink == "postgres"
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if needsDB && !isDevLike(cfg.Env) {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions(db.RoleBot)))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory stores: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildSessions(ctx context.Context, app *App) error {
	switch app.Config.SessionStore {
	case "redis":
		opts, err := redis.ParseURL(app.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			if !isDevLike(app.Config.Env) {
				return fmt.Errorf("redis ping: %w", err)
			}
			log.Printf("bootstrap: redis unavailable; using in-memory sessions: %v", err)
			app.Sessions = session.NewMemoryRepo()
			return nil
		}
		app.Redis = rdb
		app.Sessions = session.NewRedisRepo(rdb, redisSessionPrefix)
	case "postgres":
		if app.DB == nil {
			log.Printf("bootstrap: no database; using in-memory sessions")
			app.Sessions = session.NewMemoryRepo()
			return nil
		}
		app.Sessions = &session.PGRepo{DB: app.DB}
	default:
		app.Sessions = session.NewMemoryRepo()
	}
	return nil
}

func buildUsage(ctx context.Context, app *App) error {
	var sink usage.Sink
	switch {
	case app.Config.UsageSink == "sqs":
		if strings.TrimSpace(app.Config.UsageQueue) == "" {
			return errors.New("USAGE_SINK=sqs requires USAGE_SQS_QUEUE_URL")
		}
		client, err := queue.NewSQSClient(ctx, app.Config.AWSRegion, app.Config.UsageQueue)
		if err != nil {
			return err
		}
		sink = queue.NewPublisher(client)
		if app.DB != nil {
			app.Reports = usage.NewPGStore(app.DB)
		}
	case app.Config.UsageSink == "postgres" && app.DB != nil:
		store := usage.NewPGStore(app.DB)
		sink, app.Reports = store, store
	default:
		store := usage.NewMemoryStore()
		sink, app.Reports = store, store
	}
	app.Recorder = usage.NewAsyncRecorder(sink, usageBuffer)
	return nil
}

func buildScratch(ctx context.Context, cfg config.Config) (object.ScratchStore, error) {
	switch cfg.ScratchStore {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("SCRATCH_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.ScratchDir), nil
	}
}

// Orchestrator wires the workflow to a transport and membership checker.
func (a *App) Orchestrator(transport workflow.Transport, checker membership.Checker) *workflow.Orchestrator {
	return &workflow.Orchestrator{
		Transport: transport,
		Gate:      &membership.Gate{Checker: checker, Group: a.Config.ChannelID},
		Sessions:  a.Sessions,
		Jobs:      a.Jobs,
		Poller:    a.Poller,
		Usage:     a.Recorder,
		Scratch:   a.Scratch,
		Channel:   a.Config.ChannelUsername,
		Brand:     a.Config.FilenamePrefix,
	}
}

// Dispatcher routes Telegram updates to wf. notifier answers /stats.
func (a *App) Dispatcher(wf telegram.Workflow, notifier usage.Notifier) *telegram.Dispatcher {
	return &telegram.Dispatcher{
		Workflow: wf,
		Reports:  a.Reports,
		Notifier: notifier,
		IsAdmin:  a.Config.IsAdmin,
	}
}

// Reporter sends the periodic usage report to every operator. It returns nil
// when reporting is not possible.
func (a *App) Reporter(notifier usage.Notifier) *usage.Reporter {
	if a.Reports == nil || len(a.Config.AdminUserIDs) == 0 {
		return nil
	}
	return &usage.Reporter{
		Querier:  a.Reports,
		Notifier: notifier,
		ChatIDs:  a.Config.AdminUserIDs,
		Interval: a.Config.ReportInterval,
	}
}

// Router builds the HTTP surface. webhook may be nil in polling mode.
func (a *App) Router(webhook gin.HandlerFunc) *gin.Engine {
	routes := server.Routes{Webhook: webhook, Ready: a.ready}
	if a.Reports != nil {
		routes.Usage = usage.NewHandler(a.Reports)
	}
	return server.NewRouter(a.Config, routes)
}

func (a *App) ready(ctx context.Context) error {
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close drains pending usage events and closes connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Recorder != nil {
		if err := a.Recorder.Close(ctx); err != nil && !errors.Is(err, usage.ErrRecorderClosed) {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
