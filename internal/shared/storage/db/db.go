package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"upscale-bot/internal/shared/telemetry"
)

// Role names the process opening the pool. It picks pool defaults and is
// reported to Postgres as application_name.
type Role string

const (
	RoleBot     Role = "upscale-bot"
	RoleWorker  Role = "upscale-worker"
	RoleMigrate Role = "upscale-migrate"
)

// Options controls pool sizing and the initial connectivity check.
type Options struct {
	Role            Role
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = func(cfg *pgx.ConnConfig) *sql.DB {
	return stdlib.OpenDB(*cfg)
}

// DefaultOptions returns pool defaults for role. The bot holds connections
// only briefly per update, the worker writes one event per message and
// migrations need a single connection.
func DefaultOptions(role Role) Options {
	opts := Options{
		Role:            role,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 2 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
	switch role {
	case RoleWorker:
		opts.MaxOpenConns, opts.MaxIdleConns = 4, 2
		opts.ConnMaxIdleTime = time.Minute
	case RoleMigrate:
		opts.MaxOpenConns, opts.MaxIdleConns = 1, 1
	}
	return opts
}

// OptionsFromEnv overrides opts with DB_* variables. Unparseable values are
// logged and ignored.
func OptionsFromEnv(opts Options) Options {
	envInt("DB_MAX_OPEN_CONNS", &opts.MaxOpenConns)
	envInt("DB_MAX_IDLE_CONNS", &opts.MaxIdleConns)
	envDuration("DB_CONN_MAX_LIFETIME", &opts.ConnMaxLifetime)
	envDuration("DB_CONN_MAX_IDLE_TIME", &opts.ConnMaxIdleTime)
	envDuration("DB_PING_TIMEOUT", &opts.PingTimeout)
	return opts
}

// Connect parses databaseURL, opens a pgx-backed pool and pings it.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.Role != "" {
		cfg.RuntimeParams["application_name"] = string(opts.Role)
	}

	database := openDB(cfg)
	applyOptions(database, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping database %s: %w", cfg.Host, err)
	}

	telemetry.Info("db.connected", map[string]any{
		"role":     string(opts.Role),
		"host":     cfg.Host,
		"database": cfg.Database,
		"max_open": database.Stats().MaxOpenConnections,
	})
	return database, nil
}

func applyOptions(database *sql.DB, opts Options) {
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	database.SetMaxOpenConns(maxOpen)
	database.SetMaxIdleConns(maxIdle)
	if opts.ConnMaxLifetime > 0 {
		database.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		database.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func envInt(key string, dst *int) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("db.env_ignored", map[string]any{"key": key, "error": err})
		return
	}
	*dst = val
}

func envDuration(key string, dst *time.Duration) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("db.env_ignored", map[string]any{"key": key, "error": err})
		return
	}
	*dst = val
}
