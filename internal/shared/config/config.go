package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	BotToken        string
	BotMode         string
	WebhookURL      string
	WebhookSecret   string
	ChannelUsername string
	ChannelID       string
	AdminUserIDs    []int64
	AdminAPIToken   string
	FilenamePrefix  string
	CORSAllowOrigin []string

	DatabaseURL  string
	RedisURL     string
	SessionStore string
	UsageSink    string
	UsageQueue   string

	WorkerConcurrency   int
	WorkerVisibility    time.Duration
	WorkerShutdownGrace time.Duration

	ScratchStore string
	ScratchDir   string
	AWSRegion    string
	S3Bucket     string
	S3Prefix     string

	UpscalerBaseURL string
	UpscalerTimeout time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
	ReportInterval  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")
	channel := getEnv("CHANNEL_USERNAME", "@WallSwipe")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is not set in production; usage and sessions will not survive restarts")
	}

	return Config{
		Env:      env,
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BotToken:        os.Getenv("BOT_TOKEN"),
		BotMode:         normalizeBotMode(getEnv("BOT_MODE", "polling")),
		WebhookURL:      getEnv("WEBHOOK_URL", ""),
		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
		ChannelUsername: channel,
		ChannelID:       getEnv("CHANNEL_ID", channel),
		AdminUserIDs:    parseIDs(getEnv("ADMIN_USER_IDS", "")),
		AdminAPIToken:   getEnv("ADMIN_API_TOKEN", ""),
		FilenamePrefix:  getEnv("FILENAME_PREFIX", "WallSwipe"),
		CORSAllowOrigin: splitList(getEnv("CORS_ALLOW_ORIGIN", "")),

		DatabaseURL:  dbURL,
		RedisURL:     redisURL,
		SessionStore: normalizeSessionStore(getEnv("SESSION_STORE", ""), dbURL, redisURL),
		UsageSink:    normalizeUsageSink(getEnv("USAGE_SINK", ""), dbURL),
		UsageQueue:   getEnv("USAGE_SQS_QUEUE_URL", ""),

		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerVisibility:    time.Duration(getEnvInt("WORKER_SQS_VISIBILITY_TIMEOUT_SECONDS", 60)) * time.Second,
		WorkerShutdownGrace: time.Duration(getEnvInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,

		ScratchStore: normalizeStoreType(getEnv("SCRATCH_STORE", "local")),
		ScratchDir:   getEnv("SCRATCH_DIR", os.TempDir()),
		AWSRegion:    getEnv("AWS_REGION", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3Prefix:     getEnv("S3_PREFIX", "scratch/"),

		UpscalerBaseURL: getEnv("UPSCALER_BASE_URL", "https://photoai.imglarger.com"),
		UpscalerTimeout: time.Duration(getEnvInt("UPSCALER_TIMEOUT_SECONDS", 60)) * time.Second,
		PollInterval:    getEnvDuration("POLL_INTERVAL", 3*time.Second),
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 20),
		ReportInterval:  getEnvDuration("REPORT_INTERVAL", 24*time.Hour),
	}
}

// IsAdmin reports whether the Telegram user id belongs to an operator.
func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		// Load never overrides variables already present in the environment.
		if err := godotenv.Load(path); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseIDs(raw string) []int64 {
	var out []int64
	for _, p := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			log.Printf("config: ignoring admin id %q: %v", trimmed, err)
			continue
		}
		out = append(out, id)
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeBotMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "webhook":
		return "webhook"
	default:
		return "polling"
	}
}

func normalizeSessionStore(raw, dbURL, redisURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory":
		return "memory"
	case "postgres", "pg":
		return "postgres"
	case "redis":
		return "redis"
	}
	if strings.TrimSpace(redisURL) != "" {
		return "redis"
	}
	if strings.TrimSpace(dbURL) != "" {
		return "postgres"
	}
	return "memory"
}

func normalizeUsageSink(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory":
		return "memory"
	case "postgres", "pg":
		return "postgres"
	case "sqs":
		return "sqs"
	}
	if strings.TrimSpace(dbURL) != "" {
		return "postgres"
	}
	return "memory"
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
