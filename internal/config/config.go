package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Analysis AnalysisConfig
	SMTP     SMTPConfig
	Graph    GraphConfig
	Worker   WorkerConfig
	Ticket   TicketConfig
}

// TicketConfig tunes derived ticket fields and listings.
type TicketConfig struct {
	SnippetLength   int
	DefaultPageSize int
	MaxPageSize     int
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	DedupTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AnalysisConfig points at an OpenAI-compatible chat completion endpoint.
type AnalysisConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// SMTPConfig configures the confirmation mailer.
type SMTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	From           string
	TimeoutSeconds int
}

// GraphConfig configures Microsoft Graph message retrieval for webhook notifications.
type GraphConfig struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	Mailbox        string
	ClientState    string
	TimeoutSeconds int
}

// WorkerConfig sizes the webhook task pool.
type WorkerConfig struct {
	Workers            int
	QueueSize          int
	TaskTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
// When CONFIG_FILE names a YAML file its values are used as defaults below the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFileDefaults(path); err != nil {
			return nil, err
		}
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "email-ticket-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 90),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			DedupTTLSeconds: getEnvAsInt("REDIS_DEDUP_TTL_SECONDS", 3600),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Analysis: AnalysisConfig{
			APIKey:         firstEnv("ANALYSIS_API_KEY", "OPENAI_API_KEY"),
			BaseURL:        os.Getenv("ANALYSIS_BASE_URL"),
			Model:          getEnv("ANALYSIS_MODEL", "gpt-4o-mini"),
			TimeoutSeconds: getEnvAsInt("ANALYSIS_TIMEOUT_SECONDS", 60),
		},
		SMTP: SMTPConfig{
			Host:           getEnv("SMTP_HOST", "smtp-mail.outlook.com"),
			Port:           getEnvAsInt("SMTP_PORT", 587),
			Username:       os.Getenv("SMTP_EMAIL"),
			Password:       os.Getenv("SMTP_PASSWORD"),
			From:           firstEnv("SMTP_FROM", "SMTP_EMAIL"),
			TimeoutSeconds: getEnvAsInt("SMTP_TIMEOUT_SECONDS", 20),
		},
		Graph: GraphConfig{
			TenantID:       getEnv("TENANT_ID", "common"),
			ClientID:       os.Getenv("CLIENT_ID"),
			ClientSecret:   os.Getenv("CLIENT_SECRET"),
			Mailbox:        firstEnv("GRAPH_MAILBOX", "IMAP_EMAIL"),
			ClientState:    getEnv("GRAPH_CLIENT_STATE", "SecretClientState"),
			TimeoutSeconds: getEnvAsInt("GRAPH_TIMEOUT_SECONDS", 20),
		},
		Worker: WorkerConfig{
			Workers:            getEnvAsInt("WEBHOOK_WORKERS", 3),
			QueueSize:          getEnvAsInt("WEBHOOK_QUEUE_SIZE", 100),
			TaskTimeoutSeconds: getEnvAsInt("WEBHOOK_TASK_TIMEOUT_SECONDS", 120),
		},
		Ticket: TicketConfig{
			SnippetLength:   getEnvAsInt("TICKET_SNIPPET_LENGTH", 200),
			DefaultPageSize: getEnvAsInt("TICKET_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getEnvAsInt("TICKET_MAX_PAGE_SIZE", 100),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// DedupTTL is how long a webhook message id is remembered.
func (r RedisConfig) DedupTTL() time.Duration {
	return seconds(r.DedupTTLSeconds)
}

// Enabled reports whether analysis credentials are present.
func (a AnalysisConfig) Enabled() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

// Timeout bounds a single provider call.
func (a AnalysisConfig) Timeout() time.Duration {
	return seconds(a.TimeoutSeconds)
}

// Enabled reports whether SMTP credentials are present.
func (s SMTPConfig) Enabled() bool {
	return s.Username != "" && s.Password != "" && s.Host != ""
}

// Timeout bounds a single send.
func (s SMTPConfig) Timeout() time.Duration {
	return seconds(s.TimeoutSeconds)
}

// Enabled reports whether Graph app credentials are present.
func (g GraphConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Timeout bounds a single Graph request.
func (g GraphConfig) Timeout() time.Duration {
	return seconds(g.TimeoutSeconds)
}

// TaskTimeout bounds one webhook task end to end.
func (w WorkerConfig) TaskTimeout() time.Duration {
	return seconds(w.TaskTimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
