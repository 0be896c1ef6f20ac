package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// APIConfig configures touchline-api. Reset discards the save file at
// startup so a fresh world is seeded.
type APIConfig struct {
	Addr           string        `envconfig:"TOUCHLINE_API_ADDR" default:":8080"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	SaveFile       string        `envconfig:"TOUCHLINE_SAVE_FILE"`
	RulesFile      string        `envconfig:"TOUCHLINE_RULES_FILE"`
	UserTeam       string        `envconfig:"TOUCHLINE_USER_TEAM" default:"Northbridge Athletic"`
	FreeAgents     int           `envconfig:"TOUCHLINE_FREE_AGENTS" default:"12"`
	Seed           int64         `envconfig:"TOUCHLINE_SEED"`
	RequestTimeout time.Duration `envconfig:"TOUCHLINE_REQUEST_TIMEOUT" default:"15s"`
	IdempotencyTTL time.Duration `envconfig:"TOUCHLINE_IDEMPOTENCY_TTL" default:"24h"`
	Reset          bool          `envconfig:"TOUCHLINE_RESET"`
	Pool           PoolConfig
	Notify         NotifyConfig
	Kafka          KafkaConfig
}

// PoolConfig sizes the Postgres connection pool.
type PoolConfig struct {
	MaxConns        int32         `envconfig:"TOUCHLINE_DB_MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"TOUCHLINE_DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"TOUCHLINE_DB_MAX_CONN_LIFETIME" default:"30m"`
	MaxConnIdleTime time.Duration `envconfig:"TOUCHLINE_DB_MAX_CONN_IDLE_TIME" default:"10m"`
}

type NotifyConfig struct {
	DiscordToken     string `envconfig:"DISCORD_TOKEN"`
	DiscordChannelID string `envconfig:"DISCORD_CHANNEL_ID"`
	RedisAddr        string `envconfig:"REDIS_ADDR"`
	RedisPassword    string `envconfig:"REDIS_PASSWORD"`
	RedisChannel     string `envconfig:"TOUCHLINE_REDIS_CHANNEL" default:"touchline:notifications"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"TOUCHLINE_KAFKA_TOPIC" default:"touchline-transfers"`
}

type WorkerConfig struct {
	APIBaseURL string        `envconfig:"TOUCHLINE_API_BASE_URL" default:"http://localhost:8080"`
	WeekEvery  time.Duration `envconfig:"TOUCHLINE_WEEK_EVERY" default:"10m"`
	RunOnce    bool          `envconfig:"TOUCHLINE_WORKER_RUN_ONCE"`
}

type CLIConfig struct {
	APIBaseURL string `envconfig:"TL_API_BASE_URL" default:"http://localhost:8080"`
	Team       string `envconfig:"TL_TEAM"`
}

func LoadAPIFromEnv() (APIConfig, error) {
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process env: %w", err)
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Addr = port
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" && cfg.SaveFile == "" {
		path, err := DefaultSavePath()
		if err != nil {
			return cfg, err
		}
		cfg.SaveFile = path
	}
	if strings.TrimSpace(cfg.UserTeam) == "" {
		return cfg, fmt.Errorf("TOUCHLINE_USER_TEAM must not be empty")
	}
	if cfg.FreeAgents < 0 {
		return cfg, fmt.Errorf("TOUCHLINE_FREE_AGENTS must not be negative")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, fmt.Errorf("TOUCHLINE_IDEMPOTENCY_TTL must be positive")
	}
	if cfg.Pool.MaxConns < 1 || cfg.Pool.MinConns < 0 || cfg.Pool.MinConns > cfg.Pool.MaxConns {
		return cfg, fmt.Errorf("TOUCHLINE_DB_MIN_CONNS=%d and TOUCHLINE_DB_MAX_CONNS=%d are out of range", cfg.Pool.MinConns, cfg.Pool.MaxConns)
	}
	if (cfg.Notify.DiscordToken == "") != (cfg.Notify.DiscordChannelID == "") {
		return cfg, fmt.Errorf("DISCORD_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process env: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.WeekEvery <= 0 {
		return cfg, fmt.Errorf("TOUCHLINE_WEEK_EVERY must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	var cfg CLIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		cfg.APIBaseURL = "http://localhost:8080"
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.Team = strings.TrimSpace(cfg.Team)
	return cfg
}

// DefaultSavePath is ~/.touchline/save.json.
func DefaultSavePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".touchline", "save.json"), nil
}
