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
	Redis    RedisConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Realtime RealtimeConfig
	Events   EventsConfig
	Logger   LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name string
	Addr string
}

// RedisConfig holds the Redis connection URL.
type RedisConfig struct {
	URL string
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory user store.
type PostgresConfig struct {
	DSN           string
	RunMigrations bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	SigningKeyPEM  string
	Issuer         string
	NonceTTL       time.Duration
	AccessTTL      time.Duration
	RefreshGrace   time.Duration
	ClockSkew      time.Duration
	BcryptCost     int
	AllowedDomains []string
	AllowedChains  []int64
}

// RealtimeConfig tunes the WebSocket gateway and fan-out.
type RealtimeConfig struct {
	FanOut         int
	WriteTimeout   time.Duration
	AllowedOrigins []string
	RoomPrefix     string
}

// EventsConfig configures the message bus.
type EventsConfig struct {
	ConsumerGroup string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	chains, err := getEnvAsInt64List("AUTH_ALLOWED_CHAIN_IDS", []int64{1})
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_ALLOWED_CHAIN_IDS: %w", err)
	}

	keyPEM := os.Getenv("AUTH_SIGNING_KEY")
	if path := os.Getenv("AUTH_SIGNING_KEY_FILE"); keyPEM == "" && path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read AUTH_SIGNING_KEY_FILE: %w", err)
		}
		keyPEM = string(raw)
	}

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "swapgate"),
			Addr: getEnv("APP_ADDR", ":9000"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Postgres: PostgresConfig{
			DSN:           os.Getenv("POSTGRES_DSN"),
			RunMigrations: getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
		},
		Auth: AuthConfig{
			SigningKeyPEM:  keyPEM,
			Issuer:         getEnv("AUTH_ISSUER", "swapgate"),
			NonceTTL:       getEnvAsDuration("AUTH_NONCE_TTL", 60*time.Second),
			AccessTTL:      getEnvAsDuration("AUTH_ACCESS_TTL", 15*time.Minute),
			RefreshGrace:   getEnvAsDuration("AUTH_REFRESH_GRACE", 7*24*time.Hour),
			ClockSkew:      getEnvAsDuration("AUTH_CLOCK_SKEW", 30*time.Second),
			BcryptCost:     getEnvAsInt("AUTH_BCRYPT_COST", 10),
			AllowedDomains: getEnvAsList("AUTH_ALLOWED_DOMAINS", []string{"localhost:3000"}),
			AllowedChains:  chains,
		},
		Realtime: RealtimeConfig{
			FanOut:         getEnvAsInt("WS_FANOUT", 32),
			WriteTimeout:   getEnvAsDuration("WS_WRITE_TIMEOUT", 5*time.Second),
			AllowedOrigins: getEnvAsList("WS_ALLOWED_ORIGINS", []string{"localhost:3000"}),
			RoomPrefix:     getEnv("WS_ROOM_PREFIX", "swapgate:ws:"),
		},
		Events: EventsConfig{
			ConsumerGroup: os.Getenv("EVENTS_CONSUMER_GROUP"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt64List(key string, fallback []int64) ([]int64, error) {
	parts := getEnvAsList(key, nil)
	if len(parts) == 0 {
		return fallback, nil
	}
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
