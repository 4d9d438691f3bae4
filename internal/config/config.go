package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr      = "0.0.0.0:8080"
	defaultKafkaTopic    = "poll-events"
	defaultStatsCacheTTL = 30 * time.Second
)

type DB struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// ConnString prefers DATABASE_URL and otherwise assembles one from the
// POSTGRES_* parts.
func (d DB) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

type Config struct {
	HTTPAddr       string
	DB             DB
	JWTSecret      string
	AllowedOrigins []string
	RedisURL       string
	StatsCacheTTL  time.Duration
	KafkaBrokers   []string
	KafkaTopic     string
	LogLevel       slog.Level
}

// LoadEnv reads a .env file into the environment if one exists.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}
}

// RegisterDBFlags binds the database flags shared by every binary, with
// defaults taken from the environment.
func RegisterDBFlags(fs *flag.FlagSet, db *DB) {
	fs.StringVar(&db.URL, "db-url", os.Getenv("DATABASE_URL"), "Database connection URL")
	fs.StringVar(&db.Host, "db-host", os.Getenv("POSTGRES_HOST"), "Database host")
	fs.StringVar(&db.Port, "db-port", envOr("POSTGRES_PORT", "5432"), "Database port")
	fs.StringVar(&db.User, "db-user", os.Getenv("POSTGRES_USER"), "Database user")
	fs.StringVar(&db.Password, "db-pass", os.Getenv("POSTGRES_PASSWORD"), "Database password")
	fs.StringVar(&db.Name, "db-name", os.Getenv("POSTGRES_DB"), "Database name")
}

// Load parses the server configuration from args. Flags default to their
// environment variables.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	var origins, brokers, cacheTTL, logLevel string

	fs.StringVar(&cfg.HTTPAddr, "http-addr", envOr("HTTP_ADDR", defaultHTTPAddr), "HTTP listen address")
	RegisterDBFlags(fs, &cfg.DB)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "HS256 secret for access tokens")
	fs.StringVar(&origins, "allowed-origins", os.Getenv("ALLOWED_ORIGINS"), "Comma separated CORS origins")
	fs.StringVar(&cfg.RedisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL for the statistics cache")
	fs.StringVar(&cacheTTL, "stats-cache-ttl", envOr("STATS_CACHE_TTL", defaultStatsCacheTTL.String()), "Statistics cache TTL")
	fs.StringVar(&brokers, "kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Comma separated Kafka brokers")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", envOr("KAFKA_TOPIC", defaultKafkaTopic), "Kafka topic for poll events")
	fs.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.DB.URL == "" && cfg.DB.Host == "" {
		return nil, errors.New("either DATABASE_URL or POSTGRES_HOST is required")
	}

	ttl, err := time.ParseDuration(cacheTTL)
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid STATS_CACHE_TTL %q", cacheTTL)
	}
	cfg.StatsCacheTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q", logLevel)
	}

	cfg.AllowedOrigins = splitList(origins)
	cfg.KafkaBrokers = splitList(brokers)

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
