package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DatabaseMemory   = "memory"
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"

	// DefaultCORSOrigin is the local frontend dev server.
	DefaultCORSOrigin = "http://localhost:5173"
)

type Config struct {
	HTTPPort     string
	DatabaseType string // memory | sqlite | postgres
	SQLitePath   string
	DatabaseDSN  string
	JWTSecret    string
	CORSOrigins  string
	LogLevel     string

	SessionDuration time.Duration

	MaxFileSize       int
	MaxIngestRows     int
	MaxIngestDuration time.Duration
	StrictDates       bool

	// Cron spec for the full aggregate rebuild; empty disables the job.
	AggregateRebuildCron string

	SeedAdminPassword      string
	SeedAccountantPassword string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] .env could not be read: %v", err)
	}

	cfg := FromEnv()

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters long.")
	}
	if cfg.DatabaseType == DatabasePostgres && cfg.DatabaseDSN == "" {
		log.Fatal("[FATAL] DATABASE_DSN is required when DATABASE_TYPE=postgres.")
	}
	if cfg.CORSOrigins == DefaultCORSOrigin {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production.")
	}
	if strings.Contains(cfg.CORSOrigins, "*") {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS wildcard is ignored, list the allowed origins explicitly.")
	}

	return cfg
}

// AllowedOrigins returns the configured CORS origins without wildcards or
// blanks. An empty result falls back to DefaultCORSOrigin, never to "*".
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "" || strings.Contains(o, "*") {
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		return []string{DefaultCORSOrigin}
	}
	return origins
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv() *Config {
	return &Config{
		HTTPPort:     getEnv("HTTP_PORT", "3001"),
		DatabaseType: getEnv("DATABASE_TYPE", DatabaseSQLite),
		SQLitePath:   getEnv("SQLITE_PATH", "sales.db"),
		DatabaseDSN:  getEnv("DATABASE_DSN", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CORSOrigins:  getEnv("CORS_ALLOWED_ORIGINS", DefaultCORSOrigin),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		SessionDuration: getDuration("SESSION_DURATION", 8*time.Hour),

		MaxFileSize:       getInt("MAX_FILE_SIZE", 50*1024*1024),
		MaxIngestRows:     getInt("MAX_INGEST_ROWS", 0),
		MaxIngestDuration: getDuration("MAX_INGEST_DURATION", 0),
		StrictDates:       getBool("STRICT_DATES", false),

		AggregateRebuildCron: getEnv("AGGREGATE_REBUILD_CRON", ""),

		SeedAdminPassword:      getEnv("SEED_ADMIN_PASSWORD", ""),
		SeedAccountantPassword: getEnv("SEED_ACCOUNTANT_PASSWORD", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("[WARN] %s=%q is not a valid number, using %d", key, v, def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s=%q is not a valid boolean, using %t", key, v, def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("[WARN] %s=%q is not a valid duration, using %s", key, v, def)
		return def
	}
	return d
}
