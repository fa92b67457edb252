package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "DATABASE_TYPE", "SESSION_DURATION", "MAX_FILE_SIZE", "STRICT_DATES", "MAX_INGEST_ROWS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "3001", cfg.HTTPPort)
	assert.Equal(t, DatabaseSQLite, cfg.DatabaseType)
	assert.Equal(t, 8*time.Hour, cfg.SessionDuration)
	assert.Equal(t, 52428800, cfg.MaxFileSize)
	assert.False(t, cfg.StrictDates)
	assert.Zero(t, cfg.MaxIngestRows)
	assert.Equal(t, DefaultCORSOrigin, cfg.CORSOrigins)
}

func TestAllowedOrigins(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", []string{DefaultCORSOrigin}},
		{"*", []string{DefaultCORSOrigin}},
		{" https://a.example , ,https://b.example", []string{"https://a.example", "https://b.example"}},
		{"https://a.example,*", []string{"https://a.example"}},
	}
	for _, tc := range cases {
		cfg := &Config{CORSOrigins: tc.raw}
		assert.Equal(t, tc.want, cfg.AllowedOrigins(), tc.raw)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("SESSION_DURATION", "30m")
	t.Setenv("MAX_FILE_SIZE", "1024")
	t.Setenv("STRICT_DATES", "true")
	t.Setenv("MAX_INGEST_DURATION", "2m")
	t.Setenv("AGGREGATE_REBUILD_CRON", "@daily")

	cfg := FromEnv()
	assert.Equal(t, DatabasePostgres, cfg.DatabaseType)
	assert.Equal(t, 30*time.Minute, cfg.SessionDuration)
	assert.Equal(t, 1024, cfg.MaxFileSize)
	assert.True(t, cfg.StrictDates)
	assert.Equal(t, 2*time.Minute, cfg.MaxIngestDuration)
	assert.Equal(t, "@daily", cfg.AggregateRebuildCron)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_DURATION", "forever")
	t.Setenv("MAX_FILE_SIZE", "-5")
	t.Setenv("STRICT_DATES", "maybe")

	cfg := FromEnv()
	assert.Equal(t, 8*time.Hour, cfg.SessionDuration)
	assert.Equal(t, 52428800, cfg.MaxFileSize)
	assert.False(t, cfg.StrictDates)
}
