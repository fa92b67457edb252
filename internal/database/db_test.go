package database

import (
	"context"
	"path/filepath"
	"testing"

	"sales-analytics-backend/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	cases := []struct {
		cfg     config.Config
		backend string
	}{
		{config.Config{DatabaseType: config.DatabaseMemory}, "memory"},
		{config.Config{DatabaseType: config.DatabaseSQLite, SQLitePath: filepath.Join(t.TempDir(), "test.db")}, "sqlite"},
	}
	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			st, err := Open(&tc.cfg, zerolog.Nop())
			require.NoError(t, err)
			defer st.Close()

			info, err := st.Info(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.backend, info.Backend)
			assert.Zero(t, info.TotalRecords)
		})
	}
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(&config.Config{DatabaseType: "mongo"}, zerolog.Nop())
	assert.Error(t, err)
}
