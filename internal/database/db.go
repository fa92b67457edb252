package database

import (
	"fmt"

	"sales-analytics-backend/internal/config"
	"sales-analytics-backend/internal/store"
	"sales-analytics-backend/internal/store/gormstore"
	"sales-analytics-backend/internal/store/memory"

	"github.com/rs/zerolog"
)

// Open connects the backend selected by DATABASE_TYPE and runs migrations.
func Open(cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DatabaseType {
	case config.DatabaseMemory:
		log.Warn().Msg("using the in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	case config.DatabaseSQLite:
		st, err := gormstore.OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("database connected, migration complete")
		return st, nil
	case config.DatabasePostgres:
		st, err := gormstore.OpenPostgres(cfg.DatabaseDSN, log)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info().Msg("database connected, migration complete")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown DATABASE_TYPE %q", cfg.DatabaseType)
	}
}
