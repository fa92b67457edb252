package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/rs/zerolog"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Details     any
}

type Service struct {
	logs store.AuditLogs
	log  zerolog.Logger
}

func NewService(logs store.AuditLogs, log zerolog.Logger) *Service {
	return &Service{logs: logs, log: log}
}

func (s *Service) WriteLog(ctx context.Context, opts LogOptions) error {
	details := "null"
	if opts.Details != nil {
		if b, err := json.Marshal(opts.Details); err == nil {
			details = string(b)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		Details:     details,
	}
	if err := s.logs.CreateAuditLog(ctx, &entry); err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}
	return nil
}

// Record writes the entry and only logs a failure. The action it describes
// has already happened. A nil Service records nothing.
func (s *Service) Record(ctx context.Context, opts LogOptions) {
	if s == nil {
		return
	}
	if err := s.WriteLog(context.WithoutCancel(ctx), opts); err != nil {
		s.log.Error().Err(err).Str("action", string(opts.Action)).Msg("audit")
	}
}

func (s *Service) List(ctx context.Context, f store.AuditFilter) ([]models.AuditLog, error) {
	return s.logs.ListAuditLogs(ctx, f)
}
