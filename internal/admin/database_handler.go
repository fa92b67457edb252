package admin

import (
	"time"

	"sales-analytics-backend/internal/audit"
	"sales-analytics-backend/internal/auth"
	"sales-analytics-backend/internal/logger"
	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

// RebuildSchedule is the scheduled aggregate rebuild, as seen by the info endpoint.
type RebuildSchedule interface {
	LastRun() (time.Time, error)
	Next() time.Time
}

type RebuildStatus struct {
	LastRun   *time.Time `json:"lastRun"`
	LastError string     `json:"lastError,omitempty"`
	NextRun   *time.Time `json:"nextRun"`
}

type InfoResponse struct {
	store.Info
	AggregateRebuild *RebuildStatus `json:"aggregateRebuild,omitempty"`
}

func rebuildStatus(sched RebuildSchedule) *RebuildStatus {
	status := &RebuildStatus{}
	last, err := sched.LastRun()
	if !last.IsZero() {
		status.LastRun = &last
	}
	if err != nil {
		status.LastError = err.Error()
	}
	if next := sched.Next(); !next.IsZero() {
		status.NextRun = &next
	}
	return status
}

// GET /api/database/info
// sched may be nil when no rebuild is scheduled.
func InfoHandler(st store.Store, sched RebuildSchedule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		info, err := st.Info(c.UserContext())
		if err != nil {
			logger.FromContext(c.UserContext()).Error().Err(err).Msg("database info failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Database info could not be loaded")
		}
		resp := InfoResponse{Info: info}
		if sched != nil {
			resp.AggregateRebuild = rebuildStatus(sched)
		}
		return c.JSON(resp)
	}
}

// DELETE /api/database/clear
func ClearHandler(st store.Store, trail *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		log := logger.FromContext(ctx)

		before, err := st.Info(ctx)
		if err != nil {
			log.Error().Err(err).Msg("database info failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Database could not be cleared")
		}
		if err := st.Clear(ctx); err != nil {
			log.Error().Err(err).Msg("database clear failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Database could not be cleared")
		}

		userID, _ := auth.CurrentUser(c)
		username, _ := c.Locals(auth.CtxUsernameKey).(string)
		trail.Record(ctx, audit.LogOptions{
			UserID:      userID,
			UserName:    username,
			EntityType:  "database",
			Action:      models.AuditActionClear,
			Description: "Database cleared",
			Details:     before,
		})
		log.Warn().Int64("records", before.TotalRecords).Int64("files", before.TotalFiles).Msg("database cleared")

		return c.JSON(fiber.Map{
			"success":        true,
			"message":        "Database cleared",
			"deletedRecords": before.TotalRecords,
			"deletedFiles":   before.TotalFiles,
		})
	}
}

// POST /api/database/rebuild-aggregates
func RebuildAggregatesHandler(st store.Store, trail *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		start := time.Now()

		if err := st.RebuildAggregates(ctx); err != nil {
			logger.FromContext(ctx).Error().Err(err).Msg("aggregate rebuild failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Aggregates could not be rebuilt")
		}
		took := time.Since(start)

		userID, _ := auth.CurrentUser(c)
		username, _ := c.Locals(auth.CtxUsernameKey).(string)
		trail.Record(ctx, audit.LogOptions{
			UserID:      userID,
			UserName:    username,
			EntityType:  "database",
			Action:      models.AuditActionRebuild,
			Description: "Aggregates rebuilt from the ledger",
			Details:     fiber.Map{"durationMs": took.Milliseconds()},
		})

		return c.JSON(fiber.Map{
			"success":    true,
			"message":    "Aggregates rebuilt",
			"durationMs": took.Milliseconds(),
		})
	}
}
