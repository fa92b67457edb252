package audit

import (
	"encoding/json"
	"fmt"

	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

const defaultListLimit = 200

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Details     json.RawMessage    `json:"details"`
}

// GET /api/audit-logs?action=upload&entity_type=uploaded_file&user_id=1&limit=50
func ListAuditLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := store.AuditFilter{
			Action:     models.AuditAction(c.Query("action")),
			EntityType: c.Query("entity_type"),
			Limit:      defaultListLimit,
		}

		if userIDStr := c.Query("user_id"); userIDStr != "" {
			var uid uint
			if _, err := fmt.Sscan(userIDStr, &uid); err != nil || uid == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "user_id is invalid")
			}
			f.UserID = uid
		}
		if limit := c.QueryInt("limit", defaultListLimit); limit > 0 {
			f.Limit = limit
		}

		logs, err := svc.List(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Audit logs could not be listed")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			details := json.RawMessage(l.Details)
			if !json.Valid(details) {
				details = json.RawMessage("null")
			}
			resp = append(resp, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				Details:     details,
			})
		}

		return c.JSON(resp)
	}
}
