package models

import "time"

type AuditAction string

const (
	AuditActionLogin   AuditAction = "login"
	AuditActionUpload  AuditAction = "upload"
	AuditActionClear   AuditAction = "clear"
	AuditActionRebuild AuditAction = "rebuild_aggregates"
)

// AuditLog - one admin-visible action. Survives a database clear.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	UserID   uint   `gorm:"index" json:"userId"`
	UserName string `gorm:"size:100" json:"userName"`

	// "uploaded_file", "database" or "user"
	EntityType string `gorm:"size:50;index" json:"entityType"`
	EntityID   string `gorm:"size:36" json:"entityId"`

	Action      AuditAction `gorm:"size:30;index" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// JSON document, "null" when empty
	Details string `gorm:"type:text" json:"details"`
}
