// Package activity writes append-only audit records.
package activity

import (
	"log"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// Entry holds the fields of one audit record.
type Entry struct {
	UserID     string
	Action     string // e.g. "task_started", "stage_completed", "notifications_sent"
	EntityType string
	EntityID   string
	Details    string
	Metadata   string // opaque JSON payload
}

// Log appends an audit record. The log is write-only from the core's
// perspective and best-effort: a failed insert is logged, never returned,
// so audit trouble cannot abort the operation being audited.
func Log(db *gorm.DB, e Entry) {
	row := models.ActivityLog{
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
		Metadata:   e.Metadata,
	}
	if err := db.Create(&row).Error; err != nil {
		log.Printf("activity: log %s %s/%s: %v", e.Action, e.EntityType, e.EntityID, err)
	}
}
