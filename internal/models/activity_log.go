package models

import "time"

// ActivityLog is an append-only audit record. The core only writes it.
type ActivityLog struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"size:32;index"`
	Action     string `gorm:"size:64;not null"`
	EntityType string `gorm:"size:32;index:idx_activity_entity"`
	EntityID   string `gorm:"size:32;index:idx_activity_entity"`
	Details    string `gorm:"type:text"`
	Metadata   string `gorm:"type:text"`
	CreatedAt  time.Time
}
