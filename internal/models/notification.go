package models

import "time"

// Notification is a stored in-app notification row. The stage coordinator
// writes one directly when a project completes; the UI reads them.
type Notification struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"size:32;not null;index"`
	Type       string `gorm:"size:32;not null"`
	Title      string `gorm:"size:256"`
	Body       string `gorm:"type:text"`
	EntityType string `gorm:"size:32"`
	EntityID   string `gorm:"size:32"`
	Read       bool   `gorm:"default:false;index"`
	CreatedAt  time.Time
}
