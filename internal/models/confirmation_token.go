package models

import "time"

// ConfirmationToken is a single-use, expiring credential letting a user act
// on an entity from an email link without a session. Rows are never deleted;
// consumed tokens stay flagged for the audit trail.
type ConfirmationToken struct {
	Token       string `gorm:"primaryKey;size:64"`
	Type        string `gorm:"size:32;not null"`
	UserID      string `gorm:"size:32;not null;index"`
	EntityType  string `gorm:"size:32;not null"`
	EntityID    string `gorm:"size:32;not null"`
	Metadata    string `gorm:"type:text"`
	Confirmed   bool   `gorm:"default:false"`
	ConfirmedAt *time.Time
	ExpiresAt   time.Time `gorm:"not null"`
	CreatedAt   time.Time
}
