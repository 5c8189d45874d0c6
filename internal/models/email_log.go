package models

import "time"

// Email delivery status values.
const (
	EmailPending = "PENDING"
	EmailSent    = "SENT"
	EmailFailed  = "FAILED"
)

// EmailLog records every outbound notification attempt and its outcome,
// one row per recipient per channel. Observability only.
type EmailLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Recipient string `gorm:"size:256;not null;index"`
	Subject   string `gorm:"size:256"`
	Channel   string `gorm:"size:16;default:email"`
	Status    string `gorm:"size:8;default:PENDING;index"`
	Error     string `gorm:"type:text"`
	UserID    string `gorm:"size:32"`
	Metadata  string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
