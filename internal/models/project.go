package models

import "time"

// Project status values.
const (
	ProjectPlanning   = "PLANNING"
	ProjectInProgress = "IN_PROGRESS"
	ProjectOnHold     = "ON_HOLD"
	ProjectCompleted  = "COMPLETED"
	ProjectCancelled  = "CANCELLED"
)

// Project groups an ordered sequence of stages and their tasks under a
// managing user. Status transitions are externally driven except COMPLETED,
// which the stage coordinator sets when the last stage completes.
type Project struct {
	ID          string  `gorm:"primaryKey;size:32"`
	Title       string  `gorm:"size:256;not null"`
	Description string  `gorm:"type:text"`
	Status      string  `gorm:"size:16;default:PLANNING;index"`
	ManagerID   *string `gorm:"size:32;index"`
	CreatedByID string  `gorm:"size:32;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	Manager *User   `gorm:"foreignKey:ManagerID"`
	Stages  []Stage `gorm:"foreignKey:ProjectID"`
	Tasks   []Task  `gorm:"foreignKey:ProjectID"`
}
