package models

import "time"

// Stage status values.
const (
	StagePending    = "PENDING"
	StageInProgress = "IN_PROGRESS"
	StageCompleted  = "COMPLETED"
	StageBlocked    = "BLOCKED"
)

// Stage is an ordered phase within a project. Position is unique per
// project at the store level; gaps are tolerated by the auto-advance
// lookup, so positions need not be contiguous.
type Stage struct {
	ID          string `gorm:"primaryKey;size:32"`
	Name        string `gorm:"size:128;not null"`
	Position    int    `gorm:"not null;uniqueIndex:idx_stage_project_position"`
	Duration    int    `gorm:"default:0"`
	Status      string `gorm:"size:16;default:PENDING;index"`
	ProjectID   string `gorm:"size:32;not null;uniqueIndex:idx_stage_project_position;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	Tasks []Task `gorm:"foreignKey:StageID"`
}
