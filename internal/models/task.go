package models

import "time"

// Task status values.
const (
	TaskTodo       = "TODO"
	TaskInProgress = "IN_PROGRESS"
	TaskInReview   = "IN_REVIEW"
	TaskCompleted  = "COMPLETED"
	TaskCancelled  = "CANCELLED"
	TaskRefused    = "REFUSED"
)

// Task priority values.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Task is the core work item. StageID, when set, must reference a stage
// belonging to the same project; the task package validates this on
// create and update.
type Task struct {
	ID          string     `gorm:"primaryKey;size:32"`
	Title       string     `gorm:"size:256;not null"`
	Description string     `gorm:"type:text"`
	Status      string     `gorm:"size:16;default:TODO;index"`
	Priority    string     `gorm:"size:8;default:MEDIUM"`
	ProjectID   string     `gorm:"size:32;not null;index"`
	StageID     *string    `gorm:"size:32;index"`
	CreatedByID string     `gorm:"size:32"`
	DueDate     *time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	Assignees []User           `gorm:"many2many:task_assignees"`
	Deps      []TaskDependency `gorm:"foreignKey:TaskID"`
}

// TaskDependency records that DependsOnID must complete before TaskID.
type TaskDependency struct {
	TaskID      string `gorm:"primaryKey;size:32"`
	DependsOnID string `gorm:"primaryKey;size:32"`

	Task      Task `gorm:"foreignKey:TaskID"`
	DependsOn Task `gorm:"foreignKey:DependsOnID"`
}
