// Package stage provides stage lifecycle operations and the completion
// cascade: stage completion gated on its tasks, project completion on its
// stages, and auto-advance of the next pending stage.
package stage

import (
	"errors"
	"fmt"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// NotFoundError reports a missing stage.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("stage: not found: %s", e.ID)
}

// IncompleteTasksError rejects a stage completion while tasks remain open.
// Count is the exact number of non-completed tasks found.
type IncompleteTasksError struct {
	Count int
}

func (e *IncompleteTasksError) Error() string {
	return fmt.Sprintf("stage: %d incomplete tasks block completion", e.Count)
}

// ValidTransitions maps each stage status to its valid next statuses.
// COMPLETED is only reachable through Complete, which enforces the
// all-tasks-done gate and runs the cascade.
var ValidTransitions = map[string][]string{
	models.StagePending:    {models.StageInProgress, models.StageBlocked},
	models.StageInProgress: {models.StageBlocked},
	models.StageBlocked:    {models.StagePending, models.StageInProgress},
}

// CreateOpts holds parameters for creating a new stage.
type CreateOpts struct {
	Name      string
	ProjectID string
	Position  int // 0 means append after the current last position
	Duration  int
}

// Create creates a stage. Position uniqueness per project is enforced by
// the store; a duplicate position surfaces as a constraint error.
func Create(db *gorm.DB, opts CreateOpts) (*models.Stage, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("stage: name is required")
	}
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("stage: project is required")
	}

	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", opts.ProjectID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("stage: check project %s: %w", opts.ProjectID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("stage: project not found: %s", opts.ProjectID)
	}

	position := opts.Position
	if position == 0 {
		var max *int
		row := db.Model(&models.Stage{}).Where("project_id = ?", opts.ProjectID).
			Select("MAX(position)")
		if err := row.Scan(&max).Error; err != nil {
			return nil, fmt.Errorf("stage: next position for %s: %w", opts.ProjectID, err)
		}
		if max != nil {
			position = *max + 1
		} else {
			position = 1
		}
	}

	id, err := models.GenerateID("stage")
	if err != nil {
		return nil, err
	}

	s := models.Stage{
		ID:        id,
		Name:      opts.Name,
		Position:  position,
		Duration:  opts.Duration,
		Status:    models.StagePending,
		ProjectID: opts.ProjectID,
	}
	if err := db.Create(&s).Error; err != nil {
		return nil, fmt.Errorf("stage: create: %w", err)
	}
	return &s, nil
}

// Get retrieves a stage by ID.
func Get(db *gorm.DB, id string) (*models.Stage, error) {
	var s models.Stage
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("stage: get %s: %w", id, err)
	}
	return &s, nil
}

// List returns the stages of a project in position order.
func List(db *gorm.DB, projectID string) ([]models.Stage, error) {
	var stages []models.Stage
	if err := db.Where("project_id = ?", projectID).
		Order("position ASC").Find(&stages).Error; err != nil {
		return nil, fmt.Errorf("stage: list for %s: %w", projectID, err)
	}
	return stages, nil
}

// UpdateStatus applies a PENDING/IN_PROGRESS/BLOCKED transition.
// Completion must go through Complete.
func UpdateStatus(db *gorm.DB, id, newStatus string) (*models.Stage, error) {
	if newStatus == models.StageCompleted {
		return nil, fmt.Errorf("stage: completion must go through Complete")
	}

	s, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if s.Status == newStatus {
		return s, nil
	}

	valid := false
	for _, next := range ValidTransitions[s.Status] {
		if next == newStatus {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("stage: invalid status transition from %q to %q; valid transitions: %v",
			s.Status, newStatus, ValidTransitions[s.Status])
	}

	if err := db.Model(&models.Stage{}).Where("id = ?", id).
		Update("status", newStatus).Error; err != nil {
		return nil, fmt.Errorf("stage: update %s: %w", id, err)
	}
	s.Status = newStatus
	return s, nil
}
