// Package task provides task lifecycle operations and dependency management.
package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// NotFoundError reports a missing task, project, or stage.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task: %s not found: %s", e.Kind, e.ID)
}

// ErrEmptyUpdate is returned when an update carries no changes.
var ErrEmptyUpdate = errors.New("task: empty update")

// ValidTransitions maps each task status to its valid next statuses.
// COMPLETED, CANCELLED and REFUSED are terminal.
var ValidTransitions = map[string][]string{
	models.TaskTodo:       {models.TaskInProgress, models.TaskCancelled, models.TaskRefused},
	models.TaskInProgress: {models.TaskInReview, models.TaskCompleted, models.TaskCancelled, models.TaskRefused},
	models.TaskInReview:   {models.TaskInProgress, models.TaskCompleted},
}

// isValidTransition checks whether a status transition is allowed.
func isValidTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CreateOpts holds parameters for creating a new task.
type CreateOpts struct {
	Title       string
	Description string
	Priority    string
	ProjectID   string
	StageID     string
	DueDate     *time.Time
	AssigneeIDs []string
	CreatedByID string
}

// Create creates a new task with an auto-generated ID. A stage, when
// given, must belong to the task's project.
func Create(db *gorm.DB, opts CreateOpts) (*models.Task, error) {
	if opts.Title == "" {
		return nil, fmt.Errorf("task: title is required")
	}
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("task: project is required")
	}

	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", opts.ProjectID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("task: check project %s: %w", opts.ProjectID, err)
	}
	if count == 0 {
		return nil, &NotFoundError{Kind: "project", ID: opts.ProjectID}
	}

	if opts.StageID != "" {
		if err := validateStage(db, opts.StageID, opts.ProjectID); err != nil {
			return nil, err
		}
	}

	if opts.Priority == "" {
		opts.Priority = models.PriorityMedium
	}

	id, err := models.GenerateID("task")
	if err != nil {
		return nil, err
	}

	t := models.Task{
		ID:          id,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      models.TaskTodo,
		Priority:    opts.Priority,
		ProjectID:   opts.ProjectID,
		CreatedByID: opts.CreatedByID,
		DueDate:     opts.DueDate,
	}
	if opts.StageID != "" {
		t.StageID = &opts.StageID
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return fmt.Errorf("task: create: %w", err)
		}
		if len(opts.AssigneeIDs) > 0 {
			users, err := loadUsers(tx, opts.AssigneeIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&t).Association("Assignees").Append(&users); err != nil {
				return fmt.Errorf("task: assign: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return Get(db, t.ID)
}

// Get retrieves a task by ID, preloading assignees and dependencies.
func Get(db *gorm.DB, id string) (*models.Task, error) {
	var t models.Task
	if err := db.Preload("Assignees").Preload("Deps").Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "task", ID: id}
		}
		return nil, fmt.Errorf("task: get %s: %w", id, err)
	}
	return &t, nil
}

// ListFilters holds optional filters for listing tasks.
type ListFilters struct {
	ProjectID  string
	StageID    string
	Status     string
	Priority   string
	AssigneeID string
}

// List returns tasks matching the given filters, most urgent first.
func List(db *gorm.DB, filters ListFilters) ([]models.Task, error) {
	q := db.Model(&models.Task{}).Preload("Assignees")

	if filters.ProjectID != "" {
		q = q.Where("project_id = ?", filters.ProjectID)
	}
	if filters.StageID != "" {
		q = q.Where("stage_id = ?", filters.StageID)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.Priority != "" {
		q = q.Where("priority = ?", filters.Priority)
	}
	if filters.AssigneeID != "" {
		q = q.Where("id IN (?)", db.Table("task_assignees").
			Select("task_id").Where("user_id = ?", filters.AssigneeID))
	}

	var tasks []models.Task
	if err := q.Order("due_date ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task: list: %w", err)
	}
	return tasks, nil
}

// Delete removes a task and its dependency edges; the assignee join rows
// go with it. One transaction.
func Delete(db *gorm.DB, id string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var t models.Task
		if err := tx.Where("id = ?", id).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "task", ID: id}
			}
			return fmt.Errorf("task: get %s for delete: %w", id, err)
		}
		if err := tx.Where("task_id = ? OR depends_on_id = ?", id, id).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return fmt.Errorf("task: delete deps of %s: %w", id, err)
		}
		if err := tx.Model(&t).Association("Assignees").Clear(); err != nil {
			return fmt.Errorf("task: clear assignees of %s: %w", id, err)
		}
		if err := tx.Delete(&t).Error; err != nil {
			return fmt.Errorf("task: delete %s: %w", id, err)
		}
		return nil
	})
}

// validateStage checks that a stage exists and belongs to the project.
func validateStage(db *gorm.DB, stageID, projectID string) error {
	var stage models.Stage
	if err := db.Where("id = ?", stageID).First(&stage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Kind: "stage", ID: stageID}
		}
		return fmt.Errorf("task: check stage %s: %w", stageID, err)
	}
	if stage.ProjectID != projectID {
		return fmt.Errorf("task: stage %s belongs to project %s, not %s", stageID, stage.ProjectID, projectID)
	}
	return nil
}

// loadUsers fetches users by ID, failing if any is missing.
func loadUsers(db *gorm.DB, ids []string) ([]models.User, error) {
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("task: load users: %w", err)
	}
	if len(users) != len(ids) {
		found := make(map[string]bool, len(users))
		for _, u := range users {
			found[u.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, &NotFoundError{Kind: "user", ID: id}
			}
		}
	}
	return users, nil
}
