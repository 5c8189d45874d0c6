// Package project provides project lifecycle operations.
package project

import (
	"errors"
	"fmt"
	"time"

	"github.com/cadreapp/cadre/internal/models"
	"github.com/cadreapp/cadre/internal/notify"
	"gorm.io/gorm"
)

// NotFoundError reports a missing project.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project: not found: %s", e.ID)
}

// ValidTransitions maps each project status to its valid next statuses.
// These are externally driven; only the stage coordinator completes a
// project automatically.
var ValidTransitions = map[string][]string{
	models.ProjectPlanning:   {models.ProjectInProgress, models.ProjectOnHold, models.ProjectCancelled},
	models.ProjectInProgress: {models.ProjectOnHold, models.ProjectCompleted, models.ProjectCancelled},
	models.ProjectOnHold:     {models.ProjectInProgress, models.ProjectCancelled},
}

// CreateOpts holds parameters for creating a new project.
type CreateOpts struct {
	Title       string
	Description string
	ManagerID   string
	CreatedByID string
}

// Create creates a project in PLANNING and returns it along with the
// PROJECT_CREATED notification context for post-commit dispatch.
func Create(db *gorm.DB, opts CreateOpts) (*models.Project, *notify.Context, error) {
	if opts.Title == "" {
		return nil, nil, fmt.Errorf("project: title is required")
	}
	if opts.CreatedByID == "" {
		return nil, nil, fmt.Errorf("project: creator is required")
	}

	var creator models.User
	if err := db.Where("id = ?", opts.CreatedByID).First(&creator).Error; err != nil {
		return nil, nil, fmt.Errorf("project: creator %s: %w", opts.CreatedByID, err)
	}

	id, err := models.GenerateID("proj")
	if err != nil {
		return nil, nil, err
	}

	p := models.Project{
		ID:          id,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      models.ProjectPlanning,
		CreatedByID: opts.CreatedByID,
	}

	var affected []notify.UserRef
	if opts.ManagerID != "" {
		var manager models.User
		if err := db.Where("id = ?", opts.ManagerID).First(&manager).Error; err != nil {
			return nil, nil, fmt.Errorf("project: manager %s: %w", opts.ManagerID, err)
		}
		p.ManagerID = &opts.ManagerID
		affected = append(affected, notify.UserRef{
			ID: manager.ID, Name: manager.Name, Email: manager.Email, Role: manager.Role,
		})
	}

	if err := db.Create(&p).Error; err != nil {
		return nil, nil, fmt.Errorf("project: create: %w", err)
	}

	nc := &notify.Context{
		Action:        notify.ProjectCreated,
		Actor:         notify.UserRef{ID: creator.ID, Name: creator.Name, Email: creator.Email, Role: creator.Role},
		Entity:        notify.Entity{Type: "project", ID: p.ID, Title: p.Title},
		AffectedUsers: affected,
		ProjectID:     p.ID,
	}
	return &p, nc, nil
}

// Get retrieves a project by ID, preloading manager and stages.
func Get(db *gorm.DB, id string) (*models.Project, error) {
	var p models.Project
	err := db.Preload("Manager").
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("project: get %s: %w", id, err)
	}
	return &p, nil
}

// ListFilters holds optional filters for listing projects.
type ListFilters struct {
	Status    string
	ManagerID string
}

// List returns projects matching the given filters, newest first.
func List(db *gorm.DB, filters ListFilters) ([]models.Project, error) {
	q := db.Model(&models.Project{})
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}
	if filters.ManagerID != "" {
		q = q.Where("manager_id = ?", filters.ManagerID)
	}

	var projects []models.Project
	if err := q.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}
	return projects, nil
}

// UpdateStatus applies an externally driven status transition.
func UpdateStatus(db *gorm.DB, id, newStatus string) error {
	var p models.Project
	if err := db.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{ID: id}
		}
		return fmt.Errorf("project: get %s: %w", id, err)
	}

	if p.Status == newStatus {
		return nil
	}
	valid := false
	for _, s := range ValidTransitions[p.Status] {
		if s == newStatus {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("project: invalid status transition from %q to %q; valid transitions: %v",
			p.Status, newStatus, ValidTransitions[p.Status])
	}

	updates := map[string]interface{}{"status": newStatus}
	if newStatus == models.ProjectCompleted {
		updates["completed_at"] = time.Now()
	}
	if err := db.Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("project: update %s: %w", id, err)
	}
	return nil
}

// ResolveManager returns the project's managing user: the manager when
// set, otherwise the creator.
func ResolveManager(db *gorm.DB, p *models.Project) (*models.User, error) {
	id := p.CreatedByID
	if p.ManagerID != nil && *p.ManagerID != "" {
		id = *p.ManagerID
	}
	var u models.User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, fmt.Errorf("project: resolve manager of %s: %w", p.ID, err)
	}
	return &u, nil
}
