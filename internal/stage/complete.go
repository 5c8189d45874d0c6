package stage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cadreapp/cadre/internal/activity"
	"github.com/cadreapp/cadre/internal/models"
	"github.com/cadreapp/cadre/internal/notify"
	"github.com/cadreapp/cadre/internal/project"
	"gorm.io/gorm"
)

// CompleteResult reports what a stage completion cascaded into.
type CompleteResult struct {
	Stage              *models.Stage
	AllStagesCompleted bool
	Manager            *models.User  // resolved managing user when the project completed
	NextStage          *models.Stage // the stage auto-advanced to IN_PROGRESS, nil if none
	Notification       *notify.Context
}

// Complete marks a stage COMPLETED and runs the cascade, all inside one
// transaction:
//
//  1. gate: the stage must be PENDING or IN_PROGRESS (completion is not
//     repeatable and a blocked stage must be unblocked first), and every
//     task of the stage must be COMPLETED, otherwise
//     IncompleteTasksError with the exact count
//  2. persist the stage status
//  3. if every stage of the project is now COMPLETED, complete the
//     project, resolve its managing user, and write the PROJECT_COMPLETED
//     notification row directly
//  4. auto-advance: the next stage by position (gaps tolerated) moves
//     PENDING → IN_PROGRESS; any other status is left unchanged
//
// The returned Notification (STAGE_COMPLETED, addressed to the managing
// user) is for the caller to dispatch after commit.
func Complete(db *gorm.DB, id string, actor notify.UserRef) (*CompleteResult, error) {
	res := &CompleteResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		var s models.Stage
		if err := tx.Where("id = ?", id).First(&s).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{ID: id}
			}
			return fmt.Errorf("stage: get %s: %w", id, err)
		}

		if s.Status != models.StagePending && s.Status != models.StageInProgress {
			return fmt.Errorf("stage: cannot complete %s stage %s", s.Status, s.ID)
		}

		var incomplete int64
		if err := tx.Model(&models.Task{}).
			Where("stage_id = ? AND status <> ?", s.ID, models.TaskCompleted).
			Count(&incomplete).Error; err != nil {
			return fmt.Errorf("stage: count open tasks of %s: %w", s.ID, err)
		}
		if incomplete > 0 {
			return &IncompleteTasksError{Count: int(incomplete)}
		}

		now := time.Now()
		if err := tx.Model(&models.Stage{}).Where("id = ?", s.ID).
			Updates(map[string]interface{}{"status": models.StageCompleted, "completed_at": now}).Error; err != nil {
			return fmt.Errorf("stage: complete %s: %w", s.ID, err)
		}
		s.Status = models.StageCompleted
		s.CompletedAt = &now
		res.Stage = &s

		var p models.Project
		if err := tx.Where("id = ?", s.ProjectID).First(&p).Error; err != nil {
			return fmt.Errorf("stage: project %s: %w", s.ProjectID, err)
		}

		manager, err := project.ResolveManager(tx, &p)
		if err != nil {
			return err
		}

		res.Notification = &notify.Context{
			Action: notify.StageCompleted,
			Actor:  actor,
			Entity: notify.Entity{Type: "stage", ID: s.ID, Title: s.Name},
			AffectedUsers: []notify.UserRef{{
				ID: manager.ID, Name: manager.Name, Email: manager.Email, Role: manager.Role,
			}},
			ProjectID: s.ProjectID,
		}

		var remaining int64
		if err := tx.Model(&models.Stage{}).
			Where("project_id = ? AND status <> ?", s.ProjectID, models.StageCompleted).
			Count(&remaining).Error; err != nil {
			return fmt.Errorf("stage: count open stages of %s: %w", s.ProjectID, err)
		}
		if remaining == 0 {
			if err := completeProject(tx, &p, manager); err != nil {
				return err
			}
			res.AllStagesCompleted = true
			res.Manager = manager
		}

		next, err := advanceNext(tx, &s)
		if err != nil {
			return err
		}
		res.NextStage = next

		return nil
	})
	if err != nil {
		return nil, err
	}

	activity.Log(db, activity.Entry{
		UserID:     actor.ID,
		Action:     "stage_completed",
		EntityType: "stage",
		EntityID:   res.Stage.ID,
		Details:    fmt.Sprintf("all_stages_completed=%t", res.AllStagesCompleted),
	})
	return res, nil
}

// completeProject marks the project COMPLETED and writes the
// PROJECT_COMPLETED notification row for the managing user directly,
// bypassing the orchestrator. Deliberate shortcut: project completion is
// derived inside the same transaction as its cause, and the in-app row is
// its only notification.
func completeProject(tx *gorm.DB, p *models.Project, manager *models.User) error {
	if p.Status != models.ProjectCompleted {
		now := time.Now()
		if err := tx.Model(&models.Project{}).Where("id = ?", p.ID).
			Updates(map[string]interface{}{"status": models.ProjectCompleted, "completed_at": now}).Error; err != nil {
			return fmt.Errorf("stage: complete project %s: %w", p.ID, err)
		}
	}

	row := models.Notification{
		UserID:     manager.ID,
		Type:       string(notify.ProjectCompleted),
		Title:      fmt.Sprintf("Projet terminé : %s", p.Title),
		Body:       fmt.Sprintf("Toutes les étapes du projet %s sont terminées.", p.Title),
		EntityType: "project",
		EntityID:   p.ID,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("stage: project completion notification for %s: %w", p.ID, err)
	}
	return nil
}

// advanceNext moves the next stage by position to IN_PROGRESS when it is
// PENDING. Positions may have gaps, so "next" is the minimum position
// greater than the completed stage's, not position+1.
func advanceNext(tx *gorm.DB, s *models.Stage) (*models.Stage, error) {
	var next models.Stage
	err := tx.Where("project_id = ? AND position > ?", s.ProjectID, s.Position).
		Order("position ASC").First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("stage: next stage after %s: %w", s.ID, err)
	}

	if next.Status != models.StagePending {
		return nil, nil
	}

	if err := tx.Model(&models.Stage{}).Where("id = ?", next.ID).
		Update("status", models.StageInProgress).Error; err != nil {
		return nil, fmt.Errorf("stage: advance %s: %w", next.ID, err)
	}
	next.Status = models.StageInProgress
	return &next, nil
}
