package token

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cadreapp/cadre/internal/activity"
	"github.com/cadreapp/cadre/internal/models"
	"github.com/cadreapp/cadre/internal/notify"
	"gorm.io/gorm"
)

// ExecuteAction applies the side effect a confirmed token authorizes and
// notifies the project responsibles. Returns false when any step failed.
//
// The status mutation and the notification are different failure domains:
// a committed status change stays committed even if the follow-up email
// fails — that failure is only logged.
func ExecuteAction(ctx context.Context, db *gorm.DB, orch *notify.Orchestrator, data *Data) bool {
	switch data.Type {
	case TypeTaskAssignment:
		return startTask(ctx, db, orch, data)
	case TypeTaskStatusChange, TypeStageStatusChange:
		return acknowledge(ctx, db, orch, data)
	case TypeProjectCreated:
		// Informational token; confirming it has no side effect.
		return true
	default:
		log.Printf("token: unknown confirmation type %q, ignoring", data.Type)
		return false
	}
}

// startTask handles TASK_ASSIGNMENT: the assignee accepted the task from
// the email link, so the task starts.
func startTask(ctx context.Context, db *gorm.DB, orch *notify.Orchestrator, data *Data) bool {
	var task models.Task
	if err := db.Where("id = ?", data.EntityID).First(&task).Error; err != nil {
		log.Printf("token: task %s: %v", data.EntityID, err)
		return false
	}

	oldStatus := task.Status
	if err := db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("status", models.TaskInProgress).Error; err != nil {
		log.Printf("token: start task %s: %v", task.ID, err)
		return false
	}

	activity.Log(db, activity.Entry{
		UserID:     data.UserID,
		Action:     "task_started",
		EntityType: "task",
		EntityID:   task.ID,
		Details:    fmt.Sprintf("started via confirmation link (was %s)", oldStatus),
	})

	actor, ok := actorRef(db, data.UserID)
	if !ok {
		return false
	}
	orch.Send(ctx, notify.Context{
		Action:    notify.TaskStatusChanged,
		Actor:     actor,
		Entity:    notify.Entity{Type: "task", ID: task.ID, Title: task.Title},
		ProjectID: task.ProjectID,
		Metadata: map[string]string{
			"old_status": oldStatus,
			"new_status": models.TaskInProgress,
		},
	})
	return true
}

// acknowledge handles TASK_STATUS_CHANGE and STAGE_STATUS_CHANGE: the
// recipient acknowledged a change; responsibles get a notice.
func acknowledge(ctx context.Context, db *gorm.DB, orch *notify.Orchestrator, data *Data) bool {
	activity.Log(db, activity.Entry{
		UserID:     data.UserID,
		Action:     "change_acknowledged",
		EntityType: data.EntityType,
		EntityID:   data.EntityID,
		Details:    fmt.Sprintf("acknowledged at %s", time.Now().Format(time.RFC3339)),
	})

	actor, ok := actorRef(db, data.UserID)
	if !ok {
		return false
	}

	c := notify.Context{
		Actor:    actor,
		Metadata: map[string]string{"acknowledged": "true"},
	}
	switch data.Type {
	case TypeStageStatusChange:
		var stage models.Stage
		if err := db.Where("id = ?", data.EntityID).First(&stage).Error; err != nil {
			log.Printf("token: stage %s: %v", data.EntityID, err)
			return false
		}
		c.Action = notify.StageUpdated
		c.Entity = notify.Entity{Type: "stage", ID: stage.ID, Title: stage.Name}
		c.ProjectID = stage.ProjectID
	default:
		var task models.Task
		if err := db.Where("id = ?", data.EntityID).First(&task).Error; err != nil {
			log.Printf("token: task %s: %v", data.EntityID, err)
			return false
		}
		c.Action = notify.TaskUpdated
		c.Entity = notify.Entity{Type: "task", ID: task.ID, Title: task.Title}
		c.ProjectID = task.ProjectID
	}

	orch.Send(ctx, c)
	return true
}

// actorRef loads the confirming user as a notification actor.
func actorRef(db *gorm.DB, userID string) (notify.UserRef, bool) {
	var u models.User
	if err := db.Where("id = ?", userID).First(&u).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("token: user %s: %v", userID, err)
		} else {
			log.Printf("token: user %s not found", userID)
		}
		return notify.UserRef{}, false
	}
	return notify.UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}, true
}
