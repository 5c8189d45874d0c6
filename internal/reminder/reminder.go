// Package reminder sends overdue-task reminders on a cron schedule.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cadreapp/cadre/internal/models"
	"github.com/cadreapp/cadre/internal/notify"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// systemActor is the notification actor for scheduler-originated sends.
// It carries the admin role so fan-out reaches the affected assignees and
// the project manager; the empty email drops it from the recipient set.
var systemActor = notify.UserRef{ID: "system", Name: "Cadre", Role: models.RoleAdmin}

// Scheduler runs the reminder job.
type Scheduler struct {
	db   *gorm.DB
	orch *notify.Orchestrator
	cron *cron.Cron
}

// New creates a scheduler with the job registered on the given cron spec
// (e.g. "@daily"). Call Start to begin.
func New(db *gorm.DB, orch *notify.Orchestrator, schedule string) (*Scheduler, error) {
	s := &Scheduler{db: db, orch: orch, cron: cron.New()}
	_, err := s.cron.AddFunc(schedule, func() {
		s.Run(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("reminder: schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the cron loop in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Run sends a TASK_OVERDUE notification for every non-terminal task past
// its due date. Best-effort: per-task failures are absorbed by the
// orchestrator, a query failure is logged.
func (s *Scheduler) Run(ctx context.Context) {
	var tasks []models.Task
	err := s.db.Preload("Assignees").
		Where("due_date IS NOT NULL AND due_date < ?", time.Now()).
		Where("status NOT IN ?", []string{models.TaskCompleted, models.TaskCancelled, models.TaskRefused}).
		Find(&tasks).Error
	if err != nil {
		log.Printf("reminder: load overdue tasks: %v", err)
		return
	}

	for _, t := range tasks {
		affected := make([]notify.UserRef, 0, len(t.Assignees))
		for _, u := range t.Assignees {
			affected = append(affected, notify.UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
		}

		meta := map[string]string{}
		if t.DueDate != nil {
			meta["due_date"] = t.DueDate.Format("2006-01-02")
		}

		s.orch.Send(ctx, notify.Context{
			Action:        notify.TaskOverdue,
			Actor:         systemActor,
			Entity:        notify.Entity{Type: "task", ID: t.ID, Title: t.Title},
			AffectedUsers: affected,
			ProjectID:     t.ProjectID,
			Metadata:      meta,
		})
	}

	if len(tasks) > 0 {
		log.Printf("reminder: processed %d overdue tasks", len(tasks))
	}
}
