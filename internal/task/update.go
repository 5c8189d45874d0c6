package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// UpdateOpts holds the fields an update may change. Nil pointers mean
// "leave unchanged". Assignees, when non-nil, replaces the whole set;
// the caller must have passed the tasks.assign permission gate before
// calling with it set.
type UpdateOpts struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
	StageID      *string
	Assignees    *[]string
}

func (o UpdateOpts) empty() bool {
	return o.Title == nil && o.Description == nil && o.Status == nil &&
		o.Priority == nil && o.DueDate == nil && !o.ClearDueDate &&
		o.StageID == nil && o.Assignees == nil
}

// UpdateResult reports what an update changed, for the post-commit
// notification decision.
type UpdateResult struct {
	Task             *models.Task
	OldStatus        string
	StatusChanged    bool
	AssigneesChanged bool
	OtherChanged     bool
	AddedAssignees   []models.User
}

// Update applies a task update inside one transaction: field changes,
// status transition validation with completed_at stamping, and whole-set
// assignee replacement. Assignee order is not preserved and not
// significant. The notification itself is dispatched by the caller after
// commit (see NotifyUpdate) so a notification failure can never roll the
// mutation back.
func Update(db *gorm.DB, id string, opts UpdateOpts) (*UpdateResult, error) {
	if opts.empty() {
		return nil, ErrEmptyUpdate
	}

	res := &UpdateResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		var t models.Task
		if err := tx.Preload("Assignees").Where("id = ?", id).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "task", ID: id}
			}
			return fmt.Errorf("task: get %s for update: %w", id, err)
		}
		res.OldStatus = t.Status

		updates := map[string]interface{}{}
		if opts.Title != nil && *opts.Title != t.Title {
			if *opts.Title == "" {
				return fmt.Errorf("task: title cannot be empty")
			}
			updates["title"] = *opts.Title
			res.OtherChanged = true
		}
		if opts.Description != nil && *opts.Description != t.Description {
			updates["description"] = *opts.Description
			res.OtherChanged = true
		}
		if opts.Priority != nil && *opts.Priority != t.Priority {
			updates["priority"] = *opts.Priority
			res.OtherChanged = true
		}
		if opts.ClearDueDate {
			updates["due_date"] = nil
			res.OtherChanged = true
		} else if opts.DueDate != nil {
			updates["due_date"] = *opts.DueDate
			res.OtherChanged = true
		}
		if opts.StageID != nil {
			if *opts.StageID == "" {
				updates["stage_id"] = nil
			} else {
				if err := validateStage(tx, *opts.StageID, t.ProjectID); err != nil {
					return err
				}
				updates["stage_id"] = *opts.StageID
			}
			res.OtherChanged = true
		}

		if opts.Status != nil && *opts.Status != t.Status {
			if !isValidTransition(t.Status, *opts.Status) {
				return fmt.Errorf("task: invalid status transition from %q to %q; valid transitions: %v",
					t.Status, *opts.Status, ValidTransitions[t.Status])
			}
			updates["status"] = *opts.Status
			if *opts.Status == models.TaskCompleted && t.CompletedAt == nil {
				updates["completed_at"] = time.Now()
			}
			res.StatusChanged = true
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return fmt.Errorf("task: update %s: %w", id, err)
			}
		}

		if opts.Assignees != nil {
			current := make(map[string]bool, len(t.Assignees))
			for _, u := range t.Assignees {
				current[u.ID] = true
			}

			users, err := loadUsers(tx, *opts.Assignees)
			if err != nil {
				return err
			}

			// Replace is delete-all-reinsert; detect the actual change
			// and the additions before touching the join table.
			changed := len(users) != len(t.Assignees)
			for _, u := range users {
				if !current[u.ID] {
					changed = true
					res.AddedAssignees = append(res.AddedAssignees, u)
				}
			}
			if changed {
				if err := tx.Model(&t).Association("Assignees").Replace(&users); err != nil {
					return fmt.Errorf("task: replace assignees of %s: %w", id, err)
				}
				res.AssigneesChanged = true
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	t, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	res.Task = t
	return res, nil
}
