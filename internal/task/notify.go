package task

import (
	"context"

	"github.com/cadreapp/cadre/internal/access"
	"github.com/cadreapp/cadre/internal/models"
	"github.com/cadreapp/cadre/internal/notify"
	"github.com/cadreapp/cadre/internal/token"
	"gorm.io/gorm"
)

// NotifyOpts carries what the dispatch decision needs beyond the update
// result itself.
type NotifyOpts struct {
	Actor   notify.UserRef
	BaseURL string // prefix for confirmation links, e.g. https://cadre.example.com
}

// NotifyUpdate runs the post-commit notification policy for a task update.
// The branches are mutually exclusive, in priority order:
//
//	(a) assignee set changed and is non-empty → TASK_ASSIGNED to each new
//	    assignee, each with its own confirmation token
//	(b) status changed → TASK_COMPLETED / TASK_REFUSED / TASK_STATUS_CHANGED
//	    to all current assignees, with at most one token (for the first
//	    assignee) and only when the actor is not a plain user
//	(c) some other tracked field changed → TASK_UPDATED to all current
//	    assignees
//
// Best-effort by construction: everything below the mutation commit only
// logs on failure.
func NotifyUpdate(ctx context.Context, db *gorm.DB, orch *notify.Orchestrator, opts NotifyOpts, res *UpdateResult) {
	t := res.Task

	switch {
	case res.AssigneesChanged && len(t.Assignees) > 0:
		for _, u := range res.AddedAssignees {
			tok := token.Create(db, token.CreateOpts{
				Type:       token.TypeTaskAssignment,
				UserID:     u.ID,
				EntityType: "task",
				EntityID:   t.ID,
			})
			orch.Send(ctx, notify.Context{
				Action:        notify.TaskAssigned,
				Actor:         opts.Actor,
				Entity:        notify.Entity{Type: "task", ID: t.ID, Title: t.Title},
				AffectedUsers: []notify.UserRef{userRef(u)},
				ProjectID:     t.ProjectID,
				Metadata:      confirmMeta(opts.BaseURL, tok),
			})
		}

	case res.StatusChanged:
		action := notify.TaskStatusChanged
		switch t.Status {
		case models.TaskCompleted:
			action = notify.TaskCompleted
		case models.TaskRefused:
			action = notify.TaskRefused
		}

		meta := map[string]string{
			"old_status": res.OldStatus,
			"new_status": t.Status,
		}
		if len(t.Assignees) > 0 && access.MapRole(opts.Actor.Role, orch.Aliases()) != access.RoleUser {
			tok := token.Create(db, token.CreateOpts{
				Type:       token.TypeTaskStatusChange,
				UserID:     t.Assignees[0].ID,
				EntityType: "task",
				EntityID:   t.ID,
			})
			for k, v := range confirmMeta(opts.BaseURL, tok) {
				meta[k] = v
			}
		}

		orch.Send(ctx, notify.Context{
			Action:        action,
			Actor:         opts.Actor,
			Entity:        notify.Entity{Type: "task", ID: t.ID, Title: t.Title},
			AffectedUsers: userRefs(t.Assignees),
			ProjectID:     t.ProjectID,
			Metadata:      meta,
		})

	case res.OtherChanged:
		orch.Send(ctx, notify.Context{
			Action:        notify.TaskUpdated,
			Actor:         opts.Actor,
			Entity:        notify.Entity{Type: "task", ID: t.ID, Title: t.Title},
			AffectedUsers: userRefs(t.Assignees),
			ProjectID:     t.ProjectID,
		})
	}
}

// NotifyCreate sends the TASK_CREATED notification and, when the new task
// already has assignees, a TASK_ASSIGNED notification with a confirmation
// token per assignee.
func NotifyCreate(ctx context.Context, db *gorm.DB, orch *notify.Orchestrator, opts NotifyOpts, t *models.Task) {
	orch.Send(ctx, notify.Context{
		Action:        notify.TaskCreated,
		Actor:         opts.Actor,
		Entity:        notify.Entity{Type: "task", ID: t.ID, Title: t.Title},
		AffectedUsers: userRefs(t.Assignees),
		ProjectID:     t.ProjectID,
	})

	for _, u := range t.Assignees {
		tok := token.Create(db, token.CreateOpts{
			Type:       token.TypeTaskAssignment,
			UserID:     u.ID,
			EntityType: "task",
			EntityID:   t.ID,
		})
		orch.Send(ctx, notify.Context{
			Action:        notify.TaskAssigned,
			Actor:         opts.Actor,
			Entity:        notify.Entity{Type: "task", ID: t.ID, Title: t.Title},
			AffectedUsers: []notify.UserRef{userRef(u)},
			ProjectID:     t.ProjectID,
			Metadata:      confirmMeta(opts.BaseURL, tok),
		})
	}
}

// confirmMeta builds the confirmation-link metadata. A failed token
// creation yields an empty map: the link is omitted, not the email.
func confirmMeta(baseURL, tok string) map[string]string {
	if tok == "" {
		return map[string]string{}
	}
	return map[string]string{"confirm_url": baseURL + "/confirm/" + tok}
}

func userRef(u models.User) notify.UserRef {
	return notify.UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func userRefs(users []models.User) []notify.UserRef {
	refs := make([]notify.UserRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, userRef(u))
	}
	return refs
}
