// Package notify computes notification recipients from role-based fan-out
// rules, renders templates, and dispatches through configured transports.
package notify

// ActionType identifies what happened. It is a closed set: the template
// registry and the confirmation dispatcher switch over these constants, and
// an unregistered type is skipped, never an error.
type ActionType string

const (
	TaskCreated       ActionType = "TASK_CREATED"
	TaskAssigned      ActionType = "TASK_ASSIGNED"
	TaskStatusChanged ActionType = "TASK_STATUS_CHANGED"
	TaskCompleted     ActionType = "TASK_COMPLETED"
	TaskUpdated       ActionType = "TASK_UPDATED"
	TaskRefused       ActionType = "TASK_REFUSED"
	TaskOverdue       ActionType = "TASK_OVERDUE"
	ProjectCreated    ActionType = "PROJECT_CREATED"
	ProjectCompleted  ActionType = "PROJECT_COMPLETED"
	StageCompleted    ActionType = "STAGE_COMPLETED"
	StageUpdated      ActionType = "STAGE_UPDATED"
)

// UserRef identifies a user in a notification context.
type UserRef struct {
	ID    string
	Name  string
	Email string
	Role  string // stored role, mapped through the alias table for fan-out
}

// Entity identifies the task/stage/project an action touched.
type Entity struct {
	Type  string // "task", "stage", "project"
	ID    string
	Title string
}

// Context describes who did what, to which entity, affecting whom.
type Context struct {
	Action        ActionType
	Actor         UserRef
	Entity        Entity
	AffectedUsers []UserRef
	ProjectID     string
	Metadata      map[string]string // e.g. confirm_url, old_status, new_status
}
