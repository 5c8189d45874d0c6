package task

import (
	"errors"
	"fmt"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// Dependency errors, distinct so handlers can map them to their HTTP
// statuses (400 self-dependency, 404 missing task, 409 duplicate,
// 400 cycle).
var (
	ErrSelfDependency      = errors.New("task: self-dependency not allowed")
	ErrDuplicateDependency = errors.New("task: dependency already exists")
	ErrCycle               = errors.New("task: dependency would create a cycle")
)

// AddDep records that taskID depends on dependsOnID: dependsOnID must
// complete before taskID. Rejects self-dependency, unknown tasks,
// duplicate edges, and edges that would close a cycle — in that order,
// before any write.
func AddDep(db *gorm.DB, taskID, dependsOnID string) error {
	if taskID == dependsOnID {
		return fmt.Errorf("%w: %s", ErrSelfDependency, taskID)
	}

	for _, id := range []string{taskID, dependsOnID} {
		var count int64
		if err := db.Model(&models.Task{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("task: check %s: %w", id, err)
		}
		if count == 0 {
			return &NotFoundError{Kind: "task", ID: id}
		}
	}

	var count int64
	if err := db.Model(&models.TaskDependency{}).
		Where("task_id = ? AND depends_on_id = ?", taskID, dependsOnID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("task: check dependency %s → %s: %w", taskID, dependsOnID, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s → %s", ErrDuplicateDependency, taskID, dependsOnID)
	}

	if HasCircularDependency(db, taskID, dependsOnID) {
		return fmt.Errorf("%w: %s → %s", ErrCycle, taskID, dependsOnID)
	}

	dep := models.TaskDependency{TaskID: taskID, DependsOnID: dependsOnID}
	if err := db.Create(&dep).Error; err != nil {
		return fmt.Errorf("task: create dependency %s → %s: %w", taskID, dependsOnID, err)
	}
	return nil
}

// ListDeps returns the blockers of a task (what it depends on) and its
// dependents (what depends on it).
func ListDeps(db *gorm.DB, taskID string) (blockers, dependents []models.TaskDependency, err error) {
	if err := db.Where("task_id = ?", taskID).Find(&blockers).Error; err != nil {
		return nil, nil, fmt.Errorf("task: list blockers of %s: %w", taskID, err)
	}
	if err := db.Where("depends_on_id = ?", taskID).Find(&dependents).Error; err != nil {
		return nil, nil, fmt.Errorf("task: list dependents of %s: %w", taskID, err)
	}
	return blockers, dependents, nil
}

// RemoveDep deletes a dependency edge.
func RemoveDep(db *gorm.DB, taskID, dependsOnID string) error {
	result := db.Where("task_id = ? AND depends_on_id = ?", taskID, dependsOnID).
		Delete(&models.TaskDependency{})
	if result.Error != nil {
		return fmt.Errorf("task: remove dependency %s → %s: %w", taskID, dependsOnID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task: dependency %s → %s not found", taskID, dependsOnID)
	}
	return nil
}

// ReadyTasks returns non-terminal tasks of a project whose blockers are
// all completed.
func ReadyTasks(db *gorm.DB, projectID string) ([]models.Task, error) {
	q := db.Where("project_id = ? AND status = ?", projectID, models.TaskTodo).
		Where("id NOT IN (?)",
			db.Table("task_dependencies").
				Select("task_dependencies.task_id").
				Joins("JOIN tasks blocker ON task_dependencies.depends_on_id = blocker.id").
				Where("blocker.status <> ?", models.TaskCompleted),
		)

	var tasks []models.Task
	if err := q.Order("due_date ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("task: ready: %w", err)
	}
	return tasks, nil
}

// HasCircularDependency checks whether adding edge taskID → dependsOnID
// would close a cycle: it walks the existing graph from dependsOnID's own
// blockers and reports whether taskID is reachable.
func HasCircularDependency(db *gorm.DB, taskID, dependsOnID string) bool {
	visited := make(map[string]bool)
	return reachable(db, dependsOnID, taskID, visited)
}

// reachable performs a DFS from current following depends_on edges to
// determine if target is reachable. The visited set keeps the walk
// terminating even over a graph that already contains a cycle.
func reachable(db *gorm.DB, current, target string, visited map[string]bool) bool {
	if current == target {
		return true
	}
	if visited[current] {
		return false
	}
	visited[current] = true

	var deps []models.TaskDependency
	if err := db.Where("task_id = ?", current).Find(&deps).Error; err != nil {
		return false
	}
	for _, d := range deps {
		if reachable(db, d.DependsOnID, target, visited) {
			return true
		}
	}
	return false
}
