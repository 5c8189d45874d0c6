package task

import (
	"errors"
	"testing"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// chain creates n tasks in proj-1 and returns their IDs.
func chain(t *testing.T, db *gorm.DB, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = createTask(t, db, "proj-1").ID
	}
	return ids
}

func TestAddDep(t *testing.T) {
	db := testDB(t)
	createProject(t, db, "proj-1")
	ids := chain(t, db, 2)

	if err := AddDep(db, ids[0], ids[1]); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	blockers, dependents, err := ListDeps(db, ids[0])
	if err != nil {
		t.Fatalf("ListDeps: %v", err)
	}
	if len(blockers) != 1 || blockers[0].DependsOnID != ids[1] {
		t.Errorf("blockers = %v, want [%s]", blockers, ids[1])
	}
	if len(dependents) != 0 {
		t.Errorf("dependents = %v, want none", dependents)
	}

	_, dependents, err = ListDeps(db, ids[1])
	if err != nil {
		t.Fatalf("ListDeps: %v", err)
	}
	if len(dependents) != 1 || dependents[0].TaskID != ids[0] {
		t.Errorf("dependents of blocker = %v, want [%s]", dependents, ids[0])
	}
}

func TestAddDep_Rejections(t *testing.T) {
	db := testDB(t)
	createProject(t, db, "proj-1")
	ids := chain(t, db, 2)
	if err := AddDep(db, ids[0], ids[1]); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	if err := AddDep(db, ids[0], ids[0]); !errors.Is(err, ErrSelfDependency) {
		t.Errorf("self-dependency error = %v, want %v", err, ErrSelfDependency)
	}
	if err := AddDep(db, ids[0], ids[1]); !errors.Is(err, ErrDuplicateDependency) {
		t.Errorf("duplicate error = %v, want %v", err, ErrDuplicateDependency)
	}

	var nf *NotFoundError
	if err := AddDep(db, ids[0], "task-ghost"); !errors.As(err, &nf) {
		t.Errorf("unknown task error = %v, want NotFoundError", err)
	}
	if err := AddDep(db, "task-ghost", ids[0]); !errors.As(err, &nf) {
		t.Errorf("unknown task error = %v, want NotFoundError", err)
	}
}

func TestAddDep_Cycle(t *testing.T) {
	db := testDB(t)
	createProject(t, db, "proj-1")
	ids := chain(t, db, 3)
	a, b, c := ids[0], ids[1], ids[2]

	// a depends on b, b depends on c.
	if err := AddDep(db, a, b); err != nil {
		t.Fatalf("AddDep: %v", err)
	}
	if err := AddDep(db, b, c); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	// Direct back-edge and transitive back-edge both close a cycle.
	if err := AddDep(db, b, a); !errors.Is(err, ErrCycle) {
		t.Errorf("direct cycle error = %v, want %v", err, ErrCycle)
	}
	if err := AddDep(db, c, a); !errors.Is(err, ErrCycle) {
		t.Errorf("transitive cycle error = %v, want %v", err, ErrCycle)
	}

	// The rejected edges were not persisted.
	var count int64
	db.Model(&models.TaskDependency{}).Count(&count)
	if count != 2 {
		t.Errorf("dependency rows = %d, want 2", count)
	}
}

func TestHasCircularDependency_Diamond(t *testing.T) {
	db := testDB(t)
	createProject(t, db, "proj-1")
	ids := chain(t, db, 4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]

	// Diamond a→b→d, a→c→d: no cycle, shared node visited once.
	for _, edge := range [][2]string{{a, b}, {a, c}, {b, d}, {c, d}} {
		if err := AddDep(db, edge[0], edge[1]); err != nil {
			t.Fatalf("AddDep(%s, %s): %v", edge[0], edge[1], err)
		}
	}

	if HasCircularDependency(db, a, d) {
		t.Error("a → d closes no cycle in a diamond")
	}
	if !HasCircularDependency(db, d, a) {
		t.Error("d → a closes a cycle")
	}
}

func TestRemoveDep(t *testing.T) {
	db := testDB(t)
	createProject(t, db, "proj-1")
	ids := chain(t, db, 2)
	if err := AddDep(db, ids[0], ids[1]); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	if err := RemoveDep(db, ids[0], ids[1]); err != nil {
		t.Fatalf("RemoveDep: %v", err)
	}
	if err := RemoveDep(db, ids[0], ids[1]); err == nil {
		t.Error("removing a missing edge should fail")
	}
}

func TestReadyTasks(t *testing.T) {
	db := testDB(t)
	createProject(t, db, "proj-1")
	ids := chain(t, db, 3)
	a, b, c := ids[0], ids[1], ids[2]

	// a is blocked by b; c is free.
	if err := AddDep(db, a, b); err != nil {
		t.Fatalf("AddDep: %v", err)
	}

	ready, err := ReadyTasks(db, "proj-1")
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	got := map[string]bool{}
	for _, tk := range ready {
		got[tk.ID] = true
	}
	if got[a] || !got[b] || !got[c] {
		t.Errorf("ready = %v, want b and c but not a", got)
	}

	// Completing the blocker frees a.
	if err := db.Model(&models.Task{}).Where("id = ?", b).
		Update("status", models.TaskCompleted).Error; err != nil {
		t.Fatalf("complete blocker: %v", err)
	}

	ready, err = ReadyTasks(db, "proj-1")
	if err != nil {
		t.Fatalf("ReadyTasks: %v", err)
	}
	got = map[string]bool{}
	for _, tk := range ready {
		got[tk.ID] = true
	}
	if !got[a] {
		t.Error("a should be ready once its blocker is completed")
	}
	if got[b] {
		t.Error("a completed task is not ready")
	}
}
