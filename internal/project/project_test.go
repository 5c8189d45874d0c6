package project

import (
	"errors"
	"testing"

	"github.com/cadreapp/cadre/internal/models"
	"github.com/cadreapp/cadre/internal/notify"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Project{}, &models.Stage{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, id, role string) models.User {
	t.Helper()
	u := models.User{ID: id, Name: id, Email: id + "@cadre.test", Role: role, Active: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return u
}

func TestCreate(t *testing.T) {
	db := testDB(t)
	creator := createUser(t, db, "usr-admin", models.RoleAdmin)
	manager := createUser(t, db, "usr-mgr", models.RoleManager)

	p, nc, err := Create(db, CreateOpts{
		Title:       "Refonte du site",
		Description: "v2",
		ManagerID:   manager.ID,
		CreatedByID: creator.ID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != models.ProjectPlanning {
		t.Errorf("status = %q, want PLANNING", p.Status)
	}
	if p.ManagerID == nil || *p.ManagerID != manager.ID {
		t.Error("manager not set")
	}

	if nc.Action != notify.ProjectCreated {
		t.Errorf("notification action = %q, want PROJECT_CREATED", nc.Action)
	}
	if nc.Actor.ID != creator.ID {
		t.Errorf("notification actor = %s, want the creator", nc.Actor.ID)
	}
	if len(nc.AffectedUsers) != 1 || nc.AffectedUsers[0].ID != manager.ID {
		t.Errorf("affected = %v, want the manager", nc.AffectedUsers)
	}
}

func TestCreate_Validation(t *testing.T) {
	db := testDB(t)
	createUser(t, db, "usr-admin", models.RoleAdmin)

	cases := []struct {
		name string
		opts CreateOpts
	}{
		{"missing title", CreateOpts{CreatedByID: "usr-admin"}},
		{"missing creator", CreateOpts{Title: "P"}},
		{"unknown creator", CreateOpts{Title: "P", CreatedByID: "usr-ghost"}},
		{"unknown manager", CreateOpts{Title: "P", CreatedByID: "usr-admin", ManagerID: "usr-ghost"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := Create(db, tc.opts); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestCreate_NoManager(t *testing.T) {
	db := testDB(t)
	createUser(t, db, "usr-admin", models.RoleAdmin)

	p, nc, err := Create(db, CreateOpts{Title: "P", CreatedByID: "usr-admin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ManagerID != nil {
		t.Error("manager should be unset")
	}
	if len(nc.AffectedUsers) != 0 {
		t.Errorf("affected = %v, want none", nc.AffectedUsers)
	}
}

func TestGet_PreloadsOrderedStages(t *testing.T) {
	db := testDB(t)
	createUser(t, db, "usr-admin", models.RoleAdmin)
	p, _, err := Create(db, CreateOpts{Title: "P", CreatedByID: "usr-admin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, pos := range []int{4, 1, 2} {
		id, _ := models.GenerateID("stage")
		s := models.Stage{ID: id, Name: "S", Position: pos, Status: models.StagePending, ProjectID: p.ID}
		if err := db.Create(&s).Error; err != nil {
			t.Fatalf("create stage: %v", err)
		}
	}

	got, err := Get(db, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := []int{1, 2, 4}
	if len(got.Stages) != len(want) {
		t.Fatalf("stages = %d, want %d", len(got.Stages), len(want))
	}
	for i, s := range got.Stages {
		if s.Position != want[i] {
			t.Errorf("stages[%d].Position = %d, want %d", i, s.Position, want[i])
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	var nf *NotFoundError
	if _, err := Get(db, "proj-ghost"); !errors.As(err, &nf) {
		t.Errorf("error = %v, want NotFoundError", err)
	}
}

func TestList(t *testing.T) {
	db := testDB(t)
	createUser(t, db, "usr-admin", models.RoleAdmin)
	manager := createUser(t, db, "usr-mgr", models.RoleManager)

	if _, _, err := Create(db, CreateOpts{Title: "A", CreatedByID: "usr-admin", ManagerID: manager.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := Create(db, CreateOpts{Title: "B", CreatedByID: "usr-admin"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := List(db, ListFilters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	managed, err := List(db, ListFilters{ManagerID: manager.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(managed) != 1 || managed[0].Title != "A" {
		t.Errorf("managed = %v, want just A", managed)
	}

	none, err := List(db, ListFilters{Status: models.ProjectCompleted})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("completed = %d, want 0", len(none))
	}
}

func TestUpdateStatus(t *testing.T) {
	db := testDB(t)
	createUser(t, db, "usr-admin", models.RoleAdmin)
	p, _, err := Create(db, CreateOpts{Title: "P", CreatedByID: "usr-admin"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := UpdateStatus(db, p.ID, models.ProjectCompleted); err == nil {
		t.Error("PLANNING → COMPLETED should be rejected")
	}
	if err := UpdateStatus(db, p.ID, models.ProjectInProgress); err != nil {
		t.Fatalf("to IN_PROGRESS: %v", err)
	}
	if err := UpdateStatus(db, p.ID, models.ProjectInProgress); err != nil {
		t.Errorf("no-op transition should pass: %v", err)
	}
	if err := UpdateStatus(db, p.ID, models.ProjectCompleted); err != nil {
		t.Fatalf("to COMPLETED: %v", err)
	}

	got, err := Get(db, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.ProjectCompleted || got.CompletedAt == nil {
		t.Errorf("project = %+v, want COMPLETED with timestamp", got)
	}

	// COMPLETED is terminal.
	if err := UpdateStatus(db, p.ID, models.ProjectInProgress); err == nil {
		t.Error("COMPLETED → IN_PROGRESS should be rejected")
	}
}

func TestResolveManager(t *testing.T) {
	db := testDB(t)
	creator := createUser(t, db, "usr-admin", models.RoleAdmin)
	manager := createUser(t, db, "usr-mgr", models.RoleManager)

	withManager, _, err := Create(db, CreateOpts{Title: "A", CreatedByID: creator.ID, ManagerID: manager.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := ResolveManager(db, withManager)
	if err != nil {
		t.Fatalf("ResolveManager: %v", err)
	}
	if got.ID != manager.ID {
		t.Errorf("manager = %s, want %s", got.ID, manager.ID)
	}

	withoutManager, _, err := Create(db, CreateOpts{Title: "B", CreatedByID: creator.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err = ResolveManager(db, withoutManager)
	if err != nil {
		t.Fatalf("ResolveManager: %v", err)
	}
	if got.ID != creator.ID {
		t.Errorf("fallback = %s, want the creator %s", got.ID, creator.ID)
	}
}
