package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cadreapp/cadre/internal/access"
	"github.com/cadreapp/cadre/internal/models"
	"github.com/cadreapp/cadre/internal/notify"
	"github.com/cadreapp/cadre/internal/token"
	"github.com/gin-gonic/gin"
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
	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.ConfirmationToken{},
		&models.Permission{},
		&models.RolePermission{},
		&models.ActivityLog{},
		&models.EmailLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

type mockTransport struct {
	sent []notify.Email
}

func (m *mockTransport) Name() string { return "email" }
func (m *mockTransport) Send(ctx context.Context, e notify.Email) bool {
	m.sent = append(m.sent, e)
	return true
}

// testRouter assembles the route table the way Start does, without a
// listener.
func testRouter(t *testing.T, db *gorm.DB, resolver *access.Resolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, db, notify.New(db, nil, &mockTransport{}), resolver)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	router := testRouter(t, testDB(t), nil)
	w := do(t, router, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if body := decode(t, w); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestConfirm_Flow(t *testing.T) {
	db := testDB(t)
	router := testRouter(t, db, nil)

	// Seed an employee assigned to a task in a managed project.
	employee := models.User{ID: "usr-emp", Name: "Emp", Email: "emp@cadre.test", Role: models.RoleEmployee, Active: true}
	manager := models.User{ID: "usr-mgr", Name: "Mgr", Email: "mgr@cadre.test", Role: models.RoleManager, Active: true}
	for _, u := range []models.User{employee, manager} {
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	managerID := manager.ID
	p := models.Project{ID: "proj-1", Title: "P", Status: models.ProjectInProgress, ManagerID: &managerID, CreatedByID: manager.ID}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	task := models.Task{ID: "task-1", Title: "T", Status: models.TaskTodo, Priority: models.PriorityMedium, ProjectID: p.ID}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}

	tok := token.Create(db, token.CreateOpts{
		Type:       token.TypeTaskAssignment,
		UserID:     employee.ID,
		EntityType: "task",
		EntityID:   task.ID,
	})

	// First confirmation succeeds and starts the task.
	w := do(t, router, http.MethodGet, "/confirm/"+tok)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["success"] != true || body["type"] != string(token.TypeTaskAssignment) {
		t.Errorf("body = %v", body)
	}

	var got models.Task
	if err := db.Where("id = ?", task.ID).First(&got).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if got.Status != models.TaskInProgress {
		t.Errorf("task status = %q, want IN_PROGRESS", got.Status)
	}

	// Replaying the same link is a conflict.
	w = do(t, router, http.MethodGet, "/confirm/"+tok)
	if w.Code != http.StatusConflict {
		t.Errorf("replay status = %d, want 409", w.Code)
	}
	body = decode(t, w)
	if body["error"] != "Ce token a déjà été utilisé" {
		t.Errorf("replay error = %v", body["error"])
	}
}

func TestConfirm_Unknown(t *testing.T) {
	router := testRouter(t, testDB(t), nil)
	w := do(t, router, http.MethodPost, "/confirm/deadbeef")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if body := decode(t, w); body["error"] != "Token invalide ou expiré" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestConfirm_Expired(t *testing.T) {
	db := testDB(t)
	router := testRouter(t, db, nil)

	row := models.ConfirmationToken{
		Token:      "cccc3333",
		Type:       string(token.TypeTaskAssignment),
		UserID:     "usr-1",
		EntityType: "task",
		EntityID:   "task-1",
		ExpiresAt:  time.Now().Add(-time.Hour),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create fixture: %v", err)
	}

	w := do(t, router, http.MethodGet, "/confirm/cccc3333")
	if w.Code != http.StatusGone {
		t.Errorf("status = %d, want 410", w.Code)
	}
}

func TestAccessCheck(t *testing.T) {
	db := testDB(t)

	perm := models.Permission{Resource: "projects", Action: "manage"}
	if err := db.Create(&perm).Error; err != nil {
		t.Fatalf("create permission: %v", err)
	}
	rp := models.RolePermission{Role: models.RoleManager, PermissionID: perm.ID}
	if err := db.Create(&rp).Error; err != nil {
		t.Fatalf("grant: %v", err)
	}

	resolver := access.NewResolver(access.ResolverOpts{DB: db})
	router := testRouter(t, db, resolver)

	w := do(t, router, http.MethodGet, "/access/check?role=MANAGER&resource=projects&action=update")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/access/check?role=EMPLOYEE&resource=projects&action=delete")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	body := decode(t, w)
	errMsg, _ := body["error"].(string)
	if !strings.Contains(errMsg, "Permission denied") {
		t.Errorf("error = %q", errMsg)
	}

	w = do(t, router, http.MethodGet, "/access/check?role=MANAGER")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing params", w.Code)
	}
}
