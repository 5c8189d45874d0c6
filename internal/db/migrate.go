package db

import (
	"fmt"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Project{},
		&models.Stage{},
		&models.Task{},
		&models.TaskDependency{},
		&models.ConfirmationToken{},
		&models.Permission{},
		&models.RolePermission{},
		&models.ActivityLog{},
		&models.EmailLog{},
		&models.Notification{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// grant is one role→(resource, action) row of the default permission matrix.
type grant struct {
	role     string
	resource string
	action   string
}

// defaultGrants is the seeded permission matrix. Admin holds the wildcard;
// managers manage project-scoped resources; employees read and update the
// tasks they are assigned to (the finer gate is the access predicates).
var defaultGrants = []grant{
	{models.RoleAdmin, "*", "manage"},

	{models.RoleManager, "projects", "manage"},
	{models.RoleManager, "stages", "manage"},
	{models.RoleManager, "tasks", "manage"},
	{models.RoleManager, "users", "read"},

	{models.RoleEmployee, "projects", "read"},
	{models.RoleEmployee, "stages", "read"},
	{models.RoleEmployee, "tasks", "read"},
	{models.RoleEmployee, "tasks", "update"},
}

// SeedPermissions upserts the default role→permission matrix. Existing rows
// are left alone, so locally customized grants survive reseeding.
func SeedPermissions(db *gorm.DB) error {
	for _, g := range defaultGrants {
		perm := models.Permission{Resource: g.resource, Action: g.action}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "resource"}, {Name: "action"}},
			DoNothing: true,
		}).Create(&perm)
		if result.Error != nil {
			return fmt.Errorf("db: seed permission %s/%s: %w", g.resource, g.action, result.Error)
		}

		// OnConflict DoNothing leaves the ID zero when the row already
		// existed, so fetch it back.
		if perm.ID == 0 {
			if err := db.Where("resource = ? AND action = ?", g.resource, g.action).
				First(&perm).Error; err != nil {
				return fmt.Errorf("db: lookup permission %s/%s: %w", g.resource, g.action, err)
			}
		}

		rp := models.RolePermission{Role: g.role, PermissionID: perm.ID}
		result = db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rp)
		if result.Error != nil {
			return fmt.Errorf("db: seed role permission %s → %s/%s: %w", g.role, g.resource, g.action, result.Error)
		}
	}
	return nil
}
