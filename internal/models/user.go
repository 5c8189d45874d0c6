package models

import "time"

// Stored role values on User rows. Legacy spellings (e.g. "PROJECT_MANAGER")
// are resolved through the config alias table, never hardcoded here.
const (
	RoleAdmin    = "ADMIN"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

// User is an account that manages projects or works on tasks.
type User struct {
	ID        string `gorm:"primaryKey;size:32"`
	Name      string `gorm:"size:128;not null"`
	Email     string `gorm:"size:256;uniqueIndex;not null"`
	Role      string `gorm:"size:32;default:EMPLOYEE;index"`
	Active    bool   `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Tasks []Task `gorm:"many2many:task_assignees"`
}
