package models

// Permission is a (resource, action) pair a role may hold. The wildcard
// entry resource="*" action="manage" grants everything.
type Permission struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Resource string `gorm:"size:64;not null;uniqueIndex:idx_perm_resource_action"`
	Action   string `gorm:"size:32;not null;uniqueIndex:idx_perm_resource_action"`
}

// RolePermission joins a stored role name to a permission.
type RolePermission struct {
	Role         string `gorm:"primaryKey;size:32"`
	PermissionID uint   `gorm:"primaryKey"`

	Permission Permission `gorm:"foreignKey:PermissionID"`
}
