package access

// CanManageProject reports whether a specific user may manage a specific
// project. Admins always can; managers only for projects they manage.
// Distinct from HasPermission: that answers "can this role ever do X",
// this answers "can this user do X to this project". Both gates must pass.
func CanManageProject(role Role, userID string, projectManagerID *string) bool {
	if role == RoleAdmin {
		return true
	}
	if role == RoleManager && projectManagerID != nil && *projectManagerID == userID {
		return true
	}
	return false
}

// CanEditTask reports whether a specific user may edit a specific task:
// admins, the managing user of the task's project, or any assignee.
func CanEditTask(role Role, userID string, assigneeIDs []string, projectManagerID *string) bool {
	if CanManageProject(role, userID, projectManagerID) {
		return true
	}
	for _, id := range assigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}
