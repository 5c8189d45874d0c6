// Package access provides role mapping, coarse permission checks, and
// entity-level access predicates.
package access

// Role is an application role resolved from a stored role name.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Canonical resolves a stored role name through the alias table and
// returns the canonical spelling. Unlike MapRole it does not fold unknown
// names into anything: an unrecognized role comes back unchanged, so
// callers can treat it as "no role" instead of "plain user".
func Canonical(stored string, aliases map[string]string) string {
	if c, ok := aliases[stored]; ok {
		return c
	}
	return stored
}

// MapRole translates a stored role name to an application role. Legacy
// spellings are resolved through the alias table (config `roles.aliases`)
// before the canonical mapping applies; anything unrecognized is a plain
// user.
func MapRole(stored string, aliases map[string]string) Role {
	if canonical, ok := aliases[stored]; ok {
		stored = canonical
	}
	switch stored {
	case "ADMIN":
		return RoleAdmin
	case "MANAGER":
		return RoleManager
	default:
		return RoleUser
	}
}
