package access

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// DefaultCacheTTL is how long a loaded permission table is served before
// the next call pays a full reload.
const DefaultCacheTTL = 5 * time.Minute

// permEntry is one cached (resource, action) grant.
type permEntry struct {
	resource string
	action   string
}

// Resolver answers coarse (role, resource, action) permission questions
// against a cached role→permission table. The cache is rebuilt wholesale
// once the TTL elapses; the mutex makes concurrent refreshes single-flight.
type Resolver struct {
	db      *gorm.DB
	aliases map[string]string
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	perms    map[string][]permEntry // stored role → grants
	loadedAt time.Time
}

// ResolverOpts holds parameters for creating a Resolver. TTL and Now are
// optional; tests inject Now to drive cache expiry deterministically.
type ResolverOpts struct {
	DB      *gorm.DB
	Aliases map[string]string
	TTL     time.Duration
	Now     func() time.Time
}

// NewResolver creates a permission resolver with an empty cache.
func NewResolver(opts ResolverOpts) *Resolver {
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	aliases := opts.Aliases
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &Resolver{
		db:      opts.DB,
		aliases: aliases,
		ttl:     ttl,
		now:     now,
	}
}

// MapRole resolves a stored role name using the resolver's alias table.
func (r *Resolver) MapRole(stored string) Role {
	return MapRole(stored, r.aliases)
}

// HasPermission reports whether the stored role holds (resource, action),
// either directly, via the role's "manage" action on the resource, or via
// the "*"/manage wildcard. A failed permission load counts as "no
// permissions" — the check fails closed rather than erroring.
func (r *Resolver) HasPermission(role, resource, action string) bool {
	for _, e := range r.grants(role) {
		wildcard := e.resource == "*" && (e.action == "manage" || e.action == action)
		direct := e.resource == resource && (e.action == "manage" || e.action == action)
		if wildcard || direct {
			return true
		}
	}
	return false
}

// DeniedError is the uniform permission denial, mapped to HTTP 403 at the
// boundary.
type DeniedError struct {
	Role     string
	Resource string
	Action   string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("Permission denied: %s cannot %s %s", e.Role, e.Action, e.Resource)
}

// RequirePermission returns a DeniedError when the role lacks the
// permission, nil otherwise.
func (r *Resolver) RequirePermission(role, resource, action string) error {
	if r.HasPermission(role, resource, action) {
		return nil
	}
	return &DeniedError{Role: role, Resource: resource, Action: action}
}

// grants returns the cached grant list for a role, reloading the whole
// table first if the TTL has elapsed.
func (r *Resolver) grants(role string) []permEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.perms == nil || r.now().Sub(r.loadedAt) > r.ttl {
		r.reloadLocked()
	}
	return r.perms[role]
}

// reloadLocked rebuilds the cache from the store. On a query failure the
// cache becomes empty for the TTL window: every role is treated as having
// no permissions, and the failure is logged rather than surfaced.
func (r *Resolver) reloadLocked() {
	perms := make(map[string][]permEntry)

	var rows []models.RolePermission
	if err := r.db.Preload("Permission").Find(&rows).Error; err != nil {
		log.Printf("access: load permissions: %v", err)
		r.perms = perms
		r.loadedAt = r.now()
		return
	}

	for _, row := range rows {
		perms[row.Role] = append(perms[row.Role], permEntry{
			resource: row.Permission.Resource,
			action:   row.Permission.Action,
		})
	}

	r.perms = perms
	r.loadedAt = r.now()
}

// Invalidate drops the cache so the next check reloads immediately.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perms = nil
}
