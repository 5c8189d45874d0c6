package notify

import (
	"log"

	"github.com/cadreapp/cadre/internal/access"
	"github.com/cadreapp/cadre/internal/models"
)

// Recipients computes the deduplicated recipient email set for a context.
// Fan-out depends on the actor's canonical stored role:
//
//	employee: the actor, the project's manager (if any), all admins
//	manager:  the actor, all admins, affected users who are employees
//	admin:    the actor, all affected users, plus the project manager
//	          when there are affected users
//
// Any other role gets no recipients. The switch resolves aliases but
// never folds unknown roles into the employee branch. Empty emails are
// dropped.
func (o *Orchestrator) Recipients(c Context) []string {
	set := newEmailSet()

	switch access.Canonical(c.Actor.Role, o.aliases) {
	case models.RoleEmployee:
		set.add(c.Actor.Email)
		if m := o.projectManager(c.ProjectID); m != nil {
			set.add(m.Email)
		}
		for _, email := range o.adminEmails() {
			set.add(email)
		}

	case models.RoleManager:
		set.add(c.Actor.Email)
		for _, email := range o.adminEmails() {
			set.add(email)
		}
		for _, u := range c.AffectedUsers {
			if access.Canonical(u.Role, o.aliases) == models.RoleEmployee {
				set.add(u.Email)
			}
		}

	case models.RoleAdmin:
		set.add(c.Actor.Email)
		for _, u := range c.AffectedUsers {
			set.add(u.Email)
		}
		if len(c.AffectedUsers) > 0 {
			if m := o.projectManager(c.ProjectID); m != nil {
				set.add(m.Email)
			}
		}
	}

	return set.emails
}

// projectManager loads the managing user of a project, nil when the
// project is unknown or has no manager.
func (o *Orchestrator) projectManager(projectID string) *models.User {
	if projectID == "" {
		return nil
	}
	var p models.Project
	if err := o.db.Preload("Manager").Where("id = ?", projectID).First(&p).Error; err != nil {
		log.Printf("notify: load project %s: %v", projectID, err)
		return nil
	}
	return p.Manager
}

// adminEmails returns the emails of all active admin users.
func (o *Orchestrator) adminEmails() []string {
	var emails []string
	if err := o.db.Model(&models.User{}).
		Where("role = ? AND active = ?", models.RoleAdmin, true).
		Pluck("email", &emails).Error; err != nil {
		log.Printf("notify: load admins: %v", err)
		return nil
	}
	return emails
}

// emailSet deduplicates while preserving insertion order.
type emailSet struct {
	seen   map[string]bool
	emails []string
}

func newEmailSet() *emailSet {
	return &emailSet{seen: make(map[string]bool)}
}

func (s *emailSet) add(email string) {
	if email == "" || s.seen[email] {
		return
	}
	s.seen[email] = true
	s.emails = append(s.emails, email)
}
