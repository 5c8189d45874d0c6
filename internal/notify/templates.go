package notify

import "fmt"

// templates maps each action type to its renderer. An action type absent
// from this registry yields ok=false from Content and the orchestrator
// skips it — adding a constant without a template is a silent no-send,
// not an error.
var templates = map[ActionType]func(Context) (subject, html string){
	TaskCreated: func(c Context) (string, string) {
		return fmt.Sprintf("Nouvelle tâche : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p><strong>%s</strong> a créé la tâche <strong>%s</strong>.</p>", c.Actor.Name, c.Entity.Title))
	},
	TaskAssigned: func(c Context) (string, string) {
		return fmt.Sprintf("Tâche assignée : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p><strong>%s</strong> vous a assigné la tâche <strong>%s</strong>.</p>", c.Actor.Name, c.Entity.Title))
	},
	TaskStatusChanged: func(c Context) (string, string) {
		return fmt.Sprintf("Statut mis à jour : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p>La tâche <strong>%s</strong> est passée de %s à %s (par %s).</p>",
				c.Entity.Title, c.Metadata["old_status"], c.Metadata["new_status"], c.Actor.Name))
	},
	TaskCompleted: func(c Context) (string, string) {
		return fmt.Sprintf("Tâche terminée : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p><strong>%s</strong> a terminé la tâche <strong>%s</strong>.</p>", c.Actor.Name, c.Entity.Title))
	},
	TaskUpdated: func(c Context) (string, string) {
		return fmt.Sprintf("Tâche mise à jour : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p><strong>%s</strong> a mis à jour la tâche <strong>%s</strong>.</p>", c.Actor.Name, c.Entity.Title))
	},
	TaskRefused: func(c Context) (string, string) {
		return fmt.Sprintf("Tâche refusée : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p><strong>%s</strong> a refusé la tâche <strong>%s</strong>.</p>", c.Actor.Name, c.Entity.Title))
	},
	TaskOverdue: func(c Context) (string, string) {
		return fmt.Sprintf("Tâche en retard : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p>La tâche <strong>%s</strong> a dépassé son échéance (%s).</p>",
				c.Entity.Title, c.Metadata["due_date"]))
	},
	ProjectCreated: func(c Context) (string, string) {
		return fmt.Sprintf("Nouveau projet : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p><strong>%s</strong> a créé le projet <strong>%s</strong>.</p>", c.Actor.Name, c.Entity.Title))
	},
	StageCompleted: func(c Context) (string, string) {
		return fmt.Sprintf("Étape terminée : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p>L'étape <strong>%s</strong> est terminée.</p>", c.Entity.Title))
	},
	StageUpdated: func(c Context) (string, string) {
		return fmt.Sprintf("Étape mise à jour : %s", c.Entity.Title),
			body(c, fmt.Sprintf("<p>L'étape <strong>%s</strong> a été mise à jour par <strong>%s</strong>.</p>", c.Entity.Title, c.Actor.Name))
	},
}

// Content renders the subject and HTML body for a context. ok is false for
// any action type without a registered template.
func Content(c Context) (subject, html string, ok bool) {
	tmpl, ok := templates[c.Action]
	if !ok {
		return "", "", false
	}
	subject, html = tmpl(c)
	return subject, html, true
}

// body wraps the message fragment with the shared frame and, when the
// context carries a confirmation link, the action button.
func body(c Context, fragment string) string {
	html := fragment
	if url := c.Metadata["confirm_url"]; url != "" {
		html += fmt.Sprintf(`<p><a href="%s">Confirmer</a></p>`, url)
	}
	return html
}
