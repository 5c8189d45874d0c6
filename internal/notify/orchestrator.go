package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/cadreapp/cadre/internal/activity"
	"github.com/cadreapp/cadre/internal/models"
	"gorm.io/gorm"
)

// Orchestrator resolves recipients, renders templates, and dispatches
// notifications through every configured transport.
type Orchestrator struct {
	db         *gorm.DB
	aliases    map[string]string
	transports []Transport
}

// New creates an orchestrator. With no transports it still resolves
// recipients and writes logs, which is what tests and dry runs want.
func New(db *gorm.DB, aliases map[string]string, transports ...Transport) *Orchestrator {
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &Orchestrator{db: db, aliases: aliases, transports: transports}
}

// Send fans a notification out to its recipients. It never returns an
// error: notification delivery is best-effort and must not abort the
// mutation that triggered it, so every failure is logged and swallowed.
// One transport or recipient failing does not stop the rest.
func (o *Orchestrator) Send(ctx context.Context, c Context) {
	recipients := o.Recipients(c)
	if len(recipients) == 0 {
		log.Printf("notify: %s on %s/%s: no recipients", c.Action, c.Entity.Type, c.Entity.ID)
		return
	}

	subject, html, ok := Content(c)
	if !ok {
		log.Printf("notify: no template for action %s, skipping", c.Action)
		return
	}

	sent := 0
	for _, to := range recipients {
		e := Email{
			To:       to,
			Subject:  subject,
			HTML:     html,
			UserID:   c.Actor.ID,
			Metadata: c.Metadata,
		}
		if o.dispatch(ctx, e) {
			sent++
		}
	}

	// One summary row regardless of per-recipient failures.
	activity.Log(o.db, activity.Entry{
		UserID:     c.Actor.ID,
		Action:     "notifications_sent",
		EntityType: c.Entity.Type,
		EntityID:   c.Entity.ID,
		Details:    fmt.Sprintf("notifications sent to %d recipients", len(recipients)),
	})
	log.Printf("notify: %s on %s/%s: delivered %d/%d", c.Action, c.Entity.Type, c.Entity.ID, sent, len(recipients))
}

// dispatch delivers one email through every transport, recording an
// EmailLog row per channel: PENDING before the attempt, SENT or FAILED
// after. Returns true if at least one channel delivered.
func (o *Orchestrator) dispatch(ctx context.Context, e Email) bool {
	delivered := false
	for _, t := range o.transports {
		row := models.EmailLog{
			Recipient: e.To,
			Subject:   e.Subject,
			Channel:   t.Name(),
			Status:    models.EmailPending,
			UserID:    e.UserID,
		}
		if err := o.db.Create(&row).Error; err != nil {
			log.Printf("notify: email log for %s via %s: %v", e.To, t.Name(), err)
		}

		status := models.EmailFailed
		if t.Send(ctx, e) {
			status = models.EmailSent
			delivered = true
		} else {
			log.Printf("notify: send to %s via %s failed", e.To, t.Name())
		}

		if row.ID != 0 {
			if err := o.db.Model(&models.EmailLog{}).Where("id = ?", row.ID).
				Update("status", status).Error; err != nil {
				log.Printf("notify: update email log %d: %v", row.ID, err)
			}
		}
	}
	return delivered
}

// Aliases exposes the role alias table for callers that share the
// orchestrator's role mapping (e.g. the task update notification policy).
func (o *Orchestrator) Aliases() map[string]string {
	return o.aliases
}
