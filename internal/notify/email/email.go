// Package email implements the notify Transport over SMTP.
package email

import (
	"context"
	"log"

	"github.com/cadreapp/cadre/internal/notify"
	mail "github.com/wneessen/go-mail"
)

// Options holds SMTP connection settings.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// sender abstracts the go-mail client, enabling test doubles.
type sender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// Transport sends notification emails over SMTP.
type Transport struct {
	opts   Options
	client sender // nil outside tests; a fresh client is dialed per send
}

// New creates an SMTP transport.
func New(opts Options) *Transport {
	return &Transport{opts: opts}
}

func (t *Transport) Name() string { return "email" }

// Send delivers one email. Failures are logged and reported as false,
// never returned: a dead SMTP server must not break the mutation path.
func (t *Transport) Send(ctx context.Context, e notify.Email) bool {
	m := mail.NewMsg()
	if err := m.From(t.opts.From); err != nil {
		log.Printf("email: from %q: %v", t.opts.From, err)
		return false
	}
	if err := m.To(e.To); err != nil {
		log.Printf("email: to %q: %v", e.To, err)
		return false
	}
	m.Subject(e.Subject)
	m.SetBodyString(mail.TypeTextHTML, e.HTML)

	client := t.client
	if client == nil {
		c, err := mail.NewClient(t.opts.Host,
			mail.WithPort(t.opts.Port),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.opts.User),
			mail.WithPassword(t.opts.Password),
		)
		if err != nil {
			log.Printf("email: client for %s:%d: %v", t.opts.Host, t.opts.Port, err)
			return false
		}
		client = c
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		log.Printf("email: send to %s: %v", e.To, err)
		return false
	}
	return true
}
