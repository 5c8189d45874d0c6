package notify

import (
	"context"
	"strings"
)

// Email is one rendered notification addressed to a single recipient.
type Email struct {
	To       string
	Subject  string
	HTML     string
	UserID   string
	Metadata map[string]string
}

// Transport delivers a rendered notification over one channel. Send must
// never panic and never block past its context; it reports delivery as a
// boolean because notification failure is always recovered locally.
type Transport interface {
	Name() string
	Send(ctx context.Context, e Email) bool
}

// PlainText flattens the rendered HTML body for chat transports.
func PlainText(html string) string {
	r := strings.NewReplacer(
		"<br>", "\n", "<br/>", "\n", "<br />", "\n",
		"</p>", "\n", "</li>", "\n", "</h1>", "\n", "</h2>", "\n",
	)
	s := r.Replace(html)

	var b strings.Builder
	inTag := false
	for _, c := range s {
		switch {
		case c == '<':
			inTag = true
		case c == '>':
			inTag = false
		case !inTag:
			b.WriteRune(c)
		}
	}
	return strings.TrimSpace(b.String())
}
