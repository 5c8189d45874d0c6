// Package slack mirrors notification emails into a Slack channel.
package slack

import (
	"context"
	"log"

	"github.com/cadreapp/cadre/internal/notify"
	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Transport posts each notification as a channel message.
type Transport struct {
	client  slackClient
	channel string
}

// Opts holds parameters for creating a Slack Transport.
type Opts struct {
	Token   string
	Channel string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack transport.
func New(opts Opts) *Transport {
	client := opts.Client
	if client == nil {
		client = slackapi.New(opts.Token)
	}
	return &Transport{client: client, channel: opts.Channel}
}

func (t *Transport) Name() string { return "slack" }

// Send posts the rendered notification as channel text. Recipient-level
// addressing stays in the subject line; Slack is a mirror channel, not a
// per-user inbox.
func (t *Transport) Send(ctx context.Context, e notify.Email) bool {
	text := "*" + e.Subject + "*\n" + notify.PlainText(e.HTML)
	_, _, err := t.client.PostMessageContext(ctx, t.channel,
		slackapi.MsgOptionText(text, false))
	if err != nil {
		log.Printf("slack: post to %s: %v", t.channel, err)
		return false
	}
	return true
}
