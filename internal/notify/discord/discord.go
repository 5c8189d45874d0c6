// Package discord mirrors notification emails into a Discord channel.
package discord

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/cadreapp/cadre/internal/notify"
)

// discordClient abstracts the discordgo session methods we use.
type discordClient interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Transport posts each notification as a channel message.
type Transport struct {
	client    discordClient
	channelID string
}

// Opts holds parameters for creating a Discord Transport.
type Opts struct {
	Token     string
	ChannelID string
	// For testing: inject a mock client instead of a real session.
	Client discordClient
}

// New creates a Discord transport.
func New(opts Opts) (*Transport, error) {
	client := opts.Client
	if client == nil {
		session, err := discordgo.New("Bot " + opts.Token)
		if err != nil {
			return nil, err
		}
		client = session
	}
	return &Transport{client: client, channelID: opts.ChannelID}, nil
}

func (t *Transport) Name() string { return "discord" }

// Send posts the rendered notification as channel text.
func (t *Transport) Send(ctx context.Context, e notify.Email) bool {
	text := "**" + e.Subject + "**\n" + notify.PlainText(e.HTML)
	if _, err := t.client.ChannelMessageSend(t.channelID, text); err != nil {
		log.Printf("discord: post to %s: %v", t.channelID, err)
		return false
	}
	return true
}
