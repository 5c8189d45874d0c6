package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cadreapp/cadre/internal/access"
	"github.com/cadreapp/cadre/internal/config"
	"github.com/cadreapp/cadre/internal/db"
	"github.com/cadreapp/cadre/internal/notify"
	"github.com/cadreapp/cadre/internal/notify/discord"
	"github.com/cadreapp/cadre/internal/notify/email"
	"github.com/cadreapp/cadre/internal/notify/slack"
	"github.com/cadreapp/cadre/internal/reminder"
	"github.com/cadreapp/cadre/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Cadre server",
		Long: `Connects to the database, applies migrations, and runs the HTTP
server, the notification transports, and the reminder scheduler until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.OutOrStdout(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runServe(out io.Writer, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedPermissions(gormDB); err != nil {
		return err
	}

	transports, err := buildTransports(cfg)
	if err != nil {
		return err
	}
	orch := notify.New(gormDB, cfg.Roles.Aliases, transports...)

	resolver := access.NewResolver(access.ResolverOpts{DB: gormDB, Aliases: cfg.Roles.Aliases})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RemindersEnabled() {
		sched, err := reminder.New(gormDB, orch, cfg.Reminders.Schedule)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	return server.Start(ctx, server.StartOpts{
		DB:           gormDB,
		Orchestrator: orch,
		Resolver:     resolver,
		Port:         cfg.Server.Port,
		Out:          out,
	})
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "config.yaml" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildTransports assembles the notification channels the config enables.
// The SMTP password may be prompted interactively when omitted from the
// config file.
func buildTransports(cfg *config.Config) ([]notify.Transport, error) {
	var transports []notify.Transport

	if cfg.SMTP.Host != "" {
		password := cfg.SMTP.Password
		if password == "" && cfg.SMTP.User != "" && term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintf(os.Stderr, "SMTP password for %s: ", cfg.SMTP.User)
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return nil, fmt.Errorf("read smtp password: %w", err)
			}
			password = string(raw)
		}
		transports = append(transports, email.New(email.Options{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: password,
			From:     cfg.SMTP.From,
		}))
	}

	if cfg.Slack.Token != "" {
		transports = append(transports, slack.New(slack.Opts{
			Token:   cfg.Slack.Token,
			Channel: cfg.Slack.Channel,
		}))
	}

	if cfg.Discord.Token != "" {
		t, err := discord.New(discord.Opts{
			Token:     cfg.Discord.Token,
			ChannelID: cfg.Discord.ChannelID,
		})
		if err != nil {
			return nil, fmt.Errorf("discord transport: %w", err)
		}
		transports = append(transports, t)
	}

	return transports, nil
}
