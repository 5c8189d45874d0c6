// Package config provides YAML-based configuration loading for Cadre.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Cadre configuration, loaded from config.yaml.
type Config struct {
	Database  DatabaseConfig `yaml:"database"`
	Server    ServerConfig   `yaml:"server"`
	SMTP      SMTPConfig     `yaml:"smtp"`
	Slack     SlackConfig    `yaml:"slack"`
	Discord   DiscordConfig  `yaml:"discord"`
	Roles     RolesConfig    `yaml:"roles"`
	Reminders ReminderConfig `yaml:"reminders"`
}

// DatabaseConfig holds connection settings for the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite only
}

// ServerConfig holds HTTP server settings. BaseURL is the externally
// reachable prefix used to build confirmation links in emails.
type ServerConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// SMTPConfig holds outbound email settings. Email notifications are
// disabled when Host is empty.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// SlackConfig enables the optional Slack notification channel.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig enables the optional Discord notification channel.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// RolesConfig maps legacy stored role spellings to canonical ones.
// The canonical vocabulary is ADMIN, MANAGER, EMPLOYEE.
type RolesConfig struct {
	Aliases map[string]string `yaml:"aliases"`
}

// ReminderConfig controls the overdue-task reminder job.
type ReminderConfig struct {
	Schedule string `yaml:"schedule"` // cron spec, e.g. "@daily"
	Enabled  *bool  `yaml:"enabled"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with all defaults applied, suitable for
// local development without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "cadre.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Reminders.Schedule == "" {
		c.Reminders.Schedule = "@daily"
	}
	if c.Roles.Aliases == nil {
		c.Roles.Aliases = map[string]string{}
	}
	if _, ok := c.Roles.Aliases["PROJECT_MANAGER"]; !ok {
		c.Roles.Aliases["PROJECT_MANAGER"] = "MANAGER"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, "database.path is required for sqlite")
		}
	case "mysql":
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be mysql or sqlite, got %q", c.Database.Driver))
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, "smtp.from is required when smtp.host is set")
	}
	if c.Slack.Token != "" && c.Slack.Channel == "" {
		errs = append(errs, "slack.channel is required when slack.token is set")
	}
	if c.Discord.Token != "" && c.Discord.ChannelID == "" {
		errs = append(errs, "discord.channel_id is required when discord.token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RemindersEnabled reports whether the reminder job should run.
// Defaults to true when unset.
func (c *Config) RemindersEnabled() bool {
	if c.Reminders.Enabled == nil {
		return true
	}
	return *c.Reminders.Enabled
}
