// Package config provides YAML-based configuration loading for Sprintyard.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Sprintyard configuration, loaded from sprintyard.yaml.
type Config struct {
	Owner    string         `yaml:"owner" env:"SY_OWNER"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Watch    WatchConfig    `yaml:"watch"`
	Notify   NotifyConfig   `yaml:"notify"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// DatabaseConfig selects and addresses the backing store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"SY_DB_DRIVER"` // sqlite or mysql
	Path   string `yaml:"path" env:"SY_DB_PATH"`     // sqlite only
	Host   string `yaml:"host" env:"SY_DB_HOST"`
	Port   int    `yaml:"port" env:"SY_DB_PORT"`
	User   string `yaml:"user" env:"SY_DB_USER"`
	Name   string `yaml:"name" env:"SY_DB_NAME"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" env:"SY_SERVER_PORT"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// WatchConfig controls the overdue-sprint watcher.
type WatchConfig struct {
	Schedule   string `yaml:"schedule"`
	AutoFinish bool   `yaml:"auto_finish"`
}

// NotifyConfig holds chat platform credentials. Empty tokens disable a platform.
type NotifyConfig struct {
	Slack   ChatConfig `yaml:"slack" env-prefix:"SY_SLACK_"`
	Discord ChatConfig `yaml:"discord" env-prefix:"SY_DISCORD_"`
}

// ChatConfig is the per-platform notification target.
type ChatConfig struct {
	BotToken  string `yaml:"bot_token" env:"BOT_TOKEN"`
	ChannelID string `yaml:"channel_id" env:"CHANNEL_ID"`
}

// DefaultsConfig holds values applied to newly created projects.
type DefaultsConfig struct {
	SprintDurationWeeks int `yaml:"sprint_duration_weeks"`
}

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule parses a 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return cronParser.Parse(expr)
}

// Load reads a YAML config file from path, applies environment overrides and
// returns a validated Config.
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
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "sprintyard.db"
	}
	if c.Database.Driver == DriverMySQL {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" && c.Owner != "" {
			c.Database.Name = "sprintyard_" + c.Owner
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = "*/15 * * * *"
	}
	if c.Defaults.SprintDurationWeeks <= 0 {
		c.Defaults.SprintDurationWeeks = 2
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Owner == "" {
		errs = append(errs, "owner is required")
	}
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverMySQL:
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port %d out of range", c.Database.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not one of sqlite, mysql", c.Database.Driver))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if _, err := ParseSchedule(c.Watch.Schedule); err != nil {
		errs = append(errs, fmt.Sprintf("watch.schedule %q: %v", c.Watch.Schedule, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
