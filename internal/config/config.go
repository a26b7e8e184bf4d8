// Package config provides YAML-based configuration loading for the C-OS hub
// and console.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration, loaded from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ambient  AmbientConfig  `yaml:"ambient"`
	Notify   NotifyConfig   `yaml:"notify"`
	Client   ClientConfig   `yaml:"client"`
}

// ServerConfig holds the hub's listen settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	UploadDir string `yaml:"upload_dir"`
}

// DatabaseConfig selects and parameterizes the storage backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite | mysql
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// AmbientConfig tunes the autonomous inventory sweep.
type AmbientConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Cron              string `yaml:"cron"`               // 5-field cron expression
	AgingThreshold    int    `yaml:"aging_threshold"`    // days in stock before a unit is flagged
	CriticalThreshold int    `yaml:"critical_threshold"` // days in stock before the sweep escalates
}

// SlackConfig holds Slack escalation settings.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord escalation settings.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// NotifyConfig aggregates escalation channels. A section with an empty
// bot_token disables that channel.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// ClientConfig holds console-side settings.
type ClientConfig struct {
	HubURL string `yaml:"hub_url"`
	UserID string `yaml:"user_id"`
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

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.UploadDir == "" {
		c.Server.UploadDir = "uploads"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "cos.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "cos"
	}
	if c.Ambient.Cron == "" {
		c.Ambient.Cron = "*/5 * * * *"
	}
	if c.Ambient.AgingThreshold == 0 {
		c.Ambient.AgingThreshold = 60
	}
	if c.Ambient.CriticalThreshold == 0 {
		c.Ambient.CriticalThreshold = 90
	}
	if c.Client.HubURL == "" {
		c.Client.HubURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Client.UserID == "" {
		c.Client.UserID = "operator"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not sqlite or mysql", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.User == "" {
		errs = append(errs, "database.user is required for mysql")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port is out of range")
	}
	if c.Ambient.CriticalThreshold < c.Ambient.AgingThreshold {
		errs = append(errs, "ambient.critical_threshold must be >= ambient.aging_threshold")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
