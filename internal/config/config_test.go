package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
server:
  port: 9090
  upload_dir: /var/lib/cos/uploads

database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  name: cos_prod
  user: cos
  password: secret

ambient:
  enabled: true
  cron: "0 * * * *"
  aging_threshold: 45
  critical_threshold: 75

notify:
  slack:
    bot_token: xoxb-test
    channel: "#escalations"
  discord:
    bot_token: disc-test
    channel: "123456789"

client:
  hub_url: http://hub.internal:9090
  user_id: marcus
`

const minimalYAML = `
database:
  driver: sqlite
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.UploadDir != "/var/lib/cos/uploads" {
		t.Errorf("Server.UploadDir = %q, want /var/lib/cos/uploads", cfg.Server.UploadDir)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("Database.Driver = %q, want mysql", cfg.Database.Driver)
	}
	if cfg.Database.Host != "10.0.0.5" {
		t.Errorf("Database.Host = %q, want 10.0.0.5", cfg.Database.Host)
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want 3307", cfg.Database.Port)
	}
	if !cfg.Ambient.Enabled {
		t.Error("Ambient.Enabled = false, want true")
	}
	if cfg.Ambient.Cron != "0 * * * *" {
		t.Errorf("Ambient.Cron = %q, want 0 * * * *", cfg.Ambient.Cron)
	}
	if cfg.Ambient.AgingThreshold != 45 {
		t.Errorf("Ambient.AgingThreshold = %d, want 45", cfg.Ambient.AgingThreshold)
	}
	if cfg.Notify.Slack.Channel != "#escalations" {
		t.Errorf("Notify.Slack.Channel = %q, want #escalations", cfg.Notify.Slack.Channel)
	}
	if cfg.Notify.Discord.BotToken != "disc-test" {
		t.Errorf("Notify.Discord.BotToken = %q, want disc-test", cfg.Notify.Discord.BotToken)
	}
	if cfg.Client.HubURL != "http://hub.internal:9090" {
		t.Errorf("Client.HubURL = %q, want http://hub.internal:9090", cfg.Client.HubURL)
	}
	if cfg.Client.UserID != "marcus" {
		t.Errorf("Client.UserID = %q, want marcus", cfg.Client.UserID)
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Server.UploadDir != "uploads" {
		t.Errorf("Server.UploadDir = %q, want uploads (default)", cfg.Server.UploadDir)
	}
	if cfg.Database.Path != "cos.db" {
		t.Errorf("Database.Path = %q, want cos.db (default)", cfg.Database.Path)
	}
	if cfg.Ambient.Cron != "*/5 * * * *" {
		t.Errorf("Ambient.Cron = %q, want */5 * * * * (default)", cfg.Ambient.Cron)
	}
	if cfg.Ambient.AgingThreshold != 60 {
		t.Errorf("Ambient.AgingThreshold = %d, want 60 (default)", cfg.Ambient.AgingThreshold)
	}
	if cfg.Ambient.CriticalThreshold != 90 {
		t.Errorf("Ambient.CriticalThreshold = %d, want 90 (default)", cfg.Ambient.CriticalThreshold)
	}
	if cfg.Client.HubURL != "http://localhost:8080" {
		t.Errorf("Client.HubURL = %q, want http://localhost:8080 (derived from port)", cfg.Client.HubURL)
	}
	if cfg.Client.UserID != "operator" {
		t.Errorf("Client.UserID = %q, want operator (default)", cfg.Client.UserID)
	}
}

func TestParse_HubURLDerivedFromCustomPort(t *testing.T) {
	yaml := `
server:
  port: 9999
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.HubURL != "http://localhost:9999" {
		t.Errorf("Client.HubURL = %q, want http://localhost:9999", cfg.Client.HubURL)
	}
}

func TestParse_ExplicitHubURL_NotOverridden(t *testing.T) {
	yaml := `
server:
  port: 9999
client:
  hub_url: https://cos.example.com
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.HubURL != "https://cos.example.com" {
		t.Errorf("Client.HubURL = %q, want https://cos.example.com (should not be overridden)", cfg.Client.HubURL)
	}
}

func TestParse_UnknownDriver(t *testing.T) {
	yaml := `
database:
  driver: postgres
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "is not sqlite or mysql") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "is not sqlite or mysql")
	}
}

func TestParse_MySQLRequiresUser(t *testing.T) {
	yaml := `
database:
  driver: mysql
  host: db.internal
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for mysql without user")
	}
	if !strings.Contains(err.Error(), "database.user is required for mysql") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "database.user is required for mysql")
	}
}

func TestParse_CriticalBelowAging(t *testing.T) {
	yaml := `
ambient:
  aging_threshold: 60
  critical_threshold: 30
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for critical_threshold < aging_threshold")
	}
	if !strings.Contains(err.Error(), "critical_threshold") {
		t.Errorf("error = %q, want to mention critical_threshold", err.Error())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":::invalid"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Client.UserID != "marcus" {
		t.Errorf("Client.UserID = %q, want marcus", cfg.Client.UserID)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}
