package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  key: "abc123"
  name: "Test Site"
houm:
  url: "https://houmi.example.com"
  poll_interval: 10
devices:
  light-1:
    exclude: true
filters:
  protocols: ["433mhz"]
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.Key != "abc123" {
		t.Errorf("Site.Key = %q, want %q", cfg.Site.Key, "abc123")
	}
	if cfg.Houm.URL != "https://houmi.example.com" {
		t.Errorf("Houm.URL = %q, want %q", cfg.Houm.URL, "https://houmi.example.com")
	}
	if cfg.Houm.PollInterval != 10 {
		t.Errorf("Houm.PollInterval = %d, want 10", cfg.Houm.PollInterval)
	}
	if !cfg.Devices["light-1"].Exclude {
		t.Error("Devices[light-1].Exclude = false, want true")
	}
	if len(cfg.Filters.Protocols) != 1 || cfg.Filters.Protocols[0] != "433mhz" {
		t.Errorf("Filters.Protocols = %v, want [433mhz]", cfg.Filters.Protocols)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Minimal file: everything should come from defaults.
	cfg, err := Load(writeConfig(t, "site:\n  key: \"k\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Houm.URL != "https://houmi.herokuapp.com" {
		t.Errorf("default Houm.URL = %q", cfg.Houm.URL)
	}
	if cfg.Houm.PollInterval != 5 {
		t.Errorf("default Houm.PollInterval = %d, want 5", cfg.Houm.PollInterval)
	}
	if cfg.Houm.RefreshRateLimit != 1 {
		t.Errorf("default Houm.RefreshRateLimit = %d, want 1", cfg.Houm.RefreshRateLimit)
	}
	if cfg.Houm.Reconnect.Policy != "immediate" {
		t.Errorf("default Reconnect.Policy = %q, want immediate", cfg.Houm.Reconnect.Policy)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT should be disabled by default")
	}
	if got := cfg.GetPollInterval(); got != 5*time.Second {
		t.Errorf("GetPollInterval() = %v, want 5s", got)
	}
	if got := cfg.GetRefreshRateLimit(); got != time.Second {
		t.Errorf("GetRefreshRateLimit() = %v, want 1s", got)
	}
}

func TestLoad_MissingSiteKeyIsNotAnError(t *testing.T) {
	// A missing site key leaves the controller inert but must not fail
	// config loading.
	cfg, err := Load(writeConfig(t, "site:\n  name: \"no key\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for missing site key", err)
	}
	if cfg.Site.Key != "" {
		t.Errorf("Site.Key = %q, want empty", cfg.Site.Key)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOUMBRIDGE_SITE_KEY", "env-key")
	t.Setenv("HOUMBRIDGE_MQTT_HOST", "env-broker")

	cfg, err := Load(writeConfig(t, "site:\n  key: \"file-key\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.Key != "env-key" {
		t.Errorf("Site.Key = %q, want env override %q", cfg.Site.Key, "env-key")
	}
	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env override %q", cfg.MQTT.Broker.Host, "env-broker")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "missing houm url",
			mutate:  func(c *Config) { c.Houm.URL = "" },
			wantErr: "houm.url",
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Houm.PollInterval = 0 },
			wantErr: "poll_interval",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Houm.RefreshRateLimit = -1 },
			wantErr: "refresh_rate_limit",
		},
		{
			name:    "unknown reconnect policy",
			mutate:  func(c *Config) { c.Houm.Reconnect.Policy = "jitter" },
			wantErr: "reconnect.policy",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
