package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Houm Bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig              `yaml:"site"`
	Houm     HoumConfig              `yaml:"houm"`
	Devices  map[string]DeviceConfig `yaml:"devices"`
	Filters  FilterConfig            `yaml:"filters"`
	MQTT     MQTTConfig              `yaml:"mqtt"`
	InfluxDB InfluxDBConfig          `yaml:"influxdb"`
	API      APIConfig               `yaml:"api"`
	Logging  LoggingConfig           `yaml:"logging"`
}

// SiteConfig identifies the Houm site this bridge synchronizes with.
//
// Key is the site key embedded in the snapshot URL and sent in the
// clientReady handshake. A missing key does not fail config loading:
// the controller is constructed inert instead (it logs an error and
// performs no discovery, no socket, no polling).
type SiteConfig struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

// HoumConfig contains connection settings for the Houm cloud service.
type HoumConfig struct {
	// URL is the service base address for both the snapshot endpoint
	// and the event-stream connection.
	URL string `yaml:"url"`

	// PollInterval is the discovery poll interval in seconds.
	PollInterval int `yaml:"poll_interval"`

	// RefreshRateLimit is the minimum time between snapshot fetches
	// in seconds. Refresh calls arriving faster than this are no-ops.
	RefreshRateLimit int `yaml:"refresh_rate_limit"`

	// Reconnect configures the event-stream reconnect policy.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains event-stream reconnection settings.
//
// Policy selects the strategy: "immediate" retries without delay
// (the historical behaviour), "backoff" applies exponential delay
// between InitialDelay and MaxDelay seconds.
type ReconnectConfig struct {
	Policy       string `yaml:"policy"`
	InitialDelay int    `yaml:"initial_delay"`
	MaxDelay     int    `yaml:"max_delay"`
}

// DeviceConfig contains per-device options keyed by device id.
type DeviceConfig struct {
	// Exclude prevents the device from ever entering the registry.
	Exclude bool `yaml:"exclude"`
}

// FilterConfig contains allow-lists applied during discovery.
// An absent or empty list accepts everything.
type FilterConfig struct {
	Kinds     []string `yaml:"kinds"`
	Protocols []string `yaml:"protocols"`
}

// MQTTConfig contains MQTT broker connection settings for state fan-out.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for the
// optional state-history sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains settings for the read-only status HTTP API.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOUMBRIDGE_SECTION_KEY
// For example: HOUMBRIDGE_SITE_KEY, HOUMBRIDGE_MQTT_HOST
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name: "Houm Bridge",
		},
		Houm: HoumConfig{
			URL:              "https://houmi.herokuapp.com",
			PollInterval:     5,
			RefreshRateLimit: 1,
			Reconnect: ReconnectConfig{
				Policy:       "immediate",
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "houm-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOUMBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Site
	if v := os.Getenv("HOUMBRIDGE_SITE_KEY"); v != "" {
		cfg.Site.Key = v
	}

	// Houm service
	if v := os.Getenv("HOUMBRIDGE_HOUM_URL"); v != "" {
		cfg.Houm.URL = v
	}

	// MQTT
	if v := os.Getenv("HOUMBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOUMBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOUMBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HOUMBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// A missing site key is deliberately not a validation error: the
// controller handles that case by becoming inert, and the rest of the
// process (status API, logging) stays useful.
func (c *Config) Validate() error {
	var errs []string

	if c.Houm.URL == "" {
		errs = append(errs, "houm.url is required")
	}
	if c.Houm.PollInterval < 1 {
		errs = append(errs, "houm.poll_interval must be at least 1 second")
	}
	if c.Houm.RefreshRateLimit < 0 {
		errs = append(errs, "houm.refresh_rate_limit must not be negative")
	}

	switch c.Houm.Reconnect.Policy {
	case "", "immediate", "backoff":
	default:
		errs = append(errs, "houm.reconnect.policy must be \"immediate\" or \"backoff\"")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the discovery poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Houm.PollInterval) * time.Second
}

// GetRefreshRateLimit returns the snapshot fetch rate limit as a Duration.
func (c *Config) GetRefreshRateLimit() time.Duration {
	return time.Duration(c.Houm.RefreshRateLimit) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
