// Package config defines the DevSwarm application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level DevSwarm configuration, covering every key
// enumerated in the external interfaces section of the spec.
type Config struct {
	ListenPort                   int           `yaml:"listen_port"`
	StoreDSN                     string        `yaml:"store_dsn"`
	EventBusURL                  string        `yaml:"event_bus_url"`
	ExternalOrchestrationBaseURL string        `yaml:"external_orchestration_base_url"`
	BearerToken                  string        `yaml:"bearer_token"`
	HeartbeatInterval            time.Duration `yaml:"heartbeat_interval"`
	DispatcherInterval           time.Duration `yaml:"dispatcher_interval"`
	WriteDeadline                time.Duration `yaml:"write_deadline"`
	PongDeadline                 time.Duration `yaml:"pong_deadline"`
	PingPeriod                   time.Duration `yaml:"ping_period"`
	SnapshotMessagesLimit        int           `yaml:"snapshot_messages_limit"`
	HubSendBuffer                int           `yaml:"hub_send_buffer"`
	CORS                         CORSConfig    `yaml:"cors"`
	LogLevel                     string        `yaml:"log_level"`
}

// CORSConfig controls the browser-facing CORS policy.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns a config with the defaults stated throughout §4 of
// the spec.
func DefaultConfig() *Config {
	return &Config{
		ListenPort:                   9090,
		StoreDSN:                     "./devswarm.db",
		EventBusURL:                  "redis://localhost:6379/0",
		ExternalOrchestrationBaseURL: "http://localhost:8000",
		BearerToken:                  "",
		HeartbeatInterval:            30 * time.Second,
		DispatcherInterval:           2 * time.Second,
		WriteDeadline:                10 * time.Second,
		PongDeadline:                 60 * time.Second,
		PingPeriod:                   54 * time.Second,
		SnapshotMessagesLimit:        20,
		HubSendBuffer:                256,
		CORS:                         CORSConfig{AllowedOrigins: []string{"*"}},
		LogLevel:                     "info",
	}
}

// Load reads a YAML config file over DefaultConfig, so that unset or absent
// keys retain their documented defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
