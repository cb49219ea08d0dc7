package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if cfg.ListenPort != want.ListenPort || cfg.StoreDSN != want.StoreDSN || cfg.BearerToken != want.BearerToken {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, want)
	}
	if len(cfg.CORS.AllowedOrigins) != len(want.CORS.AllowedOrigins) {
		t.Fatalf("CORS.AllowedOrigins = %v, want %v", cfg.CORS.AllowedOrigins, want.CORS.AllowedOrigins)
	}
}

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devswarm.yaml")
	yaml := []byte("listen_port: 9999\nbearer_token: secret\n")
	if err := os.WriteFile(path, yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenPort != 9999 {
		t.Fatalf("ListenPort = %d, want 9999", cfg.ListenPort)
	}
	if cfg.BearerToken != "secret" {
		t.Fatalf("BearerToken = %q, want secret", cfg.BearerToken)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Fatalf("HeartbeatInterval = %v, want default 30s to survive a partial override", cfg.HeartbeatInterval)
	}
	if cfg.StoreDSN != "./devswarm.db" {
		t.Fatalf("StoreDSN = %q, want default to survive a partial override", cfg.StoreDSN)
	}
}

func TestDefaultConfig_MatchesDocumentedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cases := map[string]struct {
		got, want any
	}{
		"heartbeat_interval":  {cfg.HeartbeatInterval, 30 * time.Second},
		"dispatcher_interval": {cfg.DispatcherInterval, 2 * time.Second},
		"write_deadline":      {cfg.WriteDeadline, 10 * time.Second},
		"pong_deadline":       {cfg.PongDeadline, 60 * time.Second},
		"ping_period":         {cfg.PingPeriod, 54 * time.Second},
		"snapshot_limit":      {cfg.SnapshotMessagesLimit, 20},
		"hub_send_buffer":     {cfg.HubSendBuffer, 256},
	}
	for name, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", name, c.got, c.want)
		}
	}
}
