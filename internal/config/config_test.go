package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TAPDRAW_CONFIG",
		"TAPDRAW_AGENT_URL",
		"TAPDRAW_AGENT_ADDR",
		"TAPDRAW_RELAY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.URL != "http://127.0.0.1:18791" {
		t.Errorf("agent url %q", cfg.Agent.URL)
	}
	if cfg.Agent.Addr != ":18791" {
		t.Errorf("agent addr %q", cfg.Agent.Addr)
	}
	if cfg.Withdraw.Relay != "" {
		t.Errorf("relay %q, want empty (direct fetches)", cfg.Withdraw.Relay)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[agent]
url = "http://reader.local:9000"

[withdraw]
relay = "https://relay.example/fetch"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TAPDRAW_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.URL != "http://reader.local:9000" {
		t.Errorf("agent url %q", cfg.Agent.URL)
	}
	if cfg.Withdraw.Relay != "https://relay.example/fetch" {
		t.Errorf("relay %q", cfg.Withdraw.Relay)
	}
	// Untouched sections keep their defaults.
	if cfg.Agent.Addr != ":18791" {
		t.Errorf("agent addr %q, want default", cfg.Agent.Addr)
	}
}

func TestLoad_EnvWins(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[agent]
url = "http://from-file:1"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TAPDRAW_CONFIG", path)
	t.Setenv("TAPDRAW_AGENT_URL", "http://from-env:2")
	t.Setenv("TAPDRAW_RELAY", "https://relay.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent.URL != "http://from-env:2" {
		t.Errorf("agent url %q, env must win", cfg.Agent.URL)
	}
	if cfg.Withdraw.Relay != "https://relay.example" {
		t.Errorf("relay %q", cfg.Withdraw.Relay)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TAPDRAW_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a malformed config file")
	}
}

func TestValidate_FillsBlanks(t *testing.T) {
	cfg := &Config{}
	cfg.Validate()
	if cfg.Agent.URL == "" || cfg.Agent.Addr == "" {
		t.Fatalf("validate left blanks: %+v", cfg)
	}
}
