package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the tapdraw binaries.
type Config struct {
	Agent    AgentConfig    `toml:"agent"`
	Withdraw WithdrawConfig `toml:"withdraw"`
}

type AgentConfig struct {
	URL  string `toml:"url"`  // agent base URL the cli connects to
	Addr string `toml:"addr"` // listen address for tapdraw-agent
}

type WithdrawConfig struct {
	Relay string `toml:"relay"` // optional relay URL; empty means direct fetches
}

func defaults() Config {
	return Config{
		Agent: AgentConfig{
			URL:  "http://127.0.0.1:18791",
			Addr: ":18791",
		},
	}
}

// Load reads configuration from the TOML config file (if it exists) and
// applies environment variable overrides. Env vars always win.
//
// Config file resolution: TAPDRAW_CONFIG env var → ~/.config/tapdraw/config.toml → skip.
func Load() (*Config, error) {
	cfg := defaults()

	path := configPath()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func configPath() string {
	if p := os.Getenv("TAPDRAW_CONFIG"); p != "" {
		return expandHome(p)
	}
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "tapdraw", "config.toml")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TAPDRAW_AGENT_URL"); v != "" {
		cfg.Agent.URL = v
	}
	if v := os.Getenv("TAPDRAW_AGENT_ADDR"); v != "" {
		cfg.Agent.Addr = v
	}
	if v := os.Getenv("TAPDRAW_RELAY"); v != "" {
		cfg.Withdraw.Relay = v
	}
}

// Validate fills in anything a config file blanked out.
func (c *Config) Validate() error {
	if c.Agent.URL == "" {
		c.Agent.URL = defaults().Agent.URL
	}
	if c.Agent.Addr == "" {
		c.Agent.Addr = defaults().Agent.Addr
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
