package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration. Secrets loaded from the file
// can be overridden through environment variables, which take precedence.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	API struct {
		Bybit struct {
			RestURL      string `yaml:"rest_url"`
			WSPublicURL  string `yaml:"ws_public_url"`
			WSPrivateURL string `yaml:"ws_private_url"`
			AccessKey    string `yaml:"access_key"`
			SecretKey    string `yaml:"secret_key"`
		} `yaml:"bybit"`
	} `yaml:"api"`

	Engine struct {
		StaleThresholdMS      int64 `yaml:"stale_threshold_ms"`
		IdempotencyTTLMS      int64 `yaml:"idempotency_ttl_ms"`
		ReconcileIntervalMS   int64 `yaml:"reconcile_interval_ms"`
		ProtectPollIntervalMS int64 `yaml:"protect_poll_interval_ms"`
		ProtectWaitCapMS      int64 `yaml:"protect_wait_cap_ms"`
		DesyncGraceTicks      int   `yaml:"desync_grace_ticks"`
	} `yaml:"engine"`

	Audit struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"audit"`

	Symbols []SymbolConfig `yaml:"symbols"`
}

// SymbolConfig is one tracked instrument.
type SymbolConfig struct {
	Name     string `yaml:"name"`
	Leverage int    `yaml:"leverage"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	overrideWithEnv(&cfg)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Engine.StaleThresholdMS <= 0 {
		c.Engine.StaleThresholdMS = 3000
	}
	if c.Engine.IdempotencyTTLMS <= 0 {
		c.Engine.IdempotencyTTLMS = 10 * 60 * 1000
	}
	if c.Engine.ReconcileIntervalMS <= 0 {
		c.Engine.ReconcileIntervalMS = 2000
	}
	if c.Engine.ProtectPollIntervalMS <= 0 {
		c.Engine.ProtectPollIntervalMS = 1000
	}
	if c.Engine.ProtectWaitCapMS <= 0 {
		c.Engine.ProtectWaitCapMS = 30000
	}
	if c.Engine.DesyncGraceTicks <= 0 {
		c.Engine.DesyncGraceTicks = 3
	}
	if c.Audit.DBPath == "" {
		c.Audit.DBPath = "audit.db"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.API.Bybit.RestURL == "" || !strings.HasPrefix(c.API.Bybit.RestURL, "http") {
		return fmt.Errorf("invalid Bybit REST URL: %q", c.API.Bybit.RestURL)
	}
	for _, url := range []string{c.API.Bybit.WSPublicURL, c.API.Bybit.WSPrivateURL} {
		if url == "" || (!strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://")) {
			return fmt.Errorf("invalid Bybit WS URL: %q", url)
		}
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	for _, s := range c.Symbols {
		if s.Name == "" {
			return fmt.Errorf("symbol name is empty")
		}
		if s.Leverage < 0 {
			return fmt.Errorf("negative leverage for %s", s.Name)
		}
	}
	return nil
}

// StaleThreshold returns the feed staleness threshold as a duration.
func (c *Config) StaleThreshold() time.Duration {
	return time.Duration(c.Engine.StaleThresholdMS) * time.Millisecond
}

// SymbolNames returns the tracked symbol list.
func (c *Config) SymbolNames() []string {
	out := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		out = append(out, s.Name)
	}
	return out
}

// LeverageMap returns symbol → target leverage, skipping unset entries.
func (c *Config) LeverageMap() map[string]int {
	out := make(map[string]int, len(c.Symbols))
	for _, s := range c.Symbols {
		if s.Leverage > 0 {
			out[s.Name] = s.Leverage
		}
	}
	return out
}

// overrideWithEnv applies environment variables over file values. Secrets
// belong in the environment, not in the config file.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("EXECGATE_BYBIT_KEY"); key != "" {
		cfg.API.Bybit.AccessKey = key
	}
	if secret := os.Getenv("EXECGATE_BYBIT_SECRET"); secret != "" {
		cfg.API.Bybit.SecretKey = secret
	}
}
