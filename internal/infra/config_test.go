package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfigYAML = `
app:
  name: execgate
  version: "0.1.0"
server:
  addr: ":9090"
logging:
  level: debug
api:
  bybit:
    rest_url: https://api-testnet.bybit.com
    ws_public_url: wss://stream-testnet.bybit.com/v5/public/linear
    ws_private_url: wss://stream-testnet.bybit.com/v5/private
    access_key: file-key
    secret_key: file-secret
engine:
  stale_threshold_ms: 5000
audit:
  db_path: /tmp/audit-test.db
symbols:
  - name: BTCUSDT
    leverage: 5
  - name: ETHUSDT
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.StaleThreshold() != 5*time.Second {
		t.Errorf("StaleThreshold() = %v", cfg.StaleThreshold())
	}
	// Unset engine knobs pick up defaults.
	if cfg.Engine.IdempotencyTTLMS != 10*60*1000 {
		t.Errorf("IdempotencyTTLMS = %d", cfg.Engine.IdempotencyTTLMS)
	}
	if cfg.Engine.DesyncGraceTicks != 3 {
		t.Errorf("DesyncGraceTicks = %d", cfg.Engine.DesyncGraceTicks)
	}
	if got := cfg.SymbolNames(); len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Errorf("SymbolNames() = %v", got)
	}
	// ETHUSDT has no leverage set, so the map only carries BTCUSDT.
	lev := cfg.LeverageMap()
	if len(lev) != 1 || lev["BTCUSDT"] != 5 {
		t.Errorf("LeverageMap() = %v", lev)
	}
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("EXECGATE_BYBIT_KEY", "env-key")
	t.Setenv("EXECGATE_BYBIT_SECRET", "env-secret")

	cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.API.Bybit.AccessKey != "env-key" || cfg.API.Bybit.SecretKey != "env-secret" {
		t.Errorf("env override not applied: key=%q secret=%q",
			cfg.API.Bybit.AccessKey, cfg.API.Bybit.SecretKey)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig(writeTestConfig(t, testConfigYAML))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad rest url", func(c *Config) { c.API.Bybit.RestURL = "ftp://nope" }},
		{"bad ws url", func(c *Config) { c.API.Bybit.WSPublicURL = "http://not-ws" }},
		{"no symbols", func(c *Config) { c.Symbols = nil }},
		{"empty symbol name", func(c *Config) { c.Symbols[0].Name = "" }},
		{"negative leverage", func(c *Config) { c.Symbols[0].Leverage = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an invalid config")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
