package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return *Defaults()
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "zero rate limit",
			mutate:      func(c *Config) { c.RateLimitPerMinute = 0 },
			wantErr:     true,
			errorString: "invalid rate limit 0",
		},
		{
			name:        "no endpoints",
			mutate:      func(c *Config) { c.RPCEndpoints = nil },
			wantErr:     true,
			errorString: "at least one RPC endpoint is required",
		},
		{
			name:        "endpoint without scheme",
			mutate:      func(c *Config) { c.RPCEndpoints = []string{"api.hive.blog"} },
			wantErr:     true,
			errorString: "must be an http or https URL",
		},
		{
			name:        "timeout too short",
			mutate:      func(c *Config) { c.RPCTimeout = time.Millisecond },
			wantErr:     true,
			errorString: "invalid RPC timeout",
		},
		{
			name:        "page limit too large",
			mutate:      func(c *Config) { c.HistoryPageLimit = 1001 },
			wantErr:     true,
			errorString: "invalid history page limit 1001",
		},
		{
			name:        "amqp scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http'",
		},
		{
			name:    "amqp disabled",
			mutate:  func(c *Config) { c.AMQPURL = "" },
			wantErr: false,
		},
		{
			name:        "bad watch account",
			mutate:      func(c *Config) { c.WatchAccounts = []string{"bob", "X_Y"} },
			wantErr:     true,
			errorString: "invalid watch account 'X_Y'",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			wantErr:     true,
			errorString: "invalid log level 'loud'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Config.Validate() error = %v, want substring %q", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.CacheSize = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") || strings.Count(msg, "\n- ") != 2 {
		t.Errorf("unexpected aggregated error %q", msg)
	}
}

func TestConfig_ValidateWatcher(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateWatcher(); err == nil || !strings.Contains(err.Error(), "WATCH_ACCOUNTS") {
		t.Fatalf("expected missing accounts error, got %v", err)
	}
	cfg.WatchAccounts = []string{"bob"}
	if err := cfg.ValidateWatcher(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"CHAINVIEW_CONFIG_PATH", "PORT", "RATE_LIMIT_PER_MINUTE", "BLOCK_SUSPICIOUS", "RPC_ENDPOINTS", "RPC_TIMEOUT", "RPC_MAX_RETRIES",
		"HISTORY_PAGE_LIMIT", "CACHE_TTL", "CACHE_SIZE", "AMQP_URL", "AMQP_EXCHANGE",
		"AMQP_QUEUE", "WATCH_ACCOUNTS", "WATCH_INTERVAL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if len(cfg.RPCEndpoints) != 2 {
			t.Errorf("Load() RPCEndpoints = %v, want 2 defaults", cfg.RPCEndpoints)
		}
		if cfg.HistoryPageLimit != 100 {
			t.Errorf("Load() HistoryPageLimit = %v, want 100", cfg.HistoryPageLimit)
		}
		if cfg.WatchInterval != time.Minute {
			t.Errorf("Load() WatchInterval = %v, want 1m", cfg.WatchInterval)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9090")
		t.Setenv("RPC_ENDPOINTS", " https://a.example , ,https://b.example")
		t.Setenv("RPC_TIMEOUT", "3s")
		t.Setenv("HISTORY_PAGE_LIMIT", "250")
		t.Setenv("WATCH_ACCOUNTS", "bob,alice")
		t.Setenv("CACHE_SIZE", "not-a-number")
		t.Setenv("BLOCK_SUSPICIOUS", "true")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if strings.Join(cfg.RPCEndpoints, "|") != "https://a.example|https://b.example" {
			t.Errorf("Load() RPCEndpoints = %v", cfg.RPCEndpoints)
		}
		if cfg.RPCTimeout != 3*time.Second {
			t.Errorf("Load() RPCTimeout = %v, want 3s", cfg.RPCTimeout)
		}
		if cfg.HistoryPageLimit != 250 {
			t.Errorf("Load() HistoryPageLimit = %v, want 250", cfg.HistoryPageLimit)
		}
		if len(cfg.WatchAccounts) != 2 {
			t.Errorf("Load() WatchAccounts = %v", cfg.WatchAccounts)
		}
		if cfg.CacheSize != 256 {
			t.Errorf("Load() CacheSize = %v, want default 256 on parse failure", cfg.CacheSize)
		}
		if !cfg.BlockSuspicious {
			t.Error("Load() BlockSuspicious = false, want true")
		}
	})

	t.Run("yaml file overlaid by env", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "chainview.yaml")
		data := "port: \"7000\"\nrpc_endpoints:\n  - https://node.example\nwatch_interval: 5m\nwatch_accounts: [bob]\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("CHAINVIEW_CONFIG_PATH", path)
		t.Setenv("PORT", "7100")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "7100" {
			t.Errorf("Load() Port = %v, want env override 7100", cfg.Port)
		}
		if len(cfg.RPCEndpoints) != 1 || cfg.RPCEndpoints[0] != "https://node.example" {
			t.Errorf("Load() RPCEndpoints = %v", cfg.RPCEndpoints)
		}
		if cfg.WatchInterval != 5*time.Minute {
			t.Errorf("Load() WatchInterval = %v, want 5m", cfg.WatchInterval)
		}
		if cfg.RPCTimeout != 10*time.Second {
			t.Errorf("Load() RPCTimeout = %v, want default kept", cfg.RPCTimeout)
		}
	})

	t.Run("missing yaml file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHAINVIEW_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := Load(); err == nil {
			t.Fatal("expected error for missing config file")
		}
	})
}
