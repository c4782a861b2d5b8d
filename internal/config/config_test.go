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
	path := filepath.Join(t.TempDir(), "poller.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
instance:
  id: poller-1
api:
  base_url: https://api.example.test
database:
  host: localhost
  name: changepoll
  user: poller
  password: hunter2
`

func TestLoad(t *testing.T) {
	t.Run("parses yaml", func(t *testing.T) {
		path := writeConfig(t, minimalConfig)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Instance.ID != "poller-1" {
			t.Errorf("Instance.ID = %q", cfg.Instance.ID)
		}
		if cfg.API.BaseURL != "https://api.example.test" {
			t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
		}
	})

	t.Run("expands environment variables", func(t *testing.T) {
		t.Setenv("CHANGEPOLL_DB_PASSWORD", "from-env")
		path := writeConfig(t, strings.Replace(minimalConfig, "hunter2", "${CHANGEPOLL_DB_PASSWORD}", 1))

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Database.Password != "from-env" {
			t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "from-env")
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := writeConfig(t, "instance: [")
		if _, err := Load(path); err == nil {
			t.Error("Load() error = nil, want error")
		}
	})
}

func TestApplyDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults() error = %v", err)
	}

	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Budget.DailyCalls != 500 {
		t.Errorf("Budget.DailyCalls = %d, want 500", cfg.Budget.DailyCalls)
	}
	if cfg.Poll.Tick != DefaultPollTick {
		t.Errorf("Poll.Tick = %v, want %v", cfg.Poll.Tick, DefaultPollTick)
	}
	if cfg.Dispatch.Sink != DefaultSink {
		t.Errorf("Dispatch.Sink = %q, want %q", cfg.Dispatch.Sink, DefaultSink)
	}
	if cfg.Journal.BatchSize != DefaultJournalBatchSize {
		t.Errorf("Journal.BatchSize = %d, want %d", cfg.Journal.BatchSize, DefaultJournalBatchSize)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
	}

	t.Run("explicit values survive", func(t *testing.T) {
		path := writeConfig(t, minimalConfig+`
poll:
  tick: 30s
budget:
  daily_calls: 100
`)
		cfg, err := LoadWithDefaults(path)
		if err != nil {
			t.Fatalf("LoadWithDefaults() error = %v", err)
		}
		if cfg.Poll.Tick != 30*time.Second {
			t.Errorf("Poll.Tick = %v, want 30s", cfg.Poll.Tick)
		}
		if cfg.Budget.DailyCalls != 100 {
			t.Errorf("Budget.DailyCalls = %d, want 100", cfg.Budget.DailyCalls)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *PollerConfig {
		cfg := &PollerConfig{}
		cfg.Instance.ID = "poller-1"
		cfg.API.BaseURL = "https://api.example.test"
		cfg.Database = DBConfig{Host: "localhost", Name: "db", User: "u", Password: "p"}
		cfg.applyDefaults()
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*PollerConfig)
		wantSub string
	}{
		{"missing instance id", func(c *PollerConfig) { c.Instance.ID = "" }, "instance.id"},
		{"missing base url", func(c *PollerConfig) { c.API.BaseURL = "" }, "api.base_url"},
		{"missing db host", func(c *PollerConfig) { c.Database.Host = "" }, "database.host"},
		{"missing db password", func(c *PollerConfig) { c.Database.Password = "" }, "database.password"},
		{"min conns above max", func(c *PollerConfig) { c.Database.MinConns = 20 }, "min_conns"},
		{"zero budget", func(c *PollerConfig) { c.Budget.DailyCalls = 0 }, "budget.daily_calls"},
		{"zero concurrency", func(c *PollerConfig) { c.Poll.Concurrency = 0 }, "poll.concurrency"},
		{"webhook sink without url", func(c *PollerConfig) { c.Dispatch.Sink = "webhook" }, "dispatch.webhook.url"},
		{"redis sink without addr", func(c *PollerConfig) { c.Dispatch.Sink = "redis" }, "dispatch.redis.addr"},
		{"websocket sink without url", func(c *PollerConfig) { c.Dispatch.Sink = "websocket" }, "dispatch.websocket.url"},
		{"unknown sink", func(c *PollerConfig) { c.Dispatch.Sink = "pigeon" }, "dispatch.sink"},
		{"journal enabled with zero batch", func(c *PollerConfig) { c.Journal.Enabled = true; c.Journal.BatchSize = 0 }, "journal.batch_size"},
		{"metrics port out of range", func(c *PollerConfig) { c.Metrics.Port = 70000 }, "metrics.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Run("invalid config is rejected", func(t *testing.T) {
		path := writeConfig(t, `
api:
  base_url: https://api.example.test
`)
		if _, err := LoadAndValidate(path); err == nil {
			t.Error("LoadAndValidate() error = nil, want error")
		}
	})

	t.Run("minimal config is usable", func(t *testing.T) {
		path := writeConfig(t, minimalConfig)
		cfg, err := LoadAndValidate(path)
		if err != nil {
			t.Fatalf("LoadAndValidate() error = %v", err)
		}
		if cfg.Dispatch.Sink != "log" {
			t.Errorf("Dispatch.Sink = %q, want %q", cfg.Dispatch.Sink, "log")
		}
	})
}
