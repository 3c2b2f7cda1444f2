package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if !reflect.DeepEqual(cfg.Price.Symbols, []string{"DOGEUSDT", "XRPUSDT"}) {
		t.Errorf("symbols = %v", cfg.Price.Symbols)
	}
	if len(cfg.News.Feeds) != 2 || cfg.News.PerFeedLimit != 5 {
		t.Errorf("news = %+v", cfg.News)
	}
	if cfg.Schedule.Interval != 5*time.Second || cfg.Series.Capacity != 60 {
		t.Errorf("interval=%v capacity=%d", cfg.Schedule.Interval, cfg.Series.Capacity)
	}
	if cfg.Series.FailedPollPolicy != "skip" {
		t.Errorf("policy = %q", cfg.Series.FailedPollPolicy)
	}
	if cfg.Timeouts.Tick != cfg.Schedule.Interval {
		t.Errorf("tick timeout = %v, want interval", cfg.Timeouts.Tick)
	}
	if cfg.HTTP.Addr != "" || cfg.Database.SQLitePath != "" {
		t.Error("http and sqlite should be off by default")
	}
	if cfg.Breaker.ConsecutiveFailures != 0 {
		t.Errorf("breaker should be off by default, trips after %d", cfg.Breaker.ConsecutiveFailures)
	}
	cfg.Telegram.BotToken = "token"
	if err := cfg.Validate(); err != nil {
		t.Errorf("bot token without chat id should validate: %v", err)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
price:
  symbols: [BTCUSDT]
news:
  per_feed_limit: 3
schedule:
  interval: 10s
series:
  capacity: 120
  failed_poll_policy: gap
timeouts:
  request: 2s
`)
	t.Setenv("COINPULSE_SYMBOLS", "DOGEUSDT, XRPUSDT ,")
	t.Setenv("COINPULSE_HTTP_ADDR", ":9090")
	t.Setenv("RUN_ON_START", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Price.Symbols, []string{"DOGEUSDT", "XRPUSDT"}) {
		t.Errorf("env should override symbols, got %v", cfg.Price.Symbols)
	}
	if cfg.News.PerFeedLimit != 3 || cfg.Series.Capacity != 120 || cfg.Series.FailedPollPolicy != "gap" {
		t.Errorf("file values not applied: %+v %+v", cfg.News, cfg.Series)
	}
	if cfg.Schedule.Interval != 10*time.Second || cfg.Timeouts.Request != 2*time.Second {
		t.Errorf("durations not parsed: %v %v", cfg.Schedule.Interval, cfg.Timeouts.Request)
	}
	if cfg.HTTP.Addr != ":9090" || !cfg.Schedule.RunOnStart {
		t.Errorf("env overrides not applied: addr=%q run=%v", cfg.HTTP.Addr, cfg.Schedule.RunOnStart)
	}
}

func TestLoad_BadInput(t *testing.T) {
	if _, err := Load(writeConfig(t, "price: [")); err == nil {
		t.Error("expected yaml error")
	}
	t.Setenv("COINPULSE_INTERVAL", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected interval parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Price.BaseURL = "not a url" }},
		{"duplicate symbol", func(c *Config) { c.Price.Symbols = []string{"A", "A"} }},
		{"short interval", func(c *Config) { c.Schedule.Interval = 100 * time.Millisecond }},
		{"bad policy", func(c *Config) { c.Series.FailedPollPolicy = "null" }},
		{"negative capacity", func(c *Config) { c.Series.Capacity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
