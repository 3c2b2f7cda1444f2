package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"CoinPulse/internal/collector"
	"CoinPulse/internal/series"
)

// Config holds all application configuration.
type Config struct {
	Price struct {
		BaseURL string   `yaml:"base_url"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"price"`
	News struct {
		Feeds        []string `yaml:"feeds"`
		PerFeedLimit int      `yaml:"per_feed_limit"`
	} `yaml:"news"`
	Schedule struct {
		Interval   time.Duration `yaml:"interval"`
		RunOnStart bool          `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Series struct {
		Capacity         int    `yaml:"capacity"`
		FailedPollPolicy string `yaml:"failed_poll_policy"`
	} `yaml:"series"`
	Timeouts struct {
		Request time.Duration `yaml:"request"`
		Tick    time.Duration `yaml:"tick"`
	} `yaml:"timeouts"`
	// Breaker is off unless consecutive_failures is set.
	Breaker struct {
		ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
		OpenTimeout         time.Duration `yaml:"open_timeout"`
		HalfOpenRequests    uint32        `yaml:"half_open_requests"`
	} `yaml:"breaker"`
	HTTP struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	// ChatID, when set, is the only chat the bot answers.
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("COINPULSE_PRICE_URL"); v != "" {
		cfg.Price.BaseURL = v
	}
	if v := os.Getenv("COINPULSE_SYMBOLS"); v != "" {
		cfg.Price.Symbols = splitList(v)
	}
	if v := os.Getenv("COINPULSE_FEEDS"); v != "" {
		cfg.News.Feeds = splitList(v)
	}
	if v := os.Getenv("COINPULSE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse COINPULSE_INTERVAL: %w", err)
		}
		cfg.Schedule.Interval = d
	}
	if v := os.Getenv("COINPULSE_FAILED_POLL_POLICY"); v != "" {
		cfg.Series.FailedPollPolicy = v
	}
	if v := os.Getenv("COINPULSE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse RUN_ON_START: %w", err)
		}
		cfg.Schedule.RunOnStart = b
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Price.BaseURL == "" {
		cfg.Price.BaseURL = collector.DefaultPriceURL
	}
	if len(cfg.Price.Symbols) == 0 {
		cfg.Price.Symbols = []string{"DOGEUSDT", "XRPUSDT"}
	}
	if len(cfg.News.Feeds) == 0 {
		cfg.News.Feeds = append([]string(nil), collector.DefaultFeeds...)
	}
	if cfg.News.PerFeedLimit == 0 {
		cfg.News.PerFeedLimit = collector.DefaultPerFeedLimit
	}
	if cfg.Schedule.Interval == 0 {
		cfg.Schedule.Interval = 5 * time.Second
	}
	if cfg.Series.Capacity == 0 {
		cfg.Series.Capacity = series.DefaultCapacity
	}
	if cfg.Series.FailedPollPolicy == "" {
		cfg.Series.FailedPollPolicy = string(series.PolicySkip)
	}
	if cfg.Timeouts.Request == 0 {
		cfg.Timeouts.Request = collector.DefaultTimeout
	}
	if cfg.Timeouts.Tick == 0 {
		cfg.Timeouts.Tick = cfg.Schedule.Interval
	}
	if cfg.Breaker.OpenTimeout == 0 {
		cfg.Breaker.OpenTimeout = 30 * time.Second
	}
	if cfg.Breaker.HalfOpenRequests == 0 {
		cfg.Breaker.HalfOpenRequests = 1
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Price.BaseURL); err != nil {
		return fmt.Errorf("price.base_url is invalid: %w", err)
	}
	if len(c.Price.Symbols) == 0 {
		return fmt.Errorf("price.symbols must not be empty")
	}
	seen := make(map[string]bool, len(c.Price.Symbols))
	for _, s := range c.Price.Symbols {
		if s == "" {
			return fmt.Errorf("price.symbols contains an empty symbol")
		}
		if seen[s] {
			return fmt.Errorf("price.symbols contains duplicate %q", s)
		}
		seen[s] = true
	}
	if c.News.PerFeedLimit < 0 {
		return fmt.Errorf("news.per_feed_limit must not be negative")
	}
	if c.Schedule.Interval < time.Second {
		return fmt.Errorf("schedule.interval must be at least 1s")
	}
	if c.Series.Capacity <= 0 {
		return fmt.Errorf("series.capacity must be positive")
	}
	if _, err := series.ParsePolicy(c.Series.FailedPollPolicy); err != nil {
		return fmt.Errorf("series.failed_poll_policy: %w", err)
	}
	if c.Timeouts.Request <= 0 || c.Timeouts.Tick <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
