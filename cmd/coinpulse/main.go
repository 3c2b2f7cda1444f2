package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"CoinPulse/internal/collector"
	"CoinPulse/internal/config"
	"CoinPulse/internal/logging"
	"CoinPulse/internal/metrics"
	"CoinPulse/internal/notifier"
	"CoinPulse/internal/recorder"
	"CoinPulse/internal/scheduler"
	"CoinPulse/internal/series"
	"CoinPulse/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coinpulse: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Infow("CoinPulse starting", "config", cfgPath, "symbols", cfg.Price.Symbols)

	policy, err := series.ParsePolicy(cfg.Series.FailedPollPolicy)
	if err != nil {
		return err
	}

	prices := collector.NewBinanceFetcher(cfg.Price.BaseURL, cfg.Timeouts.Request, cfg.Proxy)
	feeds := collector.NewGofeedFetcher(cfg.Timeouts.Request, cfg.Proxy)
	col := collector.NewCollector(prices, feeds, collector.Options{
		Symbols:      cfg.Price.Symbols,
		Feeds:        cfg.News.Feeds,
		PerFeedLimit: cfg.News.PerFeedLimit,
		FeedTimeout:  cfg.Timeouts.Request,
		Breaker: collector.BreakerOptions{
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
			HalfOpenRequests:    cfg.Breaker.HalfOpenRequests,
		},
	}, log.Named("collector"))
	log.Infow("data sources", "prices", prices.Name(), "feeds", len(cfg.News.Feeds))

	rec := openRecorder(cfg.Database.SQLitePath, log)
	defer rec.Close()

	m := metrics.New()
	buf := series.NewBuffer(cfg.Series.Capacity, cfg.Price.Symbols)
	sched := scheduler.NewScheduler(col, buf, rec, m, scheduler.Options{
		Interval:    cfg.Schedule.Interval,
		TickTimeout: cfg.Timeouts.Tick,
		Policy:      policy,
	}, log.Named("scheduler"))
	if err := sched.Register(); err != nil {
		return fmt.Errorf("register tick: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	if cfg.HTTP.Addr != "" {
		gin.SetMode(gin.ReleaseMode)
		srv := server.New(sched, server.Options{
			Addr:           cfg.HTTP.Addr,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			Metrics:        m.Handler(),
			Breaker:        col.BreakerState,
		}, log.Named("http"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	if cfg.Telegram.BotToken != "" {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log.Named("telegram"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			tn.StartPolling(ctx, sched.HandleCommand)
		}()
		log.Info("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Info("run_on_start enabled, executing first tick now")
		sched.RunNow()
	}
	sched.Start()

	log.Info("CoinPulse is running. Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, stopping...")
	case err = <-errCh:
		log.Errorw("http api failed", "error", err)
	}
	stop()
	sched.Stop()
	wg.Wait()
	log.Info("CoinPulse stopped")
	return err
}

func openRecorder(path string, log *zap.SugaredLogger) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path, log.Named("recorder"))
	if err != nil {
		log.Warnw("init sqlite recorder failed, using noop", "error", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}
