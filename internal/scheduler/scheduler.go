package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"CoinPulse/internal/calculator"
	"CoinPulse/internal/collector"
	"CoinPulse/internal/metrics"
	"CoinPulse/internal/model"
	"CoinPulse/internal/notifier"
	"CoinPulse/internal/recorder"
	"CoinPulse/internal/series"
)

// TimeLayout is the label format for series points.
const TimeLayout = "15:04:05"

const (
	defaultChartRows = 12
	defaultNewsItems = 10
)

// Options tunes the tick loop. TickTimeout bounds the price phase only;
// each feed is bounded by the collector's own feed timeout.
type Options struct {
	Interval    time.Duration
	TickTimeout time.Duration
	Policy      series.Policy
	ChartRows   int
}

// Scheduler runs the poll-update-present tick on a fixed interval and holds
// the latest snapshot for presenters.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Buffer    *series.Buffer
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics

	opts Options
	log  *zap.SugaredLogger
	now  func() time.Time

	tickMu sync.Mutex
	tick   uint64

	mu     sync.RWMutex
	latest *model.Snapshot

	subMu sync.Mutex
	subs  map[chan *model.Snapshot]struct{}
}

// NewScheduler creates a Scheduler. rec and m may be nil.
func NewScheduler(col *collector.Collector, buf *series.Buffer, rec recorder.Recorder, m *metrics.Metrics, opts Options, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = opts.Interval
	}
	if opts.Policy == "" {
		opts.Policy = series.PolicySkip
	}
	if opts.ChartRows <= 0 {
		opts.ChartRows = defaultChartRows
	}

	cl := cronLogger{log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Collector: col,
		Buffer:    buf,
		Recorder:  rec,
		Metrics:   m,
		opts:      opts,
		log:       log,
		now:       time.Now,
		latest:    emptySnapshot(buf),
		subs:      make(map[chan *model.Snapshot]struct{}),
	}
}

func emptySnapshot(buf *series.Buffer) *model.Snapshot {
	return &model.Snapshot{
		Quotes: []model.Quote{},
		Labels: map[string]string{},
		Series: buf.View(),
		Stats:  map[string]model.SeriesStats{},
		News:   []model.NewsItem{},
	}
}

// Register schedules the tick every Interval.
func (s *Scheduler) Register() error {
	spec := "@every " + s.opts.Interval.String()
	if _, err := s.Cron.AddFunc(spec, func() { s.runTick() }); err != nil {
		return fmt.Errorf("register tick %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Infow("scheduler started", "interval", s.opts.Interval.String(), "policy", string(s.opts.Policy))
}

// Stop stops the cron scheduler and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes one tick synchronously and returns its snapshot.
func (s *Scheduler) RunNow() *model.Snapshot {
	return s.runTick()
}

func (s *Scheduler) runTick() *model.Snapshot {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	start := s.now()
	priceCtx, cancel := context.WithTimeout(context.Background(), s.opts.TickTimeout)
	quotes, err := s.Collector.FetchPrices(priceCtx)
	cancel()
	pricesOK := err == nil && model.AllPresent(quotes)
	if err != nil {
		s.log.Warnw("price fetch failed", "error", err, "breaker", s.Collector.BreakerState())
	} else if !pricesOK {
		s.log.Warnw("price missing from response", "quotes", quotes)
	}

	appended := s.Buffer.Record(start.Format(TimeLayout), quotes, s.opts.Policy)

	// a slow price endpoint must not eat into the news deadline
	news, feedErrs := s.Collector.FetchNews(context.Background())
	if news == nil {
		news = []model.NewsItem{}
	}
	failedFeeds := make([]string, 0, len(feedErrs))
	for _, fe := range feedErrs {
		failedFeeds = append(failedFeeds, fe.URL)
	}

	s.tick++
	snap := &model.Snapshot{
		Tick:      s.tick,
		UpdatedAt: start,
		Quotes:    quotes,
		Labels:    notifier.Labels(quotes),
		Series:    s.Buffer.View(),
		Stats:     s.stats(),
		News:      news,
	}

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()
	s.publish(snap)

	if err := s.Recorder.RecordTick(snap); err != nil {
		s.log.Errorw("record tick failed", "tick", snap.Tick, "error", err)
	}

	took := s.now().Sub(start)
	if s.Metrics != nil {
		s.Metrics.ObserveTick(quotes, pricesOK, snap.Series.Len(), len(news), failedFeeds, took)
	}
	s.log.Infow(notifier.FormatTicker(snap),
		"tick", snap.Tick,
		"appended", appended,
		"failed_feeds", len(failedFeeds),
		"took", took.String())
	return snap
}

func (s *Scheduler) stats() map[string]model.SeriesStats {
	out := make(map[string]model.SeriesStats)
	for _, sym := range s.Buffer.Symbols() {
		out[sym] = calculator.Summarize(s.Buffer.Values(sym))
	}
	return out
}

// Snapshot returns the latest snapshot. Before the first tick it is empty.
func (s *Scheduler) Snapshot() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Subscribe returns a channel that receives each new snapshot. A slow
// subscriber only ever sees the most recent one.
func (s *Scheduler) Subscribe() chan *model.Snapshot {
	ch := make(chan *model.Snapshot, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Scheduler) Unsubscribe(ch chan *model.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

func (s *Scheduler) publish(snap *model.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// replace the stale snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	var cmd string
	if f := strings.Fields(command); len(f) > 0 {
		cmd = strings.ToLower(f[0])
	}
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	snap := s.Snapshot()
	switch cmd {
	case "/price", "/prices":
		return notifier.FormatPrices(snap)
	case "/news":
		return notifier.FormatNews(snap.News, defaultNewsItems)
	case "/chart":
		return notifier.FormatChart(snap, s.Buffer.Symbols(), s.opts.ChartRows)
	default:
		return "Available commands:\n• /price - latest prices\n• /news - latest headlines\n• /chart - recent price trend"
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
