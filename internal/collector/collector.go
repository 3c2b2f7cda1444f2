package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"CoinPulse/internal/model"
)

// DefaultPerFeedLimit caps how many entries each feed contributes per poll.
const DefaultPerFeedLimit = 5

// FeedError records a feed that contributed nothing to a poll.
type FeedError struct {
	URL string
	Err error
}

func (e FeedError) Error() string { return fmt.Sprintf("feed %s: %v", e.URL, e.Err) }

// BreakerOptions configures the circuit breaker around the price endpoint.
// ConsecutiveFailures of zero disables the breaker, so every call reaches
// the endpoint.
type BreakerOptions struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// Options holds what the collector polls.
type Options struct {
	Symbols      []string
	Feeds        []string
	PerFeedLimit int
	FeedTimeout  time.Duration
	Breaker      BreakerOptions
}

// Collector fetches one tick's worth of quotes and news.
type Collector struct {
	Prices  QuoteFetcher
	News    FeedFetcher
	Symbols []string
	Feeds   []string
	Limit   int

	feedTimeout time.Duration
	breaker *gobreaker.CircuitBreaker
	log     *zap.SugaredLogger
}

// NewCollector creates a Collector. A nil logger disables logging.
func NewCollector(prices QuoteFetcher, news FeedFetcher, opts Options, log *zap.SugaredLogger) *Collector {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	limit := opts.PerFeedLimit
	if limit <= 0 {
		limit = DefaultPerFeedLimit
	}
	feedTimeout := opts.FeedTimeout
	if feedTimeout <= 0 {
		feedTimeout = DefaultTimeout
	}
	return &Collector{
		Prices:      prices,
		News:        news,
		Symbols:     append([]string(nil), opts.Symbols...),
		Feeds:       append([]string(nil), opts.Feeds...),
		Limit:       limit,
		feedTimeout: feedTimeout,
		breaker:     newBreaker(prices.Name(), opts.Breaker, log),
		log:         log,
	}
}

func newBreaker(name string, opts BreakerOptions, log *zap.SugaredLogger) *gobreaker.CircuitBreaker {
	trip := opts.ConsecutiveFailures
	if trip == 0 {
		return nil
	}
	timeout := opts.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	halfOpen := opts.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = 1
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name + "-prices",
		MaxRequests: halfOpen,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnw("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
}

// BreakerState reports the price breaker state ("closed", "open",
// "half-open"), or "disabled" when no breaker is configured.
func (c *Collector) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// FetchPrices fetches every symbol concurrently. If any symbol fails, every
// returned quote is absent and the error says why; partial results are dropped.
func (c *Collector) FetchPrices(ctx context.Context) ([]model.Quote, error) {
	prices := make([]float64, len(c.Symbols))
	fetchAll := func() error {
		g, gctx := errgroup.WithContext(ctx)
		for i, sym := range c.Symbols {
			i, sym := i, sym
			g.Go(func() error {
				p, err := c.Prices.FetchPrice(gctx, sym)
				if err != nil {
					return fmt.Errorf("%s: %w", sym, err)
				}
				prices[i] = p
				return nil
			})
		}
		return g.Wait()
	}

	var err error
	if c.breaker == nil {
		err = fetchAll()
	} else {
		_, err = c.breaker.Execute(func() (interface{}, error) {
			return nil, fetchAll()
		})
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("price source %s unavailable: %w", c.Prices.Name(), err)
		}
		return model.AbsentQuotes(c.Symbols), fmt.Errorf("fetch prices: %w", err)
	}

	now := time.Now()
	quotes := make([]model.Quote, len(c.Symbols))
	for i, sym := range c.Symbols {
		quotes[i] = model.Quote{Symbol: sym, Price: prices[i], OK: true, FetchedAt: now}
	}
	return quotes, nil
}

// FetchNews polls each feed in order and keeps at most Limit entries per feed.
// Each feed gets its own deadline. A failing feed is skipped and reported;
// the others are still polled.
func (c *Collector) FetchNews(ctx context.Context) ([]model.NewsItem, []FeedError) {
	var (
		items    []model.NewsItem
		failures []FeedError
	)
	for _, feedURL := range c.Feeds {
		entries, err := c.fetchFeed(ctx, feedURL)
		if err != nil {
			c.log.Warnw("feed fetch failed", "feed", feedURL, "error", err)
			failures = append(failures, FeedError{URL: feedURL, Err: err})
			continue
		}
		if len(entries) > c.Limit {
			entries = entries[:c.Limit]
		}
		items = append(items, entries...)
	}
	return items, failures
}

func (c *Collector) fetchFeed(ctx context.Context, feedURL string) ([]model.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.feedTimeout)
	defer cancel()
	return c.News.FetchFeed(ctx, feedURL)
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu     sync.Mutex
	Prices map[string]float64
	Errs   map[string]error
	Feeds  map[string][]model.NewsItem
	Calls  int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPrice(_ context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if err := m.Errs[symbol]; err != nil {
		return 0, err
	}
	p, ok := m.Prices[symbol]
	if !ok {
		return 0, fmt.Errorf("mock: no price for %s", symbol)
	}
	return p, nil
}

func (m *MockFetcher) FetchFeed(_ context.Context, feedURL string) ([]model.NewsItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Errs[feedURL]; err != nil {
		return nil, err
	}
	return append([]model.NewsItem(nil), m.Feeds[feedURL]...), nil
}
