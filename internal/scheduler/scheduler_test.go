package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"CoinPulse/internal/collector"
	"CoinPulse/internal/metrics"
	"CoinPulse/internal/model"
	"CoinPulse/internal/notifier"
	"CoinPulse/internal/series"
)

var symbols = []string{"DOGEUSDT", "XRPUSDT"}

func newTestScheduler(prices collector.QuoteFetcher, news *collector.MockFetcher, feeds []string, policy series.Policy) *Scheduler {
	col := collector.NewCollector(prices, news, collector.Options{Symbols: symbols, Feeds: feeds}, nil)
	buf := series.NewBuffer(series.DefaultCapacity, symbols)
	return NewScheduler(col, buf, nil, metrics.New(), Options{Interval: time.Second, Policy: policy}, nil)
}

func TestRunNow_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "DOGEUSDT":
			fmt.Fprint(w, `{"price":"0.1234"}`)
		case "XRPUSDT":
			fmt.Fprint(w, `{"price":"0.5678"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := newTestScheduler(collector.NewBinanceFetcher(srv.URL, time.Second, ""), &collector.MockFetcher{}, nil, series.PolicySkip)
	snap := s.RunNow()

	assert.Equal(t, "$0.1234", snap.Labels["DOGEUSDT"])
	assert.Equal(t, "$0.5678", snap.Labels["XRPUSDT"])
	assert.Equal(t, 1, s.Buffer.Len())
	assert.Equal(t, []float64{0.1234}, s.Buffer.Values("DOGEUSDT"))
	assert.Equal(t, []float64{0.5678}, s.Buffer.Values("XRPUSDT"))
	assert.Equal(t, snap.UpdatedAt.Format(TimeLayout), s.Buffer.Times()[0])
	assert.Equal(t, uint64(1), snap.Tick)
	assert.Equal(t, snap, s.Snapshot())
}

func TestRunNow_ConnectionErrorLeavesBufferUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := newTestScheduler(collector.NewBinanceFetcher(url, time.Second, ""), &collector.MockFetcher{}, nil, series.PolicySkip)
	snap := s.RunNow()

	assert.Equal(t, notifier.PriceError, snap.Labels["DOGEUSDT"])
	assert.Equal(t, notifier.PriceError, snap.Labels["XRPUSDT"])
	assert.Equal(t, 0, s.Buffer.Len())
	assert.Equal(t, 0, snap.Series.Len())
}

func TestRunNow_KeepsMostRecentPoints(t *testing.T) {
	m := &collector.MockFetcher{Prices: map[string]float64{}}
	s := newTestScheduler(m, &collector.MockFetcher{}, nil, series.PolicySkip)

	const ticks = 75
	for i := 1; i <= ticks; i++ {
		m.Prices["DOGEUSDT"] = float64(i)
		m.Prices["XRPUSDT"] = float64(i) / 10
		snap := s.RunNow()
		if l := snap.Series.Len(); l > series.DefaultCapacity {
			t.Fatalf("tick %d: series length %d exceeds capacity", i, l)
		}
		for _, sym := range symbols {
			if got := len(snap.Series.Series[sym]); got != snap.Series.Len() {
				t.Fatalf("tick %d: %s has %d values, %d times", i, sym, got, snap.Series.Len())
			}
		}
	}

	doge := s.Buffer.Values("DOGEUSDT")
	if len(doge) != series.DefaultCapacity {
		t.Fatalf("len = %d, want %d", len(doge), series.DefaultCapacity)
	}
	for i, v := range doge {
		if want := float64(ticks - series.DefaultCapacity + 1 + i); v != want {
			t.Fatalf("doge[%d] = %v, want %v", i, v, want)
		}
	}
	st := s.Snapshot().Stats["DOGEUSDT"]
	assert.Equal(t, float64(ticks), st.Last)
	assert.Equal(t, float64(ticks-series.DefaultCapacity+1), st.Low)
}

func TestRunNow_PartialFailureSkipsPoint(t *testing.T) {
	m := &collector.MockFetcher{
		Prices: map[string]float64{"DOGEUSDT": 0.2},
		Errs:   map[string]error{"XRPUSDT": errors.New("timeout")},
	}
	s := newTestScheduler(m, &collector.MockFetcher{}, nil, series.PolicySkip)
	snap := s.RunNow()

	assert.Equal(t, notifier.PriceError, snap.Labels["DOGEUSDT"])
	assert.Equal(t, notifier.PriceError, snap.Labels["XRPUSDT"])
	assert.Equal(t, 0, s.Buffer.Len())
}

func TestRunNow_ZeroPriceIsAbsent(t *testing.T) {
	m := &collector.MockFetcher{Prices: map[string]float64{"DOGEUSDT": 0, "XRPUSDT": 0.5}}
	s := newTestScheduler(m, &collector.MockFetcher{}, nil, series.PolicySkip)
	snap := s.RunNow()

	assert.Equal(t, notifier.PriceError, snap.Labels["DOGEUSDT"])
	assert.Equal(t, "$0.5000", snap.Labels["XRPUSDT"])
	assert.Equal(t, 0, s.Buffer.Len())
}

func TestRunNow_GapPolicy(t *testing.T) {
	m := &collector.MockFetcher{Prices: map[string]float64{"DOGEUSDT": 0.1, "XRPUSDT": 0.5}}
	s := newTestScheduler(m, &collector.MockFetcher{}, nil, series.PolicyGap)

	s.RunNow()
	m.Errs = map[string]error{"DOGEUSDT": errors.New("boom")}
	snap := s.RunNow()

	assert.Equal(t, 2, snap.Series.Len())
	if snap.Series.Series["DOGEUSDT"][1] != nil || snap.Series.Series["XRPUSDT"][1] != nil {
		t.Error("failed poll should be a gap in every column")
	}
	assert.Equal(t, 0.1, snap.Stats["DOGEUSDT"].Last)
}

func TestRunNow_NewsWithFailedFeed(t *testing.T) {
	items := make([]model.NewsItem, 8)
	for i := range items {
		items[i] = model.NewsItem{Feed: "a", Title: fmt.Sprintf("a%d", i)}
	}
	news := &collector.MockFetcher{
		Feeds: map[string][]model.NewsItem{"a": items},
		Errs:  map[string]error{"b": errors.New("dns")},
	}
	prices := &collector.MockFetcher{Prices: map[string]float64{"DOGEUSDT": 0.1, "XRPUSDT": 0.5}}
	s := newTestScheduler(prices, news, []string{"b", "a"}, series.PolicySkip)
	snap := s.RunNow()

	assert.Equal(t, collector.DefaultPerFeedLimit, len(snap.News))
	for _, it := range snap.News {
		assert.Equal(t, "a", it.Feed)
	}
	assert.Equal(t, "a0", snap.News[0].Title)
}

type delayedFeeds struct {
	delay time.Duration
}

func (d delayedFeeds) FetchFeed(ctx context.Context, feedURL string) ([]model.NewsItem, error) {
	select {
	case <-time.After(d.delay):
		return []model.NewsItem{{Feed: feedURL, Title: feedURL}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRunNow_HungPriceEndpointStillRefreshesNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	prices := collector.NewBinanceFetcher(srv.URL, 400*time.Millisecond, "")
	col := collector.NewCollector(prices, delayedFeeds{delay: 150 * time.Millisecond}, collector.Options{
		Symbols:     symbols,
		Feeds:       []string{"a", "b"},
		FeedTimeout: 400 * time.Millisecond,
	}, nil)
	buf := series.NewBuffer(series.DefaultCapacity, symbols)
	s := NewScheduler(col, buf, nil, nil, Options{Interval: time.Second, TickTimeout: 500 * time.Millisecond}, nil)

	snap := s.RunNow()

	assert.Equal(t, notifier.PriceError, snap.Labels["DOGEUSDT"])
	assert.Equal(t, notifier.PriceError, snap.Labels["XRPUSDT"])
	assert.Equal(t, 2, len(snap.News))
	assert.Equal(t, 0, s.Buffer.Len())
}

func TestRunNow_RecoveredEndpointPolledNextTick(t *testing.T) {
	m := &collector.MockFetcher{
		Prices: map[string]float64{"DOGEUSDT": 0.1, "XRPUSDT": 0.5},
		Errs:   map[string]error{"DOGEUSDT": errors.New("down")},
	}
	s := newTestScheduler(m, &collector.MockFetcher{}, nil, series.PolicySkip)

	for i := 0; i < 10; i++ {
		s.RunNow()
	}
	assert.Equal(t, 0, s.Buffer.Len())

	m.Errs = nil
	snap := s.RunNow()

	assert.Equal(t, "$0.1000", snap.Labels["DOGEUSDT"])
	assert.Equal(t, 1, s.Buffer.Len())
	assert.Equal(t, "disabled", s.Collector.BreakerState())
}

func TestSnapshot_EmptyBeforeFirstTick(t *testing.T) {
	s := newTestScheduler(&collector.MockFetcher{}, &collector.MockFetcher{}, nil, series.PolicySkip)
	snap := s.Snapshot()

	assert.Equal(t, uint64(0), snap.Tick)
	assert.Equal(t, 0, snap.Series.Len())
	assert.Equal(t, 0, len(snap.News))
	if !strings.Contains(s.HandleCommand("/chart"), "no points recorded yet") {
		t.Error("chart before first tick should say no points")
	}
}

func TestSubscribe_ReceivesLatest(t *testing.T) {
	m := &collector.MockFetcher{Prices: map[string]float64{"DOGEUSDT": 0.1, "XRPUSDT": 0.5}}
	s := newTestScheduler(m, &collector.MockFetcher{}, nil, series.PolicySkip)
	ch := s.Subscribe()

	s.RunNow()
	second := s.RunNow()

	select {
	case got := <-ch:
		assert.Equal(t, second.Tick, got.Tick)
	default:
		t.Fatal("expected a snapshot")
	}

	s.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	s.Unsubscribe(ch)
}

func TestHandleCommand(t *testing.T) {
	m := &collector.MockFetcher{Prices: map[string]float64{"DOGEUSDT": 0.1234, "XRPUSDT": 0.5678}}
	news := &collector.MockFetcher{Feeds: map[string][]model.NewsItem{
		"f": {{Title: "Doge rallies", Link: "https://x/1", Published: "Mon"}},
	}}
	s := newTestScheduler(m, news, []string{"f"}, series.PolicySkip)
	s.RunNow()

	tests := []struct {
		cmd  string
		want string
	}{
		{"/price", "DOGEUSDT: $0.1234"},
		{"/PRICE@coinpulse_bot", "XRPUSDT: $0.5678"},
		{"/news", "Doge rallies"},
		{"/chart", "$0.1234  $0.5678"},
		{"hello", "Available commands"},
		{"", "Available commands"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			if got := s.HandleCommand(tt.cmd); !strings.Contains(got, tt.want) {
				t.Errorf("HandleCommand(%q) = %q, want substring %q", tt.cmd, got, tt.want)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	s := newTestScheduler(&collector.MockFetcher{}, &collector.MockFetcher{}, nil, series.PolicySkip)
	if err := s.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	assert.Equal(t, 1, len(s.Cron.Entries()))
}
