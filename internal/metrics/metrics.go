package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CoinPulse/internal/model"
)

const namespace = "coinpulse"

// Metrics holds the tick loop's Prometheus collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Ticks         prometheus.Counter
	PriceFailures prometheus.Counter
	FeedFailures  *prometheus.CounterVec
	TickDuration  prometheus.Histogram
	SeriesLength  prometheus.Gauge
	NewsItems     prometheus.Gauge
	Price         *prometheus.GaugeVec
}

// New registers all collectors, plus Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of completed ticks",
		}),
		PriceFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fetch_failures_total",
			Help:      "Ticks whose price fetch failed",
		}),
		FeedFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_failures_total",
			Help:      "Feed polls that contributed no items, by feed",
		}, []string{"feed"}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent processing one tick",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 4, 8},
		}),
		SeriesLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_points",
			Help:      "Points currently held in the price series",
		}),
		NewsItems: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "news_items",
			Help:      "News items returned by the last poll",
		}),
		Price: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "price_usd",
			Help:      "Last successfully fetched price",
		}, []string{"symbol"}),
	}
}

// ObserveTick records the outcome of one tick.
func (m *Metrics) ObserveTick(quotes []model.Quote, pricesOK bool, seriesLen, newsItems int, failedFeeds []string, took time.Duration) {
	m.Ticks.Inc()
	m.TickDuration.Observe(took.Seconds())
	m.SeriesLength.Set(float64(seriesLen))
	m.NewsItems.Set(float64(newsItems))
	if !pricesOK {
		m.PriceFailures.Inc()
	} else {
		for _, q := range quotes {
			m.Price.WithLabelValues(q.Symbol).Set(q.Price)
		}
	}
	for _, feed := range failedFeeds {
		m.FeedFailures.WithLabelValues(feed).Inc()
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
