package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"CoinPulse/internal/model"
)

// SnapshotSource is what the API reads from. The scheduler implements it.
type SnapshotSource interface {
	Snapshot() *model.Snapshot
	Subscribe() chan *model.Snapshot
	Unsubscribe(ch chan *model.Snapshot)
}

// Handler serves the read-only API over the latest snapshot.
type Handler struct {
	source  SnapshotSource
	breaker func() string
	started time.Time
}

// NewHandler creates a Handler. breaker reports the price breaker state and may be nil.
func NewHandler(source SnapshotSource, breaker func() string) *Handler {
	if breaker == nil {
		breaker = func() string { return "" }
	}
	return &Handler{source: source, breaker: breaker, started: time.Now()}
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Snapshot())
}

func (h *Handler) GetPrices(c *gin.Context) {
	snap := h.source.Snapshot()
	c.JSON(http.StatusOK, PricesResponse{
		Tick:      snap.Tick,
		UpdatedAt: snap.UpdatedAt,
		Labels:    snap.Labels,
		Quotes:    snap.Quotes,
	})
}

func (h *Handler) GetSeries(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Snapshot().Series)
}

func (h *Handler) GetNews(c *gin.Context) {
	snap := h.source.Snapshot()
	c.JSON(http.StatusOK, NewsResponse{
		Tick:  snap.Tick,
		Items: snap.News,
		Total: len(snap.News),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	snap := h.source.Snapshot()
	resp := HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Tick:    snap.Tick,
		Breaker: h.breaker(),
	}
	if snap.Tick > 0 {
		t := snap.UpdatedAt
		resp.LastTick = &t
	}
	if resp.Breaker == "open" {
		resp.Status = "degraded"
	}
	c.JSON(http.StatusOK, resp)
}
