package server

import (
	"time"

	"CoinPulse/internal/model"
)

type PricesResponse struct {
	Tick      uint64            `json:"tick"`
	UpdatedAt time.Time         `json:"updated_at"`
	Labels    map[string]string `json:"labels"`
	Quotes    []model.Quote     `json:"quotes"`
}

type NewsResponse struct {
	Tick  uint64           `json:"tick"`
	Items []model.NewsItem `json:"items"`
	Total int              `json:"total"`
}

type HealthResponse struct {
	Status   string     `json:"status"`
	Uptime   string     `json:"uptime"`
	Tick     uint64     `json:"tick"`
	LastTick *time.Time `json:"last_tick"`
	Breaker  string     `json:"breaker,omitempty"`
}
