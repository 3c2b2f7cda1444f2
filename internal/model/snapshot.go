package model

import "time"

// SeriesView is a copy of the bounded price series.
// Values are nil where a gap point was recorded.
type SeriesView struct {
	Times  []string              `json:"times"`
	Series map[string][]*float64 `json:"series"`
}

// Len returns the number of points in the view.
func (v SeriesView) Len() int { return len(v.Times) }

// SeriesStats summarises one symbol over the series window.
type SeriesStats struct {
	Last      float64 `json:"last"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	SMA       float64 `json:"sma"`
	ChangePct float64 `json:"change_pct"`
	RSI       float64 `json:"rsi"`
}

// Snapshot is the state published to presenters after every tick.
type Snapshot struct {
	Tick      uint64                 `json:"tick"`
	UpdatedAt time.Time              `json:"updated_at"`
	Quotes    []Quote                `json:"quotes"`
	Labels    map[string]string      `json:"labels"`
	Series    SeriesView             `json:"series"`
	Stats     map[string]SeriesStats `json:"stats"`
	News      []NewsItem             `json:"news"`
}
