package model

// NewsItem is one feed entry. Items are rebuilt on every poll.
type NewsItem struct {
	Feed      string `json:"feed"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
}
