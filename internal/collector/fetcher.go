package collector

import (
	"context"

	"CoinPulse/internal/model"
)

// QuoteFetcher fetches the latest price for a single symbol.
type QuoteFetcher interface {
	FetchPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// FeedFetcher fetches and parses one syndication feed.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) ([]model.NewsItem, error)
}
