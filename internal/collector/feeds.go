package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"CoinPulse/internal/model"
)

// DefaultFeeds are the news sources polled when none are configured.
var DefaultFeeds = []string{
	"https://cointelegraph.com/rss",
	"https://cryptopanic.com/news/all/rss/",
}

// GofeedFetcher implements FeedFetcher for RSS, Atom and JSON feeds.
type GofeedFetcher struct {
	parser *gofeed.Parser
}

// NewGofeedFetcher creates a feed fetcher with a bounded timeout and optional proxy.
func NewGofeedFetcher(timeout time.Duration, proxyURL string) *GofeedFetcher {
	p := gofeed.NewParser()
	p.Client = newHTTPClient(timeout, proxyURL)
	p.UserAgent = "CoinPulse/1.0"
	return &GofeedFetcher{parser: p}
}

func (f *GofeedFetcher) FetchFeed(ctx context.Context, feedURL string) ([]model.NewsItem, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	items := make([]model.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		items = append(items, model.NewsItem{
			Feed:      feedURL,
			Title:     it.Title,
			Link:      it.Link,
			Summary:   it.Description,
			Published: it.Published,
		})
	}
	return items, nil
}
