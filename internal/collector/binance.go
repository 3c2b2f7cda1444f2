package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPriceURL is the Binance spot ticker-price endpoint.
const DefaultPriceURL = "https://api.binance.com/api/v3/ticker/price"

// BinanceFetcher implements QuoteFetcher against a ticker-price endpoint
// that answers GET ?symbol=X with {"symbol": "...", "price": "..."}.
type BinanceFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewBinanceFetcher creates a fetcher with a bounded timeout and optional proxy.
func NewBinanceFetcher(baseURL string, timeout time.Duration, proxyURL string) *BinanceFetcher {
	if baseURL == "" {
		baseURL = DefaultPriceURL
	}
	return &BinanceFetcher{
		BaseURL: baseURL,
		Client:  newHTTPClient(timeout, proxyURL),
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// tickerPrice accepts price as either a JSON string or number.
// A missing price decodes to zero.
type tickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

func (f *BinanceFetcher) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := f.BaseURL + "?" + url.Values{"symbol": {symbol}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("fetch price: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result tickerPrice
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode price: %w", err)
	}
	price, _ := result.Price.Float64()
	return price, nil
}
