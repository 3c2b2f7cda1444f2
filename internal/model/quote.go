package model

import "time"

// Quote is a single symbol/price pair from the price API.
// OK is false when the fetch failed and the price is absent.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	OK        bool      `json:"ok"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Present reports whether the quote carries a usable price.
// A zero price (missing "price" field upstream) counts as absent.
func (q Quote) Present() bool {
	return q.OK && q.Price != 0
}

// AllPresent reports whether every quote carries a usable price.
func AllPresent(quotes []Quote) bool {
	if len(quotes) == 0 {
		return false
	}
	for _, q := range quotes {
		if !q.Present() {
			return false
		}
	}
	return true
}

// AbsentQuotes returns one absent quote per symbol.
func AbsentQuotes(symbols []string) []Quote {
	quotes := make([]Quote, len(symbols))
	for i, s := range symbols {
		quotes[i] = Quote{Symbol: s}
	}
	return quotes
}
