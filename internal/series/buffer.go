package series

import (
	"fmt"
	"math"
	"sync"

	"CoinPulse/internal/model"
)

// DefaultCapacity is the number of points kept when no capacity is configured.
const DefaultCapacity = 60

// Buffer is a bounded FIFO price series: one timestamp column plus one value
// column per symbol, all of equal length. The scheduler is the only writer;
// readers go through the copy-returning accessors.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	symbols  []string
	times    []string
	values   [][]float64
}

// NewBuffer creates an empty buffer for the given symbols.
func NewBuffer(capacity int, symbols []string) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		symbols:  append([]string(nil), symbols...),
		values:   make([][]float64, len(symbols)),
	}
}

// Append pushes one point, one price per symbol in buffer order, then trims.
func (b *Buffer) Append(ts string, prices ...float64) error {
	if len(prices) != len(b.symbols) {
		return fmt.Errorf("append: got %d prices for %d symbols", len(prices), len(b.symbols))
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.times = append(b.times, ts)
	for i, p := range prices {
		b.values[i] = append(b.values[i], p)
	}
	b.trimLocked()
	return nil
}

// AppendGap pushes a point whose prices are all missing (NaN).
func (b *Buffer) AppendGap(ts string) {
	gap := make([]float64, len(b.symbols))
	for i := range gap {
		gap[i] = math.NaN()
	}
	_ = b.Append(ts, gap...)
}

// Record applies the failed-poll policy to a set of quotes.
// It reports whether a point was appended.
func (b *Buffer) Record(ts string, quotes []model.Quote, policy Policy) bool {
	if model.AllPresent(quotes) {
		prices, ok := b.align(quotes)
		if ok {
			return b.Append(ts, prices...) == nil
		}
	}
	if policy == PolicyGap {
		b.AppendGap(ts)
		return true
	}
	return false
}

// align orders quote prices to match the buffer's symbol columns.
func (b *Buffer) align(quotes []model.Quote) ([]float64, bool) {
	bySymbol := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		bySymbol[q.Symbol] = q.Price
	}
	prices := make([]float64, len(b.symbols))
	for i, s := range b.symbols {
		p, ok := bySymbol[s]
		if !ok {
			return nil, false
		}
		prices[i] = p
	}
	return prices, true
}

// Trim keeps only the last capacity points.
func (b *Buffer) Trim() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trimLocked()
}

func (b *Buffer) trimLocked() {
	if len(b.times) <= b.capacity {
		return
	}
	start := len(b.times) - b.capacity
	b.times = b.times[start:]
	for i := range b.values {
		b.values[i] = b.values[i][start:]
	}
}

// Len returns the number of stored points.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.times)
}

func (b *Buffer) Capacity() int { return b.capacity }

// Symbols returns the symbol columns in order.
func (b *Buffer) Symbols() []string {
	return append([]string(nil), b.symbols...)
}

// Times returns a copy of the timestamp column.
func (b *Buffer) Times() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.times...)
}

// Values returns a copy of one symbol's column, or nil for an unknown symbol.
func (b *Buffer) Values(symbol string) []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i, s := range b.symbols {
		if s == symbol {
			return append([]float64(nil), b.values[i]...)
		}
	}
	return nil
}

// View returns a JSON-friendly copy; NaN gap values become nil.
func (b *Buffer) View() model.SeriesView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	view := model.SeriesView{
		Times:  append([]string(nil), b.times...),
		Series: make(map[string][]*float64, len(b.symbols)),
	}
	for i, s := range b.symbols {
		col := make([]*float64, len(b.values[i]))
		for j, v := range b.values[i] {
			v := v
			if math.IsNaN(v) {
				continue
			}
			col[j] = &v
		}
		view.Series[s] = col
	}
	return view
}
