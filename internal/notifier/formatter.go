package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"CoinPulse/internal/model"
)

// PriceError is shown in place of a price that could not be fetched.
const PriceError = "Error fetching price"

// FormatPrice renders a quote as "$X.XXXX", or PriceError when absent.
func FormatPrice(q model.Quote) string {
	if !q.Present() {
		return PriceError
	}
	return money(q.Price)
}

// Labels maps each quote's symbol to its formatted price.
func Labels(quotes []model.Quote) map[string]string {
	labels := make(map[string]string, len(quotes))
	for _, q := range quotes {
		labels[q.Symbol] = FormatPrice(q)
	}
	return labels
}

// FormatTicker renders a one-line summary of a snapshot.
func FormatTicker(snap *model.Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("#%d %s", snap.Tick, snap.UpdatedAt.Format("15:04:05")))
	for _, q := range snap.Quotes {
		b.WriteString(fmt.Sprintf(" | %s %s", q.Symbol, FormatPrice(q)))
	}
	b.WriteString(fmt.Sprintf(" | series %d | news %d", snap.Series.Len(), len(snap.News)))
	return b.String()
}

// FormatPrices renders the current prices for Telegram.
func FormatPrices(snap *model.Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💹 <b>Prices</b> | %s\n\n", snap.UpdatedAt.Format("15:04:05")))
	if len(snap.Quotes) == 0 {
		b.WriteString("no data yet\n")
		return b.String()
	}
	for _, q := range snap.Quotes {
		b.WriteString(fmt.Sprintf("%s: %s\n", html.EscapeString(q.Symbol), FormatPrice(q)))
	}
	return b.String()
}

// FormatNews renders news items as Telegram HTML, at most max items (0 = all).
func FormatNews(items []model.NewsItem, max int) string {
	var b strings.Builder
	b.WriteString("📰 <b>Latest News</b>\n")
	if len(items) == 0 {
		b.WriteString("\nno news available\n")
		return b.String()
	}
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	for _, it := range items {
		b.WriteString(fmt.Sprintf("\n<a href=\"%s\">%s</a>\n", html.EscapeString(it.Link), html.EscapeString(it.Title)))
		if it.Summary != "" {
			b.WriteString(html.EscapeString(truncate(it.Summary, 280)) + "\n")
		}
		b.WriteString(fmt.Sprintf("Published: %s\n", html.EscapeString(it.Published)))
	}
	return b.String()
}

// FormatChart renders the series as text: per-symbol stats plus the last
// rows points, oldest first.
func FormatChart(snap *model.Snapshot, symbols []string, rows int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Price Trend</b> (%d points)\n\n", snap.Series.Len()))
	if snap.Series.Len() == 0 {
		b.WriteString("no points recorded yet\n")
		return b.String()
	}

	for _, s := range symbols {
		st := snap.Stats[s]
		b.WriteString(fmt.Sprintf("%s: last %s | high %s | low %s | sma %s | %+.2f%% | rsi %.0f\n",
			s, money(st.Last), money(st.High), money(st.Low), money(st.SMA), st.ChangePct, st.RSI))
	}
	b.WriteString("\n<pre>")

	start := 0
	if rows > 0 && snap.Series.Len() > rows {
		start = snap.Series.Len() - rows
	}
	for i := start; i < snap.Series.Len(); i++ {
		b.WriteString(snap.Series.Times[i])
		for _, s := range symbols {
			col := snap.Series.Series[s]
			if i < len(col) && col[i] != nil {
				b.WriteString("  " + money(*col[i]))
			} else {
				b.WriteString("  " + padRight("-", 7))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("</pre>")
	return b.String()
}

func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("$%.4f", v)
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
