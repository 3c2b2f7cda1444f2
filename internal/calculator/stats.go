package calculator

import "CoinPulse/internal/model"

// RSIPeriod is the lookback used for SeriesStats.RSI.
const RSIPeriod = 14

// Summarize builds SeriesStats for one symbol column. Gap points are ignored;
// an all-gap or empty column yields the zero value.
func Summarize(values []float64) model.SeriesStats {
	clean := dropGaps(values)
	if len(clean) == 0 {
		return model.SeriesStats{}
	}

	st := model.SeriesStats{Last: clean[len(clean)-1]}
	if h, l, err := CalculateRange(clean); err == nil {
		st.High, st.Low = h, l
	}
	if sma, err := CalculateSMA(clean, len(clean)); err == nil {
		st.SMA = sma
	}
	if pct, err := CalculateChangePct(clean[0], st.Last); err == nil {
		st.ChangePct = pct
	}
	if rsi, err := CalculateRSI(clean, RSIPeriod); err == nil {
		st.RSI = rsi
	}
	return st
}
