package calculator

import "errors"

// CalculateRSI returns the Wilder-smoothed RSI of a price column. Gap points
// are skipped, so a change is measured between consecutive real prices.
// With fewer than period+1 prices the result is the neutral 50.
func CalculateRSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	prices := dropGaps(values)
	if len(prices) <= period {
		return 50, nil
	}

	var up, down float64
	for i := 1; i < len(prices); i++ {
		gain, loss := split(prices[i] - prices[i-1])
		if i <= period {
			up += gain / float64(period)
			down += loss / float64(period)
			continue
		}
		up = (up*float64(period-1) + gain) / float64(period)
		down = (down*float64(period-1) + loss) / float64(period)
	}

	if down == 0 {
		return 100, nil
	}
	return 100 - 100/(1+up/down), nil
}

// split separates a price change into its gain and loss parts.
func split(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}
