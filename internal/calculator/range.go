package calculator

import (
	"errors"
	"math"
)

// CalculateRange returns the high and low of the given values.
func CalculateRange(values []float64) (high, low float64, err error) {
	if len(values) == 0 {
		return 0, 0, errors.New("no values provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, v := range values {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low, nil
}

// CalculateChangePct returns the percentage change from first to last.
func CalculateChangePct(first, last float64) (float64, error) {
	if first == 0 {
		return 0, errors.New("first value must be non-zero")
	}
	return (last - first) / first * 100, nil
}
