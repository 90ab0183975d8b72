package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SMA calculates a Simple Moving Average aligned to the input.
// Rows with fewer than period observations are NaN.
func SMA(prices []float64, period int) []float64 {
	result := make([]float64, len(prices))
	for i := range prices {
		if period <= 0 || i < period-1 {
			result[i] = math.NaN()
			continue
		}
		result[i] = stat.Mean(prices[i-period+1:i+1], nil)
	}
	return result
}

// Defined reports whether v holds a computed indicator value
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
