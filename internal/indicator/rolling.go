package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RollingStdDev calculates the sample standard deviation (n-1 denominator)
// over a trailing window. Warm-up rows and window sizes below 2 are NaN.
func RollingStdDev(prices []float64, window int) []float64 {
	result := make([]float64, len(prices))
	for i := range prices {
		if window < 2 || i < window-1 {
			result[i] = math.NaN()
			continue
		}
		result[i] = stat.StdDev(prices[i-window+1:i+1], nil)
	}
	return result
}

// ZScore returns (price - mean) / std over a trailing window.
// Rows where the deviation is zero or undefined are NaN.
func ZScore(prices []float64, window int) []float64 {
	means := SMA(prices, window)
	stds := RollingStdDev(prices, window)

	result := make([]float64, len(prices))
	for i, p := range prices {
		if !Defined(means[i]) || !Defined(stds[i]) || stds[i] == 0 {
			result[i] = math.NaN()
			continue
		}
		result[i] = (p - means[i]) / stds[i]
	}
	return result
}
