package comps

import (
	"math"
	"sort"

	"rentpulse/server/internal/models"
)

// Stats aggregates prices over a selected comparable set. An empty set
// yields nil aggregates rather than zeros; the sample standard deviation
// needs at least two comps.
func Stats(comps []models.ScoredComparable) models.CompStats {
	stats := models.CompStats{Count: len(comps)}
	if len(comps) == 0 {
		return stats
	}

	prices := make([]float64, len(comps))
	for i, c := range comps {
		prices[i] = c.Price
	}
	sort.Float64s(prices)

	stats.Min = ptr(prices[0])
	stats.Max = ptr(prices[len(prices)-1])
	stats.Mean = ptr(mean(prices))
	stats.Median = ptr(median(prices))
	if len(prices) >= 2 {
		stats.StdDev = ptr(stdDev(prices, *stats.Mean))
	}
	return stats
}

func ptr(v float64) *float64 {
	return &v
}

func mean(sorted []float64) float64 {
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

// median expects its input sorted
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func stdDev(values []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
