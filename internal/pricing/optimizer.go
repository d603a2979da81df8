package pricing

import (
	"fmt"
	"math"
	"time"

	"rentpulse/server/internal/models"
)

// Config carries the engine constants. Elasticity may be overridden per
// request by the caller before invoking Optimize.
type Config struct {
	MaxPriceAdjustmentPct float64
	Elasticity            float64
	VacancyWindowDays     int
	RevenueFloorPct       float64
}

func DefaultConfig() Config {
	return Config{
		MaxPriceAdjustmentPct: 0.15,
		Elasticity:            -0.003,
		VacancyWindowDays:     30,
		RevenueFloorPct:       0.90,
	}
}

// Optimize computes a recommended rent for unit under the given strategy.
// An empty comparable set is not an error: the unit keeps its current rent
// at reduced confidence. Every recommendation is clamped into the
// adjustment band around the current rent and rounded to a whole dollar.
func Optimize(unit models.Unit, stats models.CompStats, strategy Strategy, weight float64, cfg Config) (models.OptimizationResult, error) {
	if err := unit.Validate(); err != nil {
		return models.OptimizationResult{}, err
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return models.OptimizationResult{}, err
	}
	if weight < 0 || weight > 1 {
		return models.OptimizationResult{}, fmt.Errorf("weight must be within [0, 1], got %.3f", weight)
	}
	if unit.CurrentRent == nil || *unit.CurrentRent <= 0 {
		return models.OptimizationResult{}, fmt.Errorf("unit %s has no current rent to optimize", unit.ID)
	}
	current := *unit.CurrentRent

	result := models.OptimizationResult{
		UnitID:       unit.ID,
		PropertyName: unit.PropertyName,
		Strategy:     string(strategy),
		CurrentRent:  current,
		Confidence:   confidenceFor(stats.Count),
		CompStats:    stats,
		ComputedAt:   time.Now().UTC(),
	}

	// Without comparables there is no anchor; keep the current rent
	// rather than inventing precision.
	if stats.Count == 0 || stats.Median == nil {
		result.RecommendedRent = current
		result.RentChangePct = ptr(0)
		return result, nil
	}

	anchor := *stats.Median
	curve := Curve{Elasticity: cfg.Elasticity, WindowDays: cfg.VacancyWindowDays}
	adj := cfg.MaxPriceAdjustmentPct

	var raw float64
	switch strategy {
	case StrategyRevenue:
		raw = revenuePrice(anchor, curve, adj)
	case StrategyLeaseUp:
		raw = leaseUpPrice(current, anchor, curve, adj, cfg.RevenueFloorPct)
	case StrategyBalanced:
		raw = weight*revenuePrice(anchor, curve, adj) +
			(1-weight)*leaseUpPrice(current, anchor, curve, adj, cfg.RevenueFloorPct)
	}

	lower := current * (1 - adj)
	upper := current * (1 + adj)
	recommended := roundWithinBand(clampPrice(raw, lower, upper), lower, upper)

	change := recommended - current
	changePct := change / current * 100
	prob := curve.Probability(recommended, anchor)
	days := curve.ExpectedDays(prob)

	result.RecommendedRent = recommended
	result.RentChange = change
	result.RentChangePct = &changePct
	result.DemandProbability = &prob
	result.ExpectedDaysToLease = &days
	result.RevenueImpactAnnual = change * 12
	return result, nil
}

// revenuePrice scans the adjustment band around the anchor in one-dollar
// steps for the price maximizing projected annual revenue. Ties break
// toward the higher price.
func revenuePrice(anchor float64, curve Curve, adj float64) float64 {
	lo := anchor * (1 - adj)
	hi := anchor * (1 + adj)

	best := lo
	bestRevenue := annualRevenue(lo, anchor, curve)
	for p := lo + 1; p < hi; p++ {
		if r := annualRevenue(p, anchor, curve); r >= bestRevenue {
			best, bestRevenue = p, r
		}
	}
	if r := annualRevenue(hi, anchor, curve); r >= bestRevenue {
		best = hi
	}
	return best
}

// revenueEpsilon absorbs float noise when a price sits exactly on the
// revenue floor
const revenueEpsilon = 1e-6

// leaseUpPrice finds the lowest price in the band around the anchor whose
// projected revenue still clears the floor, a fraction of the unit's
// status-quo projection at its current rent. Unconstrained minimization
// would always land on the bottom of the band.
func leaseUpPrice(current, anchor float64, curve Curve, adj, floorPct float64) float64 {
	floor := floorPct * annualRevenue(current, anchor, curve)

	lo := anchor * (1 - adj)
	hi := anchor * (1 + adj)
	for p := lo; p < hi; p++ {
		if annualRevenue(p, anchor, curve) >= floor-revenueEpsilon {
			return p
		}
	}
	return hi
}

func annualRevenue(price, anchor float64, curve Curve) float64 {
	return price * curve.Probability(price, anchor) * 12
}

func clampPrice(p, lower, upper float64) float64 {
	if p < lower {
		return lower
	}
	if p > upper {
		return upper
	}
	return p
}

// bandEpsilon keeps the band check from tripping on float noise at the
// exact bounds
const bandEpsilon = 1e-9

// roundWithinBand rounds to the nearest dollar without letting the
// rounding step escape the band
func roundWithinBand(p, lower, upper float64) float64 {
	r := math.Round(p)
	if r > upper+bandEpsilon {
		return math.Floor(p)
	}
	if r < lower-bandEpsilon {
		return math.Ceil(p)
	}
	return r
}

func confidenceFor(count int) float64 {
	switch {
	case count >= 10:
		return 0.95
	case count >= 5:
		return 0.80
	case count >= 3:
		return 0.60
	default:
		return 0.30
	}
}

func ptr(v float64) *float64 {
	return &v
}
