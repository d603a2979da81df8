package models

import "time"

// OptimizationResult is the immutable outcome of one pricing run for one
// unit. RentChangePct and RevenueImpactAnnual are relative to the current
// rent; CompStats is a snapshot of the statistics the recommendation used.
type OptimizationResult struct {
	UnitID              string    `json:"unit_id"`
	PropertyName        string    `json:"property_name"`
	Strategy            string    `json:"strategy"`
	CurrentRent         float64   `json:"current_rent"`
	RecommendedRent     float64   `json:"recommended_rent"`
	RentChange          float64   `json:"rent_change"`
	RentChangePct       *float64  `json:"rent_change_pct"`
	DemandProbability   *float64  `json:"demand_probability"`
	ExpectedDaysToLease *float64  `json:"expected_days_to_lease"`
	RevenueImpactAnnual float64   `json:"revenue_impact_annual"`
	Confidence          float64   `json:"confidence"`
	CompStats           CompStats `json:"comp_stats"`
	ComputedAt          time.Time `json:"computed_at"`
}

// BatchFailure records one unit that could not be optimized in a batch run
type BatchFailure struct {
	UnitID string `json:"unit_id"`
	Reason string `json:"reason"`
}

// BatchResult aggregates a batch run. Results holds successes only, in
// submission order.
type BatchResult struct {
	TotalUnits int                  `json:"total_units"`
	Succeeded  int                  `json:"succeeded"`
	Failed     int                  `json:"failed"`
	Results    []OptimizationResult `json:"results"`
	Failures   []BatchFailure       `json:"failures"`
}
