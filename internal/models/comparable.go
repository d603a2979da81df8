package models

// ComparableCandidate is one competitor unit offered to the selector.
// Candidates are read-only input; the engine never mutates them.
type ComparableCandidate struct {
	ID           string  `json:"id"`
	PropertyName string  `json:"property_name"`
	UnitNumber   string  `json:"unit_number"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    float64 `json:"bathrooms"`
	AreaSqft     float64 `json:"sqft"`
	Price        float64 `json:"price"`
	Available    bool    `json:"available"`
}

// ScoredComparable is a candidate that passed hard eligibility, annotated
// with its deltas against the subject unit, similarity score and rank.
// AreaDeltaPct and PriceGapPct are fractions (0.05 = five percent).
type ScoredComparable struct {
	ComparableCandidate
	AreaDeltaPct    float64  `json:"sqft_delta_pct"`
	BedroomDelta    int      `json:"bedroom_delta"`
	BathroomDelta   float64  `json:"bathroom_delta"`
	PriceGapPct     *float64 `json:"price_gap_pct"`
	SimilarityScore int      `json:"similarity_score"`
	Rank            int      `json:"comp_rank"`
}

// CompStats aggregates prices over one selected comparable set. Aggregate
// pointers are nil when the set is empty; StdDev is the sample standard
// deviation and is nil below two comps.
type CompStats struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	StdDev *float64 `json:"stddev"`
}
