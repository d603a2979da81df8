// Package comps selects and ranks comparable competitor units for a
// subject unit. Selection is pure: identical inputs always produce the
// identical ranked set.
package comps

import (
	"math"
	"sort"

	"rentpulse/server/internal/models"
)

// Similarity weights. The area term uses a fixed threshold on purpose:
// it only diverges from the hard filter when MaxAreaDeltaPct is
// configured wider than 0.15.
const (
	scoreAreaThreshold = 0.15

	weightArea        = 40
	weightBedrooms    = 30
	weightBathrooms   = 20
	weightOffProperty = 10
)

// Config bounds hard eligibility and output size
type Config struct {
	MaxAreaDeltaPct     float64
	SimilarityThreshold int
	MaxComparables      int
}

func DefaultConfig() Config {
	return Config{
		MaxAreaDeltaPct:     0.15,
		SimilarityThreshold: 50,
		MaxComparables:      10,
	}
}

// Select filters the candidate pool by hard eligibility, scores the
// survivors, ranks them and truncates to the configured cap. The returned
// stats are computed over the same capped set as the returned slice.
func Select(subject models.Unit, pool []models.ComparableCandidate, cfg Config) ([]models.ScoredComparable, models.CompStats) {
	scored := make([]models.ScoredComparable, 0, len(pool))
	for _, cand := range pool {
		sc, eligible := evaluate(subject, cand, cfg)
		if !eligible || sc.SimilarityScore < cfg.SimilarityThreshold {
			continue
		}
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return lessComparable(scored[i], scored[j])
	})

	if cfg.MaxComparables > 0 && len(scored) > cfg.MaxComparables {
		scored = scored[:cfg.MaxComparables]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored, Stats(scored)
}

// evaluate applies the hard filters and computes deltas and the similarity
// score. Candidates failing a hard filter are never scored. Fractional
// bathroom counts are truncated for the filter (1.5 and 1.9 both compare
// as 1) but must match exactly to earn bathroom points.
func evaluate(subject models.Unit, cand models.ComparableCandidate, cfg Config) (models.ScoredComparable, bool) {
	if subject.AreaSqft <= 0 {
		return models.ScoredComparable{}, false
	}
	if cand.Bedrooms != subject.Bedrooms {
		return models.ScoredComparable{}, false
	}
	if int(cand.Bathrooms) != subject.Bathrooms {
		return models.ScoredComparable{}, false
	}
	areaDelta := math.Abs(subject.AreaSqft-cand.AreaSqft) / subject.AreaSqft
	if areaDelta > cfg.MaxAreaDeltaPct {
		return models.ScoredComparable{}, false
	}

	sc := models.ScoredComparable{
		ComparableCandidate: cand,
		AreaDeltaPct:        areaDelta,
		BedroomDelta:        cand.Bedrooms - subject.Bedrooms,
		BathroomDelta:       cand.Bathrooms - float64(subject.Bathrooms),
	}
	if subject.CurrentRent != nil && *subject.CurrentRent > 0 {
		gap := (cand.Price - *subject.CurrentRent) / *subject.CurrentRent
		sc.PriceGapPct = &gap
	}

	score := 0
	if areaDelta <= scoreAreaThreshold {
		score += weightArea
	}
	if cand.Bedrooms == subject.Bedrooms {
		score += weightBedrooms
	}
	if cand.Bathrooms == float64(subject.Bathrooms) {
		score += weightBathrooms
	}
	if cand.PropertyName != subject.PropertyName {
		score += weightOffProperty
	}
	sc.SimilarityScore = score
	return sc, true
}

// lessComparable orders by score descending, then area delta ascending,
// then absolute price gap ascending with missing gaps last
func lessComparable(a, b models.ScoredComparable) bool {
	if a.SimilarityScore != b.SimilarityScore {
		return a.SimilarityScore > b.SimilarityScore
	}
	if a.AreaDeltaPct != b.AreaDeltaPct {
		return a.AreaDeltaPct < b.AreaDeltaPct
	}
	switch {
	case a.PriceGapPct == nil && b.PriceGapPct == nil:
		return false
	case a.PriceGapPct == nil:
		return false
	case b.PriceGapPct == nil:
		return true
	}
	return math.Abs(*a.PriceGapPct) < math.Abs(*b.PriceGapPct)
}
