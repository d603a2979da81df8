// Package pricing turns comparable statistics into a recommended rent
// under one of three strategies, using a bounded linear demand model.
package pricing

// Demand probability bounds. The floor and ceiling reflect irreducible
// market noise: demand never reaches zero or certainty.
const (
	probFloor = 0.05
	probCeil  = 0.95
)

// Curve maps a candidate price to a leasing probability relative to an
// anchor price. Elasticity translates one percent of price deviation into
// a probability shift; WindowDays is the vacancy-clearing window.
type Curve struct {
	Elasticity float64
	WindowDays int
}

// Probability returns the clamped leasing probability for price against
// anchor. A non-positive anchor carries no signal and yields 0.5.
func (c Curve) Probability(price, anchor float64) float64 {
	if anchor <= 0 {
		return 0.5
	}
	ratio := (price - anchor) / anchor
	p := 1 + c.Elasticity*ratio*100
	if p < probFloor {
		return probFloor
	}
	if p > probCeil {
		return probCeil
	}
	return p
}

// ExpectedDays converts a leasing probability into expected days on
// market. It grows without bound toward the probability floor and
// approaches the window toward the ceiling.
func (c Curve) ExpectedDays(probability float64) float64 {
	return float64(c.WindowDays) / probability
}
