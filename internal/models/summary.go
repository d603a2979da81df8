package models

// PortfolioSummary aggregates the whole unit inventory for the dashboard
// summary endpoint
type PortfolioSummary struct {
	TotalUnits     int      `json:"total_units"`
	Occupied       int      `json:"occupied"`
	Vacant         int      `json:"vacant"`
	Notice         int      `json:"notice"`
	NeedsPricing   int      `json:"needs_pricing"`
	BelowMarket    int      `json:"below_market"`
	AvgCurrentRent *float64 `json:"avg_current_rent"`
	AvgMarketRent  *float64 `json:"avg_market_rent"`
}

// PropertySummary aggregates one property's units
type PropertySummary struct {
	PropertyName  string   `json:"property_name"`
	UnitCount     int      `json:"unit_count"`
	AvgRent       *float64 `json:"avg_rent"`
	OccupancyRate float64  `json:"occupancy_rate"`
	NeedsPricing  int      `json:"needs_pricing"`
}
