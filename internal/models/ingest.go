package models

import "time"

type IngestKind string

const (
	IngestRentRoll    IngestKind = "rent_roll"
	IngestCompetition IngestKind = "competition"
)

// CompetitorListing is a persisted competitor unit as imported from a
// competition file. Listings back the candidate pools served to the
// comparable selector.
type CompetitorListing struct {
	ID           string    `json:"id"`
	PropertyName string    `json:"property_name"`
	UnitNumber   string    `json:"unit_number"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	AreaSqft     float64   `json:"sqft"`
	Price        float64   `json:"price"`
	Available    bool      `json:"available"`
	DaysVacant   *int      `json:"days_vacant"`
	Source       string    `json:"source"`
	ImportedAt   time.Time `json:"imported_at"`
}

// IngestBatch is one parsed upload travelling from the ingest readers to
// the persistence workers. Exactly one of Units or Listings is populated
// depending on Kind.
type IngestBatch struct {
	ID         string              `json:"id"`
	Kind       IngestKind          `json:"kind"`
	Units      []Unit              `json:"units,omitempty"`
	Listings   []CompetitorListing `json:"listings,omitempty"`
	ReceivedAt time.Time           `json:"received_at"`
}
