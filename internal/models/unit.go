package models

import (
	"fmt"
	"strings"
	"time"
)

type UnitStatus string

const (
	StatusOccupied UnitStatus = "OCCUPIED"
	StatusVacant   UnitStatus = "VACANT"
	StatusNotice   UnitStatus = "NOTICE"
)

// ParseUnitStatus normalizes free-form status text from imports and
// queries. Rent roll exports label occupied units "Current" and suffix
// unrented vacancies, so those spellings map onto the canonical statuses.
func ParseUnitStatus(s string) (UnitStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OCCUPIED", "CURRENT":
		return StatusOccupied, nil
	case "VACANT", "VACANT-UNRENTED":
		return StatusVacant, nil
	case "NOTICE", "NOTICE-UNRENTED":
		return StatusNotice, nil
	}
	return "", fmt.Errorf("unknown unit status %q", s)
}

type PricingUrgency string

const (
	UrgencyImmediate PricingUrgency = "IMMEDIATE"
	UrgencyHigh      PricingUrgency = "HIGH"
	UrgencyMedium    PricingUrgency = "MEDIUM"
	UrgencyLow       PricingUrgency = "LOW"
)

type UnitType string

const (
	TypeStudio   UnitType = "STUDIO"
	TypeOneBed   UnitType = "1BR"
	TypeTwoBed   UnitType = "2BR"
	TypeThreeBed UnitType = "3BR"
	TypeFourPlus UnitType = "4BR+"
)

type SizeCategory string

const (
	SizeMicro  SizeCategory = "MICRO"
	SizeSmall  SizeCategory = "SMALL"
	SizeMedium SizeCategory = "MEDIUM"
	SizeLarge  SizeCategory = "LARGE"
	SizeXLarge SizeCategory = "XLARGE"
)

// Unit is a rentable unit in the managed portfolio. Derived fields are
// computed once at load time via ComputeDerived and treated as a snapshot.
type Unit struct {
	ID           string     `json:"id"`
	PropertyName string     `json:"property_name"`
	UnitNumber   string     `json:"unit_number"`
	Bedrooms     int        `json:"bedrooms"`
	Bathrooms    int        `json:"bathrooms"`
	AreaSqft     float64    `json:"sqft"`
	Status       UnitStatus `json:"status"`
	CurrentRent  *float64   `json:"current_rent"`
	MarketRent   *float64   `json:"market_rent"`
	LeaseEnd     *time.Time `json:"lease_end"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Derived snapshot fields
	UnitType               UnitType       `json:"unit_type"`
	SizeCategory           SizeCategory   `json:"size_category"`
	PricingUrgency         PricingUrgency `json:"pricing_urgency"`
	DaysToLeaseEnd         *int           `json:"days_to_lease_end"`
	RentPerSqft            *float64       `json:"rent_per_sqft"`
	RentPremiumPct         *float64       `json:"rent_premium_pct"`
	NeedsPricing           bool           `json:"needs_pricing"`
	AnnualRevenuePotential float64        `json:"annual_revenue_potential"`
}

// Validate reports malformed core attributes before the unit enters the
// pricing pipeline
func (u *Unit) Validate() error {
	if u.AreaSqft <= 0 {
		return fmt.Errorf("unit %s: area must be positive, got %.1f", u.ID, u.AreaSqft)
	}
	if u.Bedrooms < 0 {
		return fmt.Errorf("unit %s: bedrooms must be non-negative, got %d", u.ID, u.Bedrooms)
	}
	if u.Bathrooms < 0 {
		return fmt.Errorf("unit %s: bathrooms must be non-negative, got %d", u.ID, u.Bathrooms)
	}
	if u.CurrentRent != nil && *u.CurrentRent < 0 {
		return fmt.Errorf("unit %s: current rent must be non-negative, got %.2f", u.ID, *u.CurrentRent)
	}
	return nil
}

// ComputeDerived fills the snapshot fields relative to the given instant.
// DaysToLeaseEnd stays nil exactly when there is no lease end date.
func (u *Unit) ComputeDerived(now time.Time) {
	u.UnitType = unitTypeFor(u.Bedrooms)
	u.SizeCategory = sizeCategoryFor(u.AreaSqft)

	u.DaysToLeaseEnd = nil
	if u.LeaseEnd != nil {
		days := int(u.LeaseEnd.Sub(now).Hours() / 24)
		u.DaysToLeaseEnd = &days
	}

	u.PricingUrgency = urgencyFor(u.Status, u.DaysToLeaseEnd)

	u.RentPerSqft = nil
	if u.CurrentRent != nil && u.AreaSqft > 0 {
		v := *u.CurrentRent / u.AreaSqft
		u.RentPerSqft = &v
	}

	u.RentPremiumPct = nil
	if u.CurrentRent != nil && u.MarketRent != nil && *u.MarketRent > 0 {
		v := (*u.CurrentRent - *u.MarketRent) / *u.MarketRent * 100
		u.RentPremiumPct = &v
	}

	u.NeedsPricing = u.Status == StatusVacant || u.Status == StatusNotice ||
		(u.DaysToLeaseEnd != nil && *u.DaysToLeaseEnd <= 60)

	u.AnnualRevenuePotential = 0
	if u.CurrentRent != nil {
		u.AnnualRevenuePotential = *u.CurrentRent * 12
	}
}

func unitTypeFor(bedrooms int) UnitType {
	switch bedrooms {
	case 0:
		return TypeStudio
	case 1:
		return TypeOneBed
	case 2:
		return TypeTwoBed
	case 3:
		return TypeThreeBed
	default:
		return TypeFourPlus
	}
}

func sizeCategoryFor(sqft float64) SizeCategory {
	switch {
	case sqft < 450:
		return SizeMicro
	case sqft < 700:
		return SizeSmall
	case sqft < 1000:
		return SizeMedium
	case sqft < 1400:
		return SizeLarge
	default:
		return SizeXLarge
	}
}

func urgencyFor(status UnitStatus, daysToLeaseEnd *int) PricingUrgency {
	switch status {
	case StatusVacant:
		return UrgencyImmediate
	case StatusNotice:
		return UrgencyHigh
	}
	if daysToLeaseEnd != nil {
		if *daysToLeaseEnd <= 30 {
			return UrgencyHigh
		}
		if *daysToLeaseEnd <= 90 {
			return UrgencyMedium
		}
	}
	return UrgencyLow
}
