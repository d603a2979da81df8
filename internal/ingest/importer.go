package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentpulse/server/internal/models"
)

// RowError records why one spreadsheet row was skipped. Row numbers
// match what the user sees in their spreadsheet, header included.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type Importer struct {
	logger *logrus.Logger
}

func NewImporter(logger *logrus.Logger) *Importer {
	return &Importer{logger: logger}
}

// ParseRentRoll converts a rent roll table into a batch of units.
// Malformed rows are skipped and reported, never fatal: one bad lease
// date must not block the rest of a 400 unit roll.
func (im *Importer) ParseRentRoll(table *Table, now time.Time) (*models.IngestBatch, []RowError, error) {
	if err := requireColumns(table, map[string][]string{
		"Property": {"Property"},
		"Unit":     {"Unit"},
		"Bedroom":  {"Bedroom", "Bedrooms", "Bed", "BR"},
		"Sqft":     {"Sqft", "Square Feet", "Sq Ft", "Area"},
		"Status":   {"Status"},
	}); err != nil {
		return nil, nil, err
	}

	var units []models.Unit
	var rowErrors []RowError

	for i, row := range table.Rows {
		rowNum := i + 2
		skip := func(reason string) {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Reason: reason})
			im.logger.WithFields(logrus.Fields{"row": rowNum, "reason": reason}).Warn("Skipping rent roll row")
		}

		property := table.Cell(row, "Property")
		if property == "" {
			skip("missing property name")
			continue
		}
		unitNumber := table.Cell(row, "Unit")
		if unitNumber == "" {
			skip("missing unit number")
			continue
		}

		bedrooms, ok := parseBedroomCount(table.Cell(row, "Bedroom", "Bedrooms", "Bed", "BR"))
		if !ok {
			skip("invalid bedroom count")
			continue
		}

		sqft := parseNumber(table.Cell(row, "Sqft", "Square Feet", "Sq Ft", "Area"))
		if sqft == nil || *sqft <= 0 {
			skip("invalid square footage")
			continue
		}

		status, err := models.ParseUnitStatus(table.Cell(row, "Status"))
		if err != nil {
			skip(err.Error())
			continue
		}

		// Half baths on a managed unit round down; comparables keep them
		bathrooms := 1
		if v := parseNumber(table.Cell(row, "Bathrooms", "Baths")); v != nil && *v >= 0 {
			bathrooms = int(*v)
		}

		unit := models.Unit{
			ID:           slugID(property, unitNumber),
			PropertyName: property,
			UnitNumber:   unitNumber,
			Bedrooms:     bedrooms,
			Bathrooms:    bathrooms,
			AreaSqft:     *sqft,
			Status:       status,
			CurrentRent:  parseCurrency(table.Cell(row, "Rent", "Current Rent")),
			MarketRent:   parseCurrency(table.Cell(row, "Market Rent")),
			LeaseEnd:     parseDate(table.Cell(row, "Lease To", "Lease End")),
		}
		if err := unit.Validate(); err != nil {
			skip(err.Error())
			continue
		}

		units = append(units, unit)
	}

	batch := &models.IngestBatch{
		ID:         uuid.NewString(),
		Kind:       models.IngestRentRoll,
		Units:      units,
		ReceivedAt: now,
	}
	im.logger.WithFields(logrus.Fields{
		"batch_id": batch.ID,
		"units":    len(units),
		"skipped":  len(rowErrors),
	}).Info("Parsed rent roll upload")
	return batch, rowErrors, nil
}

// ParseCompetition converts a competition survey table into a batch of
// listings for the given source
func (im *Importer) ParseCompetition(table *Table, source string, now time.Time) (*models.IngestBatch, []RowError, error) {
	if err := requireColumns(table, map[string][]string{
		"Reporting Property Name": {"Reporting Property Name", "Property Name", "Property", "Competitor"},
		"Bedrooms":                {"Bedrooms", "Bedroom", "Bed", "BR"},
		"Market Rent":             {"Market Rent", "Rent", "Price"},
		"Avg. Sq. Ft.":            {"Avg. Sq. Ft.", "Avg Sq Ft", "Square Feet", "Sqft"},
	}); err != nil {
		return nil, nil, err
	}

	var listings []models.CompetitorListing
	var rowErrors []RowError

	for i, row := range table.Rows {
		rowNum := i + 2
		skip := func(reason string) {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Reason: reason})
			im.logger.WithFields(logrus.Fields{"row": rowNum, "reason": reason}).Warn("Skipping competition row")
		}

		property := table.Cell(row, "Reporting Property Name", "Property Name", "Property", "Competitor")
		if property == "" {
			skip("missing property name")
			continue
		}

		bedrooms, ok := parseBedroomLabel(table.Cell(row, "Bedrooms", "Bedroom", "Bed", "BR"))
		if !ok {
			skip("invalid bedroom label")
			continue
		}

		price := parseCurrency(table.Cell(row, "Market Rent", "Rent", "Price"))
		if price == nil || *price <= 0 {
			skip("invalid market rent")
			continue
		}

		sqft := parseNumber(table.Cell(row, "Avg. Sq. Ft.", "Avg Sq Ft", "Square Feet", "Sqft"))
		if sqft == nil || *sqft <= 0 {
			skip("invalid square footage")
			continue
		}

		// Surveys rarely report bathrooms; assume one per bedroom with a
		// floor of one, matching how these floor plans are typically cut
		bathrooms := float64(bedrooms)
		if bathrooms < 1 {
			bathrooms = 1
		}
		if v := parseNumber(table.Cell(row, "Bathrooms", "Baths")); v != nil && *v > 0 {
			bathrooms = *v
		}

		var daysVacant *int
		if v := parseNumber(table.Cell(row, "Days Vacant")); v != nil && *v >= 0 {
			d := int(*v)
			daysVacant = &d
		}

		listings = append(listings, models.CompetitorListing{
			ID:           uuid.NewString(),
			PropertyName: property,
			UnitNumber:   table.Cell(row, "Unit"),
			Bedrooms:     bedrooms,
			Bathrooms:    bathrooms,
			AreaSqft:     *sqft,
			Price:        *price,
			Available:    true,
			DaysVacant:   daysVacant,
			Source:       source,
			ImportedAt:   now,
		})
	}

	batch := &models.IngestBatch{
		ID:         uuid.NewString(),
		Kind:       models.IngestCompetition,
		Listings:   listings,
		ReceivedAt: now,
	}
	im.logger.WithFields(logrus.Fields{
		"batch_id": batch.ID,
		"source":   source,
		"listings": len(listings),
		"skipped":  len(rowErrors),
	}).Info("Parsed competition upload")
	return batch, rowErrors, nil
}

func requireColumns(table *Table, required map[string][]string) error {
	var missing []string
	for name, aliases := range required {
		if !table.HasColumn(aliases...) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
