package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rentpulse/server/internal/models"
)

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// NewDatabaseFromConn wraps an existing connection, used by tests to plug
// in sqlmock
func NewDatabaseFromConn(db *sql.DB) *Database {
	return &Database{db: db}
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

// needsPricingPredicate mirrors models.Unit.ComputeDerived: vacant or
// notice units, or an active lease ending within 60 days
const needsPricingPredicate = `(status IN ('VACANT', 'NOTICE') OR (lease_end IS NOT NULL AND julianday(lease_end) - julianday('now') <= 60))`

const unitColumns = `id, property_name, unit_number, bedrooms, bathrooms, area_sqft, status,
	       current_rent, market_rent, lease_end, created_at, updated_at`

// UnitFilter narrows ListUnits and CountUnits. Zero values mean no
// filtering; Limit <= 0 means no limit.
type UnitFilter struct {
	Status       string
	Property     string
	NeedsPricing *bool
	Limit        int
	Offset       int
}

func (f UnitFilter) whereClause() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, strings.ToUpper(f.Status))
	}
	if f.Property != "" {
		conds = append(conds, "LOWER(property_name) = LOWER(?)")
		args = append(args, f.Property)
	}
	if f.NeedsPricing != nil {
		if *f.NeedsPricing {
			conds = append(conds, needsPricingPredicate)
		} else {
			conds = append(conds, "NOT "+needsPricingPredicate)
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetUnit returns one unit with derived fields computed, or nil when the
// unit does not exist
func (d *Database) GetUnit(id string) (*models.Unit, error) {
	row := d.db.QueryRow(`
		SELECT `+unitColumns+`
		FROM units
		WHERE id = ?
	`, id)

	unit, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query unit %s: %w", id, err)
	}
	return unit, nil
}

func (d *Database) ListUnits(filter UnitFilter) ([]models.Unit, error) {
	where, args := filter.whereClause()
	query := `
		SELECT ` + unitColumns + `
		FROM units` + where + `
		ORDER BY property_name, unit_number`
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, *unit)
	}
	return units, rows.Err()
}

func (d *Database) CountUnits(filter UnitFilter) (int, error) {
	where, args := filter.whereClause()

	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM units"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	return count, nil
}

// ListUnitsByIDs preserves the order of the requested IDs; unknown IDs
// are silently absent from the result
func (d *Database) ListUnitsByIDs(ids []string) ([]models.Unit, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := d.db.Query(`
		SELECT `+unitColumns+`
		FROM units
		WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query units by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]models.Unit, len(ids))
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		byID[unit.ID] = *unit
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	units := make([]models.Unit, 0, len(ids))
	for _, id := range ids {
		if unit, ok := byID[id]; ok {
			units = append(units, unit)
		}
	}
	return units, nil
}

// GetCandidatePool returns all available competitor listings as candidate
// comparables. Eligibility filtering is the selector's job, not the
// store's.
func (d *Database) GetCandidatePool(ctx context.Context, unit models.Unit) ([]models.ComparableCandidate, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, property_name, unit_number, bedrooms, bathrooms, area_sqft, price, is_available
		FROM competitor_listings
		WHERE is_available = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate pool: %w", err)
	}
	defer rows.Close()

	var pool []models.ComparableCandidate
	for rows.Next() {
		var c models.ComparableCandidate
		var unitNumber sql.NullString
		if err := rows.Scan(&c.ID, &c.PropertyName, &unitNumber, &c.Bedrooms, &c.Bathrooms,
			&c.AreaSqft, &c.Price, &c.Available); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if unitNumber.Valid {
			c.UnitNumber = unitNumber.String
		}
		pool = append(pool, c)
	}
	return pool, rows.Err()
}

// FetchCandidatePool satisfies the batch orchestrator's fetcher interface
func (d *Database) FetchCandidatePool(ctx context.Context, unit models.Unit) ([]models.ComparableCandidate, error) {
	return d.GetCandidatePool(ctx, unit)
}

func (d *Database) GetPortfolioSummary() (models.PortfolioSummary, error) {
	query := `
		SELECT
			COUNT(*) as total_units,
			SUM(CASE WHEN status = 'OCCUPIED' THEN 1 ELSE 0 END) as occupied,
			SUM(CASE WHEN status = 'VACANT' THEN 1 ELSE 0 END) as vacant,
			SUM(CASE WHEN status = 'NOTICE' THEN 1 ELSE 0 END) as notice,
			SUM(CASE WHEN ` + needsPricingPredicate + ` THEN 1 ELSE 0 END) as needs_pricing,
			SUM(CASE WHEN current_rent IS NOT NULL AND market_rent IS NOT NULL AND current_rent < market_rent THEN 1 ELSE 0 END) as below_market,
			AVG(current_rent) as avg_current_rent,
			AVG(market_rent) as avg_market_rent
		FROM units
	`

	var s models.PortfolioSummary
	var occupied, vacant, notice, needsPricing, belowMarket sql.NullInt64
	var avgCurrent, avgMarket sql.NullFloat64
	err := d.db.QueryRow(query).Scan(
		&s.TotalUnits,
		&occupied,
		&vacant,
		&notice,
		&needsPricing,
		&belowMarket,
		&avgCurrent,
		&avgMarket,
	)
	if err != nil {
		return s, fmt.Errorf("failed to query portfolio summary: %w", err)
	}

	s.Occupied = int(occupied.Int64)
	s.Vacant = int(vacant.Int64)
	s.Notice = int(notice.Int64)
	s.NeedsPricing = int(needsPricing.Int64)
	s.BelowMarket = int(belowMarket.Int64)
	if avgCurrent.Valid {
		s.AvgCurrentRent = &avgCurrent.Float64
	}
	if avgMarket.Valid {
		s.AvgMarketRent = &avgMarket.Float64
	}
	return s, nil
}

func (d *Database) ListProperties() ([]models.PropertySummary, error) {
	rows, err := d.db.Query(`
		SELECT
			property_name,
			COUNT(*) as unit_count,
			AVG(current_rent) as avg_rent,
			CAST(SUM(CASE WHEN status = 'OCCUPIED' THEN 1 ELSE 0 END) AS FLOAT) / COUNT(*) as occupancy_rate,
			SUM(CASE WHEN ` + needsPricingPredicate + ` THEN 1 ELSE 0 END) as needs_pricing
		FROM units
		GROUP BY property_name
		ORDER BY property_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var properties []models.PropertySummary
	for rows.Next() {
		var p models.PropertySummary
		var avgRent sql.NullFloat64
		var needsPricing sql.NullInt64
		if err := rows.Scan(&p.PropertyName, &p.UnitCount, &avgRent, &p.OccupancyRate, &needsPricing); err != nil {
			return nil, fmt.Errorf("failed to scan property summary: %w", err)
		}
		if avgRent.Valid {
			p.AvgRent = &avgRent.Float64
		}
		p.NeedsPricing = int(needsPricing.Int64)
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row scanner) (*models.Unit, error) {
	var u models.Unit
	var unitNumber, statusStr sql.NullString
	var currentRent, marketRent sql.NullFloat64
	var leaseEnd, createdAt, updatedAt sql.NullString

	err := row.Scan(
		&u.ID,
		&u.PropertyName,
		&unitNumber,
		&u.Bedrooms,
		&u.Bathrooms,
		&u.AreaSqft,
		&statusStr,
		&currentRent,
		&marketRent,
		&leaseEnd,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if unitNumber.Valid {
		u.UnitNumber = unitNumber.String
	}
	if statusStr.Valid {
		u.Status = models.UnitStatus(statusStr.String)
	}
	if currentRent.Valid {
		rent := currentRent.Float64
		u.CurrentRent = &rent
	}
	if marketRent.Valid {
		rent := marketRent.Float64
		u.MarketRent = &rent
	}
	if t, ok := parseStoredTime(leaseEnd); ok {
		u.LeaseEnd = &t
	}
	if t, ok := parseStoredTime(createdAt); ok {
		u.CreatedAt = t
	}
	if t, ok := parseStoredTime(updatedAt); ok {
		u.UpdatedAt = t
	}

	u.ComputeDerived(time.Now().UTC())
	return &u, nil
}

// parseStoredTime accepts the formats sqlite hands back depending on how
// the value was written
func parseStoredTime(v sql.NullString) (time.Time, bool) {
	if !v.Valid || v.String == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
