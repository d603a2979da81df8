package database

import "fmt"

func (d *Database) RunMigrations() error {
	// Create units table
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS units (
			id TEXT PRIMARY KEY,
			property_name TEXT NOT NULL,
			unit_number TEXT,
			bedrooms INTEGER NOT NULL,
			bathrooms INTEGER NOT NULL,
			area_sqft REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'OCCUPIED',
			current_rent REAL,
			lease_end TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create units table: %v", err)
	}

	// Create competitor listings table
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS competitor_listings (
			id TEXT PRIMARY KEY,
			property_name TEXT NOT NULL,
			unit_number TEXT,
			bedrooms INTEGER NOT NULL,
			bathrooms REAL NOT NULL,
			area_sqft REAL NOT NULL,
			price REAL NOT NULL,
			is_available BOOLEAN DEFAULT 1,
			days_vacant INTEGER,
			source TEXT,
			imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create competitor_listings table: %v", err)
	}

	// Add market_rent column if it doesn't exist
	_, err = d.db.Exec(`
		ALTER TABLE units
		ADD COLUMN market_rent REAL;
	`)
	if err != nil && err.Error() != "duplicate column name: market_rent" {
		return err
	}

	// Index the columns the list and pool queries filter on
	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_units_status
		ON units(status);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_units_property
		ON units(property_name);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_available
		ON competitor_listings(is_available);
	`)
	if err != nil {
		return err
	}

	return nil
}
