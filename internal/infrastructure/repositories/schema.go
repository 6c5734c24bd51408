package repositories

import (
	"database/sql"
	"fmt"
)

// InitializeDatabase creates the schema if it does not exist and seeds the
// drone directory on an empty database.
func InitializeDatabase(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS operators (
			id UUID PRIMARY KEY,
			serial_number TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create operators table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS drones (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			battery_level INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create drones table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS pinned_drones (
			id UUID PRIMARY KEY,
			drone_id UUID NOT NULL REFERENCES drones(id),
			drone_name TEXT NOT NULL,
			operator_id UUID NOT NULL REFERENCES operators(id),
			config_json JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (operator_id, drone_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pinned_drones table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS recently_used_drones (
			id UUID PRIMARY KEY,
			drone_id UUID NOT NULL,
			drone_name TEXT NOT NULL,
			operator_id UUID NOT NULL REFERENCES operators(id),
			used_at TIMESTAMPTZ NOT NULL,
			UNIQUE (operator_id, drone_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create recently_used_drones table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_history (
			id UUID PRIMARY KEY,
			operator_id UUID NOT NULL REFERENCES operators(id),
			drone_id UUID NOT NULL,
			drone_name TEXT NOT NULL,
			drone_type TEXT NOT NULL,
			controller_altitude DOUBLE PRECISION NOT NULL,
			controller_lat DOUBLE PRECISION NOT NULL,
			controller_lng DOUBLE PRECISION NOT NULL,
			drone_altitude DOUBLE PRECISION NOT NULL,
			drone_lat DOUBLE PRECISION NOT NULL,
			drone_lng DOUBLE PRECISION NOT NULL,
			operational_area JSONB NOT NULL,
			status TEXT NOT NULL,
			control_center_approved BOOLEAN,
			overlay_object_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight_history table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS flight_history_operator_idx
		ON flight_history (operator_id, created_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight history index: %w", err)
	}

	return seedDrones(db)
}

// seedDrones fills an empty drone directory with a demo fleet.
func seedDrones(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM drones`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count drones: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := []struct {
		name    string
		typ     string
		status  string
		battery int
	}{
		{"Alpha-1", "patrol", "available", 78},
		{"Svy-04", "survey", "available", 15},
		{"Cam-7", "camera", "available", 92},
		{"Recon Unit B2", "recon", "in_use", 65},
		{"Cargo Heavy-X", "cargo", "available", 88},
		{"Signal Relay 01", "relay", "maintenance", 45},
		{"Scout-Delta", "scout", "available", 100},
		{"Hawk-Eye", "surveillance", "available", 72},
		{"Phantom-X9", "stealth", "available", 95},
		{"Drone-01", "general", "available", 84},
	}

	for _, d := range seed {
		_, err := db.Exec(`
			INSERT INTO drones (id, name, type, status, battery_level, created_at)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW())
		`, d.name, d.typ, d.status, d.battery)
		if err != nil {
			return fmt.Errorf("failed to seed drone %s: %w", d.name, err)
		}
	}

	return nil
}
