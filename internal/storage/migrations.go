package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial hawker center schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS hawker_centers (
					id TEXT PRIMARY KEY,
					place_id TEXT,
					name TEXT NOT NULL,
					address TEXT,
					postal_code TEXT,
					latitude REAL NOT NULL DEFAULT 0,
					longitude REAL NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_hawker_centers_place_id ON hawker_centers(place_id)`,

				`CREATE TABLE IF NOT EXISTS hawker_carparks (
					hawker_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					carpark_id TEXT NOT NULL,
					development TEXT,
					agency TEXT,
					lot_type TEXT,
					latitude REAL,
					longitude REAL,
					distance_meters REAL,
					PRIMARY KEY (hawker_id, carpark_id),
					FOREIGN KEY (hawker_id) REFERENCES hawker_centers(id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS hawker_bus_stops (
					hawker_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					place_id TEXT,
					name TEXT,
					bus_stop_code TEXT,
					road_name TEXT,
					description TEXT,
					latitude REAL,
					longitude REAL,
					distance_meters REAL,
					verified INTEGER NOT NULL DEFAULT 0,
					FOREIGN KEY (hawker_id) REFERENCES hawker_centers(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX IF NOT EXISTS idx_hawker_bus_stops_hawker ON hawker_bus_stops(hawker_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add prediction history",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS predictions (
					id TEXT PRIMARY KEY,
					hawker_id TEXT NOT NULL,
					hawker_name TEXT,
					crowd_level TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					error TEXT,
					predicted_at DATETIME NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_predictions_hawker_time ON predictions(hawker_id, predicted_at DESC)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add snapshot metadata",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS snapshot_metadata (
					id TEXT PRIMARY KEY,
					reason TEXT,
					path TEXT NOT NULL,
					file_size INTEGER DEFAULT 0,
					schema_version INTEGER NOT NULL,
					hawker_centers INTEGER DEFAULT 0,
					predictions INTEGER DEFAULT 0,
					created_at DATETIME NOT NULL
				)
			`)
			return err
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
