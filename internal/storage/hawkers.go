package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

// SaveHawkerCenters stores each document, replacing any earlier version of
// the same center together with its carparks and bus stops.
func (s *SQLiteStorage) SaveHawkerCenters(ctx context.Context, centers []model.HawkerCenter) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHawkerCenters(centers); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range centers {
		if err := s.saveHawkerCenterTx(ctx, tx, &centers[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveHawkerCenterTx(ctx context.Context, tx *sql.Tx, h *model.HawkerCenter) error {
	updatedAt := h.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO hawker_centers (id, place_id, name, address, postal_code, latitude, longitude, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			place_id = excluded.place_id,
			name = excluded.name,
			address = excluded.address,
			postal_code = excluded.postal_code,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = excluded.updated_at
	`, h.ID, nullString(h.PlaceID), h.Name, h.Address, h.PostalCode, h.Latitude, h.Longitude, updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save hawker center %s: %w", h.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM hawker_carparks WHERE hawker_id = ?`, h.ID); err != nil {
		return fmt.Errorf("failed to clear carparks for %s: %w", h.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM hawker_bus_stops WHERE hawker_id = ?`, h.ID); err != nil {
		return fmt.Errorf("failed to clear bus stops for %s: %w", h.ID, err)
	}

	for i, cp := range h.Carparks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO hawker_carparks
				(hawker_id, position, carpark_id, development, agency, lot_type, latitude, longitude, distance_meters)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, h.ID, i, cp.ID, cp.Development, cp.Agency, cp.LotType, cp.Latitude, cp.Longitude, cp.DistanceMeters)
		if err != nil {
			return fmt.Errorf("failed to save carpark %s for %s: %w", cp.ID, h.ID, err)
		}
	}

	for i, stop := range h.BusStops {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO hawker_bus_stops
				(hawker_id, position, place_id, name, bus_stop_code, road_name, description,
				 latitude, longitude, distance_meters, verified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, h.ID, i, stop.PlaceID, stop.Name, stop.Code, stop.RoadName, stop.Description,
			stop.Latitude, stop.Longitude, stop.DistanceMeters, stop.Verified)
		if err != nil {
			return fmt.Errorf("failed to save bus stop for %s: %w", h.ID, err)
		}
	}
	return nil
}

// GetHawkerCenter returns one stored document.
func (s *SQLiteStorage) GetHawkerCenter(ctx context.Context, id string) (*model.HawkerCenter, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var h model.HawkerCenter
	var placeID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, place_id, name, address, postal_code, latitude, longitude, updated_at
		FROM hawker_centers
		WHERE id = ?
	`, id).Scan(&h.ID, &placeID, &h.Name, &h.Address, &h.PostalCode, &h.Latitude, &h.Longitude, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: hawker center %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hawker center: %w", err)
	}
	h.PlaceID = placeID.String

	if err := s.loadChildren(ctx, s.db, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHawkerCenters returns every stored document ordered by id.
func (s *SQLiteStorage) ListHawkerCenters(ctx context.Context) ([]model.HawkerCenter, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, place_id, name, address, postal_code, latitude, longitude, updated_at
		FROM hawker_centers
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hawker centers: %w", err)
	}

	var centers []model.HawkerCenter
	for rows.Next() {
		var h model.HawkerCenter
		var placeID sql.NullString
		if err := rows.Scan(&h.ID, &placeID, &h.Name, &h.Address, &h.PostalCode, &h.Latitude, &h.Longitude, &h.UpdatedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan hawker center: %w", err)
		}
		h.PlaceID = placeID.String
		centers = append(centers, h)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating hawker centers: %w", err)
	}
	// Close before issuing child queries on the single connection.
	_ = rows.Close()

	for i := range centers {
		if err := s.loadChildren(ctx, s.db, &centers[i]); err != nil {
			return nil, err
		}
	}
	return centers, nil
}

// Mappings derives registry mappings from every stored document.
func (s *SQLiteStorage) Mappings(ctx context.Context) (map[string]model.HawkerMapping, error) {
	centers, err := s.ListHawkerCenters(ctx)
	if err != nil {
		return nil, err
	}
	mappings := make(map[string]model.HawkerMapping, len(centers))
	for i := range centers {
		mappings[centers[i].ID] = centers[i].Mapping()
	}
	return mappings, nil
}

func (s *SQLiteStorage) loadChildren(ctx context.Context, q queryable, h *model.HawkerCenter) error {
	rows, err := q.QueryContext(ctx, `
		SELECT carpark_id, development, agency, lot_type, latitude, longitude, distance_meters
		FROM hawker_carparks
		WHERE hawker_id = ?
		ORDER BY position
	`, h.ID)
	if err != nil {
		return fmt.Errorf("failed to query carparks: %w", err)
	}
	h.Carparks = []model.NearbyCarpark{}
	for rows.Next() {
		var cp model.NearbyCarpark
		if err := rows.Scan(&cp.ID, &cp.Development, &cp.Agency, &cp.LotType, &cp.Latitude, &cp.Longitude, &cp.DistanceMeters); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan carpark: %w", err)
		}
		h.Carparks = append(h.Carparks, cp)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("error iterating carparks: %w", err)
	}
	_ = rows.Close()

	rows, err = q.QueryContext(ctx, `
		SELECT place_id, name, bus_stop_code, road_name, description, latitude, longitude, distance_meters, verified
		FROM hawker_bus_stops
		WHERE hawker_id = ?
		ORDER BY position
	`, h.ID)
	if err != nil {
		return fmt.Errorf("failed to query bus stops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	h.BusStops = []model.NearbyBusStop{}
	for rows.Next() {
		var stop model.NearbyBusStop
		if err := rows.Scan(&stop.PlaceID, &stop.Name, &stop.Code, &stop.RoadName, &stop.Description,
			&stop.Latitude, &stop.Longitude, &stop.DistanceMeters, &stop.Verified); err != nil {
			return fmt.Errorf("failed to scan bus stop: %w", err)
		}
		h.BusStops = append(h.BusStops, stop)
	}
	return rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
