package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrSnapshotExists is returned when a snapshot with the same name exists.
var ErrSnapshotExists = errors.New("snapshot already exists")

// SnapshotInfo describes a database copy taken before a destructive update.
type SnapshotInfo struct {
	CreatedAt     time.Time
	ID            string
	Reason        string
	Path          string
	FileSize      int64
	SchemaVersion int
	HawkerCenters int
	Predictions   int
}

// Snapshot copies the database into dir using VACUUM INTO and records the
// copy in snapshot_metadata. The collector takes one before replacing
// stored hawker centers.
func (s *SQLiteStorage) Snapshot(ctx context.Context, dir, reason string) (*SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve snapshot directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	now := s.now().UTC()
	info := &SnapshotInfo{
		ID:        fmt.Sprintf("snapshot-%s", now.Format("2006-01-02-150405.000")),
		Reason:    reason,
		CreatedAt: now,
	}
	info.Path = filepath.Join(dir, info.ID+".db")
	if _, err := os.Stat(info.Path); err == nil {
		return nil, ErrSnapshotExists
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&info.SchemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hawker_centers").Scan(&info.HawkerCenters); err != nil {
		return nil, fmt.Errorf("failed to count hawker centers: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM predictions").Scan(&info.Predictions); err != nil {
		return nil, fmt.Errorf("failed to count predictions: %w", err)
	}

	// Validate destPath to prevent SQL injection
	if strings.ContainsAny(info.Path, `'";`) {
		return nil, fmt.Errorf("invalid snapshot path: contains forbidden characters")
	}
	// #nosec G201 - path is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", info.Path)); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	if stat, err := os.Stat(info.Path); err == nil {
		info.FileSize = stat.Size()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshot_metadata (id, reason, path, file_size, schema_version, hawker_centers, predictions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, info.ID, info.Reason, info.Path, info.FileSize, info.SchemaVersion, info.HawkerCenters, info.Predictions, info.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record snapshot: %w", err)
	}
	return info, nil
}

// Snapshots lists recorded snapshots, newest first.
func (s *SQLiteStorage) Snapshots(ctx context.Context) ([]SnapshotInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reason, path, file_size, schema_version, hawker_centers, predictions, created_at
		FROM snapshot_metadata
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.Reason, &info.Path, &info.FileSize, &info.SchemaVersion,
			&info.HawkerCenters, &info.Predictions, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
