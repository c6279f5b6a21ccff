package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/google/uuid"
)

// DefaultHistoryLimit bounds RecentPredictions when the caller passes no limit.
const DefaultHistoryLimit = 50

// SavePrediction appends p to the prediction history.
func (s *SQLiteStorage) SavePrediction(ctx context.Context, p *model.Prediction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePrediction(p); err != nil {
		return err
	}

	at := p.Timestamp
	if at.IsZero() {
		at = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, hawker_id, hawker_name, crowd_level, confidence, source, error, predicted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), p.HawkerID, p.HawkerName, string(p.Level), p.Confidence, p.Source,
		nullString(p.Error), at.UTC())
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// RecentPredictions returns up to limit predictions for hawkerID, newest first.
func (s *SQLiteStorage) RecentPredictions(ctx context.Context, hawkerID string, limit int) ([]model.Prediction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(hawkerID, "hawkerID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT hawker_id, hawker_name, crowd_level, confidence, source, error, predicted_at
		FROM predictions
		WHERE hawker_id = ?
		ORDER BY predicted_at DESC, rowid DESC
		LIMIT ?
	`, hawkerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Prediction{}
	for rows.Next() {
		var p model.Prediction
		var name, errText sql.NullString
		var level string
		if err := rows.Scan(&p.HawkerID, &name, &level, &p.Confidence, &p.Source, &errText, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		p.HawkerName = name.String
		p.Level = model.CrowdLevel(level)
		p.Error = errText.String
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}
	return out, nil
}
