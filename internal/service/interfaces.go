// Package service defines the interfaces shared between the application's
// components.
package service

import (
	"context"

	"github.com/Veraticus/hawker-crowd/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Hawker center documents
	SaveHawkerCenters(ctx context.Context, centers []model.HawkerCenter) error
	GetHawkerCenter(ctx context.Context, id string) (*model.HawkerCenter, error)
	ListHawkerCenters(ctx context.Context) ([]model.HawkerCenter, error)
	Mappings(ctx context.Context) (map[string]model.HawkerMapping, error)

	// Prediction history
	SavePrediction(ctx context.Context, p *model.Prediction) error
	RecentPredictions(ctx context.Context, hawkerID string, limit int) ([]model.Prediction, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Predictor serves crowd predictions from the current trained model.
type Predictor interface {
	Predict(ctx context.Context, hawkerID string) (*model.Prediction, error)
	PredictAll(ctx context.Context) ([]model.Prediction, error)
	// UpdateMappings replaces the hawker mappings and, when a model is
	// loaded, rewrites the bundle at path. It reports whether it did.
	UpdateMappings(mappings map[string]model.HawkerMapping, path string) (bool, error)
	Loaded() bool
}

// PredictionCache holds recent single-hawker predictions.
type PredictionCache interface {
	Get(ctx context.Context, hawkerID string) (*model.Prediction, bool)
	Set(ctx context.Context, p *model.Prediction)
	Invalidate(ctx context.Context)
}
