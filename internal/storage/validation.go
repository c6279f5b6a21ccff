package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/hawker-crowd/internal/model"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrEmptySlice          = errors.New("slice cannot be empty")
	ErrInvalidHawkerCenter = errors.New("invalid hawker center")
	ErrInvalidPrediction   = errors.New("invalid prediction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateHawkerCenters validates a batch of documents and rejects duplicate ids.
func validateHawkerCenters(centers []model.HawkerCenter) error {
	if centers == nil {
		return fmt.Errorf("%w: centers", ErrNilParameter)
	}
	if len(centers) == 0 {
		return fmt.Errorf("%w: centers", ErrEmptySlice)
	}

	seen := make(map[string]bool, len(centers))
	for i := range centers {
		if err := validateHawkerCenter(&centers[i]); err != nil {
			return fmt.Errorf("center at index %d: %w", i, err)
		}
		if seen[centers[i].ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidHawkerCenter, centers[i].ID)
		}
		seen[centers[i].ID] = true
	}
	return nil
}

// validateHawkerCenter validates a single document.
func validateHawkerCenter(h *model.HawkerCenter) error {
	if h == nil {
		return fmt.Errorf("%w: center", ErrNilParameter)
	}
	if strings.TrimSpace(h.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidHawkerCenter)
	}
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidHawkerCenter)
	}
	if h.Latitude < -90 || h.Latitude > 90 || h.Longitude < -180 || h.Longitude > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidHawkerCenter)
	}
	carparks := make(map[string]bool, len(h.Carparks))
	for _, cp := range h.Carparks {
		if strings.TrimSpace(cp.ID) == "" {
			return fmt.Errorf("%w: carpark without ID", ErrInvalidHawkerCenter)
		}
		if carparks[cp.ID] {
			return fmt.Errorf("%w: carpark %s listed twice", ErrInvalidHawkerCenter, cp.ID)
		}
		carparks[cp.ID] = true
	}
	return nil
}

// validatePrediction validates a prediction before it is recorded.
func validatePrediction(p *model.Prediction) error {
	if p == nil {
		return fmt.Errorf("%w: prediction", ErrNilParameter)
	}
	if strings.TrimSpace(p.HawkerID) == "" {
		return fmt.Errorf("%w: missing hawker ID", ErrInvalidPrediction)
	}
	if p.Level != model.CrowdUnknown && p.Level.Index() < 0 {
		return fmt.Errorf("%w: crowd level %q", ErrInvalidPrediction, p.Level)
	}
	if strings.TrimSpace(p.Source) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidPrediction)
	}

	// Validate confidence is between 0 and 1
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidPrediction)
	}
	return nil
}
