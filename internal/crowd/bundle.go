package crowd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/forest"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

// bundleVersion is bumped whenever the on-disk layout changes.
const bundleVersion = 1

// Unit is a trained classifier together with everything needed to use it:
// the scaler fit on its training rows, the feature schema and label order it
// was trained with, and the hawker mappings in force. Units are immutable
// once built; updates produce a new Unit.
type Unit struct {
	TrainedAt time.Time                      `json:"trained_at"`
	Forest    *forest.Forest                 `json:"forest"`
	Scaler    *forest.Scaler                 `json:"scaler"`
	Report    *forest.Report                 `json:"report,omitempty"`
	Mappings  map[string]model.HawkerMapping `json:"mappings"`
	Source    string                         `json:"source,omitempty"`
	Features  []string                       `json:"features"`
	Labels    []string                       `json:"labels"`
	Version   int                            `json:"version"`
	Samples   int                            `json:"samples"`
}

// withMappings returns a copy of u carrying mappings.
func (u *Unit) withMappings(mappings map[string]model.HawkerMapping) *Unit {
	next := *u
	next.Mappings = mappings
	return &next
}

// validate checks that a decoded unit matches the running feature schema.
func (u *Unit) validate() error {
	if u.Forest == nil || u.Scaler == nil {
		return fmt.Errorf("%w: bundle is missing its model or scaler", common.ErrNotTrained)
	}
	if !slices.Equal(u.Features, model.FeatureNames) {
		return fmt.Errorf("%w: bundle features %v do not match schema", common.ErrFeatureMismatch, u.Features)
	}
	labels := labelNames()
	if !slices.Equal(u.Labels, labels) {
		return fmt.Errorf("%w: bundle labels %v do not match %v", common.ErrInvalidArgument, u.Labels, labels)
	}
	if u.Scaler.Width() != model.NumFeatures || u.Forest.NumFeatures != model.NumFeatures {
		return fmt.Errorf("%w: bundle was trained on %d features", common.ErrFeatureMismatch, u.Forest.NumFeatures)
	}
	if u.Forest.NumClasses != len(labels) {
		return fmt.Errorf("%w: bundle predicts %d classes", common.ErrInvalidArgument, u.Forest.NumClasses)
	}
	return u.Forest.Validate()
}

// writeUnit stores u at path by writing a sibling temp file and renaming it,
// so readers see either the old bundle or the new one.
func writeUnit(path string, u *Unit) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode model bundle: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".hawker-model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary bundle: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		removeTemp(tmpPath)
		return fmt.Errorf("failed to write model bundle: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		removeTemp(tmpPath)
		return fmt.Errorf("failed to sync model bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		removeTemp(tmpPath)
		return fmt.Errorf("failed to close model bundle: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		removeTemp(tmpPath)
		return fmt.Errorf("failed to install model bundle: %w", err)
	}
	return nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil {
		slog.Error("failed to remove temporary bundle", "path", path, "error", err)
	}
}

// readUnit loads and validates a bundle.
func readUnit(path string) (*Unit, error) {
	// #nosec G304 - path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %w: no model bundle at %s", common.ErrNotFound, common.ErrNotTrained, path)
		}
		return nil, fmt.Errorf("failed to read model bundle: %w", err)
	}

	var u Unit
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: decoding model bundle: %w", common.ErrInvalidArgument, err)
	}
	if u.Version != bundleVersion {
		return nil, fmt.Errorf("%w: unsupported bundle version %d", common.ErrInvalidArgument, u.Version)
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return &u, nil
}
