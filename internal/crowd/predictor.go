// Package crowd trains the crowd-level classifier and serves predictions
// from the current trained unit.
package crowd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/features"
	"github.com/Veraticus/hawker-crowd/internal/forest"
	"github.com/Veraticus/hawker-crowd/internal/metrics"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/registry"
	"github.com/Veraticus/hawker-crowd/internal/service"
)

// FeatureSource produces raw feature vectors for a hawker.
type FeatureSource interface {
	Extract(ctx context.Context, hawkerID string) (*features.Result, error)
}

// TrainConfig controls a training run.
type TrainConfig struct {
	Source       string
	Forest       forest.Config
	TestFraction float64
	SplitSeed    uint64
}

// DefaultTrainConfig holds out 20% of rows with seed 42.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Forest:       forest.DefaultConfig(),
		TestFraction: 0.2,
		SplitSeed:    42,
	}
}

// Info describes the current unit.
type Info struct {
	TrainedAt time.Time
	Report    *forest.Report
	Source    string
	Samples   int
	Trees     int
	Loaded    bool
}

// Predictor owns the trained unit and serves predictions from it. The unit
// is replaced wholesale by Train, Load, and UpdateMappings.
type Predictor struct {
	mu       sync.RWMutex
	unit     *Unit
	registry registry.Registry
	source   FeatureSource
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Registry
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithMetrics records predictions in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(p *Predictor) { p.metrics = m }
}

// WithClock replaces time.Now for training timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

// NewPredictor creates an untrained predictor. A nil registry is replaced by
// registry.Empty.
func NewPredictor(reg registry.Registry, source FeatureSource, opts ...Option) *Predictor {
	if reg == nil {
		reg = registry.Empty()
	}
	p := &Predictor{
		registry: reg,
		source:   source,
		now:      time.Now,
		logger:   slog.Default().With("component", "crowd"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Predictor) current() *Unit {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.unit
}

func (p *Predictor) swap(u *Unit) {
	p.mu.Lock()
	p.unit = u
	p.mu.Unlock()
	p.metrics.SetModelLoaded(u != nil)
}

// Loaded reports whether a trained unit is available.
func (p *Predictor) Loaded() bool {
	return p.current() != nil
}

// Info describes the current unit.
func (p *Predictor) Info() Info {
	u := p.current()
	if u == nil {
		return Info{}
	}
	return Info{
		Loaded:    true,
		TrainedAt: u.TrainedAt,
		Report:    u.Report,
		Source:    u.Source,
		Samples:   u.Samples,
		Trees:     len(u.Forest.Trees),
	}
}

// Train fits a scaler and forest on table and installs the result as the
// current unit. The returned report scores the held-out split.
func (p *Predictor) Train(ctx context.Context, table model.TrainingTable, cfg TrainConfig) (*forest.Report, error) {
	if len(table) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 training rows, got %d", common.ErrInvalidArgument, len(table))
	}
	for i, rec := range table {
		if rec.Label.Index() < 0 {
			return nil, fmt.Errorf("%w: row %d has label %q", common.ErrInvalidArgument, i, rec.Label)
		}
		if len(rec.Features) != model.NumFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d",
				common.ErrFeatureMismatch, i, len(rec.Features), model.NumFeatures)
		}
	}

	x, y := table.Matrix()
	trainIdx, testIdx := forest.TrainTestSplit(len(x), cfg.TestFraction, cfg.SplitSeed)
	xTrain, yTrain := forest.Rows(x, y, trainIdx)
	xTest, yTest := forest.Rows(x, y, testIdx)

	scaler, err := forest.FitScaler(xTrain)
	if err != nil {
		return nil, fmt.Errorf("fitting scaler: %w", err)
	}
	xTrainScaled, err := scaler.TransformAll(xTrain)
	if err != nil {
		return nil, err
	}

	p.logger.Info("training classifier",
		"rows", len(table),
		"train", len(xTrain),
		"test", len(xTest),
		"trees", cfg.Forest.NumTrees)

	fitted, err := forest.Fit(ctx, xTrainScaled, yTrain, len(model.CrowdLevels), cfg.Forest)
	if err != nil {
		return nil, fmt.Errorf("fitting forest: %w", err)
	}

	labels := labelNames()
	var report *forest.Report
	if len(xTest) > 0 {
		xTestScaled, err := scaler.TransformAll(xTest)
		if err != nil {
			return nil, err
		}
		predicted, err := fitted.PredictAll(xTestScaled)
		if err != nil {
			return nil, err
		}
		r := forest.NewReport(yTest, predicted, labels)
		report = &r
		p.logger.Info("evaluated classifier", "accuracy", r.Accuracy, "support", r.Support)
	}

	p.swap(&Unit{
		Version:   bundleVersion,
		TrainedAt: p.now().UTC(),
		Features:  append([]string(nil), model.FeatureNames...),
		Labels:    labels,
		Scaler:    scaler,
		Forest:    fitted,
		Report:    report,
		Mappings:  p.registry.All(),
		Source:    cfg.Source,
		Samples:   len(table),
	})
	return report, nil
}

// Predict classifies the current crowd level at hawkerID.
func (p *Predictor) Predict(ctx context.Context, hawkerID string) (*model.Prediction, error) {
	start := time.Now()
	u := p.current()
	if u == nil {
		p.metrics.ObserveFailure("not_trained")
		return nil, common.ErrNotTrained
	}

	mapping, ok := p.registry.Get(hawkerID)
	if !ok {
		p.metrics.ObserveFailure("not_found")
		return nil, fmt.Errorf("%w: hawker %s", common.ErrNotFound, hawkerID)
	}

	res, err := p.source.Extract(ctx, hawkerID)
	if err != nil {
		p.metrics.ObserveFailure(failureReason(err))
		return nil, err
	}

	scaled, err := u.Scaler.Transform(res.Vector)
	if err != nil {
		p.metrics.ObserveFailure("feature_mismatch")
		return nil, err
	}
	class, confidence, err := u.Forest.Predict(scaled)
	if err != nil {
		p.metrics.ObserveFailure("inference")
		return nil, err
	}
	level, err := model.CrowdLevelFromIndex(class)
	if err != nil {
		return nil, err
	}

	if len(res.Degraded) > 0 {
		p.logger.Debug("prediction used default signals", "hawker", hawkerID, "signals", res.Degraded)
	}
	p.metrics.ObservePrediction(string(level), model.SourceModel, time.Since(start))

	return &model.Prediction{
		Timestamp:  res.At,
		HawkerID:   hawkerID,
		HawkerName: mapping.Name,
		Level:      level,
		Confidence: confidence,
		Source:     model.SourceModel,
	}, nil
}

// PredictAll predicts every registered hawker. A hawker that cannot be
// classified gets an Unknown entry carrying the error, so the batch never
// fails as a whole. A cancelled context stops the loop.
func (p *Predictor) PredictAll(ctx context.Context) ([]model.Prediction, error) {
	ids := p.registry.IDs()
	out := make([]model.Prediction, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		pred, err := p.Predict(ctx, id)
		if err != nil {
			p.logger.Warn("prediction failed", "hawker", id, "error", err)
			out = append(out, Fallback(id, p.nameOf(id), err))
			continue
		}
		out = append(out, *pred)
	}
	return out, nil
}

// Fallback builds the substitute entry for a hawker that failed prediction.
func Fallback(hawkerID, name string, err error) model.Prediction {
	return model.Prediction{
		Timestamp:  time.Now().UTC(),
		HawkerID:   hawkerID,
		HawkerName: name,
		Level:      model.CrowdUnknown,
		Source:     model.SourceFallback,
		Error:      err.Error(),
	}
}

func (p *Predictor) nameOf(id string) string {
	if m, ok := p.registry.Get(id); ok {
		return m.Name
	}
	return ""
}

// Save writes the current unit to path. It fails with ErrNotTrained when no
// unit exists and leaves any existing file untouched.
func (p *Predictor) Save(path string) error {
	u := p.current()
	if u == nil {
		return common.ErrNotTrained
	}
	if err := writeUnit(path, u); err != nil {
		return err
	}
	p.logger.Info("saved model bundle", "path", path)
	return nil
}

// Load reads a bundle from path and installs it. Mappings stored in the
// bundle replace the registry contents when the registry accepts them.
func (p *Predictor) Load(path string) error {
	u, err := readUnit(path)
	if err != nil {
		return err
	}

	if len(u.Mappings) > 0 {
		if err := registry.Validate(u.Mappings); err != nil {
			return fmt.Errorf("bundle mappings: %w", err)
		}
		if err := p.registry.Replace(u.Mappings); err != nil {
			p.logger.Warn("registry refused bundle mappings", "error", err)
		}
	}

	p.swap(u)
	p.logger.Info("loaded model bundle",
		"path", path,
		"trained_at", u.TrainedAt,
		"trees", len(u.Forest.Trees),
		"hawkers", len(u.Mappings))
	return nil
}

// UpdateMappings replaces the registry with mappings. When a unit is loaded
// the new mappings are stored with it and the bundle is rewritten at path;
// persisted reports whether that happened.
func (p *Predictor) UpdateMappings(mappings map[string]model.HawkerMapping, path string) (bool, error) {
	if err := registry.Validate(mappings); err != nil {
		return false, err
	}
	if err := p.registry.Replace(mappings); err != nil {
		return false, err
	}

	p.mu.Lock()
	if p.unit == nil {
		p.mu.Unlock()
		return false, nil
	}
	p.unit = p.unit.withMappings(p.registry.All())
	u := p.unit
	p.mu.Unlock()

	if path == "" {
		return false, nil
	}
	if err := writeUnit(path, u); err != nil {
		return false, err
	}
	return true, nil
}

func labelNames() []string {
	labels := make([]string, len(model.CrowdLevels))
	for i, level := range model.CrowdLevels {
		labels[i] = string(level)
	}
	return labels
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "extract"
	}
}

var _ service.Predictor = (*Predictor)(nil)
