// Package app wires the process-lifetime collaborators shared by the CLI
// commands and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/crowd"
	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/features"
	"github.com/Veraticus/hawker-crowd/internal/metrics"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/registry"
	"github.com/Veraticus/hawker-crowd/internal/storage"
	"github.com/Veraticus/hawker-crowd/internal/trainingdata"
)

// BootstrapSamples is the size of the synthetic table trained when no model
// bundle exists yet.
const BootstrapSamples = 2000

// Options selects the resources an App opens.
type Options struct {
	Transit datamall.TransitProvider
	// Metrics is shared with the provider clients; nil creates a registry.
	Metrics *metrics.Registry
	// Now overrides time.Now for the extractor and predictor.
	Now          func() time.Time
	ModelPath    string
	DatabasePath string
	// MappingsPath is an optional JSON mapping file used when the store
	// holds no hawker centers.
	MappingsPath string
	// Bootstrap trains and saves a synthetic model when ModelPath is missing.
	Bootstrap bool
}

// App holds everything a command needs. Build it once per process with New
// and release it with Close.
type App struct {
	Metrics   *metrics.Registry
	Store     *storage.SQLiteStorage
	Transit   datamall.TransitProvider
	Registry  *registry.Memory
	Extractor *features.Extractor
	Predictor *crowd.Predictor
	logger    *slog.Logger
	now       func() time.Time
	ModelPath string
}

// New opens storage, seeds the registry, and loads the model bundle.
// A missing bundle leaves the predictor untrained unless Bootstrap is set.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Transit == nil {
		return nil, fmt.Errorf("%w: transit provider is required", common.ErrMissingConfig)
	}
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("%w: model path is required", common.ErrMissingConfig)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NewRegistry()
	}

	a := &App{
		Metrics:   m,
		Transit:   opts.Transit,
		ModelPath: opts.ModelPath,
		logger:    slog.Default().With("component", "app"),
		now:       now,
	}

	if opts.DatabasePath != "" {
		store, err := storage.NewSQLiteStorage(opts.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.Store = store
	}

	mappings, origin, err := a.initialMappings(ctx, opts.MappingsPath)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	reg, err := registry.NewMemory(mappings)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to seed registry from %s: %w", origin, err)
	}
	a.Registry = reg
	a.logger.Debug("Seeded hawker registry", "origin", origin, "hawkers", len(mappings))

	a.Extractor = features.NewExtractor(a.Transit, reg,
		features.WithMetrics(a.Metrics),
		features.WithClock(now))
	a.Predictor = crowd.NewPredictor(reg, a.Extractor,
		crowd.WithMetrics(a.Metrics),
		crowd.WithClock(now))

	if err := a.loadModel(ctx, opts.Bootstrap); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// initialMappings picks the registry seed: stored hawker centers first, then
// the mapping file, then the built-in defaults.
func (a *App) initialMappings(ctx context.Context, mappingsPath string) (map[string]model.HawkerMapping, string, error) {
	if a.Store != nil {
		stored, err := a.Store.Mappings(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stored mappings: %w", err)
		}
		if len(stored) > 0 {
			return stored, "database", nil
		}
	}

	if mappingsPath != "" {
		f, err := os.Open(mappingsPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open mappings file: %w", err)
		}
		defer func() { _ = f.Close() }()

		decoded, err := registry.Decode(f)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read mappings file %s: %w", mappingsPath, err)
		}
		return decoded, mappingsPath, nil
	}

	return registry.Defaults(), "defaults", nil
}

// loadModel loads the bundle at ModelPath. Mappings saved with the bundle
// replace the seeded registry.
func (a *App) loadModel(ctx context.Context, bootstrap bool) error {
	err := a.Predictor.Load(a.ModelPath)
	switch {
	case err == nil:
		info := a.Predictor.Info()
		a.logger.Debug("Using saved model",
			"path", a.ModelPath,
			"trained_at", info.TrainedAt,
			"source", info.Source,
			"hawkers", len(a.Registry.IDs()))
		return nil
	case errors.Is(err, common.ErrNotTrained) && bootstrap:
		a.logger.Warn("No model found, training a synthetic model", "path", a.ModelPath)
		return a.Bootstrap(ctx)
	case errors.Is(err, common.ErrNotTrained):
		a.logger.Info("No model found; train one before predicting", "path", a.ModelPath)
		return nil
	default:
		return fmt.Errorf("failed to load model from %s: %w", a.ModelPath, err)
	}
}

// Bootstrap trains on BootstrapSamples synthetic records for the registered
// hawkers and saves the result to ModelPath.
func (a *App) Bootstrap(ctx context.Context) error {
	gen := trainingdata.Synthetic{Seed: 42, Now: a.now}
	table, err := gen.Generate(a.Registry.IDs(), BootstrapSamples)
	if err != nil {
		return fmt.Errorf("failed to generate bootstrap data: %w", err)
	}

	cfg := crowd.DefaultTrainConfig()
	cfg.Source = "synthetic"
	report, err := a.Predictor.Train(ctx, table, cfg)
	if err != nil {
		return fmt.Errorf("failed to train bootstrap model: %w", err)
	}
	if err := a.Predictor.Save(a.ModelPath); err != nil {
		return fmt.Errorf("failed to save bootstrap model: %w", err)
	}

	attrs := []any{"path", a.ModelPath, "samples", len(table)}
	if report != nil {
		attrs = append(attrs, "accuracy", report.Accuracy)
	}
	a.logger.Info("Bootstrap model saved", attrs...)
	return nil
}

// SyncMappings pushes the stored hawker-center mappings into the registry
// and, when a model is trained, into the saved bundle.
func (a *App) SyncMappings(ctx context.Context) (int, bool, error) {
	if a.Store == nil {
		return 0, false, fmt.Errorf("%w: no database configured", common.ErrMissingConfig)
	}
	mappings, err := a.Store.Mappings(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read stored mappings: %w", err)
	}
	if len(mappings) == 0 {
		return 0, false, fmt.Errorf("%w: no hawker centers stored; run collect first", common.ErrNotFound)
	}
	persisted, err := a.Predictor.UpdateMappings(mappings, a.ModelPath)
	if err != nil {
		return 0, false, err
	}
	return len(mappings), persisted, nil
}

// Close releases the database.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}
