package features

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/metrics"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/registry"
)

// Degraded signal names.
const (
	SignalCarpark = "carpark"
	SignalBus     = "bus"
)

// Result is an extracted feature vector and the signals that fell back to
// neutral defaults.
type Result struct {
	At       time.Time
	Vector   model.FeatureVector
	Degraded []string
}

// Extractor builds feature vectors from live data for registered hawkers.
type Extractor struct {
	transit  datamall.TransitProvider
	registry registry.Registry
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
	metrics  *metrics.Registry
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithLocation sets the zone clock features are computed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) { e.location = loc }
}

// WithMetrics counts degraded extractions in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Extractor) { e.metrics = m }
}

// NewExtractor creates an Extractor.
func NewExtractor(transit datamall.TransitProvider, reg registry.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		transit:  transit,
		registry: reg,
		now:      time.Now,
		location: Singapore,
		logger:   slog.Default().With("component", "features"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract builds the raw feature vector for hawkerID at the current instant.
// Carpark and bus signals that cannot be fetched are replaced by neutral
// defaults and listed in Result.Degraded; only an unknown id or a cancelled
// context fails.
func (e *Extractor) Extract(ctx context.Context, hawkerID string) (*Result, error) {
	mapping, ok := e.registry.Get(hawkerID)
	if !ok {
		return nil, fmt.Errorf("%w: hawker %s", common.ErrNotFound, hawkerID)
	}

	now := e.now().In(e.location)
	v := model.NewFeatureVector()
	SetTemporal(v, now)

	res := &Result{At: now, Vector: v}

	if !e.carparkSignals(ctx, hawkerID, mapping, v) {
		res.Degraded = append(res.Degraded, SignalCarpark)
	}
	if !e.busSignals(ctx, hawkerID, mapping, v, now) {
		res.Degraded = append(res.Degraded, SignalBus)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, signal := range res.Degraded {
		e.metrics.ObserveDegraded(signal)
	}
	return res, nil
}

func (e *Extractor) carparkSignals(ctx context.Context, hawkerID string, mapping model.HawkerMapping, v model.FeatureVector) bool {
	if len(mapping.Carparks) == 0 {
		SetCarparkDefaults(v)
		return false
	}

	snapshot, err := e.transit.CarparkAvailability(ctx)
	if err != nil {
		e.logger.Warn("Carpark data unavailable, using neutral defaults",
			"hawker_id", hawkerID,
			"error", err)
		SetCarparkDefaults(v)
		return false
	}

	if !SetCarparkFeatures(v, mapping.Carparks, snapshot) {
		e.logger.Warn("No mapped carparks in live data, using neutral defaults",
			"hawker_id", hawkerID,
			"carparks", mapping.Carparks)
		return false
	}
	return true
}

func (e *Extractor) busSignals(ctx context.Context, hawkerID string, mapping model.HawkerMapping, v model.FeatureVector, now time.Time) bool {
	if len(mapping.BusStops) == 0 {
		SetBusDefaults(v)
		return false
	}

	arrivals := make([]*datamall.BusArrivalResponse, 0, len(mapping.BusStops))
	for _, code := range mapping.BusStops {
		resp, err := e.transit.BusArrivals(ctx, code)
		if err != nil {
			e.logger.Warn("Bus arrivals unavailable for stop",
				"hawker_id", hawkerID,
				"bus_stop", code,
				"error", err)
			continue
		}
		arrivals = append(arrivals, resp)
	}

	if !SetBusFeatures(v, arrivals, now) {
		e.logger.Warn("No bus data, using neutral defaults", "hawker_id", hawkerID)
		return false
	}
	return true
}
