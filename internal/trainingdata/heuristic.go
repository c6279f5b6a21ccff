package trainingdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/features"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/registry"
)

// Heuristic labels a grid of past timestamps for every registered hawker
// using fixed meal-time rules, shaping carpark and bus signals around a
// per-slot occupancy factor. Labels come from rules rather than observed
// crowds, which caps the accuracy any model trained on them can reach.
type Heuristic struct {
	Transit       datamall.TransitProvider
	Registry      registry.Registry
	Now           func() time.Time
	Location      *time.Location
	Progress      func(done, total int)
	Days          int
	SamplesPerDay int
}

// slot classifies one sampled hour.
type slot struct {
	hour                   int
	weekend                bool
	morning, lunch, dinner bool
}

func newSlot(ts time.Time) slot {
	h := ts.Hour()
	return slot{
		hour:    h,
		weekend: features.IsWeekend(ts),
		morning: h >= 7 && h <= 9,
		lunch:   h >= 12 && h <= 14,
		dinner:  h >= 18 && h <= 20,
	}
}

func (s slot) peak() bool {
	return s.morning || s.lunch || s.dinner
}

// occupancyFactor is the assumed fraction of carpark capacity in use.
func (s slot) occupancyFactor() float64 {
	switch {
	case s.lunch:
		return 0.8
	case s.dinner && s.weekend:
		return 0.9
	case s.dinner:
		return 0.7
	case s.morning && !s.weekend:
		return 0.6
	case s.peak():
		return 0.5
	case s.weekend:
		return 0.4
	default:
		return 0.3
	}
}

// label applies the meal-time rule table; the first match wins.
func (s slot) label() model.CrowdLevel {
	switch {
	case s.weekend && (s.lunch || s.dinner):
		return model.CrowdHigh
	case !s.weekend && s.lunch:
		return model.CrowdHigh
	case !s.weekend && s.dinner:
		return model.CrowdMedium
	case !s.weekend && s.morning:
		return model.CrowdMedium
	case s.weekend && s.hour > 9 && s.hour < 18:
		return model.CrowdMedium
	default:
		return model.CrowdLow
	}
}

// Generate produces Days x SamplesPerDay records per registered hawker.
// A failed carpark snapshot is not fatal: carpark signals fall back to
// neutral values.
func (g Heuristic) Generate(ctx context.Context) (model.TrainingTable, error) {
	if g.Days <= 0 || g.SamplesPerDay <= 0 || g.SamplesPerDay > 24 {
		return nil, fmt.Errorf("%w: days and samples per day (1-24) must be positive", common.ErrInvalidArgument)
	}
	if g.Registry == nil || g.Transit == nil {
		return nil, fmt.Errorf("%w: registry and transit provider are required", common.ErrInvalidArgument)
	}

	ids := g.Registry.IDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no hawker mappings registered", common.ErrInvalidArgument)
	}

	logger := slog.Default().With("component", "trainingdata")

	now, loc := time.Now, features.Singapore
	if g.Now != nil {
		now = g.Now
	}
	if g.Location != nil {
		loc = g.Location
	}

	snapshot, err := g.Transit.CarparkAvailability(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Carpark snapshot unavailable, using neutral carpark signals", "error", err)
	}
	live := make(map[string]bool, len(snapshot))
	for _, rec := range snapshot {
		live[rec.CarParkID] = true
	}

	today := startOfDay(now().In(loc))
	total := len(ids) * g.Days * g.SamplesPerDay
	table := make(model.TrainingTable, 0, total)

	for _, id := range ids {
		mapping, ok := g.Registry.Get(id)
		if !ok {
			continue
		}

		carparks := 0
		for _, cp := range mapping.Carparks {
			if live[cp] {
				carparks++
			}
		}
		stops := len(mapping.BusStops)

		for day := 0; day < g.Days; day++ {
			for sample := 0; sample < g.SamplesPerDay; sample++ {
				hour := sample * 24 / g.SamplesPerDay
				ts := today.AddDate(0, 0, -day).Add(time.Duration(hour) * time.Hour)
				s := newSlot(ts)

				v := model.NewFeatureVector()
				features.SetTemporal(v, ts)
				setCarparkSignals(v, s, carparks)
				setBusSignals(v, s, stops)

				table = append(table, model.TrainingRecord{
					Timestamp: ts,
					HawkerID:  id,
					Features:  v,
					Label:     s.label(),
				})
			}
		}

		if g.Progress != nil {
			g.Progress(len(table), total)
		}
	}

	logger.Info("Generated heuristic training data",
		"hawkers", len(ids),
		"records", len(table))
	return table, nil
}

func setCarparkSignals(v model.FeatureVector, s slot, carparks int) {
	if carparks == 0 {
		features.SetCarparkDefaults(v)
		return
	}

	factor := s.occupancyFactor()
	full := 0
	switch {
	case factor > 0.8:
		full = int(float64(carparks) * 0.7)
	case factor > 0.6:
		full = int(float64(carparks) * 0.3)
	}

	v[model.FeatureAvailableLots] = 1 - factor
	v[model.FeatureOccupancyRate] = factor
	v[model.FeatureNumFullCarparks] = float64(full) / float64(carparks)
}

// setBusSignals derives bus pressure from the stop count. Hawkers without
// mapped stops get the same neutral values live extraction substitutes.
func setBusSignals(v model.FeatureVector, s slot, stops int) {
	if stops == 0 {
		features.SetBusDefaults(v)
		return
	}

	frequency, arriving := 15.0, stops
	if s.peak() {
		frequency, arriving = 8.0, stops*2
	}

	v[model.FeatureNumBusServices] = float64(stops*2) / features.BusServiceScale
	v[model.FeatureBusFrequency] = frequency / features.BusFrequencyScale
	v[model.FeatureBusesArrivingSoon] = float64(arriving) / features.ArrivingSoonScale
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
