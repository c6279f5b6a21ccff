// Package trainingdata generates labeled feature tables for training the
// crowd classifier.
package trainingdata

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/features"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

const (
	defaultWindow = 30 * 24 * time.Hour
	labelNoise    = 0.1
)

// Synthetic draws plausible observations from hand-tuned ranges per time
// bucket and labels them with a weighted busyness score. The same Seed and
// Now always produce the same table.
type Synthetic struct {
	Now      func() time.Time
	Location *time.Location
	Window   time.Duration
	Seed     uint64
}

// span is a closed-open interval to sample uniformly from.
type span struct{ lo, hi float64 }

func (s span) draw(rng *rand.Rand) float64 {
	return s.lo + rng.Float64()*(s.hi-s.lo)
}

// bucket holds the feature ranges for one combination of peak and weekend.
type bucket struct {
	available, occupancy, full, frequency, arriving span
}

var buckets = map[[2]bool]bucket{
	{true, true}: {
		available: span{0.05, 0.30}, occupancy: span{0.70, 0.95}, full: span{0.30, 0.80},
		frequency: span{0.15, 0.35}, arriving: span{0.40, 0.90},
	},
	{true, false}: {
		available: span{0.10, 0.40}, occupancy: span{0.60, 0.90}, full: span{0.20, 0.60},
		frequency: span{0.20, 0.40}, arriving: span{0.30, 0.70},
	},
	{false, true}: {
		available: span{0.30, 0.60}, occupancy: span{0.40, 0.70}, full: span{0.00, 0.30},
		frequency: span{0.30, 0.60}, arriving: span{0.20, 0.50},
	},
	{false, false}: {
		available: span{0.50, 0.90}, occupancy: span{0.10, 0.50}, full: span{0.00, 0.20},
		frequency: span{0.40, 0.80}, arriving: span{0.05, 0.30},
	},
}

var serviceSpan = span{0.20, 0.60}

// Generate produces n records spread over hawkerIDs with timestamps in the
// trailing window before Now.
func (g Synthetic) Generate(hawkerIDs []string, n int) (model.TrainingTable, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", common.ErrInvalidArgument, n)
	}
	if len(hawkerIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one hawker id is required", common.ErrInvalidArgument)
	}

	now, loc, window := time.Now, features.Singapore, defaultWindow
	if g.Now != nil {
		now = g.Now
	}
	if g.Location != nil {
		loc = g.Location
	}
	if g.Window > 0 {
		window = g.Window
	}

	rng := rand.New(rand.NewPCG(g.Seed, g.Seed^0x5bd1e995))
	end := now().In(loc)

	table := make(model.TrainingTable, 0, n)
	for i := 0; i < n; i++ {
		offset := time.Duration(rng.Int64N(int64(window)))
		ts := end.Add(-offset).Truncate(time.Minute)

		v := model.NewFeatureVector()
		features.SetTemporal(v, ts)

		peak := v[model.FeatureIsPeakHours] == 1
		weekend := v[model.FeatureIsWeekend] == 1
		b := buckets[[2]bool{peak, weekend}]

		v[model.FeatureAvailableLots] = b.available.draw(rng)
		v[model.FeatureOccupancyRate] = b.occupancy.draw(rng)
		v[model.FeatureNumFullCarparks] = b.full.draw(rng)
		v[model.FeatureNumBusServices] = serviceSpan.draw(rng)
		v[model.FeatureBusFrequency] = b.frequency.draw(rng)
		v[model.FeatureBusesArrivingSoon] = b.arriving.draw(rng)

		label := scoreLabel(v)
		if rng.Float64() < labelNoise {
			label = model.CrowdLevels[rng.IntN(len(model.CrowdLevels))]
		}

		table = append(table, model.TrainingRecord{
			Timestamp: ts,
			HawkerID:  hawkerIDs[rng.IntN(len(hawkerIDs))],
			Features:  v,
			Label:     label,
		})
	}
	return table, nil
}

// scoreLabel weighs occupancy, scarcity, bus pressure and calendar effects
// into a busyness score in [0, 1] and buckets it.
func scoreLabel(v model.FeatureVector) model.CrowdLevel {
	score := 0.3*(1-v[model.FeatureAvailableLots]) +
		0.3*v[model.FeatureOccupancyRate] +
		0.1*v[model.FeatureNumFullCarparks] +
		0.1*(1-v[model.FeatureBusFrequency]) +
		0.2*v[model.FeatureIsPeakHours] +
		0.1*v[model.FeatureIsWeekend]

	switch {
	case score < 0.4:
		return model.CrowdLow
	case score < 0.7:
		return model.CrowdMedium
	default:
		return model.CrowdHigh
	}
}
