package trainingdata

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/features"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wednesdayNoon is Wednesday 5 March 2025, 12:00 in Singapore.
var wednesdayNoon = time.Date(2025, time.March, 5, 12, 0, 0, 0, features.Singapore)

func clock() time.Time { return wednesdayNoon }

func TestSynthetic_Deterministic(t *testing.T) {
	gen := Synthetic{Seed: 42, Now: clock}
	ids := []string{"HC001", "HC002"}

	a, err := gen.Generate(ids, 500)
	require.NoError(t, err)
	b, err := gen.Generate(ids, 500)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Synthetic{Seed: 43, Now: clock}.Generate(ids, 500)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSynthetic_Shape(t *testing.T) {
	table, err := Synthetic{Seed: 7, Now: clock}.Generate([]string{"HC001"}, 2000)
	require.NoError(t, err)
	require.Len(t, table, 2000)

	earliest := wednesdayNoon.Add(-defaultWindow - time.Minute)
	for _, rec := range table {
		require.Len(t, rec.Features, model.NumFeatures)
		assert.GreaterOrEqual(t, rec.Label.Index(), 0)
		assert.True(t, rec.Timestamp.After(earliest))
		assert.False(t, rec.Timestamp.After(wednesdayNoon))
		assert.Equal(t, "HC001", rec.HawkerID)
	}

	counts := table.LabelCounts()
	for _, level := range model.CrowdLevels {
		assert.Positive(t, counts[level], "expected some %s records", level)
	}
}

func TestScoreLabel(t *testing.T) {
	vec := func(available, occupancy, full, frequency, peak, weekend float64) model.FeatureVector {
		v := model.NewFeatureVector()
		v[model.FeatureAvailableLots] = available
		v[model.FeatureOccupancyRate] = occupancy
		v[model.FeatureNumFullCarparks] = full
		v[model.FeatureBusFrequency] = frequency
		v[model.FeatureIsPeakHours] = peak
		v[model.FeatureIsWeekend] = weekend
		return v
	}

	tests := []struct {
		name string
		v    model.FeatureVector
		want model.CrowdLevel
	}{
		{name: "quiet", v: vec(0.9, 0.1, 0, 0.9, 0, 0), want: model.CrowdLow},
		{name: "peak lifts moderate occupancy to medium", v: vec(0.6, 0.3, 0, 0.5, 1, 0), want: model.CrowdMedium},
		{name: "weekend lifts moderate occupancy to medium", v: vec(0.5, 0.5, 0, 0.8, 0, 1), want: model.CrowdMedium},
		{name: "same occupancy off-peak weekday", v: vec(0.5, 0.5, 0, 0.7, 0, 0), want: model.CrowdLow},
		{name: "peak with full carparks", v: vec(0.7, 0.3, 1, 1, 1, 0), want: model.CrowdMedium},
		{name: "peak alone on empty carparks", v: vec(0.7, 0.3, 0, 1, 1, 0), want: model.CrowdLow},
		{name: "busy peak", v: vec(0.2, 0.8, 0, 0.5, 1, 0), want: model.CrowdHigh},
		{name: "busy off-peak", v: vec(0.2, 0.8, 0, 0.5, 0, 0), want: model.CrowdMedium},
		{name: "just under high", v: vec(0.25, 0.75, 0, 0.9, 1, 0), want: model.CrowdMedium},
		{name: "saturated", v: vec(0, 1, 1, 0.2, 0, 0), want: model.CrowdHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreLabel(tt.v))
		})
	}
}

func TestSynthetic_InvalidArguments(t *testing.T) {
	_, err := Synthetic{}.Generate([]string{"HC001"}, 0)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = Synthetic{}.Generate(nil, 10)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestSlotRules(t *testing.T) {
	tests := []struct {
		name       string
		day        time.Weekday
		hour       int
		wantLabel  model.CrowdLevel
		wantFactor float64
	}{
		{name: "weekday lunch", day: time.Wednesday, hour: 12, wantLabel: model.CrowdHigh, wantFactor: 0.8},
		{name: "weekday late lunch", day: time.Monday, hour: 14, wantLabel: model.CrowdHigh, wantFactor: 0.8},
		{name: "weekday dinner", day: time.Thursday, hour: 19, wantLabel: model.CrowdMedium, wantFactor: 0.7},
		{name: "weekday breakfast", day: time.Friday, hour: 8, wantLabel: model.CrowdMedium, wantFactor: 0.6},
		{name: "weekend lunch", day: time.Saturday, hour: 13, wantLabel: model.CrowdHigh, wantFactor: 0.8},
		{name: "weekend dinner", day: time.Sunday, hour: 18, wantLabel: model.CrowdHigh, wantFactor: 0.9},
		{name: "weekend breakfast", day: time.Sunday, hour: 9, wantLabel: model.CrowdLow, wantFactor: 0.5},
		{name: "weekend afternoon", day: time.Saturday, hour: 15, wantLabel: model.CrowdMedium, wantFactor: 0.4},
		{name: "weekday night", day: time.Tuesday, hour: 3, wantLabel: model.CrowdLow, wantFactor: 0.3},
	}

	// 3 March 2025 is a Monday.
	monday := time.Date(2025, time.March, 3, 0, 0, 0, 0, features.Singapore)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset := (int(tt.day) + 6) % 7
			ts := monday.AddDate(0, 0, offset).Add(time.Duration(tt.hour) * time.Hour)

			s := newSlot(ts)
			assert.Equal(t, tt.wantLabel, s.label())
			assert.InDelta(t, tt.wantFactor, s.occupancyFactor(), 0)
		})
	}
}

func heuristicFixture(t *testing.T, snapshotErr error) Heuristic {
	t.Helper()
	reg, err := registry.NewMemory(map[string]model.HawkerMapping{
		"HC001": {Name: "Old Airport Road", Carparks: []string{"CP001", "CP002"}, BusStops: []string{"83059", "83051"}},
		"HC002": {Name: "Maxwell", Carparks: []string{"CP404"}},
	})
	require.NoError(t, err)

	transit := datamall.NewMockClient()
	transit.CarparkAvailabilityFn = func(context.Context) ([]datamall.CarparkAvailabilityRecord, error) {
		if snapshotErr != nil {
			return nil, snapshotErr
		}
		return []datamall.CarparkAvailabilityRecord{
			{CarParkID: "CP001", AvailableLots: 40},
			{CarParkID: "CP002", AvailableLots: 60},
		}, nil
	}

	return Heuristic{
		Transit:       transit,
		Registry:      reg,
		Now:           clock,
		Days:          7,
		SamplesPerDay: 8,
	}
}

func findRecord(t *testing.T, table model.TrainingTable, id string, weekday time.Weekday, hour int) model.TrainingRecord {
	t.Helper()
	for _, rec := range table {
		if rec.HawkerID == id && rec.Timestamp.Weekday() == weekday && rec.Timestamp.Hour() == hour {
			return rec
		}
	}
	t.Fatalf("no record for %s on %s at %d", id, weekday, hour)
	return model.TrainingRecord{}
}

func TestHeuristic_Generate(t *testing.T) {
	var progress []int
	gen := heuristicFixture(t, nil)
	gen.Progress = func(done, _ int) { progress = append(progress, done) }

	table, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, table, 2*7*8)
	assert.Equal(t, []int{56, 112}, progress)

	lunch := findRecord(t, table, "HC001", time.Wednesday, 12)
	assert.Equal(t, model.CrowdHigh, lunch.Label)
	assert.InDelta(t, 0.8, lunch.Features[model.FeatureOccupancyRate], 1e-12)
	assert.InDelta(t, 0.2, lunch.Features[model.FeatureAvailableLots], 1e-12)
	assert.InDelta(t, 0, lunch.Features[model.FeatureNumFullCarparks], 0)
	assert.InDelta(t, 4.0/20, lunch.Features[model.FeatureNumBusServices], 1e-12)
	assert.InDelta(t, 8.0/30, lunch.Features[model.FeatureBusFrequency], 1e-12)
	assert.InDelta(t, 4.0/20, lunch.Features[model.FeatureBusesArrivingSoon], 1e-12)
	assert.InDelta(t, 0, lunch.Features[model.FeatureMinute], 0)

	dinner := findRecord(t, table, "HC001", time.Saturday, 18)
	assert.Equal(t, model.CrowdHigh, dinner.Label)
	assert.InDelta(t, 0.5, dinner.Features[model.FeatureNumFullCarparks], 1e-12)

	night := findRecord(t, table, "HC001", time.Tuesday, 3)
	assert.Equal(t, model.CrowdLow, night.Label)
	assert.InDelta(t, 15.0/30, night.Features[model.FeatureBusFrequency], 1e-12)
	assert.InDelta(t, 2.0/20, night.Features[model.FeatureBusesArrivingSoon], 1e-12)

	// HC002's only carpark is absent from the snapshot and it has no stops.
	maxwell := findRecord(t, table, "HC002", time.Wednesday, 12)
	assert.InDelta(t, 0.5, maxwell.Features[model.FeatureOccupancyRate], 0)
	assert.InDelta(t, 0.25, maxwell.Features[model.FeatureNumBusServices], 0)
	assert.Equal(t, model.CrowdHigh, maxwell.Label)
}

func TestHeuristic_SnapshotFailureFallsBack(t *testing.T) {
	gen := heuristicFixture(t, common.NewRequestError("datamall", 503, "busy"))

	table, err := gen.Generate(context.Background())
	require.NoError(t, err)
	for _, rec := range table {
		require.InDelta(t, 0.5, rec.Features[model.FeatureOccupancyRate], 0)
	}
}

func TestHeuristic_InvalidArguments(t *testing.T) {
	gen := heuristicFixture(t, nil)
	gen.SamplesPerDay = 0
	_, err := gen.Generate(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	gen = heuristicFixture(t, nil)
	gen.Registry = registry.Empty()
	_, err = gen.Generate(context.Background())
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestWriteCSV(t *testing.T) {
	table, err := Synthetic{Seed: 1, Now: clock}.Generate([]string{"HC001"}, 10)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 11)
	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "hour", rows[0][2])
	assert.Equal(t, "crowd_level", rows[0][len(rows[0])-1])
	assert.Len(t, rows[1], model.NumFeatures+3)

	err = WriteCSV(&buf, model.TrainingTable{{Features: model.FeatureVector{1}}})
	assert.ErrorIs(t, err, common.ErrFeatureMismatch)
}
