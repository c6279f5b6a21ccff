package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrowdLevel_Index(t *testing.T) {
	tests := []struct {
		level CrowdLevel
		want  int
	}{
		{CrowdLow, 0},
		{CrowdMedium, 1},
		{CrowdHigh, 2},
		{CrowdLevel("Packed"), -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.Index())
		})
	}
}

func TestCrowdLevelFromIndex(t *testing.T) {
	level, err := CrowdLevelFromIndex(2)
	require.NoError(t, err)
	assert.Equal(t, CrowdHigh, level)

	_, err = CrowdLevelFromIndex(3)
	assert.Error(t, err)
}

func TestParseCrowdLevel(t *testing.T) {
	level, err := ParseCrowdLevel("Medium")
	require.NoError(t, err)
	assert.Equal(t, CrowdMedium, level)

	_, err = ParseCrowdLevel("medium")
	assert.Error(t, err)
}

func TestFeatureNames_MatchVectorLength(t *testing.T) {
	assert.Len(t, FeatureNames, NumFeatures)
	assert.Equal(t, "sunday", FeatureNames[FeatureSunday])
	assert.Equal(t, "buses_arriving_soon", FeatureNames[FeatureBusesArrivingSoon])
}

func TestHawkerCenter_Mapping(t *testing.T) {
	center := HawkerCenter{
		Name:     "Maxwell Food Centre",
		Carparks: []NearbyCarpark{{ID: "CP003"}, {ID: "CP004"}},
		BusStops: []NearbyBusStop{
			{Code: "03223", Verified: true},
			{Name: "Unmatched stop"},
			{Code: "03239", Verified: true},
		},
	}

	m := center.Mapping()
	assert.Equal(t, "Maxwell Food Centre", m.Name)
	assert.Equal(t, []string{"CP003", "CP004"}, m.Carparks)
	assert.Equal(t, []string{"03223", "03239"}, m.BusStops)
}

func TestTrainingTable_Matrix(t *testing.T) {
	table := TrainingTable{
		{Features: FeatureVector{1, 2}, Label: CrowdHigh},
		{Features: FeatureVector{3, 4}, Label: CrowdLow},
	}

	x, y := table.Matrix()
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, x)
	assert.Equal(t, []int{2, 0}, y)
	assert.Equal(t, 1, table.LabelCounts()[CrowdHigh])
}
