package model

import "time"

// TrainingRecord is one labeled observation.
type TrainingRecord struct {
	Timestamp time.Time
	HawkerID  string
	Label     CrowdLevel
	Features  FeatureVector
}

// TrainingTable is an ordered set of labeled observations.
type TrainingTable []TrainingRecord

// Matrix returns the feature rows and class indices of the table.
func (t TrainingTable) Matrix() ([][]float64, []int) {
	x := make([][]float64, len(t))
	y := make([]int, len(t))
	for i, rec := range t {
		x[i] = rec.Features
		y[i] = rec.Label.Index()
	}
	return x, y
}

// LabelCounts returns how many records carry each level.
func (t TrainingTable) LabelCounts() map[CrowdLevel]int {
	counts := make(map[CrowdLevel]int, len(CrowdLevels))
	for _, rec := range t {
		counts[rec.Label]++
	}
	return counts
}
