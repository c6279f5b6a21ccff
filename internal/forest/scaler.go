// Package forest implements the random forest classifier and its
// preprocessing: standard scaling, a seeded train/test split, and a
// per-class evaluation report.
package forest

import (
	"errors"
	"fmt"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyDataset is returned when fitting on no rows.
var ErrEmptyDataset = errors.New("empty dataset")

// Scaler standardizes each column to zero mean and unit variance.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns column means and population standard deviations.
// Constant columns get a scale of 1 so they pass through centered.
func FitScaler(x [][]float64) (*Scaler, error) {
	if len(x) == 0 {
		return nil, ErrEmptyDataset
	}
	width := len(x[0])

	s := &Scaler{
		Mean:  make([]float64, width),
		Scale: make([]float64, width),
	}

	col := make([]float64, len(x))
	for j := 0; j < width; j++ {
		for i, row := range x {
			if len(row) != width {
				return nil, fmt.Errorf("%w: row %d has %d columns, want %d", common.ErrFeatureMismatch, i, len(row), width)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Width is the number of columns the scaler was fit on.
func (s *Scaler) Width() int {
	return len(s.Mean)
}

// Transform returns a scaled copy of v.
func (s *Scaler) Transform(v []float64) ([]float64, error) {
	if len(v) != len(s.Mean) {
		return nil, fmt.Errorf("%w: got %d features, scaler expects %d", common.ErrFeatureMismatch, len(v), len(s.Mean))
	}
	out := make([]float64, len(v))
	for j, value := range v {
		out[j] = (value - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// TransformAll scales every row of x.
func (s *Scaler) TransformAll(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
