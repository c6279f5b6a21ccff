package cli

import (
	"strings"
	"testing"

	"github.com/Veraticus/hawker-crowd/internal/forest"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFormatPrediction(t *testing.T) {
	out := FormatPrediction(model.Prediction{HawkerID: "HC001", HawkerName: "Maxwell Food Centre", Level: model.CrowdHigh, Confidence: 0.82})
	assert.Contains(t, out, "Maxwell Food Centre")
	assert.Contains(t, out, "High")
	assert.Contains(t, out, "82% confident")

	out = FormatPrediction(model.Prediction{HawkerID: "HC009", Level: model.CrowdUnknown, Error: "upstream failed"})
	assert.Contains(t, out, "HC009")
	assert.Contains(t, out, "upstream failed")
	assert.NotContains(t, out, "confident")
}

func TestPredictionTable(t *testing.T) {
	out := PredictionTable([]model.Prediction{
		{HawkerID: "HC001", HawkerName: "Old Airport Road Food Centre", Level: model.CrowdMedium, Confidence: 0.5},
		{HawkerID: "HC002", HawkerName: strings.Repeat("x", 40), Level: model.CrowdUnknown, Error: "boom"},
	})
	assert.Contains(t, out, "Hawker center")
	assert.Contains(t, out, "0.50")
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, strings.Repeat("x", 40))
}

func TestFormatReport(t *testing.T) {
	assert.Contains(t, FormatReport(nil), "evaluation skipped")

	r := forest.NewReport([]int{0, 1, 2}, []int{0, 1, 1}, []string{"Low", "Medium", "High"})
	out := FormatReport(&r)
	assert.Contains(t, out, "Evaluation")
	assert.Contains(t, out, "Medium")
}
