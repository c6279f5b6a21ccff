package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/hawker-crowd/internal/forest"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

// StyleLevel colors a crowd level.
func StyleLevel(level model.CrowdLevel) string {
	style, ok := levelStyles[level]
	if !ok {
		style = SubtleStyle
	}
	return style.Render(string(level))
}

// FormatPrediction renders one prediction as a single line.
func FormatPrediction(p model.Prediction) string {
	name := p.HawkerName
	if name == "" {
		name = p.HawkerID
	}
	line := fmt.Sprintf("%s %-32s %s", HawkerIcon, name, StyleLevel(p.Level))
	if p.Error != "" {
		return line + " " + SubtleStyle.Render(p.Error)
	}
	return line + " " + SubtleStyle.Render(fmt.Sprintf("(%.0f%% confident)", p.Confidence*100))
}

// PredictionTable renders predictions as an aligned table.
func PredictionTable(preds []model.Prediction) string {
	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-8s %-32s %-8s %s", "ID", "Hawker center", "Crowd", "Confidence")))
	b.WriteString("\n")
	for _, p := range preds {
		confidence := "-"
		if p.Error == "" {
			confidence = fmt.Sprintf("%.2f", p.Confidence)
		}
		// Pad before styling so escape codes do not break alignment.
		level := StyleLevel(p.Level) + strings.Repeat(" ", max(0, 8-len(p.Level)))
		b.WriteString(TableCellStyle.Render(fmt.Sprintf("%-8s %-32s %s %s", p.HawkerID, truncate(p.HawkerName, 32), level, confidence)))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatReport renders a held-out evaluation in a box.
func FormatReport(r *forest.Report) string {
	if r == nil {
		return FormatWarning("No held-out rows; evaluation skipped")
	}
	return RenderBox(ChartIcon+" Evaluation", r.String())
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
