// Package model defines the core data types shared across the application.
package model

import (
	"fmt"
	"time"
)

// CrowdLevel is the predicted busyness of a hawker center.
type CrowdLevel string

// Crowd levels in class-index order.
const (
	CrowdLow    CrowdLevel = "Low"
	CrowdMedium CrowdLevel = "Medium"
	CrowdHigh   CrowdLevel = "High"
)

// CrowdUnknown marks a substitute entry for a hawker that could not be
// classified. It is never a class label.
const CrowdUnknown CrowdLevel = "Unknown"

// CrowdLevels lists every level ordered by class index (Low=0, Medium=1, High=2).
var CrowdLevels = []CrowdLevel{CrowdLow, CrowdMedium, CrowdHigh}

// Index returns the class index of the level, or -1 if the level is unknown.
func (c CrowdLevel) Index() int {
	for i, level := range CrowdLevels {
		if level == c {
			return i
		}
	}
	return -1
}

// CrowdLevelFromIndex maps a class index back to its level.
func CrowdLevelFromIndex(i int) (CrowdLevel, error) {
	if i < 0 || i >= len(CrowdLevels) {
		return "", fmt.Errorf("class index %d out of range", i)
	}
	return CrowdLevels[i], nil
}

// ParseCrowdLevel validates a level name.
func ParseCrowdLevel(s string) (CrowdLevel, error) {
	level := CrowdLevel(s)
	if level.Index() < 0 {
		return "", fmt.Errorf("unknown crowd level %q", s)
	}
	return level, nil
}

// Prediction sources.
const (
	SourceModel    = "model"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Prediction is a single crowd prediction for one hawker center.
type Prediction struct {
	Timestamp  time.Time  `json:"timestamp"`
	HawkerID   string     `json:"hawker_id"`
	HawkerName string     `json:"hawker_name"`
	Level      CrowdLevel `json:"crowd_level"`
	Source     string     `json:"source"`
	Error      string     `json:"error,omitempty"`
	Confidence float64    `json:"confidence"`
}
