// Package features turns live transit data into the fixed-order feature
// vector consumed by the crowd classifier.
package features

import (
	"time"

	"github.com/Veraticus/hawker-crowd/internal/model"
)

// Singapore is the fixed UTC+8 zone the hawker centers operate in.
var Singapore = time.FixedZone("SGT", 8*60*60)

// IsPeakHour reports whether hour falls in a meal peak: 07-09, 12-13 or
// 18-20, inclusive.
func IsPeakHour(hour int) bool {
	return (hour >= 7 && hour <= 9) ||
		(hour >= 12 && hour <= 13) ||
		(hour >= 18 && hour <= 20)
}

// DayIndex returns the weekday with Monday as 0 and Sunday as 6.
func DayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	return DayIndex(t) >= 5
}

// SetTemporal fills the clock and calendar features of v from t.
func SetTemporal(v model.FeatureVector, t time.Time) {
	v[model.FeatureHour] = float64(t.Hour())
	v[model.FeatureMinute] = float64(t.Minute()) / 60
	v[model.FeatureIsWeekend] = boolFloat(IsWeekend(t))
	v[model.FeatureIsPeakHours] = boolFloat(IsPeakHour(t.Hour()))

	for day := 0; day < 7; day++ {
		v[model.FeatureMonday+day] = 0
	}
	v[model.FeatureMonday+DayIndex(t)] = 1
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
