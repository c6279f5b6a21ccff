package model

// NumFeatures is the length of every feature vector.
const NumFeatures = 17

// Feature positions within a FeatureVector.
const (
	FeatureHour = iota
	FeatureMinute
	FeatureIsWeekend
	FeatureIsPeakHours
	FeatureAvailableLots
	FeatureOccupancyRate
	FeatureNumFullCarparks
	FeatureNumBusServices
	FeatureBusFrequency
	FeatureBusesArrivingSoon
	FeatureMonday
	FeatureTuesday
	FeatureWednesday
	FeatureThursday
	FeatureFriday
	FeatureSaturday
	FeatureSunday
)

// FeatureNames is the canonical feature schema, in vector order.
var FeatureNames = []string{
	"hour",
	"minute",
	"is_weekend",
	"is_peak_hours",
	"available_lots",
	"occupancy_rate",
	"num_full_carparks",
	"num_bus_services",
	"bus_frequency",
	"buses_arriving_soon",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
	"sunday",
}

// FeatureVector is a fixed-order numeric description of a hawker center at an instant.
type FeatureVector []float64

// NewFeatureVector returns a zeroed vector of the canonical length.
func NewFeatureVector() FeatureVector {
	return make(FeatureVector, NumFeatures)
}

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// Named returns the vector keyed by feature name.
func (v FeatureVector) Named() map[string]float64 {
	out := make(map[string]float64, len(v))
	for i, value := range v {
		if i < len(FeatureNames) {
			out[FeatureNames[i]] = value
		}
	}
	return out
}
