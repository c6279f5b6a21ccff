package features

import (
	"time"

	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

// Normalization constants and neutral defaults.
const (
	CarparkCapacity     = 100.0
	FullThreshold       = 10
	NeutralLots         = 50.0
	BusServiceScale     = 20.0
	BusFrequencyScale   = 30.0
	ArrivingSoonScale   = 20.0
	DefaultBusServices  = 5
	DefaultBusFrequency = 15.0
	ArrivingSoonWindow  = 10 * time.Minute
)

// SetCarparkDefaults writes the neutral carpark signals.
func SetCarparkDefaults(v model.FeatureVector) {
	v[model.FeatureAvailableLots] = NeutralLots / CarparkCapacity
	v[model.FeatureOccupancyRate] = 1 - NeutralLots/CarparkCapacity
	v[model.FeatureNumFullCarparks] = 0
}

// SetCarparkFeatures derives carpark signals for the mapped ids from a live
// availability snapshot. Mapped carparks missing from the snapshot count as
// NeutralLots. It reports false, leaving defaults in place, when none of the
// ids were found.
func SetCarparkFeatures(v model.FeatureVector, ids []string, snapshot []datamall.CarparkAvailabilityRecord) bool {
	lots := carparkLots(snapshot)

	var total float64
	found, full := 0, 0
	for _, id := range ids {
		available, ok := lots[id]
		if !ok {
			total += NeutralLots
			continue
		}
		found++
		total += float64(available)
		if available < FullThreshold {
			full++
		}
	}

	if found == 0 {
		SetCarparkDefaults(v)
		return false
	}

	avg := total / float64(len(ids))
	v[model.FeatureAvailableLots] = avg / CarparkCapacity
	v[model.FeatureOccupancyRate] = 1 - avg/CarparkCapacity
	v[model.FeatureNumFullCarparks] = float64(full) / float64(max(1, len(ids)))
	return true
}

// carparkLots indexes available lots by carpark id, preferring car lots
// when a carpark reports several lot types.
func carparkLots(snapshot []datamall.CarparkAvailabilityRecord) map[string]int {
	lots := make(map[string]int, len(snapshot))
	isCar := make(map[string]bool, len(snapshot))
	for _, rec := range snapshot {
		car := rec.LotType == "C" || rec.LotType == ""
		if _, seen := lots[rec.CarParkID]; seen && (isCar[rec.CarParkID] || !car) {
			continue
		}
		lots[rec.CarParkID] = rec.AvailableLots
		isCar[rec.CarParkID] = car
	}
	return lots
}

// SetBusDefaults writes the neutral bus signals.
func SetBusDefaults(v model.FeatureVector) {
	v[model.FeatureNumBusServices] = DefaultBusServices / BusServiceScale
	v[model.FeatureBusFrequency] = DefaultBusFrequency / BusFrequencyScale
	v[model.FeatureBusesArrivingSoon] = 0
}

// SetBusFeatures derives bus signals from the arrivals reported by each
// responding stop. It reports false, leaving defaults in place, when no stop
// responded.
func SetBusFeatures(v model.FeatureVector, arrivals []*datamall.BusArrivalResponse, now time.Time) bool {
	if len(arrivals) == 0 {
		SetBusDefaults(v)
		return false
	}

	services := make(map[string]struct{})
	soon := 0
	for _, stop := range arrivals {
		for _, svc := range stop.Services {
			services[svc.ServiceNo] = struct{}{}
			if at, ok := svc.NextBus.Arrival(); ok && at.Sub(now) < ArrivingSoonWindow {
				soon++
			}
		}
	}

	frequency := DefaultBusFrequency
	if soon > 0 {
		frequency = DefaultBusFrequency / (float64(soon) / float64(len(arrivals)))
	}

	v[model.FeatureNumBusServices] = float64(len(services)) / BusServiceScale
	v[model.FeatureBusFrequency] = frequency / BusFrequencyScale
	v[model.FeatureBusesArrivingSoon] = float64(soon) / ArrivingSoonScale
	return true
}
