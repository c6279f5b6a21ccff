package model

import (
	"slices"
	"time"
)

// HawkerMapping associates a hawker center with the carparks and bus stops
// whose live data describes it.
type HawkerMapping struct {
	Name     string   `json:"name"`
	Carparks []string `json:"carparks"`
	BusStops []string `json:"bus_stops"`
}

// Clone returns a deep copy of the mapping.
func (m HawkerMapping) Clone() HawkerMapping {
	return HawkerMapping{
		Name:     m.Name,
		Carparks: slices.Clone(m.Carparks),
		BusStops: slices.Clone(m.BusStops),
	}
}

// NearbyCarpark is a carpark found within the search radius of a hawker center.
type NearbyCarpark struct {
	ID             string  `json:"carpark_id"`
	Development    string  `json:"development"`
	Agency         string  `json:"agency"`
	LotType        string  `json:"lot_type"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distance_meters"`
}

// NearbyBusStop is a bus stop found near a hawker center. Verified stops were
// matched against the transit provider's stop registry and carry a stop code.
type NearbyBusStop struct {
	PlaceID        string  `json:"place_id"`
	Name           string  `json:"name"`
	Code           string  `json:"bus_stop_code"`
	RoadName       string  `json:"road_name"`
	Description    string  `json:"description"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	DistanceMeters float64 `json:"distance_meters"`
	Verified       bool    `json:"verified"`
}

// HawkerCenter is the collected metadata document for one hawker center.
type HawkerCenter struct {
	UpdatedAt  time.Time       `json:"updated_at"`
	ID         string          `json:"id"`
	PlaceID    string          `json:"place_id"`
	Name       string          `json:"name"`
	Address    string          `json:"address"`
	PostalCode string          `json:"postal_code"`
	Carparks   []NearbyCarpark `json:"carparks"`
	BusStops   []NearbyBusStop `json:"bus_stops"`
	Latitude   float64         `json:"latitude"`
	Longitude  float64         `json:"longitude"`
}

// Mapping derives the registry mapping for the center. Only verified bus
// stops carry a usable stop code.
func (h *HawkerCenter) Mapping() HawkerMapping {
	m := HawkerMapping{
		Name:     h.Name,
		Carparks: make([]string, 0, len(h.Carparks)),
		BusStops: make([]string, 0, len(h.BusStops)),
	}
	for _, cp := range h.Carparks {
		m.Carparks = append(m.Carparks, cp.ID)
	}
	for _, stop := range h.BusStops {
		if stop.Verified && stop.Code != "" {
			m.BusStops = append(m.BusStops, stop.Code)
		}
	}
	return m
}
