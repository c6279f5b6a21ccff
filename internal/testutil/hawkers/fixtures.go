// Package hawkers provides hawker-center fixtures for tests.
//
// Example usage:
//
//	centers := hawkers.Fixture()
//	db := testutil.SetupTestDB(t, centers)
package hawkers

import (
	"slices"
	"testing"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/model"
)

// Fixture ids.
const (
	OldAirportRoad = "HC001"
	Maxwell        = "HC002"
	Tekka          = "HC003"
)

// Centers represents a collection of seeded hawker centers.
type Centers []model.HawkerCenter

// Find returns the center with id, or nil if not found.
func (c Centers) Find(id string) *model.HawkerCenter {
	for i := range c {
		if c[i].ID == id {
			return &c[i]
		}
	}
	return nil
}

// MustFind returns the center with id, or fails the test if not found.
func (c Centers) MustFind(t *testing.T, id string) model.HawkerCenter {
	t.Helper()
	center := c.Find(id)
	if center == nil {
		t.Fatalf("hawker center %q not found in test data", id)
	}
	return *center
}

// IDs returns the center ids in fixture order.
func (c Centers) IDs() []string {
	ids := make([]string, len(c))
	for i := range c {
		ids[i] = c[i].ID
	}
	return ids
}

// Mappings derives the registry mappings for every center.
func (c Centers) Mappings() map[string]model.HawkerMapping {
	out := make(map[string]model.HawkerMapping, len(c))
	for i := range c {
		out[c[i].ID] = c[i].Mapping()
	}
	return out
}

var updatedAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

var fixture = Centers{
	{
		ID:         OldAirportRoad,
		PlaceID:    "ChIJ-old-airport",
		Name:       "Old Airport Road Food Centre",
		Address:    "51 Old Airport Rd, Singapore 390051",
		PostalCode: "390051",
		Latitude:   1.3080,
		Longitude:  103.8855,
		UpdatedAt:  updatedAt,
		Carparks: []model.NearbyCarpark{
			{ID: "CP001", Development: "Blk 51 Old Airport Rd", Agency: "HDB", LotType: "C", Latitude: 1.3082, Longitude: 103.8851, DistanceMeters: 50},
			{ID: "CP002", Development: "Dakota Crescent", Agency: "HDB", LotType: "C", Latitude: 1.3075, Longitude: 103.8870, DistanceMeters: 175},
		},
		BusStops: []model.NearbyBusStop{
			{PlaceID: "stop-83059", Name: "Blk 51", Code: "83059", RoadName: "Old Airport Rd", Latitude: 1.3084, Longitude: 103.8853, DistanceMeters: 48, Verified: true},
			{PlaceID: "stop-83051", Name: "Opp Blk 51", Code: "83051", RoadName: "Old Airport Rd", Latitude: 1.3086, Longitude: 103.8858, DistanceMeters: 74, Verified: true},
		},
	},
	{
		ID:         Maxwell,
		PlaceID:    "ChIJ-maxwell",
		Name:       "Maxwell Food Centre",
		Address:    "1 Kadayanallur St, Singapore 069184",
		PostalCode: "069184",
		Latitude:   1.2803,
		Longitude:  103.8448,
		UpdatedAt:  updatedAt,
		Carparks: []model.NearbyCarpark{
			{ID: "CP003", Development: "Maxwell Chambers", Agency: "URA", LotType: "C", Latitude: 1.2805, Longitude: 103.8450, DistanceMeters: 31},
			{ID: "CP004", Development: "Tanjong Pagar Plaza", Agency: "HDB", LotType: "C", Latitude: 1.2810, Longitude: 103.8448, DistanceMeters: 78},
		},
		BusStops: []model.NearbyBusStop{
			{PlaceID: "stop-03223", Name: "Maxwell Food Ctr", Code: "03223", RoadName: "South Bridge Rd", Latitude: 1.2800, Longitude: 103.8447, DistanceMeters: 35, Verified: true},
			{PlaceID: "stop-unverified", Name: "Neil Rd", Latitude: 1.2830, Longitude: 103.8448, DistanceMeters: 300},
		},
	},
	{
		ID:         Tekka,
		PlaceID:    "ChIJ-tekka",
		Name:       "Tekka Centre",
		Address:    "665 Buffalo Rd, Singapore 210665",
		PostalCode: "210665",
		Latitude:   1.3063,
		Longitude:  103.8507,
		UpdatedAt:  updatedAt,
		Carparks: []model.NearbyCarpark{
			{ID: "CP005", Development: "Blk 665 Buffalo Rd", Agency: "HDB", LotType: "C", Latitude: 1.3061, Longitude: 103.8503, DistanceMeters: 50},
		},
		BusStops: []model.NearbyBusStop{},
	},
}

// Fixture returns a fresh copy of the three standard hawker centers.
func Fixture() Centers {
	out := make(Centers, len(fixture))
	for i, c := range fixture {
		c.Carparks = slices.Clone(c.Carparks)
		c.BusStops = slices.Clone(c.BusStops)
		out[i] = c
	}
	return out
}
