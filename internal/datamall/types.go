package datamall

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CarparkAvailabilityRecord is one row of CarParkAvailabilityv2.
type CarparkAvailabilityRecord struct {
	CarParkID     string `json:"CarParkID"`
	Area          string `json:"Area"`
	Development   string `json:"Development"`
	Location      string `json:"Location"`
	LotType       string `json:"LotType"`
	Agency        string `json:"Agency"`
	AvailableLots int    `json:"AvailableLots"`
}

// Coordinates parses the "lat lon" Location field.
func (r CarparkAvailabilityRecord) Coordinates() (lat, lon float64, ok bool) {
	parts := strings.Fields(r.Location)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// NextBus is one upcoming arrival for a service.
type NextBus struct {
	EstimatedArrival string `json:"EstimatedArrival"`
	Load             string `json:"Load"`
	Feature          string `json:"Feature"`
	Type             string `json:"Type"`
}

// Arrival parses EstimatedArrival. Empty values mean no bus is scheduled.
func (n NextBus) Arrival() (time.Time, bool) {
	if n.EstimatedArrival == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, n.EstimatedArrival)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// BusService is a service calling at a stop.
type BusService struct {
	ServiceNo string  `json:"ServiceNo"`
	Operator  string  `json:"Operator"`
	NextBus   NextBus `json:"NextBus"`
	NextBus2  NextBus `json:"NextBus2"`
	NextBus3  NextBus `json:"NextBus3"`
}

// BusArrivalResponse is the BusArrival payload for one stop.
type BusArrivalResponse struct {
	BusStopCode string       `json:"BusStopCode"`
	Services    []BusService `json:"Services"`
}

// BusStop is one row of the BusStops dataset.
type BusStop struct {
	BusStopCode string  `json:"BusStopCode"`
	RoadName    string  `json:"RoadName"`
	Description string  `json:"Description"`
	Latitude    float64 `json:"Latitude"`
	Longitude   float64 `json:"Longitude"`
}

// CarparkAvailability returns live availability for every carpark.
func (c *Client) CarparkAvailability(ctx context.Context) ([]CarparkAvailabilityRecord, error) {
	resp, err := c.Fetch(ctx, CarparkAvailability, nil, All)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch carpark availability: %w", err)
	}
	return DecodeRecords[CarparkAvailabilityRecord](resp)
}

// BusArrivals returns the next arrivals at a stop.
func (c *Client) BusArrivals(ctx context.Context, stopCode string) (*BusArrivalResponse, error) {
	resp, err := c.Fetch(ctx, BusArrival, url.Values{"BusStopCode": {stopCode}}, SinglePage)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bus arrivals for %s: %w", stopCode, err)
	}

	var out BusArrivalResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BusStops returns the full bus stop registry.
func (c *Client) BusStops(ctx context.Context) ([]BusStop, error) {
	resp, err := c.Fetch(ctx, BusStops, nil, All)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bus stops: %w", err)
	}
	return DecodeRecords[BusStop](resp)
}
