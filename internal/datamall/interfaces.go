package datamall

import "context"

// TransitProvider defines the live transit data used for feature extraction
// and metadata collection. It allows easy mocking in tests.
type TransitProvider interface {
	CarparkAvailability(ctx context.Context) ([]CarparkAvailabilityRecord, error)
	BusArrivals(ctx context.Context, stopCode string) (*BusArrivalResponse, error)
	BusStops(ctx context.Context) ([]BusStop, error)
}

var _ TransitProvider = (*Client)(nil)
