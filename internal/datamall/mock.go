package datamall

import (
	"context"
	"sync"
)

// MockClient is a mock implementation of TransitProvider for testing.
type MockClient struct {
	CarparkAvailabilityFn func(ctx context.Context) ([]CarparkAvailabilityRecord, error)
	BusArrivalsFn         func(ctx context.Context, stopCode string) (*BusArrivalResponse, error)
	BusStopsFn            func(ctx context.Context) ([]BusStop, error)

	// Call tracking
	BusArrivalCalls []string
	CarparkCalls    int
	BusStopsCalls   int
	mu              sync.Mutex
}

// NewMockClient creates a new mock transit client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CarparkAvailability implements TransitProvider.
func (m *MockClient) CarparkAvailability(ctx context.Context) ([]CarparkAvailabilityRecord, error) {
	m.mu.Lock()
	m.CarparkCalls++
	m.mu.Unlock()

	if m.CarparkAvailabilityFn != nil {
		return m.CarparkAvailabilityFn(ctx)
	}
	return []CarparkAvailabilityRecord{}, nil
}

// BusArrivals implements TransitProvider.
func (m *MockClient) BusArrivals(ctx context.Context, stopCode string) (*BusArrivalResponse, error) {
	m.mu.Lock()
	m.BusArrivalCalls = append(m.BusArrivalCalls, stopCode)
	m.mu.Unlock()

	if m.BusArrivalsFn != nil {
		return m.BusArrivalsFn(ctx, stopCode)
	}
	return &BusArrivalResponse{BusStopCode: stopCode}, nil
}

// BusStops implements TransitProvider.
func (m *MockClient) BusStops(ctx context.Context) ([]BusStop, error) {
	m.mu.Lock()
	m.BusStopsCalls++
	m.mu.Unlock()

	if m.BusStopsFn != nil {
		return m.BusStopsFn(ctx)
	}
	return []BusStop{}, nil
}
