package places

import "context"

// MockClient is a mock implementation of Searcher for testing.
type MockClient struct {
	TextSearchFn   func(ctx context.Context, query string, count int, pageToken string) ([]Place, string, error)
	NearbySearchFn func(ctx context.Context, lat, lon, radius float64, types []string) ([]Place, error)
	DetailsFn      func(ctx context.Context, id string) (*Place, error)

	// Call tracking
	TextSearchCalls   []TextSearchCall
	NearbySearchCalls int
}

// TextSearchCall records the parameters of a TextSearch call.
type TextSearchCall struct {
	Query     string
	PageToken string
	Count     int
}

// NewMockClient creates a new mock Places client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// TextSearch implements Searcher.
func (m *MockClient) TextSearch(ctx context.Context, query string, count int, pageToken string) ([]Place, string, error) {
	m.TextSearchCalls = append(m.TextSearchCalls, TextSearchCall{Query: query, Count: count, PageToken: pageToken})
	if m.TextSearchFn != nil {
		return m.TextSearchFn(ctx, query, count, pageToken)
	}
	return []Place{}, "", nil
}

// NearbySearch implements Searcher.
func (m *MockClient) NearbySearch(ctx context.Context, lat, lon, radius float64, types []string) ([]Place, error) {
	m.NearbySearchCalls++
	if m.NearbySearchFn != nil {
		return m.NearbySearchFn(ctx, lat, lon, radius, types)
	}
	return []Place{}, nil
}

// PlaceDetails implements Searcher.
func (m *MockClient) PlaceDetails(ctx context.Context, id string) (*Place, error) {
	if m.DetailsFn != nil {
		return m.DetailsFn(ctx, id)
	}
	return &Place{ID: id}, nil
}
