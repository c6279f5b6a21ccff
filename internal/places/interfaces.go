package places

import "context"

// Searcher defines the place lookups used by metadata collection.
type Searcher interface {
	TextSearch(ctx context.Context, query string, count int, pageToken string) ([]Place, string, error)
	NearbySearch(ctx context.Context, lat, lon, radius float64, types []string) ([]Place, error)
	PlaceDetails(ctx context.Context, id string) (*Place, error)
}

var _ Searcher = (*Client)(nil)
