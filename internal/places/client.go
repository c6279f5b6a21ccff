package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/metrics"
	"github.com/Veraticus/hawker-crowd/internal/paging"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	placesapi "google.golang.org/api/places/v1"
)

const providerName = "places"

// Place is a search result.
type Place struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Types     []string `json:"types,omitempty"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
}

// Client wraps the generated Places service.
type Client struct {
	svc         *placesapi.Service
	logger      *slog.Logger
	metrics     *metrics.Registry
	maxRequests int
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records request outcomes in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Places client.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientOpts := []option.ClientOption{
		option.WithHTTPClient(&http.Client{
			Timeout:   cfg.Timeout,
			Transport: &apiKeyTransport{key: cfg.APIKey, base: http.DefaultTransport},
		}),
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}

	svc, err := placesapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create places service: %w", err)
	}

	c := &Client{
		svc:         svc,
		logger:      slog.Default().With("component", "places"),
		maxRequests: cfg.MaxRequests,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// apiKeyTransport sends the key in the header form the Places API documents.
type apiKeyTransport struct {
	base http.RoundTripper
	key  string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Goog-Api-Key", t.key)
	return t.base.RoundTrip(req)
}

// TextSearch returns up to count places matching query, starting at
// pageToken when one is given. It also returns the provider's continuation
// token for the last page fetched, or "" when there are no more results.
//
// Results are requested 20 at a time. Iteration stops when count places have
// been collected, when the provider has no further pages, or after the
// request cap, in which case a warning is logged and the partial result is
// returned.
func (c *Client) TextSearch(ctx context.Context, query string, count int, pageToken string) ([]Place, string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, "", fmt.Errorf("%w: query is required", common.ErrInvalidArgument)
	}
	if count < 1 || count > MaxTextSearchResults {
		return nil, "", fmt.Errorf("%w: count must be between 1 and %d, got %d",
			common.ErrInvalidArgument, MaxTextSearchResults, count)
	}

	fetch := func(ctx context.Context, token string, want int) (paging.Page[Place, string], error) {
		req := &placesapi.GoogleMapsPlacesV1SearchTextRequest{
			TextQuery: query,
			PageSize:  int64(min(want, PageSize)),
			PageToken: token,
		}
		call := c.svc.Places.SearchText(req).Context(ctx)
		call.Header().Set("X-Goog-FieldMask", TextSearchFieldMask)

		resp, err := call.Do()
		if err != nil {
			return paging.Page[Place, string]{}, c.requestError(err)
		}
		c.metrics.ObserveUpstream(providerName, "ok")

		return paging.Page[Place, string]{
			Items: convertPlaces(resp.Places),
			Next:  resp.NextPageToken,
			More:  resp.NextPageToken != "",
		}, nil
	}

	it := paging.New(pageToken, fetch,
		paging.WithTarget(count),
		paging.WithMaxRequests(c.maxRequests))

	results, err := paging.Collect(ctx, it)
	if err != nil {
		return nil, "", err
	}
	if it.Capped() {
		c.metrics.ObserveCapped(providerName)
		c.logger.Warn("Reached maximum request limit",
			"query", query,
			"max_requests", c.maxRequests,
			"collected", len(results),
			"requested", count)
	}

	c.logger.Debug("Text search complete",
		"query", query,
		"results", len(results),
		"requests", it.Progress().Requests)

	return results, it.Cursor(), nil
}

// NearbySearch returns places within radius meters of the point, nearest
// first. A non-positive radius uses DefaultRadius. It issues one request.
func (c *Client) NearbySearch(ctx context.Context, lat, lon, radius float64, types []string) ([]Place, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range (%f, %f)", common.ErrInvalidArgument, lat, lon)
	}
	if radius <= 0 {
		radius = DefaultRadius
	}

	req := &placesapi.GoogleMapsPlacesV1SearchNearbyRequest{
		IncludedTypes: types,
		LocationRestriction: &placesapi.GoogleMapsPlacesV1SearchNearbyRequestLocationRestriction{
			Circle: &placesapi.GoogleMapsPlacesV1Circle{
				Center: &placesapi.GoogleTypeLatLng{Latitude: lat, Longitude: lon},
				Radius: radius,
			},
		},
		RankPreference: "DISTANCE",
	}
	call := c.svc.Places.SearchNearby(req).Context(ctx)
	call.Header().Set("X-Goog-FieldMask", NearbySearchFieldMask)

	resp, err := call.Do()
	if err != nil {
		return nil, c.requestError(err)
	}
	c.metrics.ObserveUpstream(providerName, "ok")

	return convertPlaces(resp.Places), nil
}

// PlaceDetails fetches a single place by id.
func (c *Client) PlaceDetails(ctx context.Context, id string) (*Place, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: place id is required", common.ErrInvalidArgument)
	}

	call := c.svc.Places.Get("places/" + id).Context(ctx)
	call.Header().Set("X-Goog-FieldMask", DetailsFieldMask)

	resp, err := call.Do()
	if err != nil {
		return nil, c.requestError(err)
	}
	c.metrics.ObserveUpstream(providerName, "ok")

	p := convertPlace(resp)
	return &p, nil
}

func (c *Client) requestError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		c.metrics.ObserveUpstream(providerName, strconv.Itoa(apiErr.Code))
		return common.NewRequestError(providerName, apiErr.Code, apiErr.Body)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.metrics.ObserveUpstream(providerName, "error")
	return fmt.Errorf("%w: %s: %w", common.ErrRequestFailed, providerName, err)
}

func convertPlaces(in []*placesapi.GoogleMapsPlacesV1Place) []Place {
	out := make([]Place, 0, len(in))
	for _, p := range in {
		if p == nil {
			continue
		}
		out = append(out, convertPlace(p))
	}
	return out
}

func convertPlace(p *placesapi.GoogleMapsPlacesV1Place) Place {
	place := Place{
		ID:      p.Id,
		Address: p.FormattedAddress,
		Types:   p.Types,
	}
	if p.DisplayName != nil {
		place.Name = p.DisplayName.Text
	}
	if p.Location != nil {
		place.Latitude = p.Location.Latitude
		place.Longitude = p.Location.Longitude
	}
	return place
}
