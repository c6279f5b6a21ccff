package datamall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID int `json:"ID"`
}

// fakeDataMall serves total sequential records in pages of 500. A negative
// total serves an unbounded dataset. failAt makes the request with that
// $skip fail.
type fakeDataMall struct {
	requests atomic.Int32
	total    int
	failAt   int
}

func (f *fakeDataMall) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)

	if r.Header.Get("AccountKey") != "test-key" || r.Header.Get("Accept") != "application/json" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad headers"))
		return
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("$skip"))
	if f.failAt > 0 && skip == f.failAt {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("try later"))
		return
	}

	value := []record{}
	for i := skip; i < skip+500 && (f.total < 0 || i < f.total); i++ {
		value = append(value, record{ID: i + 1})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"odata.metadata": "http://example/$metadata#" + r.URL.Path,
		"value":          value,
	})
}

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	for _, m := range mutate {
		m(&cfg)
	}

	client, err := NewClient(cfg)
	require.NoError(t, err)
	return client
}

func ids(t *testing.T, resp *Response) []int {
	t.Helper()
	recs, err := DecodeRecords[record](resp)
	require.NoError(t, err)
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) { c.APIKey = "k" }},
		{name: "missing key", mutate: func(*Config) {}, wantErr: common.ErrMissingConfig},
		{name: "missing base url", mutate: func(c *Config) { c.APIKey = "k"; c.BaseURL = "" }, wantErr: common.ErrMissingConfig},
		{name: "zero request cap", mutate: func(c *Config) { c.APIKey = "k"; c.MaxRequests = 0 }, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClient_Fetch_Amounts(t *testing.T) {
	tests := []struct {
		params       url.Values
		name         string
		wantFirst    int
		wantLast     int
		total        int
		amount       int
		wantLen      int
		wantRequests int32
	}{
		{
			name:         "single page",
			total:        1200,
			amount:       SinglePage,
			wantLen:      500,
			wantFirst:    1,
			wantLast:     500,
			wantRequests: 1,
		},
		{
			name:         "single page honors caller offset",
			total:        1200,
			amount:       SinglePage,
			params:       url.Values{"$skip": {"1000"}},
			wantLen:      200,
			wantFirst:    1001,
			wantLast:     1200,
			wantRequests: 1,
		},
		{
			name:         "all pages until empty",
			total:        1234,
			amount:       All,
			wantLen:      1234,
			wantFirst:    1,
			wantLast:     1234,
			wantRequests: 4,
		},
		{
			name:         "exact amount from offset",
			total:        1200,
			amount:       5,
			params:       url.Values{"$skip": {"5"}},
			wantLen:      5,
			wantFirst:    6,
			wantLast:     10,
			wantRequests: 1,
		},
		{
			name:         "amount spanning pages is truncated",
			total:        2000,
			amount:       600,
			wantLen:      600,
			wantFirst:    1,
			wantLast:     600,
			wantRequests: 2,
		},
		{
			name:         "amount larger than dataset",
			total:        700,
			amount:       5000,
			wantLen:      700,
			wantFirst:    1,
			wantLast:     700,
			wantRequests: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDataMall{total: tt.total}
			client := newTestClient(t, fake)

			resp, err := client.Fetch(context.Background(), CarparkAvailability, tt.params, tt.amount)
			require.NoError(t, err)

			got := ids(t, resp)
			require.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantFirst, got[0])
			assert.Equal(t, tt.wantLast, got[len(got)-1])
			assert.Equal(t, tt.wantRequests, fake.requests.Load())
		})
	}
}

func TestClient_Fetch_ContiguousOffsets(t *testing.T) {
	client := newTestClient(t, &fakeDataMall{total: 2000})

	resp, err := client.Fetch(context.Background(), BusRoutes, nil, 1100)
	require.NoError(t, err)

	got := ids(t, resp)
	for i, id := range got {
		require.Equal(t, i+1, id, "records must be contiguous and non-duplicated")
	}
}

func TestClient_Fetch_SingleShotIgnoresAmount(t *testing.T) {
	fake := &fakeDataMall{total: 2000}
	client := newTestClient(t, fake)

	resp, err := client.Fetch(context.Background(), TrainServiceAlerts, nil, All)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.requests.Load())
	assert.Equal(t, 500, resp.Len())
}

func TestClient_Fetch_RequestCap(t *testing.T) {
	fake := &fakeDataMall{total: -1}
	client := newTestClient(t, fake, func(c *Config) { c.MaxRequests = 3 })
	var logs bytes.Buffer
	client.logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))

	resp, err := client.Fetch(context.Background(), TrafficSpeedBands, nil, All)
	require.NoError(t, err)
	assert.Equal(t, 1500, resp.Len())
	assert.Equal(t, int32(3), fake.requests.Load())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "Request cap reached")
}

func TestClient_Fetch_FailedPageReturnsPartial(t *testing.T) {
	fake := &fakeDataMall{total: 5000, failAt: 1000}
	client := newTestClient(t, fake)

	resp, err := client.Fetch(context.Background(), CarparkAvailability, nil, All)
	require.NoError(t, err)
	assert.Equal(t, 1000, resp.Len())
	assert.Equal(t, int32(3), fake.requests.Load())
}

func TestClient_Fetch_FirstRequestFails(t *testing.T) {
	fake := &fakeDataMall{total: 5000, failAt: -1}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fake.requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid key"))
	}))

	_, err := client.Fetch(context.Background(), CarparkAvailability, nil, All)
	require.ErrorIs(t, err, common.ErrRequestFailed)

	var reqErr *common.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusForbidden, reqErr.StatusCode)
	assert.Equal(t, "invalid key", reqErr.Body)
}

func TestClient_Fetch_NonJSON(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))

	_, err := client.Fetch(context.Background(), BusStops, nil, SinglePage)
	assert.ErrorIs(t, err, common.ErrRequestFailed)
}

func TestClient_Fetch_InvalidArguments(t *testing.T) {
	fake := &fakeDataMall{total: 10}
	client := newTestClient(t, fake)

	_, err := client.Fetch(context.Background(), BusStops, nil, -2)
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = client.Fetch(context.Background(), BusStops, url.Values{"$skip": {"abc"}}, All)
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	assert.Zero(t, fake.requests.Load())
}

func TestClient_Fetch_KeepsEnvelope(t *testing.T) {
	client := newTestClient(t, &fakeDataMall{total: 700})

	resp, err := client.Fetch(context.Background(), BusStops, nil, All)
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Metadata string   `json:"odata.metadata"`
		Value    []record `json:"value"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded.Metadata, "BusStops")
	assert.Len(t, decoded.Value, 700)
}

func TestClient_BusArrivals(t *testing.T) {
	var gotStop string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/BusArrival", r.URL.Path)
		gotStop = r.URL.Query().Get("BusStopCode")
		_, _ = fmt.Fprint(w, `{
			"BusStopCode": "83059",
			"Services": [
				{"ServiceNo": "10", "Operator": "SBST", "NextBus": {"EstimatedArrival": "2025-03-04T12:34:00+08:00", "Load": "SEA"}},
				{"ServiceNo": "13", "Operator": "SBST", "NextBus": {"EstimatedArrival": ""}}
			]
		}`)
	}))

	resp, err := client.BusArrivals(context.Background(), "83059")
	require.NoError(t, err)
	assert.Equal(t, "83059", gotStop)
	require.Len(t, resp.Services, 2)

	arrival, ok := resp.Services[0].NextBus.Arrival()
	require.True(t, ok)
	assert.Equal(t, 34, arrival.Minute())

	_, ok = resp.Services[1].NextBus.Arrival()
	assert.False(t, ok)
}

func TestClient_CarparkAvailability(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("$skip") != "0" {
			_, _ = fmt.Fprint(w, `{"value": []}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"value": [
			{"CarParkID": "CP001", "Development": "Old Airport Road", "Location": "1.3080 103.8856", "AvailableLots": 42, "LotType": "C", "Agency": "HDB"}
		]}`)
	}))

	recs, err := client.CarparkAvailability(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 42, recs[0].AvailableLots)

	lat, lon, ok := recs[0].Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 1.3080, lat, 1e-9)
	assert.InDelta(t, 103.8856, lon, 1e-9)

	_, _, ok = CarparkAvailabilityRecord{Location: "bogus"}.Coordinates()
	assert.False(t, ok)
}

func TestLookupEndpoint(t *testing.T) {
	ep, ok := LookupEndpoint("carpark_availability")
	require.True(t, ok)
	assert.Equal(t, "CarParkAvailabilityv2", ep.Path)

	_, ok = LookupEndpoint("nope")
	assert.False(t, ok)
}
