package datamall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/metrics"
	"github.com/Veraticus/hawker-crowd/internal/paging"
)

// Amount values accepted by Fetch besides a positive record count.
const (
	// SinglePage issues exactly one request with the caller's parameters.
	SinglePage = 0
	// All pages until the provider returns an empty page.
	All = -1
)

const providerName = "datamall"

// Client talks to the DataMall REST API.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     *metrics.Registry
	apiKey      string
	baseURL     string
	maxRequests int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records request outcomes in m.
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a DataMall client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      slog.Default().With("component", "datamall"),
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		maxRequests: cfg.MaxRequests,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch retrieves a dataset.
//
// amount selects the pagination mode: SinglePage issues one request, All
// pages until an empty page, and a positive N pages until N records are
// gathered and truncates to exactly N. A caller-supplied $skip is the
// starting offset. Single-shot endpoints always make one request.
//
// Paginated fetches stop silently at the request cap and return what was
// gathered. A failed page after the first also returns the partial result;
// only a failure on the first request is returned as an error.
func (c *Client) Fetch(ctx context.Context, ep Endpoint, params url.Values, amount int) (*Response, error) {
	if amount < All {
		return nil, fmt.Errorf("%w: amount must be -1, 0 or positive, got %d", common.ErrInvalidArgument, amount)
	}
	if ep.Path == "" {
		return nil, fmt.Errorf("%w: endpoint path is required", common.ErrInvalidArgument)
	}

	if ep.SingleShot || amount == SinglePage {
		return c.get(ctx, ep, params)
	}

	start := 0
	if skip := params.Get("$skip"); skip != "" {
		n, err := strconv.Atoi(skip)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: $skip must be a non-negative integer, got %q", common.ErrInvalidArgument, skip)
		}
		start = n
	}

	var first *Response
	fetch := func(ctx context.Context, skip int, _ int) (paging.Page[json.RawMessage, int], error) {
		query := cloneValues(params)
		query.Set("$skip", strconv.Itoa(skip))

		resp, err := c.get(ctx, ep, query)
		if err != nil {
			return paging.Page[json.RawMessage, int]{}, err
		}
		if first == nil {
			first = resp
		}
		return paging.Page[json.RawMessage, int]{
			Items: resp.Value,
			Next:  skip + len(resp.Value),
			More:  true,
		}, nil
	}

	opts := []paging.Option{paging.WithMaxRequests(c.maxRequests)}
	if amount > 0 {
		opts = append(opts, paging.WithTarget(amount))
	}
	it := paging.New(start, fetch, opts...)

	records, err := paging.Collect(ctx, it)
	if err != nil {
		if first == nil || errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Warn("Page request failed, returning partial result",
			"endpoint", ep.Name,
			"records", len(records),
			"requests", it.Progress().Requests,
			"error", err)
	}
	if it.Capped() {
		c.metrics.ObserveCapped(providerName)
		c.logger.Warn("Request cap reached",
			"endpoint", ep.Name,
			"max_requests", c.maxRequests,
			"records", len(records))
	}

	if records == nil {
		records = []json.RawMessage{}
	}
	first.Value = records
	return first, nil
}

func (c *Client) get(ctx context.Context, ep Endpoint, params url.Values) (*Response, error) {
	endpoint := c.baseURL + ep.Path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("AccountKey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Requesting dataset", "endpoint", ep.Name, "query", params.Encode())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(providerName, "error")
		return nil, fmt.Errorf("%w: %s: %w", common.ErrRequestFailed, ep.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveUpstream(providerName, "error")
		return nil, fmt.Errorf("%w: reading %s response: %w", common.ErrRequestFailed, ep.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.ObserveUpstream(providerName, strconv.Itoa(resp.StatusCode))
		return nil, common.NewRequestError(providerName, resp.StatusCode, string(body))
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.metrics.ObserveUpstream(providerName, "invalid_body")
		return nil, fmt.Errorf("%w: decoding %s response: %w", common.ErrRequestFailed, ep.Name, err)
	}

	out := &Response{Envelope: envelope}
	if raw, ok := envelope["value"]; ok {
		if err := json.Unmarshal(raw, &out.Value); err != nil {
			c.metrics.ObserveUpstream(providerName, "invalid_body")
			return nil, fmt.Errorf("%w: decoding %s records: %w", common.ErrRequestFailed, ep.Name, err)
		}
	}

	c.metrics.ObserveUpstream(providerName, "ok")
	return out, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
