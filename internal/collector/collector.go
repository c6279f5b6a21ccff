// Package collector populates hawker-center metadata from the place search
// and transit providers.
//
// A run finds hawker centers by text search, attaches nearby carparks and
// bus stops, stores the documents, and writes a JSON backup. The mappings
// derived from the stored documents feed the prediction registry.
package collector

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/geo"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/places"
	"github.com/Veraticus/hawker-crowd/internal/storage"
)

// Defaults for a collection run.
const (
	DefaultQuery       = "Hawker Centers, Singapore"
	DefaultAmount      = 50
	DefaultRadius      = 500.0
	DefaultMatchRadius = 50.0
	DefaultBackupFile  = "hawker_centers_data.json"
)

// DefaultBusStopTypes are the place types searched around each center.
var DefaultBusStopTypes = []string{"bus_station", "bus_stop"}

var (
	stopCodePattern   = regexp.MustCompile(`\b(\d{5})\b`)
	postalCodePattern = regexp.MustCompile(`\b(\d{6})\b`)
)

// Store persists collected documents.
type Store interface {
	SaveHawkerCenters(ctx context.Context, centers []model.HawkerCenter) error
}

// Snapshotter is implemented by stores that can copy themselves before a
// destructive update.
type Snapshotter interface {
	Snapshot(ctx context.Context, dir, reason string) (*storage.SnapshotInfo, error)
}

// Config controls a collection run.
type Config struct {
	Query        string
	BusStopTypes []string
	// SnapshotDir enables a store snapshot before saving when non-empty.
	SnapshotDir string
	// BackupPath enables the JSON backup when non-empty.
	BackupPath  string
	Retry       common.RetryOptions
	Amount      int
	Radius      float64
	MatchRadius float64
}

// DefaultConfig returns the collection defaults.
func DefaultConfig() Config {
	return Config{
		Query:        DefaultQuery,
		Amount:       DefaultAmount,
		Radius:       DefaultRadius,
		MatchRadius:  DefaultMatchRadius,
		BusStopTypes: slices.Clone(DefaultBusStopTypes),
		Retry: common.RetryOptions{
			Op:           "places text search",
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
		},
	}
}

// Validate checks that the run parameters are usable.
func (c *Config) Validate() error {
	if c.Query == "" {
		return fmt.Errorf("%w: collector query is required", common.ErrInvalidConfig)
	}
	if c.Amount < 1 || c.Amount > places.MaxTextSearchResults {
		return fmt.Errorf("%w: collector amount must be between 1 and %d, got %d",
			common.ErrInvalidConfig, places.MaxTextSearchResults, c.Amount)
	}
	if c.Radius <= 0 || c.MatchRadius <= 0 {
		return fmt.Errorf("%w: collector radii must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// Result summarizes a collection run.
type Result struct {
	// SearchErr is set when the center search failed part way; the centers
	// found before the failure were still processed.
	SearchErr  error
	Snapshot   *storage.SnapshotInfo
	BackupPath string
	Centers    []model.HawkerCenter
}

// Mappings derives the registry mappings for every collected center.
func (r *Result) Mappings() map[string]model.HawkerMapping {
	out := make(map[string]model.HawkerMapping, len(r.Centers))
	for i := range r.Centers {
		out[r.Centers[i].ID] = r.Centers[i].Mapping()
	}
	return out
}

// Collector runs metadata collection.
type Collector struct {
	places   places.Searcher
	transit  datamall.TransitProvider
	store    Store
	logger   *slog.Logger
	now      func() time.Time
	progress func(done, total int)
	cfg      Config
}

// Option configures a Collector.
type Option func(*Collector)

// WithProgress reports per-center progress.
func WithProgress(fn func(done, total int)) Option {
	return func(c *Collector) { c.progress = fn }
}

// WithClock overrides the timestamp source for collected documents.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector. store may be nil, in which case documents are
// only returned and backed up.
func New(cfg Config, searcher places.Searcher, transit datamall.TransitProvider, store Store, opts ...Option) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if searcher == nil || transit == nil {
		return nil, fmt.Errorf("%w: collector needs both providers", common.ErrInvalidArgument)
	}
	c := &Collector{
		cfg:      cfg,
		places:   searcher,
		transit:  transit,
		store:    store,
		logger:   slog.Default().With("component", "collector"),
		now:      time.Now,
		progress: func(int, int) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run collects, stores, and backs up hawker-center metadata.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	found, searchErr := c.findCenters(ctx)
	if len(found) == 0 {
		if searchErr != nil {
			return nil, fmt.Errorf("failed to find hawker centers: %w", searchErr)
		}
		return nil, fmt.Errorf("%w: search returned no hawker centers", common.ErrNotFound)
	}
	if searchErr != nil {
		c.logger.Warn("Center search failed, continuing with partial result",
			"found", len(found),
			"error", searchErr)
	}

	stops := c.busStopRegistry(ctx)
	carparks := c.carparkRecords(ctx)

	result := &Result{SearchErr: searchErr, Centers: make([]model.HawkerCenter, 0, len(found))}
	c.progress(0, len(found))
	for i, place := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		center := c.buildCenter(ctx, fmt.Sprintf("HC%03d", i+1), place, stops, carparks)
		result.Centers = append(result.Centers, center)
		c.progress(i+1, len(found))
		c.logger.Debug("Processed hawker center",
			"id", center.ID,
			"name", center.Name,
			"carparks", len(center.Carparks),
			"bus_stops", len(center.BusStops))
	}

	if c.store != nil {
		if snap, ok := c.store.(Snapshotter); ok && c.cfg.SnapshotDir != "" {
			info, err := snap.Snapshot(ctx, c.cfg.SnapshotDir, "collect")
			if err != nil {
				return nil, fmt.Errorf("failed to snapshot store: %w", err)
			}
			result.Snapshot = info
		}
		if err := c.store.SaveHawkerCenters(ctx, result.Centers); err != nil {
			return nil, fmt.Errorf("failed to store hawker centers: %w", err)
		}
	}

	if c.cfg.BackupPath != "" {
		if err := WriteBackup(c.cfg.BackupPath, result.Centers); err != nil {
			return nil, err
		}
		result.BackupPath = c.cfg.BackupPath
	}

	c.logger.Info("Collection complete", "centers", len(result.Centers))
	return result, nil
}

// findCenters pages through the text search. An error after some centers
// were found is returned alongside them.
func (c *Collector) findCenters(ctx context.Context) ([]places.Place, error) {
	var (
		found []places.Place
		token string
		seen  = map[string]bool{}
	)
	for len(found) < c.cfg.Amount {
		var (
			page []places.Place
			next string
		)
		want := min(places.PageSize, c.cfg.Amount-len(found))
		err := common.WithRetry(ctx, func() error {
			var err error
			page, next, err = c.places.TextSearch(ctx, c.cfg.Query, want, token)
			return err
		}, c.cfg.Retry)
		if err != nil {
			return found, err
		}

		for _, p := range page {
			if p.ID != "" && seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			found = append(found, p)
		}
		if next == "" || len(page) == 0 {
			break
		}
		token = next
	}
	return found, nil
}

func (c *Collector) busStopRegistry(ctx context.Context) []datamall.BusStop {
	stops, err := c.transit.BusStops(ctx)
	if err != nil {
		c.logger.Warn("Bus stop registry unavailable, stops will be unverified", "error", err)
		return nil
	}
	return stops
}

func (c *Collector) carparkRecords(ctx context.Context) []datamall.CarparkAvailabilityRecord {
	records, err := c.transit.CarparkAvailability(ctx)
	if err != nil {
		c.logger.Warn("Carpark availability unavailable, centers will have no carparks", "error", err)
		return nil
	}
	return records
}

func (c *Collector) buildCenter(ctx context.Context, id string, place places.Place,
	stops []datamall.BusStop, carparks []datamall.CarparkAvailabilityRecord) model.HawkerCenter {
	origin := geo.Point{Lat: place.Latitude, Lon: place.Longitude}
	center := model.HawkerCenter{
		ID:         id,
		PlaceID:    place.ID,
		Name:       place.Name,
		Address:    place.Address,
		PostalCode: PostalCode(place.Address),
		Latitude:   place.Latitude,
		Longitude:  place.Longitude,
		UpdatedAt:  c.now().UTC(),
		Carparks:   NearbyCarparks(origin, carparks, c.cfg.Radius),
		BusStops:   []model.NearbyBusStop{},
	}
	if center.Name == "" {
		center.Name = id
	}

	nearby, err := c.places.NearbySearch(ctx, place.Latitude, place.Longitude, c.cfg.Radius, c.cfg.BusStopTypes)
	if err != nil {
		c.logger.Warn("Nearby bus stop search failed", "id", id, "error", err)
		return center
	}
	center.BusStops = MatchBusStops(origin, nearby, stops, c.cfg.MatchRadius)
	return center
}

// NearbyCarparks returns the carparks within radius meters of origin, one
// entry per carpark id, nearest first. Records without coordinates are
// skipped.
func NearbyCarparks(origin geo.Point, records []datamall.CarparkAvailabilityRecord, radius float64) []model.NearbyCarpark {
	byID := map[string]model.NearbyCarpark{}
	for _, rec := range records {
		if rec.CarParkID == "" {
			continue
		}
		lat, lon, ok := rec.Coordinates()
		if !ok {
			continue
		}
		pt := geo.Point{Lat: lat, Lon: lon}
		dist := geo.Distance(origin, pt)
		if dist > radius {
			continue
		}
		// Car lots are the signal the features use.
		if prev, seen := byID[rec.CarParkID]; seen && prev.LotType == "C" {
			continue
		}
		byID[rec.CarParkID] = model.NearbyCarpark{
			ID:             rec.CarParkID,
			Development:    rec.Development,
			Agency:         rec.Agency,
			LotType:        rec.LotType,
			Latitude:       lat,
			Longitude:      lon,
			DistanceMeters: dist,
		}
	}

	out := make([]model.NearbyCarpark, 0, len(byID))
	for _, cp := range byID {
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b model.NearbyCarpark) int {
		return cmp.Or(cmp.Compare(a.DistanceMeters, b.DistanceMeters), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// MatchBusStops converts nearby place results into bus stops, verifying each
// against the transit registry. A five-digit code in the place name is
// matched first; otherwise the nearest registry stop within matchRadius
// meters is used.
func MatchBusStops(origin geo.Point, nearby []places.Place, registry []datamall.BusStop, matchRadius float64) []model.NearbyBusStop {
	byCode := make(map[string]datamall.BusStop, len(registry))
	points := make([]geo.Point, len(registry))
	for i, stop := range registry {
		byCode[stop.BusStopCode] = stop
		points[i] = geo.Point{Lat: stop.Latitude, Lon: stop.Longitude}
	}

	out := make([]model.NearbyBusStop, 0, len(nearby))
	seen := map[string]bool{}
	for _, p := range nearby {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		pt := geo.Point{Lat: p.Latitude, Lon: p.Longitude}
		stop := model.NearbyBusStop{
			PlaceID:        p.ID,
			Name:           p.Name,
			Latitude:       p.Latitude,
			Longitude:      p.Longitude,
			DistanceMeters: geo.Distance(origin, pt),
		}
		if m := stopCodePattern.FindStringSubmatch(p.Name); m != nil {
			stop.Code = m[1]
		}

		match, ok := byCode[stop.Code]
		if !ok || stop.Code == "" {
			if idx, dist := geo.Nearest(pt, points); idx >= 0 && dist <= matchRadius {
				match, ok = registry[idx], true
			}
		}
		if ok {
			stop.Code = match.BusStopCode
			stop.RoadName = match.RoadName
			stop.Description = match.Description
			stop.Verified = true
		}
		out = append(out, stop)
	}

	slices.SortStableFunc(out, func(a, b model.NearbyBusStop) int {
		return cmp.Compare(a.DistanceMeters, b.DistanceMeters)
	})
	return out
}

// PostalCode extracts the last six-digit group from a formatted address.
func PostalCode(address string) string {
	matches := postalCodePattern.FindAllStringSubmatch(address, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// WriteBackup writes the centers as indented JSON, replacing path atomically.
func WriteBackup(path string, centers []model.HawkerCenter) error {
	data, err := json.MarshalIndent(centers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".hawker-backup-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace backup: %w", err)
	}
	return nil
}
