package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/hawker-crowd/internal/app"
	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/config"
	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/metrics"
	"github.com/Veraticus/hawker-crowd/internal/places"
)

// openApp builds the process-wide App from configuration. bootstrap trains
// a synthetic model when no bundle exists yet.
func openApp(ctx context.Context, bootstrap bool) (*app.App, error) {
	m := metrics.NewRegistry()

	transit, err := newTransit(m)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, app.Options{
		Transit:      transit,
		Metrics:      m,
		ModelPath:    config.ModelPath(),
		DatabasePath: config.DatabasePath(),
		MappingsPath: config.MappingsPath(),
		Bootstrap:    bootstrap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

func newTransit(m *metrics.Registry) (*datamall.Client, error) {
	cfg, err := config.LoadDataMallConfig()
	if err != nil {
		return nil, common.NewUserError("LTA DataMall is not configured; set LTA_DATAMALL_API_KEY or datamall.api_key", err)
	}
	return datamall.NewClient(*cfg, datamall.WithMetrics(m))
}

func newPlaces(ctx context.Context, m *metrics.Registry) (*places.Client, error) {
	cfg, err := config.LoadPlacesConfig()
	if err != nil {
		return nil, common.NewUserError("Google Places is not configured; set GOOGLE_PLACES_API_KEY or places.api_key", err)
	}
	return places.NewClient(ctx, *cfg, places.WithMetrics(m))
}
