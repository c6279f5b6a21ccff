package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/hawker-crowd/internal/cli"
	"github.com/Veraticus/hawker-crowd/internal/server"
	"github.com/Veraticus/hawker-crowd/internal/service"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve crowd predictions over HTTP",
		Long: `Start the prediction API.

When no model bundle exists a synthetic model is trained and saved first,
so the API can answer immediately. Retrain with real signals using
'hawker train --strategy heuristic'.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default :5000, or :$PORT)")
	cmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (default *)")
	cmd.Flags().Duration("refresh-interval", 0, "record predictions for every hawker on this interval (0 disables)")
	cmd.Flags().String("redis-addr", "", "Redis address for the prediction cache (empty disables)")
	cmd.Flags().Bool("no-bootstrap", false, "do not train a synthetic model when none exists")

	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.cors_origins", cmd.Flags().Lookup("cors-origins"))
	_ = viper.BindPFlag("server.refresh_interval", cmd.Flags().Lookup("refresh-interval"))
	_ = viper.BindPFlag("redis.addr", cmd.Flags().Lookup("redis-addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	noBootstrap, _ := cmd.Flags().GetBool("no-bootstrap")
	ctx := cmd.Context()

	a, err := openApp(ctx, !noBootstrap)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	cfg := serverConfig()
	cfg.ModelPath = a.ModelPath

	cache := (*server.RedisCache)(nil)
	cacheCfg := server.CacheConfig{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
		TTL:      viper.GetDuration("redis.ttl"),
	}
	if cacheCfg.Enabled() {
		cache, err = server.NewRedisCache(ctx, cacheCfg)
		if err != nil {
			slog.Warn("Prediction cache unavailable, serving without it", "addr", cacheCfg.Addr, "error", err)
		}
		defer func() { _ = cache.Close() }()
	}

	deps := server.Deps{
		Predictor: a.Predictor,
		Cache:     cache,
		Metrics:   a.Metrics,
	}
	var store service.Storage
	if a.Store != nil {
		store = a.Store
	}
	deps.Store = store

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	handler := cli.NewInterruptHandler(os.Stderr)
	ctx = handler.HandleInterrupts(ctx, "Server", "")

	slog.Info(fmt.Sprintf("%s Serving predictions", cli.HawkerIcon),
		"addr", cfg.Addr,
		"model_loaded", a.Predictor.Loaded(),
		"hawkers", len(a.Registry.IDs()))
	return srv.Run(ctx)
}

func serverConfig() server.Config {
	cfg := server.DefaultConfig()
	if v := viper.GetString("server.addr"); v != "" {
		cfg.Addr = v
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if v := viper.GetStringSlice("server.cors_origins"); len(v) > 0 {
		cfg.CORSOrigins = v
	}
	cfg.RefreshInterval = viper.GetDuration("server.refresh_interval")
	if v := viper.GetDuration("server.shutdown_timeout"); v > 0 {
		cfg.ShutdownTimeout = v
	}
	if v := viper.GetInt("server.history_limit"); v > 0 {
		cfg.HistoryLimit = v
	}
	return cfg
}
