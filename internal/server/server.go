package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/metrics"
	"github.com/Veraticus/hawker-crowd/internal/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators the server routes to. Store and Cache are
// optional.
type Deps struct {
	Predictor service.Predictor
	Store     service.Storage
	Cache     service.PredictionCache
	Metrics   *metrics.Registry
}

// Server serves the prediction API.
type Server struct {
	predictor service.Predictor
	store     service.Storage
	cache     service.PredictionCache
	metrics   *metrics.Registry
	logger    *slog.Logger
	engine    *gin.Engine
	now       func() time.Time
	cfg       Config
}

// New builds a Server and its routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Predictor == nil {
		return nil, errors.New("server requires a predictor")
	}

	s := &Server{
		cfg:       cfg,
		predictor: deps.Predictor,
		store:     deps.Store,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		logger:    slog.Default().With("component", "server"),
		now:       time.Now,
	}
	if s.cache == nil {
		s.cache = (*RedisCache)(nil)
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), instrument(s.metrics), corsMiddleware(s.cfg.CORSOrigins))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	r.GET("/predict/all", s.handlePredictAll)
	r.GET("/predict/:hawkerId", s.handlePredict)
	r.POST("/update-mappings", s.handleUpdateMappings)

	if s.store != nil {
		r.GET("/hawkers", s.handleListHawkers)
		r.GET("/hawkers/:hawkerId", s.handleGetHawker)
		r.GET("/predictions/:hawkerId/history", s.handleHistory)
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully. When a
// refresh interval is configured it also records predictions for every
// hawker on that schedule.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	})

	if s.cfg.RefreshInterval > 0 {
		g.Go(func() error {
			s.refreshLoop(ctx)
			return nil
		})
	}

	return g.Wait()
}
