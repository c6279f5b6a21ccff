package server

import (
	"context"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/model"
)

// refreshLoop records a prediction for every hawker each interval until ctx
// is cancelled.
func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	s.logger.Info("Prediction refresh enabled", "interval", s.cfg.RefreshInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh runs one cycle. Model predictions warm the cache; every entry,
// fallbacks included, is appended to the history when a store is present.
func (s *Server) refresh(ctx context.Context) int {
	preds, err := s.predictor.PredictAll(ctx)
	if err != nil {
		s.logger.Warn("Prediction refresh interrupted", "error", err)
		return 0
	}

	saved := 0
	for i := range preds {
		p := &preds[i]
		if p.Source == model.SourceModel {
			s.cache.Set(ctx, p)
		}
		if s.store == nil {
			continue
		}
		if err := s.store.SavePrediction(ctx, p); err != nil {
			s.logger.Warn("Failed to record prediction", "hawker", p.HawkerID, "error", err)
			continue
		}
		saved++
	}

	s.metrics.ObserveRefresh()
	s.logger.Debug("Prediction refresh complete", "hawkers", len(preds), "saved", saved)
	return saved
}
