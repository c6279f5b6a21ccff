package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/registry"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrNotTrained):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": s.predictor.Loaded(),
		"timestamp":    s.now().UTC(),
	})
}

func (s *Server) handlePredict(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("hawkerId")

	if cached, ok := s.cache.Get(ctx, id); ok {
		cached.Source = model.SourceCache
		s.metrics.ObservePrediction(string(cached.Level), model.SourceCache, 0)
		c.JSON(http.StatusOK, cached)
		return
	}

	pred, err := s.predictor.Predict(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	s.cache.Set(ctx, pred)
	c.JSON(http.StatusOK, pred)
}

func (s *Server) handlePredictAll(c *gin.Context) {
	preds, err := s.predictor.PredictAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preds)
}

func (s *Server) handleUpdateMappings(c *gin.Context) {
	mappings, err := registry.Decode(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	persisted, err := s.predictor.UpdateMappings(mappings, s.cfg.ModelPath)
	if err != nil {
		writeError(c, err)
		return
	}
	s.cache.Invalidate(c.Request.Context())

	s.logger.Info("Updated hawker mappings", "hawkers", len(mappings), "persisted", persisted)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Mappings updated successfully",
		"hawkers":   len(mappings),
		"persisted": persisted,
	})
}

func (s *Server) handleListHawkers(c *gin.Context) {
	centers, err := s.store.ListHawkerCenters(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if centers == nil {
		centers = []model.HawkerCenter{}
	}
	c.JSON(http.StatusOK, centers)
}

func (s *Server) handleGetHawker(c *gin.Context) {
	center, err := s.store.GetHawkerCenter(c.Request.Context(), c.Param("hawkerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, center)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := s.cfg.HistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, 500)
	}

	preds, err := s.store.RecentPredictions(c.Request.Context(), c.Param("hawkerId"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preds)
}
