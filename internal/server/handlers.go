package server

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// #region chat
func (s *Server) chat(c *gin.Context) {
	start := time.Now()

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Question == nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "field 'question' is required"})
		return
	}

	ctx := c.Request.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	res, err := s.engine.Answer(ctx, *req.Question)
	if err != nil {
		// pool closed or deadline hit before a worker was free
		s.log.Warn("chat unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Question:       res.Question,
		Answer:         res.Verdict.Text,
		Confidence:     round(res.Verdict.Confidence, 3),
		IsConfident:    res.Verdict.Confident,
		Cached:         res.Cached,
		ResponseTimeMS: round(float64(time.Since(start).Microseconds())/1000, 2),
	})
}

// #endregion chat

// #region health
func (s *Server) healthz(c *gin.Context) {
	gc := s.engine.Gate().Config()
	cs := s.engine.CacheStats()
	c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Features: healthFeatures{
			GreetingBypass:      true,
			TopKRetrieval:       s.engine.Config().TopK,
			SimilarityMetric:    string(s.engine.Mode()),
			SimilarityThreshold: gc.BaseThreshold,
			StrictThreshold:     gc.StrictThreshold,
			FallbackEnabled:     true,
			Workers:             s.engine.PoolStats().Capacity,
		},
		Cache: healthCache{
			Enabled:     cs.Enabled,
			MaxSize:     cs.Capacity,
			CurrentSize: cs.Size,
			Hits:        cs.Hits,
			Misses:      cs.Misses,
			HitRate:     cs.HitRatePercent(),
		},
	})
}

func (s *Server) clearCache(c *gin.Context) {
	s.engine.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "cache cleared"})
}

// #endregion health

// #region ui-config
func (s *Server) getConfig(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", s.ui.Get())
}

func (s *Server) reloadConfig(c *gin.Context) {
	if err := s.ui.Reload(); err != nil {
		s.log.Error("ui config reload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "config reloaded", "config": s.ui.Get()})
}

// #endregion ui-config

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
