package server

import "time"

// #region config
// Config holds listener addresses and timeouts.
type Config struct {
	HTTPAddr        string
	GRPCAddr        string // empty disables the health server
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// DefaultConfig listens on :8000 (HTTP) and :9000 (gRPC health).
func DefaultConfig() Config {
	return Config{
		HTTPAddr:        ":8000",
		GRPCAddr:        ":9000",
		ShutdownTimeout: 15 * time.Second,
		RequestTimeout:  10 * time.Second,
	}
}

// #endregion config

// #region wire-types
type chatRequest struct {
	Question *string `json:"question"`
}

type chatResponse struct {
	Question       string  `json:"question"`
	Answer         string  `json:"answer"`
	Confidence     float64 `json:"confidence"`
	IsConfident    bool    `json:"is_confident"`
	Cached         bool    `json:"cached"`
	ResponseTimeMS float64 `json:"response_time_ms"`
}

type healthFeatures struct {
	GreetingBypass      bool    `json:"greeting_bypass"`
	TopKRetrieval       int     `json:"top_k_retrieval"`
	SimilarityMetric    string  `json:"similarity_metric"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	StrictThreshold     float64 `json:"strict_threshold"`
	FallbackEnabled     bool    `json:"fallback_enabled"`
	Workers             int     `json:"workers"`
}

type healthCache struct {
	Enabled     bool   `json:"enabled"`
	MaxSize     int    `json:"max_size"`
	CurrentSize int    `json:"current_size"`
	Hits        int64  `json:"hits"`
	Misses      int64  `json:"misses"`
	HitRate     string `json:"hit_rate"`
}

type healthResponse struct {
	Status   string         `json:"status"`
	Features healthFeatures `json:"features"`
	Cache    healthCache    `json:"cache"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// #endregion wire-types
