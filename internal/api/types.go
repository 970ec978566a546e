package api

import (
	"github.com/hookbridge/hookbridge/internal/pipeline"
)

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	QueueDepth    int    `json:"queue_depth"`
	Workers       int    `json:"workers"`
}

// ReadyzResponse is returned by GET /readyz.
type ReadyzResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	UptimeSeconds int64             `json:"uptime_seconds"`
	Pipelines     pipeline.Snapshot `json:"pipelines"`

	// Collections maps each configured sink collection to its document
	// count.
	Collections map[string]int64 `json:"collections,omitempty"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}
