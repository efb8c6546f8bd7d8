package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit"
	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/infra"
)

const healthStatsTimeout = time.Second

type concurrencyInfo struct {
	InFlight int `json:"inFlight"`
	Capacity int `json:"capacity"`
}

type healthResponse struct {
	Status string `json:"status"`
	// contadores desta instância
	RateLimit *infra.StatsSnapshot `json:"rateLimit,omitempty"`
	// soma de todas as instâncias (só com stats no Redis)
	RateLimitCluster *infra.StatsSnapshot `json:"rateLimitCluster,omitempty"`
	Concurrency      *concurrencyInfo     `json:"concurrency,omitempty"`
}

// healthHandler responde sempre 200 enquanto o processo atende; falha ao ler
// o Redis só omite rateLimitCluster.
func healthHandler(stats statsSet, conc *ratelimit.ConcurrencyLimiter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}

		if stats.local != nil {
			snap := stats.local.Snapshot()
			resp.RateLimit = &snap
		}
		if stats.cluster != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthStatsTimeout)
			snap, err := stats.cluster.Snapshot(ctx)
			cancel()
			if err != nil {
				logger.Warn("health: cluster stats unavailable", zap.Error(err))
			} else {
				resp.RateLimitCluster = &snap
			}
		}
		if conc != nil && conc.Capacity() > 0 {
			resp.Concurrency = &concurrencyInfo{InFlight: conc.InFlight(), Capacity: conc.Capacity()}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
