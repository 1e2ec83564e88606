package handlers

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/muandane/special-stack/teamlogos/internal/cache"
)

type ImageCacheStats struct {
	cache.Stats
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	TotalRequests uint64  `json:"total_requests"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`
}

// StatsHandler reports image cache effectiveness.
type StatsHandler struct {
	store  *cache.Store
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewStatsHandler(store *cache.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

func (h *StatsHandler) RecordHit() {
	h.hits.Add(1)
}

func (h *StatsHandler) RecordMiss() {
	h.misses.Add(1)
}

func (h *StatsHandler) Snapshot() ImageCacheStats {
	hits := h.hits.Load()
	misses := h.misses.Load()
	out := ImageCacheStats{
		Stats:         h.store.Stats(),
		Hits:          hits,
		Misses:        misses,
		TotalRequests: hits + misses,
	}
	if out.TotalRequests > 0 {
		out.CacheHitRatio = float64(hits) / float64(out.TotalRequests) * 100
	}
	return out
}

func (h *StatsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.Snapshot())
}
