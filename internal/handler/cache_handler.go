package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoflow/internal/port"
)

// CacheHandler exposes manual cache maintenance.
type CacheHandler struct {
	cache  port.PromptCache
	maxAge time.Duration
}

func NewCacheHandler(cache port.PromptCache, maxAge time.Duration) *CacheHandler {
	return &CacheHandler{cache: cache, maxAge: maxAge}
}

// Cleanup handles POST /api/v1/cache/cleanup. It purges cache entries not
// accessed within the retention window and reports how many were removed.
func (h *CacheHandler) Cleanup(c *gin.Context) {
	removed, err := h.cache.PurgeOlderThan(c.Request.Context(), h.maxAge)
	if err != nil {
		log.Printf("CacheHandler.Cleanup: purge failed: %v", err)
		RespondError(c, http.StatusInternalServerError, "CACHE_CLEANUP_FAILED", "failed to clean up cache")
		return
	}
	RespondOK(c, gin.H{"removed": removed})
}
