package handler

import (
	"github.com/gin-gonic/gin"

	"invoflow/internal/service"
)

// StatsHandler serves token accounting endpoints.
type StatsHandler struct {
	stats service.StatsService
}

func NewStatsHandler(stats service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// TokenUsage handles GET /api/v1/stats/token-usage.
func (h *StatsHandler) TokenUsage(c *gin.Context) {
	usage, err := h.stats.TokenUsage(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, usage)
}

// TokenSavings handles GET /api/v1/stats/token-savings.
func (h *StatsHandler) TokenSavings(c *gin.Context) {
	saved, err := h.stats.TokenSavings(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"saved_tokens": saved})
}
