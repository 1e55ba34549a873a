package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"invoflow/internal/domain"
	"invoflow/internal/handler"
	"invoflow/mocks"
)

func newStatsHandler() (*handler.StatsHandler, *mocks.MockStatsService) {
	mockSvc := new(mocks.MockStatsService)
	h := handler.NewStatsHandler(mockSvc)
	return h, mockSvc
}

func TestStatsHandler_TokenUsage_Success(t *testing.T) {
	h, mockSvc := newStatsHandler()

	mockSvc.On("TokenUsage", mock.Anything).Return(&domain.TokenUsageStats{
		InvoiceCount:      40,
		AvgTotalTokens:    1500,
		AvgCostPerInvoice: 0.0001125,
		CostPer1MTokens:   0.075,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/stats/token-usage", http.NoBody)

	h.TokenUsage(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(40), data["invoice_count"])
	assert.Equal(t, 0.075, data["cost_per_1m_tokens"])
}

func TestStatsHandler_TokenUsage_Error(t *testing.T) {
	h, mockSvc := newStatsHandler()

	mockSvc.On("TokenUsage", mock.Anything).Return(nil, assert.AnError)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/stats/token-usage", http.NoBody)

	h.TokenUsage(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatsHandler_TokenSavings_Success(t *testing.T) {
	h, mockSvc := newStatsHandler()

	mockSvc.On("TokenSavings", mock.Anything).Return(int64(98765), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/stats/token-savings", http.NoBody)

	h.TokenSavings(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(98765), data["saved_tokens"])
}
