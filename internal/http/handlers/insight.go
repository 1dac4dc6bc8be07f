package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verdelo/carbonledger-backend/internal/http/response"
	"github.com/verdelo/carbonledger-backend/internal/services"
)

type InsightHandler struct {
	insightService services.InsightService
}

func NewInsightHandler(insightService services.InsightService) *InsightHandler {
	return &InsightHandler{insightService: insightService}
}

// GET /api/insights
func (ih *InsightHandler) List(c *gin.Context) {
	year, err := yearQuery(c, defaultReportingYear)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	insights, err := ih.insightService.List(c.Request.Context(), year)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"insights": insights})
}
