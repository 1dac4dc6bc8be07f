package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verdelo/carbonledger-backend/internal/http/response"
	"github.com/verdelo/carbonledger-backend/internal/services"
)

const recomputeEndpoint = "POST /api/dashboard/recompute"

type DashboardHandler struct {
	dashboardService   services.DashboardService
	idempotencyService services.IdempotencyService
}

func NewDashboardHandler(dashboardService services.DashboardService, idempotencyService services.IdempotencyService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService:   dashboardService,
		idempotencyService: idempotencyService,
	}
}

// GET /api/dashboard
func (dh *DashboardHandler) Get(c *gin.Context) {
	year, err := yearQuery(c, defaultReportingYear)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dashboard, err := dh.dashboardService.GetDashboard(c.Request.Context(), year)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, dashboard)
}

// POST /api/dashboard/recompute
func (dh *DashboardHandler) Recompute(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	year, err := yearQuery(c, defaultReportingYear)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	payload := map[string]interface{}{"year": year}

	key := idempotencyKey(c)
	if key != "" {
		record, err := dh.idempotencyService.Lookup(c.Request.Context(), rd.CompanyID, recomputeEndpoint, key, payload)
		if err != nil {
			response.RespondServiceError(c, err)
			return
		}
		if record != nil {
			c.Data(record.ResponseStatus, "application/json", record.ResponseBody)
			return
		}
	}

	result, err := dh.dashboardService.Recompute(c.Request.Context(), year)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	if key != "" {
		userID := rd.UserID
		if err := dh.idempotencyService.Store(c.Request.Context(), nil, rd.CompanyID, &userID, recomputeEndpoint, key, payload, result, http.StatusOK); err != nil {
			response.RespondServiceError(c, err)
			return
		}
	}
	response.RespondOK(c, result)
}
