package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/verdelo/carbonledger-backend/internal/http/response"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	"github.com/verdelo/carbonledger-backend/internal/services"
)

type IntegrationHandler struct {
	integrationService services.IntegrationService
	idempotencyService services.IdempotencyService
}

func NewIntegrationHandler(integrationService services.IntegrationService, idempotencyService services.IdempotencyService) *IntegrationHandler {
	return &IntegrationHandler{
		integrationService: integrationService,
		idempotencyService: idempotencyService,
	}
}

// GET /api/integrations
func (ih *IntegrationHandler) List(c *gin.Context) {
	connections, err := ih.integrationService.List(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"integrations": connections})
}

// POST /api/integrations/:provider/sync
func (ih *IntegrationHandler) Sync(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	provider := c.Param("provider")
	endpoint := fmt.Sprintf("POST /api/integrations/%s/sync", provider)
	payload := map[string]interface{}{"provider": provider}

	key := idempotencyKey(c)
	if key != "" && ih.replayStored(c, rd.CompanyID, endpoint, key, payload) {
		return
	}

	result, err := ih.integrationService.Sync(c.Request.Context(), provider)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	if key != "" && !ih.storeResult(c, rd, endpoint, key, payload, result) {
		return
	}
	response.RespondOK(c, result)
}

// POST /api/integrations/sync
func (ih *IntegrationHandler) SyncAll(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	endpoint := "POST /api/integrations/sync"
	payload := map[string]interface{}{"provider": "all"}

	key := idempotencyKey(c)
	if key != "" && ih.replayStored(c, rd.CompanyID, endpoint, key, payload) {
		return
	}

	results, err := ih.integrationService.SyncAll(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	if key != "" && !ih.storeResult(c, rd, endpoint, key, payload, results) {
		return
	}
	response.RespondOK(c, gin.H{"results": results})
}

// POST /api/integrations/:provider/estimate
func (ih *IntegrationHandler) Estimate(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	provider := c.Param("provider")
	endpoint := fmt.Sprintf("POST /api/integrations/%s/estimate", provider)
	payload := map[string]interface{}{"provider": provider}

	key := idempotencyKey(c)
	if key != "" && ih.replayStored(c, rd.CompanyID, endpoint, key, payload) {
		return
	}

	result, err := ih.integrationService.Estimate(c.Request.Context(), provider)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	if key != "" && !ih.storeResult(c, rd, endpoint, key, payload, result) {
		return
	}
	response.RespondOK(c, result)
}

// POST /api/integrations/manual/activity
//
// Registered as /:provider/activity because gin cannot mix a static
// "manual" segment with the :provider wildcard; only "manual" is valid.
func (ih *IntegrationHandler) CreateManualActivity(c *gin.Context) {
	if c.Param("provider") != "manual" {
		response.RespondError(c, http.StatusNotFound, "not_found", errors.New("not found"))
		return
	}
	var req services.ManualActivityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	activity, err := ih.integrationService.CreateManualActivity(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"id":     activity.ID.String(),
		"status": "created",
	})
}

// POST /api/integrations/manual/upload
func (ih *IntegrationHandler) UploadCSV(c *gin.Context) {
	if c.Param("provider") != "manual" {
		response.RespondError(c, http.StatusNotFound, "not_found", errors.New("not found"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := ih.integrationService.UploadCSV(c.Request.Context(), content)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// GET /api/integrations/manual/sample-csv
func (ih *IntegrationHandler) SampleCSV(c *gin.Context) {
	if c.Param("provider") != "manual" {
		response.RespondError(c, http.StatusNotFound, "not_found", errors.New("not found"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="activity-template.csv"`)
	c.Data(http.StatusOK, "text/csv", services.SampleActivityCSV())
}

// replayStored writes the stored response for a seen idempotency key. It
// reports true when the request is finished, replayed or errored.
func (ih *IntegrationHandler) replayStored(c *gin.Context, companyID uuid.UUID, endpoint, key string, payload interface{}) bool {
	record, err := ih.idempotencyService.Lookup(c.Request.Context(), companyID, endpoint, key, payload)
	if err != nil {
		response.RespondServiceError(c, err)
		return true
	}
	if record == nil {
		return false
	}
	c.Data(record.ResponseStatus, "application/json", record.ResponseBody)
	return true
}

// storeResult persists the response for later replays. It reports false
// when storing failed and an error response was already written.
func (ih *IntegrationHandler) storeResult(c *gin.Context, rd *ctxutil.RequestData, endpoint, key string, payload, result interface{}) bool {
	userID := rd.UserID
	err := ih.idempotencyService.Store(c.Request.Context(), nil, rd.CompanyID, &userID, endpoint, key, payload, result, http.StatusOK)
	if err != nil {
		response.RespondServiceError(c, err)
		return false
	}
	return true
}
