package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verdelo/carbonledger-backend/internal/http/response"
	"github.com/verdelo/carbonledger-backend/internal/services"
)

type CompanyHandler struct {
	companyService services.CompanyService
}

func NewCompanyHandler(companyService services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companyService: companyService}
}

// GET /api/company
func (ch *CompanyHandler) Get(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	company, err := ch.companyService.Get(c.Request.Context(), rd.CompanyID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, company)
}

// PUT /api/company
func (ch *CompanyHandler) UpdateProfile(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	var req services.CompanyProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	company, err := ch.companyService.UpdateProfile(c.Request.Context(), rd.CompanyID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, company)
}

// PUT /api/company/preferences
func (ch *CompanyHandler) UpdatePreferences(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	var req services.CompanyPreferencesUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	company, err := ch.companyService.UpdatePreferences(c.Request.Context(), rd.CompanyID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, company)
}

// GET /api/onboarding
func (ch *CompanyHandler) GetOnboarding(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	onboarding, err := ch.companyService.GetOnboarding(c.Request.Context(), rd.CompanyID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, onboarding)
}

// PUT /api/onboarding
func (ch *CompanyHandler) UpdateOnboarding(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	var req services.OnboardingUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	onboarding, err := ch.companyService.UpdateOnboarding(c.Request.Context(), rd.CompanyID, req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, onboarding)
}

// DELETE /api/company/data
func (ch *CompanyHandler) DeleteData(c *gin.Context) {
	rd, ok := requestData(c)
	if !ok {
		return
	}
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		response.RespondError(c, http.StatusBadRequest, "confirmation_required",
			errors.New("Confirmation required. Set 'confirm: true' in request body."))
		return
	}
	if err := ch.companyService.PurgeData(c.Request.Context(), rd.CompanyID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"status":  "deleted",
		"message": "All company data has been deleted",
	})
}
