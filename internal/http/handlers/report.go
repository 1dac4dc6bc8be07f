package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/verdelo/carbonledger-backend/internal/domain"
	"github.com/verdelo/carbonledger-backend/internal/http/response"
	"github.com/verdelo/carbonledger-backend/internal/services"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GET /api/reports
func (rh *ReportHandler) List(c *gin.Context) {
	year, err := optionalYearQuery(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	reports, err := rh.reportService.List(c.Request.Context(), year)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	items := make([]gin.H, 0, len(reports))
	for _, report := range reports {
		items = append(items, gin.H{
			"id":                    report.ID,
			"title":                 report.Title,
			"company_name_snapshot": report.CompanyNameSnapshot,
			"reporting_year":        report.ReportingYear,
			"total_kg_co2e":         report.TotalKgCO2e,
			"status":                report.Status,
			"created_at":            report.CreatedAt,
			"shareable_token":       report.ShareableToken,
		})
	}
	response.RespondOK(c, gin.H{"reports": items})
}

// POST /api/reports
func (rh *ReportHandler) Create(c *gin.Context) {
	var req struct {
		Title         string `json:"title"`
		ReportingYear int    `json:"reporting_year"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Title == "" || req.ReportingYear == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_request",
			fmt.Errorf("title and reporting_year are required"))
		return
	}
	report, err := rh.reportService.Create(c.Request.Context(), req.Title, req.ReportingYear)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, rh.reportDetail(report))
}

// GET /api/reports/:id
func (rh *ReportHandler) Get(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid report id"))
		return
	}
	report, err := rh.reportService.Get(c.Request.Context(), reportID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, rh.reportDetail(report))
}

// POST /api/reports/:id/publish
func (rh *ReportHandler) Publish(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid report id"))
		return
	}
	result, err := rh.reportService.Publish(c.Request.Context(), reportID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// GET /api/reports/:id/chart
func (rh *ReportHandler) Chart(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid report id"))
		return
	}
	png, report, err := rh.reportService.Chart(c.Request.Context(), reportID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", fmt.Sprintf("carbonly-report-%d.png", report.ReportingYear)))
	c.Data(http.StatusOK, "image/png", png)
}

// GET /api/r/:share_token
func (rh *ReportHandler) GetPublic(c *gin.Context) {
	report, err := rh.reportService.GetPublic(c.Request.Context(), c.Param("share_token"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, report)
}

func (rh *ReportHandler) reportDetail(report *types.Report) gin.H {
	return gin.H{
		"id":                    report.ID,
		"title":                 report.Title,
		"company_name_snapshot": report.CompanyNameSnapshot,
		"reporting_year":        report.ReportingYear,
		"total_kg_co2e":         report.TotalKgCO2e,
		"status":                report.Status,
		"shareable_token":       report.ShareableToken,
		"content_snapshot":      report.ContentSnapshot,
		"chart_url":             rh.reportService.ChartURL(report),
		"created_at":            report.CreatedAt,
		"generated_at":          report.GeneratedAt,
		"published_at":          report.PublishedAt,
	}
}
