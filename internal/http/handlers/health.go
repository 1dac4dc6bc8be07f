package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/verdelo/carbonledger-backend/internal/http/response"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler { return &HealthHandler{db: db} }

// GET /
func (h *HealthHandler) Root(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": "ok", "app": "Carbonly API"})
}

// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		response.RespondOK(c, gin.H{"status": "degraded", "database": "disconnected", "error": err.Error()})
		return
	}
	response.RespondOK(c, gin.H{"status": "healthy", "database": "connected"})
}
