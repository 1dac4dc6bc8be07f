package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/verdelo/carbonledger-backend/internal/http/response"
	"github.com/verdelo/carbonledger-backend/internal/services"
)

type MethodologyHandler struct{}

func NewMethodologyHandler() *MethodologyHandler { return &MethodologyHandler{} }

// GET /api/methodology
func (mh *MethodologyHandler) Get(c *gin.Context) {
	response.RespondOK(c, services.MethodologyDescriptor())
}
