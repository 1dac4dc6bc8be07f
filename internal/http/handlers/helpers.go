package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verdelo/carbonledger-backend/internal/http/response"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
)

// defaultReportingYear is the year assumed when a client omits ?year=.
const defaultReportingYear = 2025

// requestData pulls the authenticated caller off the request context,
// aborting with 401 when the auth middleware did not run.
func requestData(c *gin.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing request identity"))
		return nil, false
	}
	return rd, true
}

// yearQuery parses ?year=, falling back when the parameter is absent.
func yearQuery(c *gin.Context, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query("year"))
	if raw == "" {
		return fallback, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("year must be an integer")
	}
	return year, nil
}

// optionalYearQuery parses ?year= into a nullable filter.
func optionalYearQuery(c *gin.Context) (*int, error) {
	raw := strings.TrimSpace(c.Query("year"))
	if raw == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("year must be an integer")
	}
	return &year, nil
}

// idempotencyKey reads the Idempotency-Key request header.
func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}
