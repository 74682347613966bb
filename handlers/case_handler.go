package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"casedb-backend/export"
	"casedb-backend/service"

	"github.com/gin-gonic/gin"
)

// CaseSearcher answers case queries
type CaseSearcher interface {
	Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error)
}

// CaseHandler handles HTTP requests for case search
type CaseHandler struct {
	searcher CaseSearcher
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(searcher CaseSearcher) *CaseHandler {
	return &CaseHandler{searcher: searcher}
}

// SearchCases handles GET /api/cases/search?q=
func (h *CaseHandler) SearchCases(c *gin.Context) {
	result, ok := h.search(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"mode":    result.Query.Mode,
			"key":     result.Query.Key,
			"count":   len(result.Records),
			"rows":    result.Records,
			"summary": result.Summary,
		},
	})
}

// ExportCases handles GET /api/cases/export?q=
func (h *CaseHandler) ExportCases(c *gin.Context) {
	result, ok := h.search(c)
	if !ok {
		return
	}

	data, err := export.WriteXLSX(result.Records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EXPORT_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	filename := fmt.Sprintf("cases_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *CaseHandler) search(c *gin.Context) (*service.SearchResult, bool) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_QUERY",
				"message": "Query parameter q is required",
			},
		})
		return nil, false
	}

	top := 0
	if s := c.Query("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_TOP",
					"message": "top must be a positive integer",
				},
			})
			return nil, false
		}
		top = n
	}

	result, err := h.searcher.Search(c.Request.Context(), service.SearchRequest{Query: query, TopCitations: top})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SEARCH_FAILED",
				"message": err.Error(),
			},
		})
		return nil, false
	}
	return result, true
}
