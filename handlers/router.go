package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter registers every route. runs may be nil when no run store is
// configured.
func NewRouter(cases *CaseHandler, judgments *JudgmentHandler, runs *RunHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Case endpoints
		api.GET("/cases/search", cases.SearchCases)
		api.GET("/cases/export", cases.ExportCases)

		// Judgment endpoints
		api.POST("/judgments/extract", judgments.ExtractJudgment)

		// Run endpoints
		if runs != nil {
			api.GET("/runs/latest", runs.GetLatestRun)
			api.GET("/runs/:id", runs.GetRun)
		}
	}

	return r
}
