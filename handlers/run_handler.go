package handlers

import (
	"context"
	"errors"
	"net/http"

	"casedb-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RunGetter reads processing runs
type RunGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingRun, error)
	GetLatest(ctx context.Context, court models.Court) (*models.ProcessingRun, error)
}

// RunHandler handles HTTP requests for processing runs
type RunHandler struct {
	runs RunGetter
}

// NewRunHandler creates a new run handler
func NewRunHandler(runs RunGetter) *RunHandler {
	return &RunHandler{runs: runs}
}

// GetRun handles GET /api/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid run ID format",
			},
		})
		return
	}

	run, err := h.runs.GetByID(c.Request.Context(), id)
	h.respond(c, run, err)
}

// GetLatestRun handles GET /api/runs/latest?court=
func (h *RunHandler) GetLatestRun(c *gin.Context) {
	court, err := models.ParseCourt(c.Query("court"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_COURT",
				"message": err.Error(),
			},
		})
		return
	}

	run, err := h.runs.GetLatest(c.Request.Context(), court)
	h.respond(c, run, err)
}

func (h *RunHandler) respond(c *gin.Context, run *models.ProcessingRun, err error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Processing run not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "RETRIEVAL_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    run,
	})
}
