package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"casedb-backend/document"
	"casedb-backend/extract"
	"casedb-backend/models"
	"casedb-backend/service"

	"github.com/gin-gonic/gin"
)

// JudgmentExtractor extracts a single judgment
type JudgmentExtractor interface {
	ExtractDocument(ctx context.Context, req service.ExtractDocumentRequest) (*service.ExtractDocumentResult, error)
}

// JudgmentHandler handles HTTP requests for judgment extraction
type JudgmentHandler struct {
	extractor         JudgmentExtractor
	maxFileSize       int64
	allowedExtensions map[string]bool
}

// NewJudgmentHandler creates a new judgment handler
func NewJudgmentHandler(extractor JudgmentExtractor) *JudgmentHandler {
	return &JudgmentHandler{
		extractor:   extractor,
		maxFileSize: 10 * 1024 * 1024, // 10MB
		allowedExtensions: map[string]bool{
			".html": true,
			".htm":  true,
		},
	}
}

// ExtractJudgment handles POST /api/judgments/extract
func (h *JudgmentHandler) ExtractJudgment(c *gin.Context) {
	court := c.DefaultPostForm("court", string(models.CourtSupreme))
	link := strings.TrimSpace(c.PostForm("link"))

	// Get file from form
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	// Validate file size
	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	if !h.allowedExtensions[strings.ToLower(filepath.Ext(fileHeader.Filename))] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "Only HTML judgment pages are accepted",
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, h.maxFileSize))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_READ_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	if link == "" {
		link = "upload://" + fileHeader.Filename
	}

	result, err := h.extractor.ExtractDocument(c.Request.Context(), service.ExtractDocumentRequest{
		Raw:   raw,
		Link:  link,
		Court: court,
	})
	if err != nil {
		status, code := http.StatusInternalServerError, "EXTRACTION_FAILED"
		switch {
		case errors.Is(err, models.ErrInvalidCourtTag):
			status, code = http.StatusBadRequest, "INVALID_COURT"
		case errors.Is(err, document.ErrMalformedDocument):
			status, code = http.StatusUnprocessableEntity, "MALFORMED_DOCUMENT"
		case errors.Is(err, extract.ErrIncompleteRecord):
			status, code = http.StatusUnprocessableEntity, "INCOMPLETE_RECORD"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Record,
	})
}
