package controller

import (
	"log"
	"net/http"

	service "github.com/sriramkolli-zennith/DocExt/service"

	"github.com/gin-gonic/gin"
)

// ExtractionController exposes the extraction pipeline entry point.
type ExtractionController struct {
	service *service.ExtractionService
}

func NewExtractionController(service *service.ExtractionService) *ExtractionController {
	return &ExtractionController{service}
}

// ProcessDocument runs one extraction for one document and set of fields
func (ec *ExtractionController) ProcessDocument(c *gin.Context) {
	var req service.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	result, err := ec.service.ProcessDocument(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		log.Printf("Extraction failed: %v", err)
		c.JSON(statusForError(err), gin.H{
			"error": err.Error(),
			"code":  service.ErrorCode(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"documentId":      result.DocumentID,
		"message":         "Document processed successfully",
		"fieldsExtracted": result.FieldsExtracted,
	})
}
