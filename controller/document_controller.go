package controller

import (
	"log"
	"net/http"

	service "github.com/sriramkolli-zennith/DocExt/service"

	"github.com/gin-gonic/gin"
)

// DocumentController manages HTTP requests for uploads, document lists,
// extracted-data readback and search.
type DocumentController struct {
	service *service.DocumentService
}

// NewDocumentController initializes the controller with the service
func NewDocumentController(service *service.DocumentService) *DocumentController {
	return &DocumentController{service}
}

// statusForError maps a pipeline error code to an HTTP status.
func statusForError(err error) int {
	switch service.ErrorCode(err) {
	case service.CodeInvalidRequest:
		return http.StatusBadRequest
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeServiceUnavailable, service.CodeAnalysisFailed,
		service.CodeAnalysisTimeout, service.CodeMissingOperationHandle:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UploadDocument handles the file upload request
func (dc *DocumentController) UploadDocument(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	result, err := dc.service.UploadDocument(ctx.GetString("userID"), file, header)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"filePath":  result.FilePath,
		"publicUrl": result.PublicURL,
	})
}

// GetAllDocuments retrieves the caller's documents
func (dc *DocumentController) GetAllDocuments(c *gin.Context) {
	log.Println("DocumentController: Fetching all documents")

	docs, err := dc.service.GetAllDocuments(c.GetString("userID"))
	if err != nil {
		log.Printf("Error fetching documents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve documents",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// GetExtractedData returns one document with its field definitions and values
func (dc *DocumentController) GetExtractedData(c *gin.Context) {
	documentID := c.Param("id")
	if documentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing documentId"})
		return
	}

	data, err := dc.service.GetExtractedData(c.GetString("userID"), documentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, data)
}

// AddField creates one field definition on an existing document
func (dc *DocumentController) AddField(c *gin.Context) {
	documentID := c.Param("id")

	var req service.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid field payload"})
		return
	}

	field, err := dc.service.AddField(c.GetString("userID"), documentID, req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"field": field})
}

// SearchDocuments searches indexed documents by name and extracted content
func (dc *DocumentController) SearchDocuments(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	results, err := dc.service.SearchDocuments(query)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Search completed successfully",
		"results": results,
	})
}
