package main

import (
	"log"
	"net/http"

	controller "github.com/sriramkolli-zennith/DocExt/controller"
	"github.com/sriramkolli-zennith/DocExt/initializers"
	middleware "github.com/sriramkolli-zennith/DocExt/middleware"
	service "github.com/sriramkolli-zennith/DocExt/service"

	"github.com/gin-gonic/gin"
)

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}
	if err := initializers.ConnectDB(); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
}

func main() {
	docService, err := service.NewDocumentService(initializers.DB)
	if err != nil {
		log.Fatalf("Failed to initialize document service: %s", err)
	}

	analysisClient, err := service.NewAnalysisClient()
	if err != nil {
		log.Fatalf("Failed to initialize analysis client: %s", err)
	}

	extractionService := service.NewExtractionService(initializers.DB, analysisClient, docService)

	docController := controller.NewDocumentController(docService)
	extractionController := controller.NewExtractionController(extractionService)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	// Global rate limiter for most routes
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Healthcheck endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	authed := router.Group("/", middleware.AuthRequired())

	// Sensitive routes with stricter rate limiting
	authed.POST("/upload",
		middleware.StrictRateLimiter.Limit(),
		docController.UploadDocument)

	authed.POST("/process",
		middleware.StrictRateLimiter.Limit(),
		extractionController.ProcessDocument)

	authed.GET("/documents", docController.GetAllDocuments)
	authed.GET("/documents/:id/data", docController.GetExtractedData)
	authed.POST("/documents/:id/fields", docController.AddField)
	authed.GET("/search", docController.SearchDocuments)

	router.Run(":8080")
}
