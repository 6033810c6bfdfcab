package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	model "github.com/sriramkolli-zennith/DocExt/models"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxUploadSize caps uploads at 50MB.
const maxUploadSize = 50 * 1024 * 1024

const documentsIndex = "documents"

// DocumentService handles document storage, readback and search.
type DocumentService struct {
	s3Client *s3.S3
	esClient *elasticsearch.Client
	db       *gorm.DB
}

// NewDocumentService initializes the service with an S3 client and Elasticsearch client
func NewDocumentService(db *gorm.DB) (*DocumentService, error) {
	region := os.Getenv("SUPABASE_REGION")
	endpoint := os.Getenv("SUPABASE_S3_ENDPOINT")
	accessKey := os.Getenv("SUPABASE_ACCESS_KEY")
	secretKey := os.Getenv("SUPABASE_SECRET_KEY")

	if region == "" || endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("missing required S3 configuration environment variables")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(endpoint),
		DisableSSL:       aws.Bool(false),
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	// Initialize Elasticsearch client
	esURL := os.Getenv("ELASTICSEARCH_URL")
	var esClient *elasticsearch.Client
	if esURL != "" {
		esConfig := elasticsearch.Config{
			Addresses: []string{esURL},
		}
		var err error
		esClient, err = elasticsearch.NewClient(esConfig)
		if err != nil {
			log.Printf("Warning: Failed to create Elasticsearch client: %v", err)
		}
	}

	return &DocumentService{s3Client: s3.New(sess), esClient: esClient, db: db}, nil
}

// UploadResult is returned after a file lands in the storage bucket.
type UploadResult struct {
	FilePath  string `json:"filePath"`
	PublicURL string `json:"publicUrl"`
}

// UploadDocument stores the file in the bucket under a per-user key and
// returns the storage path plus the public URL the analysis service will read.
func (s *DocumentService) UploadDocument(userID string, file multipart.File, header *multipart.FileHeader) (*UploadResult, error) {
	log.Printf("Uploading file: Name=%s, Size=%d", header.Filename, header.Size)

	if header.Size > maxUploadSize {
		return nil, NewPipelineError(CodeInvalidRequest, "file size exceeds 50MB limit")
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	bucket := os.Getenv("SUPABASE_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("bucket name not configured")
	}

	ext := filepath.Ext(header.Filename)
	filePath := fmt.Sprintf("%s/%d_%s%s", userID, time.Now().Unix(), uuid.NewString()[:8], ext)

	uploadInput := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(filePath),
		Body:        bytes.NewReader(fileBytes),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(header.Header.Get("Content-Type")),
	}

	if _, err := s.s3Client.PutObject(uploadInput); err != nil {
		return nil, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	publicURL := fmt.Sprintf("%s/object/public/%s/%s", os.Getenv("SUPABASE_S3_URL"), bucket, filePath)
	log.Printf("File stored at: %s", publicURL)

	return &UploadResult{FilePath: filePath, PublicURL: publicURL}, nil
}

// ExtractedField is one field definition joined with its extracted value.
type ExtractedField struct {
	FieldID          string          `json:"fieldId"`
	FieldName        string          `json:"fieldName"`
	FieldType        string          `json:"fieldType"`
	FieldDescription string          `json:"fieldDescription"`
	Value            string          `json:"value"`
	Confidence       *float64        `json:"confidence"`
	PageNumber       *int            `json:"pageNumber"`
	BoundingBox      json.RawMessage `json:"boundingBox"`
}

// DocumentData is the readback payload for one document.
type DocumentData struct {
	Document        model.Document   `json:"document"`
	ExtractedFields []ExtractedField `json:"extractedFields"`
}

// GetExtractedData returns a document owned by userID together with its field
// definitions and extracted values.
func (s *DocumentService) GetExtractedData(userID, documentID string) (*DocumentData, error) {
	var doc model.Document
	if err := s.db.First(&doc, "id = ? AND user_id = ?", documentID, userID).Error; err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}

	var fields []model.DocumentField
	if err := s.db.Where("document_id = ?", documentID).Order("created_at").Find(&fields).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch field definitions: %w", err)
	}

	var values []model.ExtractedData
	if err := s.db.Where("document_id = ?", documentID).Find(&values).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch extracted data: %w", err)
	}

	valueByField := make(map[string]model.ExtractedData, len(values))
	for _, v := range values {
		valueByField[v.FieldID] = v
	}

	out := make([]ExtractedField, 0, len(fields))
	for _, f := range fields {
		ef := ExtractedField{
			FieldID:          f.ID,
			FieldName:        f.Name,
			FieldType:        f.Type,
			FieldDescription: f.Description,
			PageNumber:       f.PageNumber,
			BoundingBox:      json.RawMessage(f.BoundingBox),
		}
		if v, ok := valueByField[f.ID]; ok {
			ef.Value = v.Value
			ef.Confidence = v.Confidence
		}
		out = append(out, ef)
	}

	return &DocumentData{Document: doc, ExtractedFields: out}, nil
}

// GetAllDocuments retrieves all documents owned by userID, newest first.
func (s *DocumentService) GetAllDocuments(userID string) ([]model.Document, error) {
	var documents []model.Document
	result := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&documents)
	if result.Error != nil {
		log.Printf("GetAllDocuments: Database query error: %v", result.Error)
		return nil, fmt.Errorf("failed to fetch documents: %w", result.Error)
	}
	log.Printf("GetAllDocuments: Retrieved %d documents", len(documents))
	return documents, nil
}

// AddField creates one field definition on an existing document, supporting
// the "add a field later and re-extract" flow.
func (s *DocumentService) AddField(userID, documentID string, req FieldRequest) (*model.DocumentField, error) {
	if req.Name == "" {
		return nil, NewPipelineError(CodeInvalidRequest, "field name is required")
	}

	var doc model.Document
	if err := s.db.First(&doc, "id = ? AND user_id = ?", documentID, userID).Error; err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}

	normalized := req.normalize()
	field := model.DocumentField{
		DocumentID:  documentID,
		Name:        normalized.Name,
		Type:        normalized.Type,
		Description: normalized.Description,
	}
	if err := s.db.Create(&field).Error; err != nil {
		return nil, fmt.Errorf("failed to create field: %w", err)
	}
	return &field, nil
}

// IndexDocument indexes a completed document with its extracted values so the
// dashboard search can find it by content. Indexing failures never break the
// extraction flow.
func (s *DocumentService) IndexDocument(documentID string) error {
	if s.esClient == nil {
		log.Println("Elasticsearch client not initialized. Skipping indexing.")
		return nil
	}

	var doc model.Document
	if err := s.db.First(&doc, "id = ?", documentID).Error; err != nil {
		log.Printf("Indexing skipped, document %s not loadable: %v", documentID, err)
		return nil
	}

	data, err := s.GetExtractedData(doc.UserID, documentID)
	if err != nil {
		log.Printf("Indexing skipped, extracted data for %s not loadable: %v", documentID, err)
		return nil
	}

	fieldValues := make(map[string]string, len(data.ExtractedFields))
	for _, f := range data.ExtractedFields {
		if f.Value != "" {
			fieldValues[f.FieldName] = f.Value
		}
	}

	payload := map[string]interface{}{
		"document_id": doc.ID,
		"user_id":     doc.UserID,
		"name":        doc.Name,
		"status":      doc.Status,
		"fields":      fieldValues,
		"timestamp":   time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal document for indexing: %w", err)
	}

	res, err := s.esClient.Index(
		documentsIndex,
		bytes.NewReader(body),
		s.esClient.Index.WithDocumentID(doc.ID),
		s.esClient.Index.WithContext(context.Background()),
	)
	if err != nil {
		log.Printf("Elasticsearch indexing error: %v", err)
		return nil // indexing never breaks the pipeline
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("Elasticsearch indexing failed: %s", res.String())
		return nil
	}

	log.Printf("Document %s indexed successfully", doc.ID)
	return nil
}

// SearchDocuments searches indexed documents by name and extracted content.
func (s *DocumentService) SearchDocuments(query string) ([]map[string]interface{}, error) {
	if s.esClient == nil {
		return nil, fmt.Errorf("elasticsearch client is not initialized")
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name", "fields.*"},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := s.esClient.Search(
		s.esClient.Search.WithContext(context.Background()),
		s.esClient.Search.WithIndex(documentsIndex),
		s.esClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hitsMap, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits structure in search response")
	}
	hitsArray, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid hits array in search response")
	}

	var documents []map[string]interface{}
	for _, hit := range hitsArray {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		documents = append(documents, source)
	}

	return documents, nil
}
