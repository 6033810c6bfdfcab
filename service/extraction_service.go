package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	model "github.com/sriramkolli-zennith/DocExt/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FieldRequest is one requested field in a process call. The wire format
// accepts either a bare string ("InvoiceTotal") or an object with name, type
// and description; both forms are normalized here, once, at the boundary.
type FieldRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

func (f *FieldRequest) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		f.Name = name
		return nil
	}

	type fieldRequestAlias FieldRequest
	var alias fieldRequestAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*f = FieldRequest(alias)
	return nil
}

// normalize fills defaults: type "text", description synthesized from name.
func (f FieldRequest) normalize() FieldRequest {
	if f.Type == "" || !model.ValidFieldType(f.Type) {
		f.Type = "text"
	}
	if f.Description == "" {
		f.Description = fmt.Sprintf("Field: %s", f.Name)
	}
	return f
}

// ProcessRequest is the input for one extraction run.
type ProcessRequest struct {
	DocumentID      string         `json:"documentId"`
	DocumentName    string         `json:"documentName"`
	FilePath        string         `json:"filePath"`
	PublicURL       string         `json:"publicUrl"`
	FieldsToExtract []FieldRequest `json:"fieldsToExtract"`
}

// ProcessResult reports a completed extraction run. FieldsExtracted counts the
// fields the analysis service returned, not the subset that matched.
type ProcessResult struct {
	DocumentID      string `json:"documentId"`
	FieldsExtracted int    `json:"fieldsExtracted"`
}

// DocumentIndexer pushes a completed document into the search index.
type DocumentIndexer interface {
	IndexDocument(documentID string) error
}

// ExtractionService coordinates one extraction run end to end: document and
// field bookkeeping, the analysis call, field matching and value upserts.
type ExtractionService struct {
	db       *gorm.DB
	analysis *AnalysisClient
	indexer  DocumentIndexer // optional, best-effort
}

func NewExtractionService(db *gorm.DB, analysis *AnalysisClient, indexer DocumentIndexer) *ExtractionService {
	return &ExtractionService{db: db, analysis: analysis, indexer: indexer}
}

// ProcessDocument runs the extraction pipeline for one document.
//
// The analysis call is the only hard-fail point after validation: if it fails,
// the document is marked failed (best-effort) and the error is returned.
// Bookkeeping writes after a successful analysis are best-effort; failures are
// logged as persistence warnings and the run proceeds.
//
// Concurrent runs for the same document are not mutually excluded. The upsert
// key (document_id, field_id) keeps the final value set deterministic under a
// race, though intermediate status flips may interleave.
func (s *ExtractionService) ProcessDocument(ctx context.Context, userID string, req ProcessRequest) (*ProcessResult, error) {
	log.Println("Starting document extraction run")

	if req.PublicURL == "" || len(req.FieldsToExtract) == 0 {
		return nil, NewPipelineError(CodeInvalidRequest, "publicUrl and at least one field to extract are required")
	}

	normalized := make([]FieldRequest, 0, len(req.FieldsToExtract))
	for _, f := range req.FieldsToExtract {
		if f.Name == "" {
			return nil, NewPipelineError(CodeInvalidRequest, "field request with empty name")
		}
		normalized = append(normalized, f.normalize())
	}
	log.Printf("Normalized %d field request(s)", len(normalized))

	docID := req.DocumentID
	if docID == "" {
		doc := model.Document{
			UserID:      userID,
			Name:        defaultDocumentName(req.DocumentName),
			StoragePath: req.FilePath,
			OriginalURL: req.PublicURL,
			Status:      model.StatusProcessing,
		}
		if err := s.db.Create(&doc).Error; err != nil {
			return nil, fmt.Errorf("failed to create document record: %w", err)
		}
		docID = doc.ID
		log.Printf("Document created with ID: %s", docID)

		fields := make([]model.DocumentField, 0, len(normalized))
		for _, f := range normalized {
			fields = append(fields, model.DocumentField{
				DocumentID:  docID,
				Name:        f.Name,
				Type:        f.Type,
				Description: f.Description,
			})
		}
		if err := s.db.Create(&fields).Error; err != nil {
			LogPersistenceWarning("insert field definitions", err)
		} else {
			log.Printf("%d field definition(s) inserted", len(fields))
		}
	} else {
		// Step-3 bookkeeping is best-effort: a document already sitting in
		// "processing" (concurrent re-run, crashed run) must still be
		// re-processable, so a rejected or failed status write is logged and
		// the run proceeds. Only the terminal writes keep the strict guard.
		if err := s.setStatus(docID, model.StatusProcessing, nil); err != nil {
			LogPersistenceWarning("mark document processing", err)
		} else {
			log.Printf("Existing document %s marked processing", docID)
		}
	}

	result, err := s.runAnalysis(ctx, req.PublicURL)
	if err != nil {
		if stErr := s.setStatus(docID, model.StatusFailed, nil); stErr != nil {
			LogPersistenceWarning("mark document failed", stErr)
		}
		return nil, err
	}

	serviceFields := result.Fields()
	log.Printf("Analysis returned %d field(s)", serviceFields.Len())

	// A rerun operates over every field currently defined on the document,
	// not just the ones named in this request.
	var docFields []model.DocumentField
	if err := s.db.Where("document_id = ?", docID).Order("created_at").Find(&docFields).Error; err != nil {
		LogPersistenceWarning("load field definitions", err)
	}

	for _, field := range docFields {
		row := model.ExtractedData{
			DocumentID: docID,
			FieldID:    field.ID,
		}

		match, ok := MatchField(field.Name, serviceFields)
		if !ok {
			log.Printf("Field %q: no match in analysis result", field.Name)
		} else {
			if match.FieldName != field.Name {
				log.Printf("Field %q matched %q via %s matching", field.Name, match.FieldName, match.Type)
			}
			if value, found := match.Field.StringValue(); found {
				row.Value = value
			}
			row.Confidence = match.Field.Confidence

			if region := match.Field.FirstRegion(); region != nil {
				s.updateFieldLocation(field.ID, region)
			}
		}

		if err := s.upsertExtractedData(&row); err != nil {
			LogPersistenceWarning(fmt.Sprintf("upsert extracted value for field %s", field.ID), err)
		}
	}

	now := time.Now()
	if err := s.setStatus(docID, model.StatusCompleted, &now); err != nil {
		LogPersistenceWarning("mark document completed", err)
	}
	log.Printf("Extraction run completed for document %s", docID)

	if s.indexer != nil {
		if err := s.indexer.IndexDocument(docID); err != nil {
			log.Printf("Search indexing for document %s failed: %v", docID, err)
		}
	}

	return &ProcessResult{DocumentID: docID, FieldsExtracted: serviceFields.Len()}, nil
}

// runAnalysis submits the document and polls the operation to completion.
func (s *ExtractionService) runAnalysis(ctx context.Context, fileURL string) (*AnalyzeResult, error) {
	operationURL, err := s.analysis.Submit(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	return s.analysis.Poll(ctx, operationURL)
}

// setStatus is the single mutation point for document status. Illegal
// transitions are rejected rather than written.
func (s *ExtractionService) setStatus(docID string, next model.DocumentStatus, processedAt *time.Time) error {
	var doc model.Document
	if err := s.db.First(&doc, "id = ?", docID).Error; err != nil {
		return err
	}
	if !doc.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s for document %s", doc.Status, next, docID)
	}

	updates := map[string]interface{}{"status": next}
	if processedAt != nil {
		updates["processed_at"] = processedAt
	}
	return s.db.Model(&model.Document{}).Where("id = ?", docID).Updates(updates).Error
}

// updateFieldLocation stores the spatial provenance on the field definition so
// viewers can highlight the region without re-running analysis. Best-effort;
// only written when the region carries both a page and a polygon.
func (s *ExtractionService) updateFieldLocation(fieldID string, region *BoundingRegion) {
	polygon := region.Polygon
	if len(polygon) == 0 {
		polygon = region.BoundingBox
	}
	if len(polygon) == 0 || region.PageNumber == 0 {
		return
	}

	boxJSON, err := json.Marshal(polygon)
	if err != nil {
		LogPersistenceWarning("marshal bounding box", err)
		return
	}

	err = s.db.Model(&model.DocumentField{}).Where("id = ?", fieldID).Updates(map[string]interface{}{
		"page_number":  region.PageNumber,
		"bounding_box": datatypes.JSON(boxJSON),
	}).Error
	if err != nil {
		LogPersistenceWarning(fmt.Sprintf("update location for field %s", fieldID), err)
	}
}

// upsertExtractedData writes one value row keyed by (document_id, field_id),
// replacing any prior value for the same pair.
func (s *ExtractionService) upsertExtractedData(row *model.ExtractedData) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "field_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "confidence", "updated_at"}),
	}).Create(row).Error
}

func defaultDocumentName(name string) string {
	if name == "" {
		return "Untitled Document"
	}
	return name
}
