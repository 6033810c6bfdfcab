package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExtractedData holds the extraction result for one field on one document.
// At most one row exists per (document_id, field_id); re-running extraction
// overwrites the prior value rather than accumulating history.
type ExtractedData struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	DocumentID string `gorm:"type:uuid;not null;uniqueIndex:idx_extracted_data_field" json:"documentId"`
	FieldID    string `gorm:"type:uuid;not null;uniqueIndex:idx_extracted_data_field" json:"fieldId"`

	// Value is the extracted content normalized to string form. Empty when the
	// field was not found in the analysis result.
	Value string `json:"value"`

	// Confidence is the service-reported score in [0,1], nil when not extracted.
	Confidence *float64 `json:"confidence"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *ExtractedData) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
