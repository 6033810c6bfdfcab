package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FieldTypes lists the value types a field definition may declare.
var FieldTypes = []string{"text", "number", "date", "email", "phone", "currency", "address", "url", "boolean"}

// DocumentField is a named, typed slot a user wants extracted from a document.
type DocumentField struct {
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	// DocumentID references the owning document. Field names are unique per
	// document, enforced by a composite unique index.
	DocumentID string `gorm:"type:uuid;not null;uniqueIndex:idx_document_fields_name" json:"documentId"`

	Name        string `gorm:"not null;uniqueIndex:idx_document_fields_name" json:"name"`
	Type        string `gorm:"type:varchar(16);not null;default:'text'" json:"type"`
	Description string `json:"description"`

	// PageNumber and BoundingBox record where on the source document the value
	// was found, when the analysis service returned a bounding region. They are
	// stored here so the viewer does not need to re-derive them.
	PageNumber  *int           `json:"pageNumber"`
	BoundingBox datatypes.JSON `json:"boundingBox"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f *DocumentField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// ValidFieldType reports whether t is one of the supported field types.
func ValidFieldType(t string) bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}
