package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentStatus is the processing state of an uploaded document.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// CanTransitionTo reports whether moving to next is a legal status change.
// A document always passes through "processing" on its way to a terminal
// state; re-running extraction on a completed or failed document is allowed.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch next {
	case StatusProcessing:
		return s != StatusProcessing
	case StatusCompleted, StatusFailed:
		return s == StatusProcessing
	default:
		return false
	}
}

// Document represents an uploaded file tracked through the extraction pipeline.
type Document struct {
	// ID is a unique identifier for the document, stored as a UUID in the database.
	ID string `gorm:"type:uuid;primaryKey" json:"id"`

	// UserID is the owner of the document, as reported by the auth layer.
	UserID string `gorm:"index" json:"userId"`

	// Name is the display name shown in document lists.
	Name string `gorm:"not null" json:"name"`

	// StoragePath is the object key of the uploaded file in the storage bucket.
	StoragePath string `json:"storagePath"`

	// OriginalURL is the publicly reachable URL the analysis service reads from.
	OriginalURL string `json:"originalUrl"`

	// Status tracks the document through pending/processing/completed/failed.
	// It is mutated only by the extraction service.
	Status DocumentStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// ProcessedAt is set only when an extraction run completes successfully.
	ProcessedAt *time.Time `json:"processedAt"`
}

// BeforeCreate is a GORM hook that assigns a UUID when none was supplied.
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
