package models

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a contract stored in the document registry
type Document struct {
	ID           uuid.UUID         `json:"id"`
	SessionID    string            `json:"session_id"`
	Filename     string            `json:"filename"`
	MimeType     string            `json:"mime_type"`
	Size         int64             `json:"size"`
	StoragePath  string            `json:"-"`
	LastAnalysis *DocumentAnalysis `json:"last_analysis,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	AnalyzedAt   *time.Time        `json:"analyzed_at,omitempty"`
}
