// Package ocr reads the text of invoice documents with the Google Cloud
// Vision API.
//
// PDF and TIFF files go through file annotation, which handles up to
// MaxPagesSync pages synchronously. JPEG and PNG images go through image
// annotation. Both use document text detection.
package ocr

import (
	"context"
	"time"
)

// Service extracts text from a document.
type Service interface {
	Text(ctx context.Context, content []byte, mimeType string) (*Result, error)
}

// Result contains the text of a document with metadata.
type Result struct {
	// Text is the text of all pages in reading order, separated by page markers.
	Text string `json:"text"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average page confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// LanguageCodes contains the detected languages in the document.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessingDuration is how long the Vision call took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
