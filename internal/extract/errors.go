package extract

import (
	"errors"
	"fmt"
)

// Extraction errors
var (
	// ErrMissingCredentials is returned when no Google Cloud or OpenAI
	// credentials are configured for the requested extractor.
	ErrMissingCredentials = errors.New("missing extraction credentials")

	// ErrInvalidConfiguration is returned when project, location or processor
	// settings are incomplete.
	ErrInvalidConfiguration = errors.New("invalid extraction configuration")

	// ErrUnsupportedDocument is returned for content the extractor cannot read.
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// ErrDocumentTooLarge is returned when the document exceeds MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrPermissionDenied is returned when the credentials lack access to the
	// processor.
	ErrPermissionDenied = errors.New("permission denied by extraction service")

	// ErrQuotaExceeded is returned when the service rejects the request for
	// quota reasons.
	ErrQuotaExceeded = errors.New("extraction quota exceeded")

	// ErrProcessorNotFound is returned when the Document AI processor does not
	// exist in the configured project and location.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrExtractionFailed is returned when the service fails for any other
	// reason.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNoFields is returned when nothing usable could be read from the
	// document.
	ErrNoFields = errors.New("no invoice fields found")
)

// ExtractionError wraps an extraction failure with the operation that failed.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "DocumentAI.Extract").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		return err
	}

	return &ExtractionError{Op: op, Err: err, Details: details}
}
