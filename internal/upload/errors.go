package upload

import (
	"errors"
	"fmt"
)

// FallbackMessage is shown when an upload fails without any better text.
const FallbackMessage = "Failed to upload invoice"

// Upload flow errors
var (
	// ErrInvalidFileType is returned when the selected file is not one of the
	// accepted document or image types.
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrFileTooLarge is returned when the selected file exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrNoFile is returned when submitting without a selected file.
	ErrNoFile = errors.New("no file selected")

	// ErrMissingField is returned when a required form field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidDate is returned when the invoice date cannot be parsed.
	ErrInvalidDate = errors.New("invalid invoice date")

	// ErrBusy is returned when the flow is already uploading.
	ErrBusy = errors.New("upload already in progress")
)

// ValidationError describes a selection or form field that was rejected
// before any request was made.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err was raised locally, before any request.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func newValidationError(field string, err error, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
