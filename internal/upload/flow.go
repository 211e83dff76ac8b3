// Package upload implements the invoice upload flow: selecting and validating
// a document, then attaching it to a payment record as a document-only
// invoice, optionally replacing the record's current document.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"paydesk/internal/api"
	"paydesk/internal/extract"
	"paydesk/internal/logger"
	"paydesk/pkg/models"
)

// Uploader sends an invoice upload to the backend.
type Uploader interface {
	UploadInvoice(ctx context.Context, r api.UploadInvoiceRequest) (*api.UploadResult, error)
}

// State is the position of the flow in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateFileSelected
	StateUploading
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileSelected:
		return "file-selected"
	case StateUploading:
		return "uploading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fields are the user-entered form values.
type Fields struct {
	InvoiceDate        string
	Description        string
	IsIncorrectInvoice bool
	IncorrectReason    string
}

// Snapshot is a copy of the flow's visible state.
type Snapshot struct {
	State     State
	PaymentID string
	FileName  string
	Fields    Fields
	Message   string
	Replacing string
	Result    *api.UploadResult
}

// Flow is one upload form bound to a payment record. It is safe for
// concurrent use.
type Flow struct {
	uploader  Uploader
	paymentID string
	replacing string
	log       zerolog.Logger

	mu      sync.Mutex
	state   State
	file    *File
	fields  Fields
	message string
	result  *api.UploadResult
}

// NewFlow creates a flow that adds a document to paymentID.
func NewFlow(uploader Uploader, paymentID string) *Flow {
	return &Flow{
		uploader:  uploader,
		paymentID: paymentID,
		state:     StateIdle,
		log:       logger.WithComponent("upload").With().Str("payment_id", paymentID).Logger(),
	}
}

// NewReplaceFlow creates a flow that supersedes existing, the document
// currently shown for paymentID. The form starts with the existing
// document's date and description.
func NewReplaceFlow(uploader Uploader, paymentID string, existing models.Invoice) *Flow {
	flow := NewFlow(uploader, paymentID)
	flow.replacing = existing.ID
	flow.fields = Fields{
		InvoiceDate: existing.InvoiceDate.DateString(),
		Description: existing.Description,
	}
	flow.log = flow.log.With().Str("replacing", existing.ID).Logger()
	return flow
}

// Snapshot returns a copy of the flow's state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		State:     f.state,
		PaymentID: f.paymentID,
		Fields:    f.fields,
		Message:   f.message,
		Replacing: f.replacing,
		Result:    f.result,
	}
	if f.file != nil {
		s.FileName = f.file.Name
	}
	return s
}

// SetFields replaces the form values without submitting.
func (f *Flow) SetFields(fields Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = fields
}

// SelectFile validates file and makes it the selected document. A rejected
// file clears the selection, stores the message and returns the flow to
// idle. An accepted file defaults an empty description to the file name.
func (f *Flow) SelectFile(file File) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateUploading {
		return ErrBusy
	}
	if file.Size == 0 && len(file.Content) > 0 {
		file.Size = int64(len(file.Content))
	}

	if err := file.Validate(); err != nil {
		var v *ValidationError
		errors.As(err, &v)
		f.file = nil
		f.state = StateIdle
		f.message = v.Message
		f.log.Debug().
			Str("file", file.Name).
			Str("mime_type", file.MIMEType).
			Int64("size", file.Size).
			Msg("File rejected")
		return err
	}

	f.file = &file
	f.state = StateFileSelected
	f.message = ""
	f.result = nil
	if strings.TrimSpace(f.fields.Description) == "" {
		f.fields.Description = file.Name
	}
	return nil
}

// Submit validates fields and uploads the selected file. Validation errors
// are returned before any request is made and leave the state unchanged. On
// failure the flow moves to StateFailed keeping the file and fields so the
// user can retry.
func (f *Flow) Submit(ctx context.Context, fields Fields) (*api.UploadResult, error) {
	const op = "upload.Submit"

	f.mu.Lock()
	if f.state == StateUploading {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.fields = fields
	req, err := f.buildRequest()
	if err != nil {
		var v *ValidationError
		if errors.As(err, &v) {
			f.message = v.Message
		}
		f.mu.Unlock()
		return nil, err
	}
	f.state = StateUploading
	f.message = ""
	f.mu.Unlock()

	f.log.Info().
		Str("file", req.File.Name).
		Int("bytes", len(req.File.Content)).
		Bool("replace", req.ReplaceExisting).
		Msg("Uploading invoice document")

	result, err := f.uploader.UploadInvoice(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = StateFailed
		f.message = api.Message(err, FallbackMessage)
		f.log.Warn().Err(err).Msg("Invoice upload failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f.state = StateSucceeded
	f.result = result
	if result != nil && result.Message != "" {
		f.message = result.Message
	}
	return result, nil
}

// buildRequest validates the form and assembles the upload. Must be called
// with f.mu held.
func (f *Flow) buildRequest() (api.UploadInvoiceRequest, error) {
	if f.file == nil {
		return api.UploadInvoiceRequest{}, newValidationError("file", ErrNoFile, "Please select a file to upload")
	}

	date := strings.TrimSpace(f.fields.InvoiceDate)
	if date == "" {
		return api.UploadInvoiceRequest{}, newValidationError("invoiceDate", ErrMissingField, "Invoice date is required")
	}
	invoiceDate, ok := parseInvoiceDate(date)
	if !ok {
		return api.UploadInvoiceRequest{}, newValidationError("invoiceDate", ErrInvalidDate, "Invoice date must be a date such as 2024-03-31")
	}

	description := strings.TrimSpace(f.fields.Description)
	if description == "" {
		return api.UploadInvoiceRequest{}, newValidationError("description", ErrMissingField, "Description is required")
	}

	req := api.UploadInvoiceRequest{
		PaymentID:     f.paymentID,
		File:          f.file.apiFile(),
		InvoiceDate:   invoiceDate,
		Description:   description,
		PaymentMethod: models.PaymentMethodDocumentOnly,
		Amount:        decimal.Zero,
		Option:        models.InvoiceOptionDocumentOnly,
	}
	if f.fields.IsIncorrectInvoice {
		req.IsIncorrectInvoice = true
		req.IncorrectReason = strings.TrimSpace(f.fields.IncorrectReason)
	}
	if f.replacing != "" {
		req.ReplaceExisting = true
		req.ExistingInvoiceID = f.replacing
	}
	return req, nil
}

// parseInvoiceDate accepts backend timestamps as well as the layouts found on
// invoices (31.05.2024, 31/05/2024, May 31, 2024) and returns YYYY-MM-DD.
func parseInvoiceDate(s string) (string, bool) {
	if ts, err := models.ParseTimestamp(s); err == nil && !ts.IsZero() {
		return ts.DateString(), true
	}
	t, err := extract.ParseDate(s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// Reset clears the selection, fields and messages.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateIdle
	f.file = nil
	f.fields = Fields{}
	f.message = ""
	f.result = nil
}

// Prefill fills the invoice date and description from the selected document
// when the user has not entered them. A description that is still the
// default file name counts as not entered.
func (f *Flow) Prefill(ctx context.Context, extractor extract.Extractor) (*extract.Draft, error) {
	const op = "upload.Prefill"

	f.mu.Lock()
	if f.file == nil {
		f.mu.Unlock()
		return nil, ErrNoFile
	}
	file := *f.file
	f.mu.Unlock()

	draft, err := extractor.Extract(ctx, file.Content, normalizeType(file.MIMEType))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil || f.file.Name != file.Name {
		return draft, nil
	}
	if strings.TrimSpace(f.fields.InvoiceDate) == "" && !draft.InvoiceDate.IsZero() {
		f.fields.InvoiceDate = draft.InvoiceDate.Format("2006-01-02")
	}
	desc := strings.TrimSpace(f.fields.Description)
	if (desc == "" || desc == file.Name) && draft.Description != "" {
		f.fields.Description = draft.Description
	}
	return draft, nil
}
