// Package extract reads invoice fields from uploaded documents so the upload
// form can be prefilled.
//
// Two extractors are provided. DocumentAIExtractor runs a Google Cloud
// Document AI invoice parser. CompletionExtractor wraps another extractor and
// fills what it missed from Vision OCR text, asking an OpenAI chat model when
// an API key is configured and falling back to plain-text date detection when
// it is not.
//
// Extraction is a convenience: callers treat every error as non-fatal and
// keep whatever the user entered.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDocumentSize is the largest document sent for synchronous processing (20MB).
const MaxDocumentSize = 20 << 20

// Draft field names, as reported by Draft.Missing.
const (
	FieldInvoiceDate   = "invoice_date"
	FieldDescription   = "description"
	FieldAmount        = "amount"
	FieldInvoiceNumber = "invoice_number"
	FieldSupplier      = "supplier"
)

// Extractor reads invoice fields from a document.
type Extractor interface {
	Extract(ctx context.Context, content []byte, mimeType string) (*Draft, error)
}

// Draft holds the fields read from a document. Zero values mean not found.
type Draft struct {
	InvoiceDate   time.Time
	Description   string
	Amount        decimal.Decimal
	InvoiceNumber string
	Supplier      string

	// Confidence is the lowest confidence among the fields that were found,
	// between 0 and 1.
	Confidence float32

	// Source names the extractors that contributed, in order.
	Source []string
}

// Missing lists the fields that were not found.
func (d *Draft) Missing() []string {
	var missing []string
	if d.InvoiceDate.IsZero() {
		missing = append(missing, FieldInvoiceDate)
	}
	if strings.TrimSpace(d.Description) == "" {
		missing = append(missing, FieldDescription)
	}
	if d.Amount.IsZero() {
		missing = append(missing, FieldAmount)
	}
	if strings.TrimSpace(d.InvoiceNumber) == "" {
		missing = append(missing, FieldInvoiceNumber)
	}
	if strings.TrimSpace(d.Supplier) == "" {
		missing = append(missing, FieldSupplier)
	}
	return missing
}

// Empty reports whether no field was found.
func (d *Draft) Empty() bool {
	return len(d.Missing()) == 5
}

// fill copies fields from other that d is missing. Fields already present
// in d are kept.
func (d *Draft) fill(other *Draft) {
	if other == nil {
		return
	}
	if d.InvoiceDate.IsZero() {
		d.InvoiceDate = other.InvoiceDate
	}
	if strings.TrimSpace(d.Description) == "" {
		d.Description = other.Description
	}
	if d.Amount.IsZero() {
		d.Amount = other.Amount
	}
	if strings.TrimSpace(d.InvoiceNumber) == "" {
		d.InvoiceNumber = other.InvoiceNumber
	}
	if strings.TrimSpace(d.Supplier) == "" {
		d.Supplier = other.Supplier
	}
	d.observe(other.Confidence)
	d.Source = append(d.Source, other.Source...)
}

// observe lowers Confidence to c when c is the weakest score seen so far.
func (d *Draft) observe(c float32) {
	if c <= 0 {
		return
	}
	if d.Confidence == 0 || c < d.Confidence {
		d.Confidence = c
	}
}
