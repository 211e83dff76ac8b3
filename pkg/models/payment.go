package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the billing state of a monthly payment record.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPending PaymentStatus = "Pending"
	PaymentOverdue PaymentStatus = "Overdue"
)

// ParsePaymentStatus parses s case-insensitively.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid":
		return PaymentPaid, nil
	case "pending":
		return PaymentPending, nil
	case "overdue":
		return PaymentOverdue, nil
	default:
		return "", fmt.Errorf("invalid payment status %q (must be Paid, Pending or Overdue)", s)
	}
}

// Markers for invoices that only carry a supporting document.
const (
	InvoiceOptionDocumentOnly = "DOCUMENT_ONLY"
	PaymentMethodDocumentOnly = "Document Only"
)

// Invoice is an entry attached to a payment record. It is either a billing
// transaction or a document-only attachment.
type Invoice struct {
	ID                 string          `json:"_id,omitempty"`
	Description        string          `json:"description,omitempty"`
	InvoiceDate        Timestamp       `json:"invoiceDate"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentMethod      string          `json:"paymentMethod,omitempty"`
	FileURL            string          `json:"fileUrl,omitempty"`
	Option             string          `json:"option,omitempty"`
	IsIncorrectInvoice bool            `json:"isIncorrectInvoice,omitempty"`
	IncorrectReason    string          `json:"incorrectReason,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" as the invoice identifier.
func (i *Invoice) UnmarshalJSON(data []byte) error {
	type invoiceAlias Invoice
	aux := struct {
		*invoiceAlias
		AltID string `json:"id"`
	}{invoiceAlias: (*invoiceAlias)(i)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if i.ID == "" {
		i.ID = aux.AltID
	}
	return nil
}

// IsDocumentOnly reports whether the invoice is a supporting document rather
// than a billing transaction.
func (i Invoice) IsDocumentOnly() bool {
	return i.Option == InvoiceOptionDocumentOnly || i.PaymentMethod == PaymentMethodDocumentOnly
}

// PaymentRecord is one month's billing entry for a job.
type PaymentRecord struct {
	ID          string          `json:"_id"`
	JobID       Ref             `json:"jobId"`
	JobType     string          `json:"jobType,omitempty"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	MonthName   string          `json:"monthName,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      PaymentStatus   `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   Timestamp       `json:"createdAt"`
	UpdatedAt   Timestamp       `json:"updatedAt"`
	Invoices    []Invoice       `json:"invoices"`
}

// UnmarshalJSON accepts both "_id" and "id" as the record identifier.
func (p *PaymentRecord) UnmarshalJSON(data []byte) error {
	type recordAlias PaymentRecord
	aux := struct {
		*recordAlias
		AltID string `json:"id"`
	}{recordAlias: (*recordAlias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.AltID
	}
	return nil
}

// Period returns the record's billing period as YYYY-MM.
func (p PaymentRecord) Period() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// DisplayMonth returns the backend-provided month name, or the English name
// derived from the month number.
func (p PaymentRecord) DisplayMonth() string {
	if p.MonthName != "" {
		return p.MonthName
	}
	if p.Month >= 1 && p.Month <= 12 {
		return time.Month(p.Month).String()
	}
	return fmt.Sprintf("Month %d", p.Month)
}

// IsPaid reports whether the record is settled.
func (p PaymentRecord) IsPaid() bool {
	return p.Status == PaymentPaid
}
