package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"paydesk/pkg/models"
)

// PaymentQuery filters the payment records listing.
type PaymentQuery struct {
	Page   int
	Limit  int
	Search string
	Year   int
}

func (q PaymentQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("search", q.Search)
	if q.Year > 0 {
		v.Set("year", strconv.Itoa(q.Year))
	}
	return v
}

// PaymentPage is one page of payment records in normalized form.
type PaymentPage struct {
	Payments   []models.PaymentRecord `json:"payments"`
	Pagination models.Pagination      `json:"pagination"`
}

// Payments lists payment records. On failure an empty page is returned with
// the error.
func (c *Client) Payments(ctx context.Context, q PaymentQuery) (PaymentPage, error) {
	const op = "Payments"

	empty := PaymentPage{
		Payments:   []models.PaymentRecord{},
		Pagination: models.NewPagination(1, q.Limit, 0),
	}

	resp, err := c.get(ctx, op, "/account/payments", q.values())
	if err != nil {
		return empty, err
	}

	shape, err := decodeList[models.PaymentRecord](resp.body, "payments")
	if err != nil {
		return empty, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}

	payments, pagination := shape.normalize(q.Page, q.Limit)
	return PaymentPage{Payments: payments, Pagination: pagination}, nil
}

// PaymentHistory returns every payment record of a job in backend order. On
// failure an empty slice is returned with the error.
func (c *Client) PaymentHistory(ctx context.Context, jobID string) ([]models.PaymentRecord, error) {
	const op = "PaymentHistory"

	if jobID == "" {
		return []models.PaymentRecord{}, newArgumentError(op, "job id is required")
	}

	resp, err := c.get(ctx, op, "/monthlypayment/history/"+pathEscape(jobID), nil)
	if err != nil {
		return []models.PaymentRecord{}, err
	}

	shape, err := decodeList[models.PaymentRecord](resp.body, "payments", "history", "records")
	if err != nil {
		return []models.PaymentRecord{}, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}

	records, _ := shape.normalize(1, 0)
	return records, nil
}

// File is a document attached to a multipart request.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// NewInvoice is an invoice entry submitted with a payment record.
type NewInvoice struct {
	Description        string          `json:"description"`
	InvoiceDate        string          `json:"invoiceDate"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentMethod      string          `json:"paymentMethod"`
	Option             string          `json:"option,omitempty"`
	IsIncorrectInvoice bool            `json:"isIncorrectInvoice,omitempty"`
	IncorrectReason    string          `json:"incorrectReason,omitempty"`
}

// CreatePaymentRequest records a month's payment entry for a job. Files are
// sent as invoiceFiles[] in the same order as Invoices.
type CreatePaymentRequest struct {
	JobID    string
	JobType  string
	Year     int
	Month    int
	Status   models.PaymentStatus
	Notes    string
	Invoices []NewInvoice
	Files    []File
}

func (r CreatePaymentRequest) validate() error {
	switch {
	case r.JobID == "":
		return fmt.Errorf("job id is required")
	case r.Year <= 0:
		return fmt.Errorf("year is required")
	case r.Month < 1 || r.Month > 12:
		return fmt.Errorf("month must be between 1 and 12, got %d", r.Month)
	}
	return nil
}

// CreatePayment creates or updates the payment record for (job, year, month).
func (c *Client) CreatePayment(ctx context.Context, r CreatePaymentRequest) (*models.PaymentRecord, error) {
	const op = "CreatePayment"

	if err := r.validate(); err != nil {
		return nil, newArgumentError(op, err.Error())
	}

	invoices := r.Invoices
	if invoices == nil {
		invoices = []NewInvoice{}
	}
	invoicesJSON, err := json.Marshal(invoices)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding invoices: %w", op, err)
	}

	form := newMultipartForm()
	form.field("jobId", r.JobID)
	form.field("jobType", r.JobType)
	form.field("year", strconv.Itoa(r.Year))
	form.field("month", strconv.Itoa(r.Month))
	form.optional("status", string(r.Status))
	form.optional("notes", r.Notes)
	form.field("invoices", string(invoicesJSON))
	for _, f := range r.Files {
		form.file("invoiceFiles", f)
	}
	body, contentType, err := form.finish()
	if err != nil {
		return nil, fmt.Errorf("%s: building form: %w", op, err)
	}

	resp, err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/account/payments",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return nil, err
	}

	var record models.PaymentRecord
	if err := decodeObject(resp.body, &record, "payment", "paymentRecord"); err != nil {
		return nil, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}
	return &record, nil
}

// UploadInvoiceRequest attaches a document to an existing payment record.
type UploadInvoiceRequest struct {
	PaymentID          string
	File               File
	InvoiceDate        string
	Description        string
	PaymentMethod      string
	Amount             decimal.Decimal
	Option             string
	IsIncorrectInvoice bool
	IncorrectReason    string

	// ReplaceExisting supersedes ExistingInvoiceID with the uploaded document.
	ReplaceExisting   bool
	ExistingInvoiceID string
}

// UploadResult is the backend's answer to an invoice upload. Payment and
// Invoice are set when the response carried them.
type UploadResult struct {
	Message string                `json:"message,omitempty"`
	Payment *models.PaymentRecord `json:"payment,omitempty"`
	Invoice *models.Invoice       `json:"invoice,omitempty"`
}

// UploadInvoice uploads an invoice document for a payment record.
func (c *Client) UploadInvoice(ctx context.Context, r UploadInvoiceRequest) (*UploadResult, error) {
	const op = "UploadInvoice"

	switch {
	case r.PaymentID == "":
		return nil, newArgumentError(op, "payment id is required")
	case len(r.File.Content) == 0:
		return nil, newArgumentError(op, "invoice file is required")
	case r.ReplaceExisting && r.ExistingInvoiceID == "":
		return nil, newArgumentError(op, "existing invoice id is required to replace a document")
	}

	form := newMultipartForm()
	form.file("invoiceFile", r.File)
	form.field("paymentId", r.PaymentID)
	form.field("invoiceDate", r.InvoiceDate)
	form.field("description", r.Description)
	form.field("paymentMethod", r.PaymentMethod)
	form.field("amount", r.Amount.String())
	form.field("option", r.Option)
	if r.IsIncorrectInvoice {
		form.field("isIncorrectInvoice", "true")
		form.optional("incorrectReason", r.IncorrectReason)
	}
	if r.ReplaceExisting {
		form.field("replaceExisting", "true")
		form.field("existingInvoiceId", r.ExistingInvoiceID)
	}
	body, contentType, err := form.finish()
	if err != nil {
		return nil, fmt.Errorf("%s: building form: %w", op, err)
	}

	resp, err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/account/payments/upload-invoice",
		body:        body,
		contentType: contentType,
	})
	if err != nil {
		return nil, err
	}

	result, err := decodeUploadResult(resp.body)
	if err != nil {
		return nil, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}

	c.log.Info().
		Str("request_id", resp.requestID).
		Str("payment_id", r.PaymentID).
		Bool("replace", r.ReplaceExisting).
		Msg("Invoice uploaded")

	return result, nil
}

// decodeUploadResult reads {message, payment|paymentRecord|invoice|data}.
// A "data" object is a payment record when it carries invoices, otherwise an
// invoice. Empty bodies are a success without details.
func decodeUploadResult(body []byte) (*UploadResult, error) {
	result := &UploadResult{}
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if raw, ok := fields["message"]; ok {
		result.Message = textField(raw)
	}

	decodePayment := func(raw json.RawMessage) error {
		var p models.PaymentRecord
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		result.Payment = &p
		return nil
	}
	decodeInvoice := func(raw json.RawMessage) error {
		var i models.Invoice
		if err := json.Unmarshal(raw, &i); err != nil {
			return err
		}
		result.Invoice = &i
		return nil
	}

	for _, key := range []string{"payment", "paymentRecord"} {
		if raw, ok := fields[key]; ok && !isNull(raw) {
			if err := decodePayment(raw); err != nil {
				return nil, err
			}
			break
		}
	}
	if raw, ok := fields["invoice"]; ok && !isNull(raw) {
		if err := decodeInvoice(raw); err != nil {
			return nil, err
		}
	}
	if raw, ok := fields["data"]; ok && !isNull(raw) && result.Payment == nil {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, err
		}
		if _, hasInvoices := probe["invoices"]; hasInvoices {
			if err := decodePayment(raw); err != nil {
				return nil, err
			}
		} else if result.Invoice == nil {
			if err := decodeInvoice(raw); err != nil {
				return nil, err
			}
		}
	}
	if _, hasInvoices := fields["invoices"]; hasInvoices && result.Payment == nil {
		if err := decodePayment(body); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// UpdatePaymentStatus changes the status of a payment record.
func (c *Client) UpdatePaymentStatus(ctx context.Context, paymentID string, status models.PaymentStatus, notes string) (*models.PaymentRecord, error) {
	const op = "UpdatePaymentStatus"

	if paymentID == "" {
		return nil, newArgumentError(op, "payment id is required")
	}

	body, err := jsonBody(map[string]string{
		"status": string(status),
		"notes":  notes,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encoding body: %w", op, err)
	}

	resp, err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPatch,
		path:        "/account/payments/" + pathEscape(paymentID) + "/status",
		body:        body,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var record models.PaymentRecord
	if err := decodeObject(resp.body, &record, "payment", "paymentRecord"); err != nil {
		return nil, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}
	return &record, nil
}

// DeletePayment deletes a payment record and returns the backend's
// confirmation message, if any.
func (c *Client) DeletePayment(ctx context.Context, paymentID string) (string, error) {
	const op = "DeletePayment"

	if paymentID == "" {
		return "", newArgumentError(op, "payment id is required")
	}

	resp, err := c.do(ctx, request{
		op:     op,
		method: http.MethodDelete,
		path:   "/monthlypayment/" + pathEscape(paymentID),
	})
	if err != nil {
		return "", err
	}

	var confirmation struct {
		Message json.RawMessage `json:"message"`
	}
	if len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, &confirmation); err == nil {
			return textField(confirmation.Message), nil
		}
	}
	return "", nil
}
