// Package export flattens payment records into spreadsheet rows and writes
// them to xlsx workbooks.
package export

import (
	"github.com/shopspring/decimal"

	"paydesk/internal/history"
	"paydesk/pkg/models"
)

// Headers are the column titles, in Row.Values order.
var Headers = []string{
	"Job", "Job ID", "Year", "Month", "Amount", "Status",
	"Invoices", "Documents", "Notes", "Created",
}

// Row is one payment record as a spreadsheet line.
type Row struct {
	Job       string
	JobID     string
	Year      int
	Month     string
	Amount    decimal.Decimal
	Status    string
	Invoices  int
	Documents int
	Notes     string
	Created   string
}

// Values returns the row's cells in Headers order. Amount is a float so
// spreadsheets treat it as a number.
func (r Row) Values() []interface{} {
	return []interface{}{
		r.Job,
		r.JobID,
		r.Year,
		r.Month,
		r.Amount.InexactFloat64(),
		r.Status,
		r.Invoices,
		r.Documents,
		r.Notes,
		r.Created,
	}
}

// PaymentRows converts records to rows, newest period first.
func PaymentRows(records []models.PaymentRecord) []Row {
	sorted := history.SortRecords(records)
	rows := make([]Row, 0, len(sorted))
	for _, r := range sorted {
		payments, documents := history.ClassifyInvoices(r.Invoices)
		job := r.JobID.Name
		if job == "" {
			job = r.JobID.ID
		}
		rows = append(rows, Row{
			Job:       job,
			JobID:     r.JobID.ID,
			Year:      r.Year,
			Month:     r.DisplayMonth(),
			Amount:    r.TotalAmount,
			Status:    string(r.Status),
			Invoices:  len(payments),
			Documents: len(documents),
			Notes:     r.Notes,
			Created:   r.CreatedAt.DateString(),
		})
	}
	return rows
}
