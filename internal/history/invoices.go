package history

import "paydesk/pkg/models"

// ClassifyInvoices partitions invoices into billing entries and supporting
// documents, preserving order within each group. A nil input yields two
// empty, non-nil slices.
func ClassifyInvoices(invoices []models.Invoice) (payments, documents []models.Invoice) {
	payments = []models.Invoice{}
	documents = []models.Invoice{}
	for _, inv := range invoices {
		if inv.IsDocumentOnly() {
			documents = append(documents, inv)
		} else {
			payments = append(payments, inv)
		}
	}
	return payments, documents
}

// HasDocument reports whether record carries a supporting document.
func HasDocument(record models.PaymentRecord) bool {
	_, ok := PrimaryDocument(record)
	return ok
}

// PrimaryDocument returns the one document shown and replaced for a record:
// the first document-only invoice. Later documents stay on the backend but
// are never surfaced.
func PrimaryDocument(record models.PaymentRecord) (models.Invoice, bool) {
	for _, inv := range record.Invoices {
		if inv.IsDocumentOnly() {
			return inv, true
		}
	}
	return models.Invoice{}, false
}

// PaymentInvoices returns the billing invoices of record.
func PaymentInvoices(record models.PaymentRecord) []models.Invoice {
	payments, _ := ClassifyInvoices(record.Invoices)
	return payments
}
