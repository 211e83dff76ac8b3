package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// DashboardStats is the backend's aggregate view of payment work.
// The zero value is the safe default shown when stats cannot be loaded.
type DashboardStats struct {
	JobsRequiringPayment int             `json:"jobsRequiringPayment"`
	JobsWithPayments     int             `json:"jobsWithPayments"`
	PendingPayments      int             `json:"pendingPayments"`
	PaidPayments         int             `json:"paidPayments"`
	OverduePayments      int             `json:"overduePayments"`
	TotalAmountPaid      decimal.Decimal `json:"totalAmountPaid"`
	TotalAmountPending   decimal.Decimal `json:"totalAmountPending"`
}

// Pagination describes one page of a server-side paginated collection.
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// NewPagination builds a descriptor for page of size perPage over total items.
func NewPagination(page, perPage, total int) Pagination {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = total
	}

	totalPages := 0
	if total > 0 && perPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}

	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: perPage,
	}
}

// Report is the result of a filtered payments report.
type Report struct {
	Payments   []PaymentRecord `json:"payments"`
	Pagination Pagination      `json:"pagination"`
	Summary    ReportSummary   `json:"summary"`
}

// ReportSummary aggregates the payments matched by a report.
type ReportSummary struct {
	TotalPayments int             `json:"totalPayments"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
	OverdueAmount decimal.Decimal `json:"overdueAmount"`
}
