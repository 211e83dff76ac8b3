package history

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"paydesk/pkg/models"
)

// Stats are the aggregates derived from a job's payment records. They are
// display values only and are never sent back to the backend.
type Stats struct {
	Total           decimal.Decimal `json:"totalAmount"`
	Paid            decimal.Decimal `json:"paidAmount"`
	Pending         decimal.Decimal `json:"pendingAmount"`
	LastPaymentDate *time.Time      `json:"lastPaymentDate"`
}

// ComputeStats sums totalAmount over records. Paid covers records with status
// Paid; Pending is everything else, so Paid+Pending always equals Total.
// LastPaymentDate is the latest createdAt, or nil when no record has one.
func ComputeStats(records []models.PaymentRecord) Stats {
	stats := Stats{
		Total: decimal.Zero,
		Paid:  decimal.Zero,
	}

	for _, r := range records {
		stats.Total = stats.Total.Add(r.TotalAmount)
		if r.Status == models.PaymentPaid {
			stats.Paid = stats.Paid.Add(r.TotalAmount)
		}
		if r.CreatedAt.IsZero() {
			continue
		}
		if stats.LastPaymentDate == nil || r.CreatedAt.After(*stats.LastPaymentDate) {
			t := r.CreatedAt.Time
			stats.LastPaymentDate = &t
		}
	}

	stats.Pending = stats.Total.Sub(stats.Paid)
	return stats
}

// SortRecords orders records by year then month, newest first. Records of the
// same period keep their input order. The input slice is not modified.
func SortRecords(records []models.PaymentRecord) []models.PaymentRecord {
	sorted := make([]models.PaymentRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year > sorted[j].Year
		}
		return sorted[i].Month > sorted[j].Month
	})
	return sorted
}
