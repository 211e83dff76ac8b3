package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"

	"paydesk/pkg/models"
)

// DashboardStats returns the backend's aggregate payment figures. On failure
// zeroed stats are returned with the error.
func (c *Client) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	const op = "DashboardStats"

	resp, err := c.get(ctx, op, "/account/dashboard", nil)
	if err != nil {
		return models.DashboardStats{}, err
	}

	var stats models.DashboardStats
	if err := decodeObject(resp.body, &stats, "stats"); err != nil {
		return models.DashboardStats{}, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}
	return stats, nil
}

// ReportFilters narrows a payments report. Zero values are omitted.
type ReportFilters struct {
	Page      int
	Limit     int
	Year      int
	Month     int
	Status    models.PaymentStatus
	JobID     string
	Search    string
	StartDate string
	EndDate   string
}

func (f ReportFilters) values() url.Values {
	v := url.Values{}
	setInt := func(key string, n int) {
		if n > 0 {
			v.Set(key, strconv.Itoa(n))
		}
	}
	setInt("page", f.Page)
	setInt("limit", f.Limit)
	setInt("year", f.Year)
	setInt("month", f.Month)
	v.Set("status", string(f.Status))
	v.Set("jobId", f.JobID)
	v.Set("search", f.Search)
	v.Set("startDate", f.StartDate)
	v.Set("endDate", f.EndDate)
	return v
}

// Report runs a filtered payments report. On failure an empty report is
// returned with the error. When the backend omits the summary it is derived
// from the returned payments.
func (c *Client) Report(ctx context.Context, f ReportFilters) (models.Report, error) {
	const op = "Report"

	empty := models.Report{
		Payments:   []models.PaymentRecord{},
		Pagination: models.NewPagination(1, f.Limit, 0),
	}

	resp, err := c.get(ctx, op, "/account/reports", f.values())
	if err != nil {
		return empty, err
	}

	shape, err := decodeList[models.PaymentRecord](resp.body, "payments")
	if err != nil {
		return empty, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}
	payments, pagination := shape.normalize(f.Page, f.Limit)

	report := models.Report{Payments: payments, Pagination: pagination}
	summary, found, err := decodeSummary(resp.body)
	if err != nil {
		return empty, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}
	if found {
		report.Summary = summary
	} else {
		report.Summary = Summarize(payments)
	}
	return report, nil
}

func decodeSummary(body []byte) (models.ReportSummary, bool, error) {
	var envelope struct {
		Summary *models.ReportSummary `json:"summary"`
		Data    struct {
			Summary *models.ReportSummary `json:"summary"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		// A bare array or a "data" array is a type mismatch, not a failure;
		// whatever did match is still populated.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return models.ReportSummary{}, false, err
		}
	}
	switch {
	case envelope.Summary != nil:
		return *envelope.Summary, true, nil
	case envelope.Data.Summary != nil:
		return *envelope.Data.Summary, true, nil
	}
	return models.ReportSummary{}, false, nil
}

// Summarize aggregates payments by status.
func Summarize(payments []models.PaymentRecord) models.ReportSummary {
	summary := models.ReportSummary{TotalPayments: len(payments)}
	for _, p := range payments {
		summary.TotalAmount = summary.TotalAmount.Add(p.TotalAmount)
		switch p.Status {
		case models.PaymentPaid:
			summary.PaidAmount = summary.PaidAmount.Add(p.TotalAmount)
		case models.PaymentOverdue:
			summary.OverdueAmount = summary.OverdueAmount.Add(p.TotalAmount)
		default:
			summary.PendingAmount = summary.PendingAmount.Add(p.TotalAmount)
		}
	}
	return summary
}
