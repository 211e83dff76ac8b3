package history

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"paydesk/internal/logger"
	"paydesk/pkg/models"
)

// DefaultFanoutLimit bounds the number of concurrent history requests.
const DefaultFanoutLimit = 8

// JobPayments is the payment history of one job within a fan-out.
type JobPayments struct {
	Job         models.Job             `json:"job"`
	Payments    []models.PaymentRecord `json:"payments"`
	HasPayments bool                   `json:"hasPayments"`

	// Err is the fetch failure for this job, if any. A failed job still has
	// an entry, with no payments.
	Err error `json:"-"`
}

// LoadAll fetches the payment history of every job concurrently, with at most
// limit requests in flight. A failure for one job never aborts the others: it
// maps to an entry with no payments. The result has exactly one entry per
// input job, in input order. Jobs sharing an id are fetched once.
func LoadAll(ctx context.Context, source Source, jobs []models.Job, limit int) []JobPayments {
	log := logger.WithComponent("history")

	if limit <= 0 {
		limit = DefaultFanoutLimit
	}

	var (
		mu      sync.Mutex
		results = make(map[string]JobPayments, len(jobs))
		g       errgroup.Group
	)
	g.SetLimit(limit)

	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if seen[job.ID] {
			continue
		}
		seen[job.ID] = true

		g.Go(func() error {
			records, err := source.PaymentHistory(ctx, job.ID)
			entry := JobPayments{
				Job:         job,
				Payments:    SortRecords(records),
				HasPayments: err == nil && len(records) > 0,
			}
			if err != nil {
				log.Warn().
					Err(err).
					Str("job_id", job.ID).
					Msg("Payment history unavailable, treating job as having no payments")
				entry.Payments = []models.PaymentRecord{}
				entry.Err = err
			}

			mu.Lock()
			results[job.ID] = entry
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]JobPayments, len(jobs))
	for i, job := range jobs {
		entry := results[job.ID]
		entry.Job = job
		out[i] = entry
	}
	return out
}

// MarkPayments copies HasPayments from a fan-out result onto jobs.
func MarkPayments(jobs []models.Job, results []JobPayments) []models.Job {
	has := make(map[string]bool, len(results))
	for _, r := range results {
		has[r.Job.ID] = r.HasPayments
	}
	out := make([]models.Job, len(jobs))
	for i, job := range jobs {
		job.HasPayments = has[job.ID]
		out[i] = job
	}
	return out
}
