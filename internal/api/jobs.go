package api

import (
	"context"
	"net/url"
	"strconv"

	"paydesk/pkg/models"
)

// JobQuery filters the payment-eligible jobs listing.
type JobQuery struct {
	Page   int
	Limit  int
	Search string
}

func (q JobQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("search", q.Search)
	return v
}

// JobPage is one page of jobs in normalized form.
type JobPage struct {
	Jobs       []models.Job      `json:"jobs"`
	Pagination models.Pagination `json:"pagination"`
}

func emptyJobPage(q JobQuery) JobPage {
	return JobPage{
		Jobs:       []models.Job{},
		Pagination: models.NewPagination(1, q.Limit, 0),
	}
}

// PaymentEligibleJobs lists jobs whose status makes them candidates for
// monthly payment records. On failure an empty page is returned with the error.
func (c *Client) PaymentEligibleJobs(ctx context.Context, q JobQuery) (JobPage, error) {
	const op = "PaymentEligibleJobs"

	resp, err := c.get(ctx, op, "/account/jobs/payment-eligible", q.values())
	if err != nil {
		return emptyJobPage(q), err
	}

	shape, err := decodeList[models.Job](resp.body, "jobs")
	if err != nil {
		return emptyJobPage(q), newDecodeError(op, resp.requestID, resp.statusCode, err)
	}

	jobs, pagination := shape.normalize(q.Page, q.Limit)
	c.log.Debug().
		Str("shape", shape.kind.String()).
		Int("jobs", len(jobs)).
		Int("total", pagination.TotalItems).
		Msg("Loaded payment-eligible jobs")

	return JobPage{Jobs: jobs, Pagination: pagination}, nil
}

// SearchJobs runs the general job search. It is the fallback used when the
// payment-eligible listing cannot find a client's jobs.
func (c *Client) SearchJobs(ctx context.Context, search string) ([]models.Job, error) {
	const op = "SearchJobs"

	resp, err := c.get(ctx, op, "/jobs", url.Values{"search": {search}})
	if err != nil {
		return []models.Job{}, err
	}

	shape, err := decodeList[models.Job](resp.body, "jobs")
	if err != nil {
		return []models.Job{}, newDecodeError(op, resp.requestID, resp.statusCode, err)
	}

	jobs, _ := shape.normalize(1, 0)
	return jobs, nil
}
