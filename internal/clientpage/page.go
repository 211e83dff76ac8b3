// Package clientpage composes the job listing, payment history and invoice
// upload of a single client, identified by email.
package clientpage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"paydesk/internal/api"
	"paydesk/internal/history"
	"paydesk/internal/joblist"
	"paydesk/internal/logger"
	"paydesk/internal/upload"
	"paydesk/pkg/models"
)

// ClientJobLimit is the page size used when listing one client's jobs.
const ClientJobLimit = 100

var (
	// ErrStale is returned by Refresh when a newer refresh started first.
	ErrStale = errors.New("clientpage: response superseded by a newer refresh")

	// ErrUnknownJob is returned when selecting a job the page does not list.
	ErrUnknownJob = errors.New("clientpage: job is not listed for this client")

	// ErrNoDocument is returned when replacing the document of a record that
	// has none.
	ErrNoDocument = errors.New("clientpage: payment record has no document to replace")
)

// API is the backend surface the page uses.
type API interface {
	Client(ctx context.Context, email string) (models.Client, error)
	PaymentEligibleJobs(ctx context.Context, q api.JobQuery) (api.JobPage, error)
	SearchJobs(ctx context.Context, search string) ([]models.Job, error)
	PaymentHistory(ctx context.Context, jobID string) ([]models.PaymentRecord, error)
	UploadInvoice(ctx context.Context, r api.UploadInvoiceRequest) (*api.UploadResult, error)
}

// Status is the render state of the job pane.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is a snapshot of the page.
type State struct {
	Email  string
	Client models.Client

	// ClientErr is the profile lookup failure. Client then holds a stub.
	ClientErr error

	Status Status
	Jobs   []models.Job
	Err    error

	// SelectedJobID is the job whose history is shown, or "" when the client
	// has no jobs.
	SelectedJobID string

	Generation uint64
}

// Selected returns the selected job.
func (s State) Selected() (models.Job, bool) {
	for _, job := range s.Jobs {
		if job.ID == s.SelectedJobID {
			return job, true
		}
	}
	return models.Job{}, false
}

// Empty reports whether the client has no payment-eligible jobs.
func (s State) Empty() bool {
	return s.Status == StatusReady && len(s.Jobs) == 0
}

func (s State) clone() State {
	out := s
	out.Jobs = make([]models.Job, len(s.Jobs))
	copy(out.Jobs, s.Jobs)
	return out
}

// Page is the payment page of one client. It is safe for concurrent use.
type Page struct {
	api         API
	fanoutLimit int
	log         zerolog.Logger

	// History is the payment history of the selected job.
	History *history.ViewModel

	mu         sync.Mutex
	generation uint64
	state      State
}

// NewPage creates an idle page for the client with the given email.
func NewPage(backend API, email string, fanoutLimit int) *Page {
	return &Page{
		api:         backend,
		fanoutLimit: fanoutLimit,
		log:         logger.WithComponent("clientpage").With().Str("email", email).Logger(),
		History:     history.NewViewModel(backend),
		state: State{
			Email:  email,
			Client: models.StubClient(email),
			Status: StatusIdle,
			Jobs:   []models.Job{},
		},
	}
}

// State returns a copy of the current state.
func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.clone()
}

// Refresh fetches the client profile and the client's jobs concurrently.
// A profile failure is not an error of the page: a stub profile is shown.
// The selection is kept when the job is still listed, otherwise the first
// job is selected; the selected job's history is then reloaded.
func (p *Page) Refresh(ctx context.Context) (State, error) {
	const op = "clientpage.Refresh"

	p.mu.Lock()
	p.generation++
	gen := p.generation
	email := p.state.Email
	p.state.Status = StatusLoading
	p.state.Err = nil
	p.state.Generation = gen
	p.mu.Unlock()

	var (
		client    models.Client
		clientErr error
		jobs      []models.Job
		jobsErr   error
		g         errgroup.Group
	)
	g.Go(func() error {
		client, clientErr = p.api.Client(ctx, email)
		return nil
	})
	g.Go(func() error {
		jobs, jobsErr = p.clientJobs(ctx, email)
		return nil
	})
	_ = g.Wait()

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return p.State(), ErrStale
	}

	p.state.Client = client
	p.state.ClientErr = clientErr
	if clientErr != nil {
		p.state.Client = models.StubClient(email)
		p.log.Warn().Err(clientErr).Msg("Client lookup failed, showing stub profile")
	}

	if jobsErr != nil {
		p.state.Status = StatusError
		p.state.Err = jobsErr
		p.state.Jobs = []models.Job{}
		p.state.SelectedJobID = ""
		state := p.state.clone()
		p.mu.Unlock()

		p.History.Clear()
		p.log.Warn().Err(jobsErr).Msg("Failed to load client jobs")
		return state, fmt.Errorf("%s: %w", op, jobsErr)
	}

	p.state.Status = StatusReady
	p.state.Jobs = jobs
	p.state.SelectedJobID = keepSelection(jobs, p.state.SelectedJobID)
	state := p.state.clone()
	p.mu.Unlock()

	p.log.Debug().
		Int("jobs", len(jobs)).
		Str("selected", state.SelectedJobID).
		Msg("Client page refreshed")

	if state.SelectedJobID == "" {
		p.History.Clear()
		return state, nil
	}
	if _, err := p.loadHistory(ctx, state.SelectedJobID); err != nil && !errors.Is(err, history.ErrStale) {
		p.log.Warn().Err(err).Str("job_id", state.SelectedJobID).Msg("Selected job history unavailable")
	}
	return state, nil
}

// clientJobs lists the client's payment-eligible jobs. The eligible listing
// is searched by email first; when it fails or finds nothing the general job
// search is used, keeping only completed jobs. Only jobs whose identifier
// fields match email are kept.
func (p *Page) clientJobs(ctx context.Context, email string) ([]models.Job, error) {
	page, err := p.api.PaymentEligibleJobs(ctx, api.JobQuery{Page: 1, Limit: ClientJobLimit, Search: email})
	jobs := matching(page.Jobs, email, false)
	if err == nil && len(jobs) > 0 {
		return joblist.SortJobs(jobs, joblist.DefaultSort), nil
	}
	if err != nil {
		p.log.Warn().Err(err).Msg("Payment-eligible listing failed, falling back to job search")
	}

	all, searchErr := p.api.SearchJobs(ctx, email)
	if searchErr != nil {
		if err != nil {
			return nil, err
		}
		p.log.Warn().Err(searchErr).Msg("Fallback job search failed")
		return []models.Job{}, nil
	}
	return joblist.SortJobs(matching(all, email, true), joblist.DefaultSort), nil
}

func matching(jobs []models.Job, email string, eligibleOnly bool) []models.Job {
	out := []models.Job{}
	for _, job := range jobs {
		if !job.MatchesEmail(email) {
			continue
		}
		if eligibleOnly && !job.IsPaymentEligible() {
			continue
		}
		out = append(out, job)
	}
	return out
}

func keepSelection(jobs []models.Job, selected string) string {
	for _, job := range jobs {
		if job.ID == selected && selected != "" {
			return selected
		}
	}
	if len(jobs) > 0 {
		return jobs[0].ID
	}
	return ""
}

// SelectJob makes jobID the selected job and loads its history.
func (p *Page) SelectJob(ctx context.Context, jobID string) (history.State, error) {
	const op = "clientpage.SelectJob"

	p.mu.Lock()
	listed := false
	for _, job := range p.state.Jobs {
		if job.ID == jobID {
			listed = true
			break
		}
	}
	if !listed {
		p.mu.Unlock()
		return p.History.State(), fmt.Errorf("%s: %s: %w", op, jobID, ErrUnknownJob)
	}
	p.state.SelectedJobID = jobID
	p.mu.Unlock()

	return p.loadHistory(ctx, jobID)
}

// loadHistory loads the history of jobID unless another job was selected
// before the load started.
func (p *Page) loadHistory(ctx context.Context, jobID string) (history.State, error) {
	return p.History.LoadIf(ctx, jobID, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.state.SelectedJobID == jobID
	})
}

// UploadFlow returns a flow adding a document to the payment record paymentID.
func (p *Page) UploadFlow(paymentID string) *upload.Flow {
	return upload.NewFlow(p.api, paymentID)
}

// ReplaceFlow returns a flow replacing the document shown for record.
func (p *Page) ReplaceFlow(record models.PaymentRecord) (*upload.Flow, error) {
	doc, ok := history.PrimaryDocument(record)
	if !ok {
		return nil, fmt.Errorf("clientpage.ReplaceFlow: %s: %w", record.ID, ErrNoDocument)
	}
	return upload.NewReplaceFlow(p.api, record.ID, doc), nil
}

// AfterUpload reloads the selected job's history so a new document shows.
func (p *Page) AfterUpload(ctx context.Context) (history.State, error) {
	return p.History.Reload(ctx)
}

// PaymentsOverview fetches the history of every listed job and marks which
// jobs have payment records. Jobs whose history fails count as having none.
func (p *Page) PaymentsOverview(ctx context.Context) []history.JobPayments {
	p.mu.Lock()
	jobs := make([]models.Job, len(p.state.Jobs))
	copy(jobs, p.state.Jobs)
	gen := p.generation
	p.mu.Unlock()

	results := history.LoadAll(ctx, p.api, jobs, p.fanoutLimit)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen == p.generation {
		p.state.Jobs = history.MarkPayments(p.state.Jobs, results)
	}
	return results
}
