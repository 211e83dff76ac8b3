package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydesk/internal/api"
	"paydesk/internal/clientpage"
	"paydesk/internal/history"
	"paydesk/pkg/models"
)

type fakeAPI struct {
	jobs      []models.Job
	histories map[string][]models.PaymentRecord
	jobsErr   error
}

func (f *fakeAPI) Client(ctx context.Context, email string) (models.Client, error) {
	return models.Client{}, errors.New("profile service down")
}

func (f *fakeAPI) PaymentEligibleJobs(ctx context.Context, q api.JobQuery) (api.JobPage, error) {
	if f.jobsErr != nil {
		return api.JobPage{}, f.jobsErr
	}
	return api.JobPage{Jobs: f.jobs}, nil
}

func (f *fakeAPI) SearchJobs(ctx context.Context, search string) ([]models.Job, error) {
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	return []models.Job{}, nil
}

func (f *fakeAPI) PaymentHistory(ctx context.Context, jobID string) ([]models.PaymentRecord, error) {
	return f.histories[jobID], nil
}

func (f *fakeAPI) UploadInvoice(ctx context.Context, r api.UploadInvoiceRequest) (*api.UploadResult, error) {
	return &api.UploadResult{}, nil
}

const email = "owner@acme.io"

func fixture() *fakeAPI {
	at := func(day int) models.Timestamp {
		return models.NewTimestamp(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC))
	}
	return &fakeAPI{
		jobs: []models.Job{
			{ID: "job-new", ClientName: "Acme", ServiceType: "Payroll", Gmail: email, Status: models.JobStatusCompleted, CreatedAt: at(2)},
			{ID: "job-old", ClientName: "Acme", ServiceType: "Bookkeeping", Gmail: email, Status: models.JobStatusCompleted, CreatedAt: at(1)},
		},
		histories: map[string][]models.PaymentRecord{
			"job-new": {{
				ID: "p1", Year: 2024, Month: 2, TotalAmount: decimal.NewFromInt(120), Status: models.PaymentPaid,
				Invoices: []models.Invoice{{ID: "d1", Option: models.InvoiceOptionDocumentOnly, Description: "february.pdf"}},
			}},
			"job-old": {},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step applies msg and runs any resulting command once, feeding its message
// back into the model.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(Model)
	}
	return m
}

func loaded(t *testing.T, fake *fakeAPI) Model {
	t.Helper()
	m := New(context.Background(), clientpage.NewPage(fake, email, 2))
	msg := m.Init()()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestInitLoadsPage(t *testing.T) {
	m := loaded(t, fixture())

	assert.False(t, m.loading)
	require.Len(t, m.state.Jobs, 2)
	assert.Equal(t, "job-new", m.state.SelectedJobID)
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, history.StatusReady, m.history.Status)

	view := m.View()
	assert.Contains(t, view, "owner <owner@acme.io>")
	assert.Contains(t, view, "Client profile unavailable")
	assert.Contains(t, view, "Payroll")
	assert.Contains(t, view, "February 2024")
	assert.Contains(t, view, "[doc] february.pdf")
}

func TestNavigationAndSelect(t *testing.T) {
	m := loaded(t, fixture())

	m = step(t, m, key("up"))
	assert.Equal(t, 0, m.cursor, "cursor stops at the top")

	m = step(t, m, key("j"))
	m = step(t, m, key("down"))
	assert.Equal(t, 1, m.cursor, "cursor stops at the bottom")

	m = step(t, m, key("enter"))
	assert.Equal(t, "job-old", m.state.SelectedJobID)
	assert.Equal(t, "job-old", m.history.JobID)
	assert.True(t, m.history.Empty())
	assert.Contains(t, m.View(), "No payment records for this job")

	m = step(t, m, key("k"))
	assert.Equal(t, 0, m.cursor)
}

func TestStaleResultsAreDropped(t *testing.T) {
	m := loaded(t, fixture())
	current := m.history

	old := history.State{JobID: "job-old", Status: history.StatusReady, Generation: current.Generation - 1}
	next, _ := m.Update(historyMsg{state: old})
	m = next.(Model)
	assert.Equal(t, current.JobID, m.history.JobID)

	next, _ = m.Update(historyMsg{state: old, err: history.ErrStale})
	m = next.(Model)
	assert.Equal(t, current.JobID, m.history.JobID)

	next, _ = m.Update(pageMsg{state: clientpage.State{Generation: m.state.Generation - 1}})
	m = next.(Model)
	assert.Len(t, m.state.Jobs, 2)

	next, _ = m.Update(pageMsg{err: clientpage.ErrStale, state: clientpage.State{Generation: m.state.Generation + 1}})
	m = next.(Model)
	assert.Len(t, m.state.Jobs, 2)
}

func TestErrorStateAndRetry(t *testing.T) {
	fake := fixture()
	fake.jobsErr = &api.Error{Op: "PaymentEligibleJobs", StatusCode: 503, Message: "Service unavailable"}
	m := loaded(t, fake)

	assert.Equal(t, clientpage.StatusError, m.state.Status)
	view := m.View()
	assert.Contains(t, view, "Service unavailable")
	assert.Contains(t, view, "Press r to retry")

	fake.jobsErr = nil
	m = step(t, m, key("r"))
	assert.Equal(t, clientpage.StatusReady, m.state.Status)
	assert.Len(t, m.state.Jobs, 2)
}

func TestEmptyClient(t *testing.T) {
	m := loaded(t, &fakeAPI{})
	assert.True(t, m.state.Empty())
	assert.Contains(t, m.View(), "No payment-eligible jobs for this client")

	m = step(t, m, key("enter"))
	assert.Empty(t, m.state.SelectedJobID)
}

func TestQuit(t *testing.T) {
	m := loaded(t, fixture())
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
