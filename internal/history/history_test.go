package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydesk/pkg/models"
)

type fakeSource struct {
	mu      sync.Mutex
	records map[string][]models.PaymentRecord
	errs    map[string]error
	calls   map[string]int
	gates   map[string]chan struct{}
	started chan string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records: map[string][]models.PaymentRecord{},
		errs:    map[string]error{},
		calls:   map[string]int{},
		gates:   map[string]chan struct{}{},
	}
}

func (f *fakeSource) PaymentHistory(ctx context.Context, jobID string) ([]models.PaymentRecord, error) {
	f.mu.Lock()
	f.calls[jobID]++
	gate := f.gates[jobID]
	records := f.records[jobID]
	err := f.errs[jobID]
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- jobID
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return []models.PaymentRecord{}, err
	}
	return records, nil
}

func (f *fakeSource) set(jobID string, records []models.PaymentRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[jobID] = records
	f.errs[jobID] = err
}

func record(year, month int, amount int64, status models.PaymentStatus) models.PaymentRecord {
	return models.PaymentRecord{
		ID:          fmt.Sprintf("%d-%02d", year, month),
		Year:        year,
		Month:       month,
		TotalAmount: decimal.NewFromInt(amount),
		Status:      status,
	}
}

func randomRecords(f *gofakeit.Faker) []models.PaymentRecord {
	statuses := []string{"Paid", "Pending", "Overdue"}
	n := f.Number(0, 12)
	records := make([]models.PaymentRecord, n)
	for i := range records {
		records[i] = models.PaymentRecord{
			ID:          f.UUID(),
			Year:        f.Number(2020, 2025),
			Month:       f.Number(1, 12),
			TotalAmount: decimal.NewFromFloat(f.Price(0, 5000)).Round(2),
			Status:      models.PaymentStatus(f.RandomString(statuses)),
			CreatedAt:   models.NewTimestamp(f.Date()),
		}
	}
	return records
}

func TestComputeStatsExample(t *testing.T) {
	records := []models.PaymentRecord{
		record(2024, 3, 100, models.PaymentPaid),
		record(2024, 1, 50, models.PaymentPending),
	}

	stats := ComputeStats(records)
	assert.True(t, stats.Total.Equal(decimal.NewFromInt(150)))
	assert.True(t, stats.Paid.Equal(decimal.NewFromInt(100)))
	assert.True(t, stats.Pending.Equal(decimal.NewFromInt(50)))

	sorted := SortRecords(records)
	assert.Equal(t, 3, sorted[0].Month)
	assert.Equal(t, 1, sorted[1].Month)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	assert.True(t, stats.Total.IsZero())
	assert.True(t, stats.Paid.IsZero())
	assert.True(t, stats.Pending.IsZero())
	assert.Nil(t, stats.LastPaymentDate)
}

func TestComputeStatsDerivation(t *testing.T) {
	f := gofakeit.New(42)

	for i := 0; i < 200; i++ {
		records := randomRecords(f)
		stats := ComputeStats(records)

		sum := decimal.Zero
		for _, r := range records {
			sum = sum.Add(r.TotalAmount)
		}
		assert.True(t, stats.Total.Equal(sum), "total must equal the sum of record amounts")
		assert.True(t, stats.Paid.Add(stats.Pending).Equal(stats.Total), "paid + pending must equal total")

		reversed := make([]models.PaymentRecord, len(records))
		for j, r := range records {
			reversed[len(records)-1-j] = r
		}
		again := ComputeStats(reversed)
		assert.True(t, again.Total.Equal(stats.Total))
		assert.True(t, again.Paid.Equal(stats.Paid))
		assert.Equal(t, stats.LastPaymentDate, again.LastPaymentDate)
	}
}

func TestComputeStatsLastPaymentDate(t *testing.T) {
	older := record(2024, 1, 10, models.PaymentPaid)
	older.CreatedAt = models.NewTimestamp(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	newer := record(2024, 2, 10, models.PaymentPending)
	newer.CreatedAt = models.NewTimestamp(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))
	undated := record(2024, 3, 10, models.PaymentPending)

	stats := ComputeStats([]models.PaymentRecord{newer, undated, older})
	require.NotNil(t, stats.LastPaymentDate)
	assert.Equal(t, newer.CreatedAt.Time, *stats.LastPaymentDate)
}

func TestClassifyInvoicesPartition(t *testing.T) {
	f := gofakeit.New(7)
	methods := []string{"Bank Transfer", "Cash", "Document Only", "Card"}
	options := []string{"", "", "DOCUMENT_ONLY"}

	for i := 0; i < 200; i++ {
		invoices := make([]models.Invoice, f.Number(0, 8))
		for j := range invoices {
			invoices[j] = models.Invoice{
				ID:            f.UUID(),
				PaymentMethod: f.RandomString(methods),
				Option:        f.RandomString(options),
			}
		}

		payments, documents := ClassifyInvoices(invoices)
		assert.Equal(t, len(invoices), len(payments)+len(documents))

		payments2, documents2 := ClassifyInvoices(invoices)
		assert.Equal(t, payments, payments2)
		assert.Equal(t, documents, documents2)

		for _, inv := range documents {
			assert.True(t, inv.IsDocumentOnly())
		}
		for _, inv := range payments {
			assert.False(t, inv.IsDocumentOnly())
		}
	}
}

func TestClassifyInvoicesNil(t *testing.T) {
	payments, documents := ClassifyInvoices(nil)
	assert.NotNil(t, payments)
	assert.NotNil(t, documents)
	assert.Empty(t, payments)
	assert.Empty(t, documents)
}

func TestPrimaryDocumentIsFirst(t *testing.T) {
	r := models.PaymentRecord{Invoices: []models.Invoice{
		{ID: "pay", PaymentMethod: "Cash"},
		{ID: "doc-1", Option: models.InvoiceOptionDocumentOnly},
		{ID: "doc-2", PaymentMethod: models.PaymentMethodDocumentOnly},
	}}

	doc, ok := PrimaryDocument(r)
	require.True(t, ok)
	assert.Equal(t, "doc-1", doc.ID)
	assert.True(t, HasDocument(r))
	assert.Len(t, PaymentInvoices(r), 1)

	_, ok = PrimaryDocument(models.PaymentRecord{})
	assert.False(t, ok)
	assert.False(t, HasDocument(models.PaymentRecord{}))
}

func TestSortRecordsStable(t *testing.T) {
	first := record(2024, 5, 1, models.PaymentPaid)
	first.ID = "first"
	second := record(2024, 5, 2, models.PaymentPaid)
	second.ID = "second"
	input := []models.PaymentRecord{
		record(2023, 12, 1, models.PaymentPaid),
		first,
		record(2025, 1, 1, models.PaymentPaid),
		second,
	}

	sorted := SortRecords(input)
	ids := make([]string, len(sorted))
	for i, r := range sorted {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"2025-01", "first", "second", "2023-12"}, ids)
	assert.Equal(t, "2023-12", input[0].ID, "input must not be reordered")
	assert.Equal(t, sorted, SortRecords(sorted))
}

func TestViewModelLoad(t *testing.T) {
	source := newFakeSource()
	source.set("j1", []models.PaymentRecord{
		record(2024, 1, 50, models.PaymentPending),
		record(2024, 3, 100, models.PaymentPaid),
	}, nil)

	vm := NewViewModel(source)
	assert.Equal(t, StatusIdle, vm.State().Status)

	state, err := vm.Load(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, state.Status)
	assert.Equal(t, "2024-03", state.Records[0].ID)
	assert.True(t, state.Stats.Total.Equal(decimal.NewFromInt(150)))
	assert.False(t, state.Empty())
}

func TestViewModelEmptyIsNotError(t *testing.T) {
	source := newFakeSource()
	source.set("j1", nil, nil)

	state, err := NewViewModel(source).Load(context.Background(), "j1")
	require.NoError(t, err)
	assert.True(t, state.Empty())
	assert.Nil(t, state.Err)
}

func TestViewModelRefreshFailureKeepsLastKnownGood(t *testing.T) {
	source := newFakeSource()
	source.set("j1", []models.PaymentRecord{record(2024, 3, 100, models.PaymentPaid)}, nil)

	vm := NewViewModel(source)
	_, err := vm.Load(context.Background(), "j1")
	require.NoError(t, err)

	boom := errors.New("connection reset")
	source.set("j1", nil, boom)

	state, err := vm.Reload(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, state.Status)
	assert.True(t, state.Stale)
	require.Len(t, state.Records, 1)
	assert.True(t, state.Stats.Total.Equal(decimal.NewFromInt(100)))

	source.set("j1", []models.PaymentRecord{record(2024, 4, 10, models.PaymentPending)}, nil)
	state, err = vm.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Stale)
	assert.Equal(t, "2024-04", state.Records[0].ID)
}

func TestViewModelFailureOnOtherJobClears(t *testing.T) {
	source := newFakeSource()
	source.set("j1", []models.PaymentRecord{record(2024, 3, 100, models.PaymentPaid)}, nil)
	source.set("j2", nil, errors.New("timeout"))

	vm := NewViewModel(source)
	_, err := vm.Load(context.Background(), "j1")
	require.NoError(t, err)

	state, err := vm.Load(context.Background(), "j2")
	require.Error(t, err)
	assert.Equal(t, "j2", state.JobID)
	assert.Equal(t, StatusError, state.Status)
	assert.Empty(t, state.Records)
	assert.False(t, state.Stale)
}

func TestViewModelDiscardsStaleResponse(t *testing.T) {
	source := newFakeSource()
	source.set("slow", []models.PaymentRecord{record(2020, 1, 1, models.PaymentPaid)}, nil)
	source.set("fast", []models.PaymentRecord{record(2024, 6, 5, models.PaymentPending)}, nil)
	gate := make(chan struct{})
	source.gates["slow"] = gate
	source.started = make(chan string, 2)

	vm := NewViewModel(source)

	type result struct {
		state State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		state, err := vm.Load(context.Background(), "slow")
		done <- result{state, err}
	}()
	require.Equal(t, "slow", <-source.started)

	state, err := vm.Load(context.Background(), "fast")
	require.NoError(t, err)
	assert.Equal(t, "fast", state.JobID)
	<-source.started

	close(gate)
	slow := <-done
	assert.ErrorIs(t, slow.err, ErrStale)

	current := vm.State()
	assert.Equal(t, "fast", current.JobID)
	assert.Equal(t, StatusReady, current.Status)
	require.Len(t, current.Records, 1)
	assert.Equal(t, "2024-06", current.Records[0].ID)
}

func TestViewModelLoadIfSkipsDeselectedJob(t *testing.T) {
	source := newFakeSource()
	source.set("a", []models.PaymentRecord{record(2024, 1, 10, models.PaymentPaid)}, nil)
	source.set("b", []models.PaymentRecord{record(2024, 2, 20, models.PaymentPending)}, nil)

	vm := NewViewModel(source)
	loaded, err := vm.LoadIf(context.Background(), "b", func() bool { return true })
	require.NoError(t, err)

	state, err := vm.LoadIf(context.Background(), "a", func() bool { return false })
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, "b", state.JobID)
	assert.Equal(t, loaded.Generation, vm.State().Generation)
	assert.Equal(t, "b", vm.State().JobID)
	assert.Zero(t, source.calls["a"])
}

func TestViewModelClear(t *testing.T) {
	source := newFakeSource()
	source.set("j1", []models.PaymentRecord{record(2024, 3, 100, models.PaymentPaid)}, nil)

	vm := NewViewModel(source)
	_, err := vm.Load(context.Background(), "j1")
	require.NoError(t, err)

	vm.Clear()
	state := vm.State()
	assert.Equal(t, StatusIdle, state.Status)
	assert.Empty(t, state.Records)

	state, err = vm.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, state.Status)
}

func TestLoadAllFaultTolerance(t *testing.T) {
	f := gofakeit.New(99)

	for round := 0; round < 20; round++ {
		source := newFakeSource()
		n := f.Number(1, 30)
		jobs := make([]models.Job, n)
		failed := map[string]bool{}
		for i := range jobs {
			jobs[i] = models.Job{ID: f.UUID(), ClientName: f.Company()}
			if f.Bool() {
				failed[jobs[i].ID] = true
				source.set(jobs[i].ID, nil, errors.New("boom"))
			} else {
				source.set(jobs[i].ID, []models.PaymentRecord{record(2024, f.Number(1, 12), 10, models.PaymentPaid)}, nil)
			}
		}

		results := LoadAll(context.Background(), source, jobs, 4)
		require.Len(t, results, n)
		for i, r := range results {
			assert.Equal(t, jobs[i].ID, r.Job.ID, "results must follow input order")
			if failed[r.Job.ID] {
				assert.Equal(t, []models.PaymentRecord{}, r.Payments)
				assert.False(t, r.HasPayments)
				assert.Error(t, r.Err)
			} else {
				assert.True(t, r.HasPayments)
				assert.Len(t, r.Payments, 1)
			}
		}
	}
}

func TestLoadAllFetchesDuplicatesOnce(t *testing.T) {
	source := newFakeSource()
	source.set("a", []models.PaymentRecord{record(2024, 1, 10, models.PaymentPaid)}, nil)
	source.set("b", nil, nil)

	jobs := []models.Job{{ID: "a"}, {ID: "b"}, {ID: "a", ClientName: "again"}}
	results := LoadAll(context.Background(), source, jobs, 0)

	require.Len(t, results, 3)
	assert.Equal(t, 1, source.calls["a"])
	assert.True(t, results[0].HasPayments)
	assert.False(t, results[1].HasPayments)
	assert.True(t, results[2].HasPayments)
	assert.Equal(t, "again", results[2].Job.ClientName)

	marked := MarkPayments(jobs, results)
	assert.True(t, marked[0].HasPayments)
	assert.False(t, marked[1].HasPayments)
}
