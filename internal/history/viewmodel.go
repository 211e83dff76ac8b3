// Package history holds the payment history view-model of a single job and
// the pure helpers used to render it.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"paydesk/internal/logger"
	"paydesk/pkg/models"
)

// ErrStale is returned by Load when a newer load started before this one
// finished. The stale response is discarded.
var ErrStale = errors.New("history: response superseded by a newer load")

// Source fetches the payment records of a job.
type Source interface {
	PaymentHistory(ctx context.Context, jobID string) ([]models.PaymentRecord, error)
}

// Status is the render state of a history view.
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

// State is a snapshot of the view-model.
type State struct {
	JobID   string
	Status  Status
	Records []models.PaymentRecord
	Stats   Stats
	Err     error

	// Stale is set when a reload failed and Records are the last data that
	// loaded successfully for the same job.
	Stale bool

	Generation uint64
}

// Empty reports whether a successful load returned no records.
func (s State) Empty() bool {
	return s.Status == StatusReady && len(s.Records) == 0
}

func (s State) clone() State {
	out := s
	out.Records = make([]models.PaymentRecord, len(s.Records))
	copy(out.Records, s.Records)
	return out
}

// ViewModel loads and holds the payment history of one job at a time. It is
// safe for concurrent use; network calls happen outside the lock and every
// load is tagged with a generation so a late response never overwrites the
// result of a newer load.
type ViewModel struct {
	source Source
	log    zerolog.Logger

	mu         sync.Mutex
	generation uint64
	state      State
}

// NewViewModel creates an idle view-model reading from source.
func NewViewModel(source Source) *ViewModel {
	return &ViewModel{
		source: source,
		log:    logger.WithComponent("history"),
		state: State{
			Status:  StatusIdle,
			Records: []models.PaymentRecord{},
			Stats:   ComputeStats(nil),
		},
	}
}

// State returns a copy of the current state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state.clone()
}

// Load fetches the records of jobID, sorts them newest first and computes
// their stats.
//
// When loading a different job the previous records are cleared immediately.
// When a reload of the same job fails, the records from the last successful
// load are kept with Stale set; a failed first load leaves an empty list.
// Either way the state moves to StatusError and the error is returned.
func (vm *ViewModel) Load(ctx context.Context, jobID string) (State, error) {
	return vm.load(ctx, jobID, nil)
}

// LoadIf is Load started only while current reports true. current runs under
// the view-model lock, so a caller whose selection moved on before the load
// began gets ErrStale instead of replacing the newer job's history.
func (vm *ViewModel) LoadIf(ctx context.Context, jobID string, current func() bool) (State, error) {
	return vm.load(ctx, jobID, current)
}

func (vm *ViewModel) load(ctx context.Context, jobID string, current func() bool) (State, error) {
	const op = "history.Load"

	vm.mu.Lock()
	if current != nil && !current() {
		state := vm.state.clone()
		vm.mu.Unlock()
		vm.log.Debug().Str("job_id", jobID).Msg("Skipping payment history of a deselected job")
		return state, ErrStale
	}
	vm.generation++
	gen := vm.generation
	if vm.state.JobID != jobID {
		vm.state = State{
			JobID:   jobID,
			Records: []models.PaymentRecord{},
			Stats:   ComputeStats(nil),
		}
	}
	vm.state.Status = StatusLoading
	vm.state.Err = nil
	vm.state.Generation = gen
	vm.mu.Unlock()

	records, err := vm.source.PaymentHistory(ctx, jobID)

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if gen != vm.generation {
		vm.log.Debug().
			Str("job_id", jobID).
			Uint64("generation", gen).
			Uint64("current", vm.generation).
			Msg("Discarding stale payment history")
		return vm.state.clone(), ErrStale
	}

	if err != nil {
		vm.state.Status = StatusError
		vm.state.Err = err
		vm.state.Stale = len(vm.state.Records) > 0
		vm.log.Warn().
			Err(err).
			Str("job_id", jobID).
			Bool("stale", vm.state.Stale).
			Msg("Failed to load payment history")
		return vm.state.clone(), fmt.Errorf("%s: %w", op, err)
	}

	sorted := SortRecords(records)
	vm.state = State{
		JobID:      jobID,
		Status:     StatusReady,
		Records:    sorted,
		Stats:      ComputeStats(sorted),
		Generation: gen,
	}

	vm.log.Debug().
		Str("job_id", jobID).
		Int("records", len(sorted)).
		Str("total", vm.state.Stats.Total.StringFixed(2)).
		Msg("Payment history loaded")

	return vm.state.clone(), nil
}

// Reload repeats the load of the current job. It is the retry action of the
// error state.
func (vm *ViewModel) Reload(ctx context.Context) (State, error) {
	vm.mu.Lock()
	jobID := vm.state.JobID
	vm.mu.Unlock()

	if jobID == "" {
		return vm.State(), nil
	}
	return vm.Load(ctx, jobID)
}

// Clear resets the view-model to idle and invalidates in-flight loads.
func (vm *ViewModel) Clear() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.generation++
	vm.state = State{
		Status:     StatusIdle,
		Records:    []models.PaymentRecord{},
		Stats:      ComputeStats(nil),
		Generation: vm.generation,
	}
}
