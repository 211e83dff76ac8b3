// Package joblist holds the view-model of the paginated payment-eligible job
// listing: server-side search and pagination, a client-side re-filter of the
// returned page, and local sorting.
package joblist

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"paydesk/internal/api"
	"paydesk/internal/logger"
	"paydesk/pkg/models"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

// ErrStale is returned when a newer search finished first; the older
// response is discarded.
var ErrStale = errors.New("joblist: response superseded by a newer search")

// Source lists payment-eligible jobs.
type Source interface {
	PaymentEligibleJobs(ctx context.Context, q api.JobQuery) (api.JobPage, error)
}

// Status is the render state of the listing.
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
	Query    string
	Sort     SortKey
	PageSize int
	Status   Status

	// Jobs is the current page after re-filtering and sorting.
	Jobs []models.Job

	// Pagination is exactly what the server reported for the page, even when
	// the client-side filter removed jobs from it.
	Pagination models.Pagination

	Err        error
	Stale      bool
	Generation uint64

	// loaded is the request that produced Jobs.
	loaded api.JobQuery
}

// Empty reports whether a successful search returned no jobs.
func (s State) Empty() bool {
	return s.Status == StatusReady && len(s.Jobs) == 0
}

// Controls returns the pagination bar for the state.
func (s State) Controls() Controls {
	return PageControls(s.Pagination)
}

func (s State) clone() State {
	out := s
	out.Jobs = make([]models.Job, len(s.Jobs))
	copy(out.Jobs, s.Jobs)
	return out
}

// ViewModel is the job listing state machine. Navigation methods only change
// the requested page; Refresh fetches it. It is safe for concurrent use.
type ViewModel struct {
	source Source
	log    zerolog.Logger

	mu         sync.Mutex
	generation uint64
	state      State
}

// NewViewModel creates an idle listing with the given page size.
func NewViewModel(source Source, pageSize int) *ViewModel {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ViewModel{
		source: source,
		log:    logger.WithComponent("joblist"),
		state: State{
			Sort:       DefaultSort,
			PageSize:   pageSize,
			Status:     StatusIdle,
			Jobs:       []models.Job{},
			Pagination: models.NewPagination(1, pageSize, 0),
		},
	}
}

// State returns a copy of the current state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state.clone()
}

// SetQuery changes the search query. The requested page always goes back to 1.
func (vm *ViewModel) SetQuery(query string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Query = query
	vm.state.Pagination.CurrentPage = 1
}

// SetSort changes the ordering and re-sorts the current page in place.
func (vm *ViewModel) SetSort(key SortKey) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Sort = ParseSortKey(string(key))
	vm.state.Jobs = SortJobs(vm.state.Jobs, vm.state.Sort)
}

// GoToPage requests page n, clamped to [1, TotalPages]. It returns the page
// that will be fetched.
func (vm *ViewModel) GoToPage(n int) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Pagination.CurrentPage = clampPage(n, vm.state.Pagination.TotalPages)
	return vm.state.Pagination.CurrentPage
}

// NextPage requests the following page.
func (vm *ViewModel) NextPage() int {
	return vm.GoToPage(vm.currentPage() + 1)
}

// PrevPage requests the preceding page.
func (vm *ViewModel) PrevPage() int {
	return vm.GoToPage(vm.currentPage() - 1)
}

// FirstPage requests page 1.
func (vm *ViewModel) FirstPage() int {
	return vm.GoToPage(1)
}

// LastPage requests the last page.
func (vm *ViewModel) LastPage() int {
	vm.mu.Lock()
	total := vm.state.Pagination.TotalPages
	vm.mu.Unlock()
	return vm.GoToPage(total)
}

func (vm *ViewModel) currentPage() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state.Pagination.CurrentPage
}

// Search sets query, page and page size and fetches that page. Changing the
// query of a listing that was already fetched starts again at page 1; the
// first search of a listing fetches the requested page.
func (vm *ViewModel) Search(ctx context.Context, query string, page, pageSize int) (State, error) {
	vm.mu.Lock()
	if vm.generation > 0 && query != vm.state.Query {
		page = 1
	}
	vm.state.Query = query
	if pageSize > 0 {
		vm.state.PageSize = pageSize
	}
	if page < 1 {
		page = 1
	}
	vm.state.Pagination.CurrentPage = page
	vm.mu.Unlock()

	return vm.Refresh(ctx)
}

// Refresh fetches the currently requested page.
//
// The returned page is re-filtered locally against the query, which may drop
// jobs but never changes the reported pagination. A failed refresh of the
// same query and page keeps the previous jobs with Stale set; any other
// failure clears them.
func (vm *ViewModel) Refresh(ctx context.Context) (State, error) {
	const op = "joblist.Refresh"

	vm.mu.Lock()
	vm.generation++
	gen := vm.generation
	query := api.JobQuery{
		Page:   vm.state.Pagination.CurrentPage,
		Limit:  vm.state.PageSize,
		Search: vm.state.Query,
	}
	vm.state.Status = StatusLoading
	vm.state.Err = nil
	vm.state.Generation = gen
	vm.mu.Unlock()

	page, err := vm.source.PaymentEligibleJobs(ctx, query)

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if gen != vm.generation {
		vm.log.Debug().
			Str("query", query.Search).
			Int("page", query.Page).
			Uint64("generation", gen).
			Msg("Discarding stale job list")
		return vm.state.clone(), ErrStale
	}

	if err != nil {
		sameRequest := len(vm.state.Jobs) > 0 && vm.state.loaded == query
		vm.state.Status = StatusError
		vm.state.Err = err
		vm.state.Stale = sameRequest
		if !sameRequest {
			vm.state.Jobs = []models.Job{}
			vm.state.Pagination = models.NewPagination(query.Page, query.Limit, 0)
			vm.state.loaded = api.JobQuery{}
		}
		vm.log.Warn().
			Err(err).
			Str("query", query.Search).
			Int("page", query.Page).
			Msg("Failed to load jobs")
		return vm.state.clone(), fmt.Errorf("%s: %w", op, err)
	}

	filtered := FilterJobs(page.Jobs, query.Search)
	vm.state.Jobs = SortJobs(filtered, vm.state.Sort)
	vm.state.Pagination = page.Pagination
	vm.state.Status = StatusReady
	vm.state.Stale = false
	vm.state.loaded = query

	if dropped := len(page.Jobs) - len(filtered); dropped > 0 {
		vm.log.Debug().
			Int("dropped", dropped).
			Str("query", query.Search).
			Msg("Client-side filter removed jobs from server page")
	}

	return vm.state.clone(), nil
}
