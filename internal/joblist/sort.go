package joblist

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"paydesk/pkg/models"
)

// SortKey selects the ordering of a job list.
type SortKey string

const (
	SortDateAsc     SortKey = "date-asc"
	SortDateDesc    SortKey = "date-desc"
	SortClientAsc   SortKey = "client-asc"
	SortClientDesc  SortKey = "client-desc"
	SortServiceAsc  SortKey = "service-asc"
	SortServiceDesc SortKey = "service-desc"

	DefaultSort = SortDateDesc
)

// SortKeys lists the supported keys in display order.
var SortKeys = []SortKey{
	SortDateDesc, SortDateAsc,
	SortClientAsc, SortClientDesc,
	SortServiceAsc, SortServiceDesc,
}

// ParseSortKey returns the key named s, or DefaultSort for anything unknown.
func ParseSortKey(s string) SortKey {
	key := SortKey(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range SortKeys {
		if k == key {
			return k
		}
	}
	return DefaultSort
}

// SortJobs returns jobs ordered by key. Dates use createdAt, then updatedAt,
// then the zero time. Names compare with locale-aware collation and a missing
// name sorts as the empty string. Equal elements keep their input order and
// the input slice is not modified.
func SortJobs(jobs []models.Job, key SortKey) []models.Job {
	sorted := make([]models.Job, len(jobs))
	copy(sorted, jobs)

	key = ParseSortKey(string(key))
	switch key {
	case SortDateAsc, SortDateDesc:
		desc := key == SortDateDesc
		sort.SliceStable(sorted, func(i, j int) bool {
			a, b := sorted[i].SortTime().Time, sorted[j].SortTime().Time
			if desc {
				return a.After(b)
			}
			return a.Before(b)
		})
	default:
		field := func(j models.Job) string { return j.ClientName }
		if key == SortServiceAsc || key == SortServiceDesc {
			field = func(j models.Job) string { return j.ServiceType }
		}
		desc := key == SortClientDesc || key == SortServiceDesc

		// Collators keep internal buffers, so each sort gets its own.
		c := collate.New(language.English)
		sort.SliceStable(sorted, func(i, j int) bool {
			cmp := c.CompareString(field(sorted[i]), field(sorted[j]))
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return sorted
}

// FilterJobs keeps the jobs whose id, client name, service type or any of the
// client email fields contain query, ignoring case. An empty query keeps
// everything.
func FilterJobs(jobs []models.Job, query string) []models.Job {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]models.Job, len(jobs))
		copy(out, jobs)
		return out
	}

	out := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if jobMatches(job, query) {
			out = append(out, job)
		}
	}
	return out
}

func jobMatches(job models.Job, query string) bool {
	fields := append([]string{job.ID, job.ClientName, job.ServiceType}, job.Emails()...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
