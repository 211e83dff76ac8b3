package joblist

import "paydesk/pkg/models"

// maxPageButtons is the number of page numbers shown at once.
const maxPageButtons = 5

// Controls describes the pagination bar for a result page.
type Controls struct {
	// Visible is false for empty and single-page results; nothing else in
	// Controls is meaningful then.
	Visible bool

	Current int
	Total   int

	HasFirst bool
	HasPrev  bool
	HasNext  bool

	// Pages is the window of page numbers around Current.
	Pages []int
}

// PageControls computes the pagination bar for p.
func PageControls(p models.Pagination) Controls {
	if p.TotalPages <= 1 {
		return Controls{Current: 1, Total: p.TotalPages}
	}

	current := clampPage(p.CurrentPage, p.TotalPages)
	start := current - maxPageButtons/2
	if start < 1 {
		start = 1
	}
	end := start + maxPageButtons - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = end - maxPageButtons + 1
		if start < 1 {
			start = 1
		}
	}

	pages := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		pages = append(pages, n)
	}

	return Controls{
		Visible:  true,
		Current:  current,
		Total:    p.TotalPages,
		HasFirst: current > 1,
		HasPrev:  current > 1,
		HasNext:  current < p.TotalPages,
		Pages:    pages,
	}
}

// clampPage limits page to [1, totalPages]; with no pages it is 1.
func clampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	switch {
	case page < 1:
		return 1
	case page > totalPages:
		return totalPages
	default:
		return page
	}
}
