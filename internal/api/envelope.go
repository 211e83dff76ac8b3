package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"paydesk/pkg/models"
)

// shapeKind tags which of the backend's list shapes a response used.
type shapeKind int

const (
	// shapeBare is a bare JSON array.
	shapeBare shapeKind = iota + 1

	// shapeEnvelope is an object carrying the collection and, optionally, a
	// pagination descriptor.
	shapeEnvelope
)

func (k shapeKind) String() string {
	switch k {
	case shapeBare:
		return "bare"
	case shapeEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// listShape is a decoded list response before normalization.
type listShape[T any] struct {
	kind       shapeKind
	items      []T
	pagination *models.Pagination
}

// wirePagination accepts the pagination key spellings seen across backend
// handlers.
type wirePagination struct {
	CurrentPage  *int `json:"currentPage"`
	Page         *int `json:"page"`
	TotalPages   *int `json:"totalPages"`
	Pages        *int `json:"pages"`
	TotalItems   *int `json:"totalItems"`
	Total        *int `json:"total"`
	ItemsPerPage *int `json:"itemsPerPage"`
	Limit        *int `json:"limit"`
}

func (w wirePagination) toModel() models.Pagination {
	first := func(vals ...*int) int {
		for _, v := range vals {
			if v != nil {
				return *v
			}
		}
		return 0
	}
	return models.Pagination{
		CurrentPage:  first(w.CurrentPage, w.Page),
		TotalPages:   first(w.TotalPages, w.Pages),
		TotalItems:   first(w.TotalItems, w.Total),
		ItemsPerPage: first(w.ItemsPerPage, w.Limit),
	}
}

// decodeList decodes a list response in either shape. keys names the
// collection field of the envelope form; "data" is always tried last.
func decodeList[T any](body []byte, keys ...string) (listShape[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return listShape[T]{kind: shapeBare}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return listShape[T]{}, err
		}
		return listShape[T]{kind: shapeBare, items: items}, nil
	case '{':
		return decodeEnvelope[T](trimmed, keys, true)
	default:
		return listShape[T]{}, fmt.Errorf("list response is neither an array nor an object")
	}
}

func decodeEnvelope[T any](body []byte, keys []string, descend bool) (listShape[T], error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return listShape[T]{}, err
	}

	shape := listShape[T]{kind: shapeEnvelope}
	if raw, ok := fields["pagination"]; ok && !isNull(raw) {
		var wp wirePagination
		if err := json.Unmarshal(raw, &wp); err != nil {
			return listShape[T]{}, fmt.Errorf("decoding pagination: %w", err)
		}
		p := wp.toModel()
		shape.pagination = &p
	}

	for _, key := range append(keys, "data") {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if raw[0] == '{' && descend {
			// {data: {jobs: [...], pagination: {...}}}
			inner, err := decodeEnvelope[T](raw, keys, false)
			if err != nil {
				return listShape[T]{}, err
			}
			if inner.pagination == nil {
				inner.pagination = shape.pagination
			}
			return inner, nil
		}
		if err := json.Unmarshal(raw, &shape.items); err != nil {
			return listShape[T]{}, fmt.Errorf("decoding %q: %w", key, err)
		}
		return shape, nil
	}

	// An envelope without any collection is an empty page.
	return shape, nil
}

// normalize converts a decoded list into items plus a complete pagination
// descriptor. Bare lists and envelopes without pagination are described as a
// single page holding every item, or as zero pages when there are no items;
// itemsPerPage is the requested limit, or the item count when no limit was
// requested.
func (s listShape[T]) normalize(page, limit int) ([]T, models.Pagination) {
	items := s.items
	if items == nil {
		items = []T{}
	}

	if s.pagination == nil {
		perPage := limit
		if perPage <= 0 {
			perPage = len(items)
		}
		totalPages := 1
		if len(items) == 0 {
			totalPages = 0
		}
		return items, models.Pagination{
			CurrentPage:  1,
			TotalPages:   totalPages,
			TotalItems:   len(items),
			ItemsPerPage: perPage,
		}
	}

	p := *s.pagination
	if p.CurrentPage <= 0 {
		p.CurrentPage = page
		if p.CurrentPage <= 0 {
			p.CurrentPage = 1
		}
	}
	if p.ItemsPerPage <= 0 {
		p.ItemsPerPage = limit
		if p.ItemsPerPage <= 0 {
			p.ItemsPerPage = len(items)
		}
	}
	if p.TotalItems < len(items) && p.TotalPages <= 1 {
		p.TotalItems = len(items)
	}
	if p.TotalPages <= 0 && p.TotalItems > 0 {
		p.TotalPages = models.NewPagination(p.CurrentPage, p.ItemsPerPage, p.TotalItems).TotalPages
	}
	return items, p
}

// decodeObject decodes a single-object response that is either the bare
// object or wrapped under one of keys or "data".
func decodeObject[T any](body []byte, out *T, keys ...string) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("object response is not a JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return err
	}
	for _, key := range append(keys, "data") {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			return json.Unmarshal(raw, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
