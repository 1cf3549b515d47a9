package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ListOptions control filtering, ordering, and paging of a List call.
type ListOptions struct {
	Filter  string
	Sort    string
	Page    int
	PerPage int
}

// Filter builds a store filter expression. Every %s verb in format is
// replaced by the corresponding value with single quotes escaped, so caller
// data can never break out of the expression.
func Filter(format string, values ...string) string {
	escaped := make([]any, len(values))
	for i, v := range values {
		escaped[i] = strings.ReplaceAll(v, "'", "\\'")
	}
	return fmt.Sprintf(format, escaped...)
}

// List fetches a page of records from a collection, decoding the items into
// itemsOut (a pointer to a slice). It returns the collection-wide total for
// the filter, which callers use for threshold checks without fetching rows.
func (s *Session) List(ctx context.Context, collection string, opts ListOptions, itemsOut any) (int, error) {
	q := url.Values{}
	if opts.Filter != "" {
		q.Set("filter", "("+opts.Filter+")")
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		q.Set("perPage", strconv.Itoa(opts.PerPage))
	}

	path := "/api/collections/" + collection + "/records"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var envelope struct {
		Page       int             `json:"page"`
		PerPage    int             `json:"perPage"`
		TotalItems int             `json:"totalItems"`
		Items      json.RawMessage `json:"items"`
	}
	if err := s.do(ctx, http.MethodGet, path, collection, "", nil, &envelope); err != nil {
		return 0, err
	}

	if itemsOut != nil && len(envelope.Items) > 0 {
		if err := json.Unmarshal(envelope.Items, itemsOut); err != nil {
			return 0, fmt.Errorf("parse %s items: %w", collection, err)
		}
	}
	return envelope.TotalItems, nil
}

// Get fetches a single record by id.
func (s *Session) Get(ctx context.Context, collection, id string, out any) error {
	path := "/api/collections/" + collection + "/records/" + url.PathEscape(id)
	return s.do(ctx, http.MethodGet, path, collection, id, nil, out)
}

// Create inserts a record and decodes the stored record (with its assigned
// id) into out when out is non-nil.
func (s *Session) Create(ctx context.Context, collection string, body, out any) error {
	path := "/api/collections/" + collection + "/records"
	return s.do(ctx, http.MethodPost, path, collection, "", body, out)
}

// Patch applies a partial update to a record.
func (s *Session) Patch(ctx context.Context, collection, id string, body, out any) error {
	path := "/api/collections/" + collection + "/records/" + url.PathEscape(id)
	return s.do(ctx, http.MethodPatch, path, collection, id, body, out)
}

// Delete removes a record.
func (s *Session) Delete(ctx context.Context, collection, id string) error {
	path := "/api/collections/" + collection + "/records/" + url.PathEscape(id)
	return s.do(ctx, http.MethodDelete, path, collection, id, nil, nil)
}
