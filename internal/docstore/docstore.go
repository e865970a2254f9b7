// Package docstore provides a minimal document-store client: schemaless
// collections of id-keyed field maps, with equality and greater-than
// filtered queries, partial updates, merge-upserts, and store-assigned
// timestamps. Two backends exist: postgres (jsonb) and an in-memory store
// used by tests and development.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeLayout is the canonical encoding for timestamp fields. It is fixed
// width and always UTC, so lexicographic order over encoded values equals
// chronological order. Both backends rely on that for range filters and
// ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Op is a filter comparison operator.
type Op string

const (
	OpEqual   Op = "=="
	OpGreater Op = ">"
)

// Filter constrains a query to documents whose field compares true against
// the given value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order sorts query results by a field.
type Order struct {
	Field string
	Desc  bool
}

// Query combines filters, ordering, and an optional result limit.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

// Document is a stored record: an opaque store-assigned handle plus its
// fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// String returns the named field as a string, or "" when absent.
func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Bool returns the named field as a bool, or false when absent.
func (d Document) Bool(field string) bool {
	b, _ := d.Fields[field].(bool)
	return b
}

// Time decodes the named timestamp field, returning the zero time when the
// field is absent or not a canonical timestamp.
func (d Document) Time(field string) time.Time {
	s, ok := d.Fields[field].(string)
	if !ok {
		return time.Time{}
	}
	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Store is the generic document store contract. Every call is expected to
// be wrapped in a caller-side timeout; implementations honor context
// cancellation.
type Store interface {
	// Get fetches a single document by handle. Returns ErrNotFound when
	// the document does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Query returns documents matching all filters, ordered and limited as
	// requested. A missing field never matches a filter.
	Query(ctx context.Context, collection string, q Query) ([]Document, error)

	// Add stores a new document and returns its assigned handle.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Update merges the given fields into an existing document. Returns
	// ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Set merge-upserts: fields are merged into the document with the given
	// handle, creating it when absent. Unspecified fields are left alone.
	Set(ctx context.Context, collection, id string, fields map[string]any) error
}

// ErrNotFound is returned by Get and Update for missing documents.
var ErrNotFound = errors.New("docstore: document not found")

// serverTimestampSentinel marks a field to be assigned the store's own
// clock at write time.
type serverTimestampSentinel struct{}

// ServerTimestamp is a sentinel field value replaced with the current time
// when the write is applied.
var ServerTimestamp = serverTimestampSentinel{}

// StoreError classifies a backend failure as retryable or not.
type StoreError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *StoreError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("docstore: %s: %s store error: %v", e.Op, kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable store failure.
func Transient(op string, err error) error {
	return &StoreError{Op: op, Transient: true, Err: err}
}

// Fatal wraps err as a non-retryable store failure.
func Fatal(op string, err error) error {
	return &StoreError{Op: op, Transient: false, Err: err}
}

// IsTransient reports whether err is a retryable store failure. Context
// deadline and cancellation errors are not transient; they surface as
// timeouts to the caller.
func IsTransient(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Transient
	}
	return false
}

// FormatTime encodes a timestamp in the canonical field encoding.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a canonical timestamp field value.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// resolveFields copies fields, assigning server timestamps and normalizing
// time values to the canonical encoding. Both backends call this before
// writing so stored representations stay comparable.
func resolveFields(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = normalizeValue(v, now)
	}
	return out
}

func normalizeValue(v any, now time.Time) any {
	switch val := v.(type) {
	case serverTimestampSentinel:
		return FormatTime(now)
	case time.Time:
		return FormatTime(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	default:
		return v
	}
}
