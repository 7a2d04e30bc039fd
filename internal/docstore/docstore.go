// Package docstore is the client side of the hierarchical document store:
// live queries, field-merge writes and atomic batches.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrMissingIndex = errors.New("no index available for requested sort")
	ErrBatchFailed  = errors.New("batch write failed")
)

// Field names the store manages itself.
const (
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

type serverTimestamp struct{}

// ServerTimestamp is a field value placeholder replaced with the store's clock
// when the write is applied.
var ServerTimestamp = serverTimestamp{}

type Document struct {
	ID     string
	Fields map[string]interface{}
}

// Decode converts the document into v through its JSON representation, with
// the document id exposed as "id".
func (d Document) Decode(v interface{}) error {
	fields := make(map[string]interface{}, len(d.Fields)+1)
	for k, val := range d.Fields {
		fields[k] = val
	}
	fields["id"] = d.ID

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value interface{}
}

type SortField struct {
	Field string
	Desc  bool
}

type Query struct {
	Path    string
	Where   []Filter
	OrderBy []SortField
}

func (q Query) Sorted() bool {
	return len(q.OrderBy) > 0
}

// Write is one member of a batch: a field merge into an existing document.
type Write struct {
	Path   string
	ID     string
	Fields map[string]interface{}
}

// Snapshot is the full result set of a live query at one point in time. When
// Err is set the query failed and Docs is empty.
type Snapshot struct {
	Docs []Document
	Err  error
}

type Listener func(Snapshot)

type Subscription interface {
	// Unsubscribe stops delivery. Once it returns the listener is not called again.
	Unsubscribe()
}

type Client interface {
	Subscribe(ctx context.Context, q Query, fn Listener) (Subscription, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Get(ctx context.Context, path, id string) (Document, error)
	Create(ctx context.Context, path string, fields map[string]interface{}) (string, error)
	UpdateFields(ctx context.Context, path, id string, fields map[string]interface{}) error
	DeleteDoc(ctx context.Context, path, id string) error
	BatchWrite(ctx context.Context, writes []Write) error
}

// resolveTimestamps returns a copy of fields with ServerTimestamp placeholders
// replaced by now.
func resolveTimestamps(fields map[string]interface{}, now time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

// normalize round-trips fields through JSON so stored values have the same
// shape regardless of backend (numbers become float64, times become strings).
func normalize(fields map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matches(fields map[string]interface{}, where []Filter) bool {
	for _, f := range where {
		v, ok := fields[f.Field]
		if !ok || !equalValues(v, f.Value) {
			return false
		}
	}
	return true
}

func equalValues(stored, want interface{}) bool {
	if sf, ok := toFloat(stored); ok {
		if wf, ok := toFloat(want); ok {
			return sf == wf
		}
		return false
	}
	return fmt.Sprint(stored) == fmt.Sprint(want)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// compareValues orders two stored values; missing values sort last.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
