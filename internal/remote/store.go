// Package remote defines the document-store contract the coordinator
// consumes. The production implementation is Firestore; tests use the
// in-memory fake from remote/memory.
package remote

import "context"

// Fields is the mutable field set of a document.
type Fields map[string]any

// Document is a point-in-time copy of a stored document.
type Document struct {
	ID     string
	Fields Fields
	Exists bool
}

// Tx exposes the operations available inside a transaction. Reads must happen
// before writes; writes are applied atomically on commit and serialized
// against concurrent transactions touching the same documents.
type Tx interface {
	Get(collection, id string) (Document, error)
	Query(collection, field string, value any) ([]Document, error)
	Set(collection, id string, fields Fields) error
	SetMerge(collection, id string, fields Fields) error
	Delete(collection, id string) error
}

// Subscription is a live change feed handle.
type Subscription interface {
	// Stop tears the feed down. Safe to call more than once.
	Stop()
}

// Store is the document database interface. Every multi-document mutation
// that reads before writing must go through RunTransaction; the store's
// transaction primitive is the sole concurrency-control mechanism.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	SetMerge(ctx context.Context, collection, id string, fields Fields) error
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	Subscribe(ctx context.Context, collection, id string, onChange func(Document)) (Subscription, error)
}

// String reads a string field, tolerating absent or mistyped values.
func (d Document) String(field string) string {
	if v, ok := d.Fields[field].(string); ok {
		return v
	}
	return ""
}

// Int reads an integer field. Firestore decodes numbers as int64; the memory
// store keeps native ints.
func (d Document) Int(field string) int {
	switch v := d.Fields[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Strings reads a string-slice field.
func (d Document) Strings(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
