// Package memory implements remote.Store in memory for local development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/Redish03/StepCounter/internal/remote"
)

// Store is a mutex-guarded document store with per-document change fan-out.
// Transactions are serialized by the store lock, so the transactional
// guarantees match what the coordinator expects from Firestore.
type Store struct {
	mu          sync.Mutex
	collections map[string]map[string]remote.Fields
	subs        map[string][]*subscription
	nextSub     int
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]remote.Fields),
		subs:        make(map[string][]*subscription),
	}
}

type subscription struct {
	store   *Store
	key     string
	id      int
	once    sync.Once
	handler func(remote.Document)
}

func (s *subscription) Stop() {
	s.once.Do(func() {
		s.store.mu.Lock()
		defer s.store.mu.Unlock()
		list := s.store.subs[s.key]
		for i, sub := range list {
			if sub.id == s.id {
				s.store.subs[s.key] = append(list[:i], list[i+1:]...)
				break
			}
		}
	})
}

// Get returns a copy of the document, Exists=false when absent.
func (s *Store) Get(_ context.Context, collection, id string) (remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(collection, id), nil
}

// SetMerge updates only the provided fields, creating the document if needed.
func (s *Store) SetMerge(_ context.Context, collection, id string, fields remote.Fields) error {
	s.mu.Lock()
	s.applyMerge(collection, id, fields)
	doc := s.snapshot(collection, id)
	targets := s.subscribers(collection, id)
	s.mu.Unlock()

	notify(targets, doc)
	return nil
}

// Query returns all documents whose field equals value.
func (s *Store) Query(_ context.Context, collection, field string, value any) ([]remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []remote.Document
	for id, fields := range s.collections[collection] {
		if fields[field] == value {
			out = append(out, remote.Document{ID: id, Fields: copyFields(fields), Exists: true})
		}
	}
	return out, nil
}

// RunTransaction executes fn with reads against current state and writes
// staged until fn returns nil. The store lock serializes transactions.
func (s *Store) RunTransaction(_ context.Context, fn func(tx remote.Tx) error) error {
	s.mu.Lock()
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}

	changed := make(map[string]remote.Document)
	var notifications []pending
	for _, w := range tx.writes {
		w.apply(s)
		changed[w.collection+"/"+w.id] = s.snapshot(w.collection, w.id)
	}
	for _, w := range tx.writes {
		key := w.collection + "/" + w.id
		doc, ok := changed[key]
		if !ok {
			continue
		}
		delete(changed, key)
		notifications = append(notifications, pending{subs: s.subscribers(w.collection, w.id), doc: doc})
	}
	s.mu.Unlock()

	for _, n := range notifications {
		notify(n.subs, n.doc)
	}
	return nil
}

// Subscribe registers onChange for a document and delivers the current state
// immediately, matching snapshot-listener semantics.
func (s *Store) Subscribe(_ context.Context, collection, id string, onChange func(remote.Document)) (remote.Subscription, error) {
	key := collection + "/" + id

	s.mu.Lock()
	s.nextSub++
	sub := &subscription{store: s, key: key, id: s.nextSub, handler: onChange}
	s.subs[key] = append(s.subs[key], sub)
	initial := s.snapshot(collection, id)
	s.mu.Unlock()

	onChange(initial)
	return sub, nil
}

type pending struct {
	subs []*subscription
	doc  remote.Document
}

func notify(subs []*subscription, doc remote.Document) {
	for _, sub := range subs {
		sub.handler(doc)
	}
}

// snapshot must be called with the lock held.
func (s *Store) snapshot(collection, id string) remote.Document {
	fields, ok := s.collections[collection][id]
	if !ok {
		return remote.Document{ID: id}
	}
	return remote.Document{ID: id, Fields: copyFields(fields), Exists: true}
}

// subscribers must be called with the lock held.
func (s *Store) subscribers(collection, id string) []*subscription {
	return append([]*subscription(nil), s.subs[collection+"/"+id]...)
}

// applyMerge must be called with the lock held.
func (s *Store) applyMerge(collection, id string, fields remote.Fields) {
	col := s.collections[collection]
	if col == nil {
		col = make(map[string]remote.Fields)
		s.collections[collection] = col
	}
	doc := col[id]
	if doc == nil {
		doc = make(remote.Fields)
		col[id] = doc
	}
	for k, v := range fields {
		doc[k] = copyValue(v)
	}
}

// applySet must be called with the lock held.
func (s *Store) applySet(collection, id string, fields remote.Fields) {
	col := s.collections[collection]
	if col == nil {
		col = make(map[string]remote.Fields)
		s.collections[collection] = col
	}
	col[id] = copyFields(fields)
}

// applyDelete must be called with the lock held.
func (s *Store) applyDelete(collection, id string) {
	delete(s.collections[collection], id)
}

type write struct {
	kind       string // "set", "merge", "delete"
	collection string
	id         string
	fields     remote.Fields
}

func (w write) apply(s *Store) {
	switch w.kind {
	case "set":
		s.applySet(w.collection, w.id, w.fields)
	case "merge":
		s.applyMerge(w.collection, w.id, w.fields)
	case "delete":
		s.applyDelete(w.collection, w.id)
	}
}

// memTx stages writes while the store lock is held by RunTransaction.
type memTx struct {
	store  *Store
	writes []write
}

func (t *memTx) Get(collection, id string) (remote.Document, error) {
	return t.store.snapshot(collection, id), nil
}

func (t *memTx) Query(collection, field string, value any) ([]remote.Document, error) {
	var out []remote.Document
	for id, fields := range t.store.collections[collection] {
		if fields[field] == value {
			out = append(out, remote.Document{ID: id, Fields: copyFields(fields), Exists: true})
		}
	}
	return out, nil
}

func (t *memTx) Set(collection, id string, fields remote.Fields) error {
	t.writes = append(t.writes, write{kind: "set", collection: collection, id: id, fields: copyFields(fields)})
	return nil
}

func (t *memTx) SetMerge(collection, id string, fields remote.Fields) error {
	t.writes = append(t.writes, write{kind: "merge", collection: collection, id: id, fields: copyFields(fields)})
	return nil
}

func (t *memTx) Delete(collection, id string) error {
	t.writes = append(t.writes, write{kind: "delete", collection: collection, id: id})
	return nil
}

func copyFields(fields remote.Fields) remote.Fields {
	out := make(remote.Fields, len(fields))
	for k, v := range fields {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		return append([]any(nil), val...)
	default:
		return v
	}
}
