// Package firestore adapts Cloud Firestore to the remote.Store contract.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Redish03/StepCounter/internal/domain"
	"github.com/Redish03/StepCounter/internal/remote"
)

// Store wraps a Firestore client.
type Store struct {
	client *firestore.Client
}

// New connects to the project's Firestore database. Credentials come from the
// ambient environment (ADC).
func New(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get performs a point read. A missing document yields Exists=false, not an
// error.
func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return remote.Document{ID: id}, nil
		}
		return remote.Document{}, wrapErr(err)
	}
	return toDocument(snap), nil
}

// SetMerge updates only the provided fields.
func (s *Store) SetMerge(ctx context.Context, collection, id string, fields remote.Fields) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, map[string]any(fields), firestore.MergeAll)
	return wrapErr(err)
}

// Query runs an equality query over the collection.
func (s *Store) Query(ctx context.Context, collection, field string, value any) ([]remote.Document, error) {
	iter := s.client.Collection(collection).Where(field, "==", value).Documents(ctx)
	defer iter.Stop()

	var out []remote.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, wrapErr(err)
		}
		out = append(out, toDocument(snap))
	}
}

// RunTransaction executes fn atomically. Firestore retries aborted attempts
// internally; a conflict that survives the retries surfaces as
// domain.ErrTransactionConflict.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx remote.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(&fsTx{store: s, ctx: ctx, tx: t})
	})
	if err != nil {
		if status.Code(err) == codes.Aborted {
			return fmt.Errorf("%w: %v", domain.ErrTransactionConflict, err)
		}
		return err
	}
	return nil
}

// Subscribe pumps document snapshots to onChange until Stop is called or the
// context ends. The current state is delivered first, matching Firestore's
// listener semantics.
func (s *Store) Subscribe(ctx context.Context, collection, id string, onChange func(remote.Document)) (remote.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	snaps := s.client.Collection(collection).Doc(id).Snapshots(subCtx)

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				return
			}
			if !snap.Exists() {
				onChange(remote.Document{ID: id})
				continue
			}
			onChange(toDocument(snap))
		}
	}()

	return subscription{cancel: cancel}, nil
}

type subscription struct {
	cancel context.CancelFunc
}

func (s subscription) Stop() {
	s.cancel()
}

// fsTx adapts a Firestore transaction. Reads must precede writes, which the
// coordinator's protocols already guarantee.
type fsTx struct {
	store *Store
	ctx   context.Context
	tx    *firestore.Transaction
}

func (t *fsTx) Get(collection, id string) (remote.Document, error) {
	snap, err := t.tx.Get(t.store.client.Collection(collection).Doc(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return remote.Document{ID: id}, nil
		}
		return remote.Document{}, wrapErr(err)
	}
	return toDocument(snap), nil
}

func (t *fsTx) Query(collection, field string, value any) ([]remote.Document, error) {
	iter := t.tx.Documents(t.store.client.Collection(collection).Where(field, "==", value))
	defer iter.Stop()

	var out []remote.Document
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, wrapErr(err)
		}
		out = append(out, toDocument(snap))
	}
}

func (t *fsTx) Set(collection, id string, fields remote.Fields) error {
	return t.tx.Set(t.store.client.Collection(collection).Doc(id), map[string]any(fields))
}

func (t *fsTx) SetMerge(collection, id string, fields remote.Fields) error {
	return t.tx.Set(t.store.client.Collection(collection).Doc(id), map[string]any(fields), firestore.MergeAll)
}

func (t *fsTx) Delete(collection, id string) error {
	return t.tx.Delete(t.store.client.Collection(collection).Doc(id))
}

func toDocument(snap *firestore.DocumentSnapshot) remote.Document {
	return remote.Document{
		ID:     snap.Ref.ID,
		Fields: remote.Fields(snap.Data()),
		Exists: true,
	}
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}
