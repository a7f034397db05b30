package counterstore

import (
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// Options configures a Badger-backed store.
type Options struct {
	// Path is the directory for the database files. Ignored when InMemory
	// is set.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool
}

// Badger is an embedded BadgerDB implementation of Store. Writes are
// synchronous so a committed PutAll survives a crash.
type Badger struct {
	db *badger.DB
}

// Open opens or creates the database.
func Open(opts Options) (*Badger, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithSyncWrites(!opts.InMemory)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db}, nil
}

// GetInt reads an integer value, returning fallback when the key is absent or
// unreadable.
func (b *Badger) GetInt(key string, fallback int) int {
	raw, ok := b.get(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

// GetString reads a string value, returning fallback when the key is absent.
func (b *Badger) GetString(key, fallback string) string {
	raw, ok := b.get(key)
	if !ok {
		return fallback
	}
	return raw
}

func (b *Badger) get(key string) (string, bool) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", false
	}
	return string(value), true
}

// PutAll writes every entry in one transaction. The commit is synchronous;
// when PutAll returns nil the record is on disk.
func (b *Badger) PutAll(values map[string]string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for key, value := range values {
			if err := txn.Set([]byte(key), []byte(value)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the database.
func (b *Badger) Close() error {
	return b.db.Close()
}
