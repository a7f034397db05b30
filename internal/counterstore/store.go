// Package counterstore provides the durable local key/value store backing the
// daily step record. The aggregator is the only writer.
package counterstore

import "strconv"

// Well-known keys for the daily record.
const (
	KeyCurrentSteps  = "current_steps"
	KeyLastSavedDate = "last_saved_date"
)

// Store is the persistence contract the aggregator depends on. Reads fall
// back to the supplied default on any failure; PutAll commits all entries
// atomically and durably before returning.
type Store interface {
	GetInt(key string, fallback int) int
	GetString(key, fallback string) string
	PutAll(values map[string]string) error
	Close() error
}

// FormatInt converts an integer value for storage.
func FormatInt(v int) string {
	return strconv.Itoa(v)
}
