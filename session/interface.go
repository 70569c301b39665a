package session

import "context"

// Backend is a durable key/value store shared by every widget of one origin.
// It plays the part of browser local storage: writes are visible to all
// widgets, and other widgets are told about them through Watch.
type Backend interface {
	// Get returns the stored value for key.
	// found is false when the key does not exist (not an error).
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	// Concurrent writers are not coordinated: the last write wins.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Watch calls fn for every change to key made through another Backend
	// instance. Changes written by this instance are never reported.
	// fn runs on a driver goroutine. The returned stop func ends the
	// subscription; cancelling ctx does the same.
	Watch(ctx context.Context, key string, fn func(Change)) (stop func(), err error)

	// Close closes the backend and releases any resources.
	Close() error
}
