package session

import (
	"sync"
	"time"
)

// sessionIDRange keeps ids inside a signed 32-bit integer on the backend.
const sessionIDRange = 1_000_000_000

// Registry holds the id that correlates a widget session with backend state.
// The id is a correlation token, not a credential.
type Registry struct {
	mu  sync.Mutex
	now func() time.Time
	id  int64
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock replaces the clock used to derive ids.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry with a freshly generated id.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.id = r.generate()
	return r
}

// Current returns the id for the running session.
func (r *Registry) Current() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// Reset starts a new session and returns its id.
func (r *Registry) Reset() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.id = r.generate()
	return r.id
}

func (r *Registry) generate() int64 {
	return r.now().UnixMilli() % sessionIDRange
}
