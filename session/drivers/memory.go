package drivers

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/creastat/welfarechat/session"
)

const (
	changeTopic    = "storage"
	metadataKey    = "key"
	metadataSource = "source"
)

// MemoryOrigin is the shared storage behind a set of memory backends: the
// values and the in-process bus that carries change notifications.
type MemoryOrigin struct {
	mu     sync.RWMutex
	values map[string]string
	bus    *gochannel.GoChannel
}

// NewMemoryOrigin creates an empty origin.
func NewMemoryOrigin() *MemoryOrigin {
	return &MemoryOrigin{
		values: make(map[string]string),
		bus:    gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{}),
	}
}

// Close shuts the bus down. Backends using the origin stop receiving changes.
func (o *MemoryOrigin) Close() error {
	return o.bus.Close()
}

func (o *MemoryOrigin) lookup(key string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[key]
	return v, ok
}

// MemoryBackend implements session.Backend on top of a MemoryOrigin.
type MemoryBackend struct {
	origin *MemoryOrigin
	owned  bool
	source string
}

// NewMemoryBackend creates a backend on origin. A nil origin gives the
// backend a private one.
func NewMemoryBackend(origin *MemoryOrigin) *MemoryBackend {
	owned := false
	if origin == nil {
		origin = NewMemoryOrigin()
		owned = true
	}
	return &MemoryBackend{
		origin: origin,
		owned:  owned,
		source: uuid.NewString(),
	}
}

// Get implements session.Backend.
func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := b.origin.lookup(key)
	return v, ok, nil
}

// Set implements session.Backend.
func (b *MemoryBackend) Set(_ context.Context, key, value string) error {
	b.origin.mu.Lock()
	b.origin.values[key] = value
	b.origin.mu.Unlock()
	return b.publish(key)
}

// Delete implements session.Backend.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.origin.mu.Lock()
	_, existed := b.origin.values[key]
	delete(b.origin.values, key)
	b.origin.mu.Unlock()
	if !existed {
		return nil
	}
	return b.publish(key)
}

func (b *MemoryBackend) publish(key string) error {
	msg := message.NewMessage(watermill.NewUUID(), nil)
	msg.Metadata.Set(metadataKey, key)
	msg.Metadata.Set(metadataSource, b.source)
	if err := b.origin.bus.Publish(changeTopic, msg); err != nil {
		return errors.Wrap(err, "memory backend: publish change")
	}
	return nil
}

// Watch implements session.Backend.
// The bus does not guarantee delivery order, so the value is read from the
// origin when the notification is delivered; the last notification a
// watcher sees always carries the latest value.
func (b *MemoryBackend) Watch(ctx context.Context, key string, fn func(session.Change)) (func(), error) {
	runCtx, cancel := context.WithCancel(ctx)
	ch, err := b.origin.bus.Subscribe(runCtx, changeTopic)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "memory backend: subscribe")
	}

	go func() {
		for msg := range ch {
			msg.Ack()
			if msg.Metadata.Get(metadataKey) != key || msg.Metadata.Get(metadataSource) == b.source {
				continue
			}
			if runCtx.Err() != nil {
				continue
			}
			c := session.Change{Key: key, Source: msg.Metadata.Get(metadataSource)}
			if v, ok := b.origin.lookup(key); ok {
				c.Value = &v
			}
			fn(c)
		}
		log.Debug().Str("component", "session").Str("key", key).Msg("memory backend: watch stopped")
	}()

	return cancel, nil
}

// Close implements session.Backend.
func (b *MemoryBackend) Close() error {
	if b.owned {
		return b.origin.Close()
	}
	return nil
}

var _ session.Backend = (*MemoryBackend)(nil)
