package drivers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/creastat/welfarechat/session"
)

const (
	// Redis key prefix for widget state
	defaultRedisPrefix = "widget:"
	// Pub/sub channel carrying change notifications
	defaultRedisChannel = "widget:changes"
)

// redisChange is the payload published after every write.
type redisChange struct {
	Key     string `json:"key"`
	Source  string `json:"source"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// RedisBackend implements session.Backend using Redis keys for values and a
// pub/sub channel for change notifications.
type RedisBackend struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	channel string
	source  string
}

// NewRedisBackend creates a new Redis-based backend. A zero ttl keeps keys
// until they are deleted.
func NewRedisBackend(client *redis.Client, ttl time.Duration, prefix, channel string) *RedisBackend {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if channel == "" {
		channel = defaultRedisChannel
	}
	return &RedisBackend{
		client:  client,
		ttl:     ttl,
		prefix:  prefix,
		channel: channel,
		source:  uuid.NewString(),
	}
}

// Get implements session.Backend.
// Refreshes TTL on every read.
func (s *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	k := s.key(key)
	val, err := s.client.Get(ctx, k).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis backend: get")
	}

	if s.ttl > 0 {
		if err := s.client.Expire(ctx, k, s.ttl).Err(); err != nil {
			log.Debug().Err(err).Str("component", "session").Str("key", key).Msg("redis backend: ttl refresh failed")
		}
	}

	return val, true, nil
}

// Set implements session.Backend.
// The write and its notification go out in one MULTI/EXEC.
func (s *RedisBackend) Set(ctx context.Context, key, value string) error {
	payload, err := json.Marshal(redisChange{Key: key, Source: s.source, Value: value})
	if err != nil {
		return errors.Wrap(err, "redis backend: marshal change")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(key), value, s.ttl)
		pipe.Publish(ctx, s.channel, payload)
		return nil
	})
	return errors.Wrap(err, "redis backend: set")
}

// Delete implements session.Backend.
func (s *RedisBackend) Delete(ctx context.Context, key string) error {
	payload, err := json.Marshal(redisChange{Key: key, Source: s.source, Deleted: true})
	if err != nil {
		return errors.Wrap(err, "redis backend: marshal change")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(key))
		pipe.Publish(ctx, s.channel, payload)
		return nil
	})
	return errors.Wrap(err, "redis backend: delete")
}

// Watch implements session.Backend.
func (s *RedisBackend) Watch(ctx context.Context, key string, fn func(session.Change)) (func(), error) {
	runCtx, cancel := context.WithCancel(ctx)
	pubsub := s.client.Subscribe(runCtx, s.channel)
	// Wait for the subscription to be confirmed so no write after Watch
	// returns can be missed.
	if _, err := pubsub.Receive(runCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, errors.Wrap(err, "redis backend: subscribe")
	}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-runCtx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var rc redisChange
				if err := json.Unmarshal([]byte(msg.Payload), &rc); err != nil {
					log.Warn().Err(err).Str("component", "session").Msg("redis backend: bad change payload")
					continue
				}
				if rc.Key != key || rc.Source == s.source {
					continue
				}
				c := session.Change{Key: rc.Key, Source: rc.Source}
				if !rc.Deleted {
					v := rc.Value
					c.Value = &v
				}
				fn(c)
			}
		}
	}()

	return cancel, nil
}

// Close implements session.Backend.
func (s *RedisBackend) Close() error {
	return s.client.Close()
}

// key constructs the Redis key for a storage key.
func (s *RedisBackend) key(key string) string {
	return s.prefix + key
}

var _ session.Backend = (*RedisBackend)(nil)
