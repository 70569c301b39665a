package drivers

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Option is a functional option for configuring a backend.
type Option func(*config)

// config holds configuration for every driver; each driver reads its part.
type config struct {
	memoryOrigin *MemoryOrigin

	fileDir string

	redisClient  *redis.Client
	redisTTL     time.Duration
	redisChannel string
	redisPrefix  string

	sqliteDSN string

	supabaseURL   string
	supabaseKey   string
	supabaseTable string

	pollInterval time.Duration
}

// WithMemoryOrigin makes memory backends share one origin, the way tabs of
// one site share local storage.
func WithMemoryOrigin(o *MemoryOrigin) Option {
	return func(c *config) {
		c.memoryOrigin = o
	}
}

// WithFileDir sets the directory of the file backend.
func WithFileDir(dir string) Option {
	return func(c *config) {
		c.fileDir = dir
	}
}

// WithRedisClient sets the Redis client for the Redis backend.
func WithRedisClient(client *redis.Client) Option {
	return func(c *config) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the TTL for Redis keys. Zero keeps keys forever.
func WithRedisTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.redisTTL = ttl
	}
}

// WithRedisChannel sets the pub/sub channel used for change notifications.
func WithRedisChannel(channel string) Option {
	return func(c *config) {
		c.redisChannel = channel
	}
}

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) Option {
	return func(c *config) {
		c.redisPrefix = prefix
	}
}

// WithSQLiteDSN sets the SQLite data source name.
func WithSQLiteDSN(dsn string) Option {
	return func(c *config) {
		c.sqliteDSN = dsn
	}
}

// WithSupabase sets the Supabase project URL, API key and table.
func WithSupabase(url, apiKey, table string) Option {
	return func(c *config) {
		c.supabaseURL = url
		c.supabaseKey = apiKey
		c.supabaseTable = table
	}
}

// WithPollInterval sets how often table-backed drivers look for changes.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		c.pollInterval = d
	}
}
