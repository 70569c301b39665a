// Package drivers provides the session.Backend implementations.
package drivers

import (
	"fmt"

	"github.com/creastat/welfarechat"
	"github.com/creastat/welfarechat/session"
	"github.com/creastat/welfarechat/supabase"
)

// New creates a new session.Backend based on the given type.
// Redis requires WithRedisClient, file requires WithFileDir, SQLite requires
// WithSQLiteDSN and Supabase requires WithSupabase.
func New(storeType session.StoreType, opts ...Option) (session.Backend, error) {
	cfg := &config{}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case session.StoreTypeMemory:
		return NewMemoryBackend(cfg.memoryOrigin), nil

	case session.StoreTypeFile:
		if cfg.fileDir == "" {
			return nil, fmt.Errorf("%w: file dir is required", welfarechat.ErrInvalidConfig)
		}
		b, err := NewFileBackend(cfg.fileDir)
		if err != nil {
			return nil, err
		}
		return b, nil

	case session.StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, fmt.Errorf("%w: redis client is required", welfarechat.ErrInvalidConfig)
		}
		return NewRedisBackend(cfg.redisClient, cfg.redisTTL, cfg.redisPrefix, cfg.redisChannel), nil

	case session.StoreTypeSQLite:
		if cfg.sqliteDSN == "" {
			return nil, fmt.Errorf("%w: sqlite dsn is required", welfarechat.ErrInvalidConfig)
		}
		b, err := NewSQLiteBackend(cfg.sqliteDSN, cfg.pollInterval)
		if err != nil {
			return nil, err
		}
		return b, nil

	case session.StoreTypeSupabase:
		if cfg.supabaseURL == "" || cfg.supabaseKey == "" {
			return nil, fmt.Errorf("%w: supabase url and api key are required", welfarechat.ErrInvalidConfig)
		}
		b, err := supabase.New(supabase.Config{
			URL:          cfg.supabaseURL,
			APIKey:       cfg.supabaseKey,
			Table:        cfg.supabaseTable,
			PollInterval: cfg.pollInterval,
		})
		if err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("%w: %q", welfarechat.ErrInvalidStoreType, storeType)
	}
}
