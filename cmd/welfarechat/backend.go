package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/creastat/welfarechat/config"
	"github.com/creastat/welfarechat/session"
	"github.com/creastat/welfarechat/session/drivers"
)

// openBackend builds the configured storage driver.
func openBackend(cfg *config.Config) (session.Backend, error) {
	sc := cfg.Storage
	opts := []drivers.Option{
		drivers.WithPollInterval(sc.PollInterval),
		drivers.WithFileDir(sc.File.Dir),
		drivers.WithRedisTTL(sc.Redis.TTL),
		drivers.WithRedisPrefix(sc.Redis.Prefix),
		drivers.WithRedisChannel(sc.Redis.Channel),
		drivers.WithSupabase(sc.Supabase.URL, sc.Supabase.APIKey, sc.Supabase.Table),
	}

	storeType := session.StoreType(sc.Driver)
	switch storeType {
	case session.StoreTypeRedis:
		if sc.Redis.Addr != "" {
			opts = append(opts, drivers.WithRedisClient(redis.NewClient(&redis.Options{
				Addr:     sc.Redis.Addr,
				Password: sc.Redis.Password,
				DB:       sc.Redis.DB,
			})))
		}
	case session.StoreTypeSQLite:
		dsn := sc.SQLite.DSN
		if dsn == "" && sc.SQLite.Path != "" {
			if err := os.MkdirAll(filepath.Dir(sc.SQLite.Path), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
			var err error
			if dsn, err = drivers.SQLiteDSNForFile(sc.SQLite.Path); err != nil {
				return nil, err
			}
		}
		opts = append(opts, drivers.WithSQLiteDSN(dsn))
	}

	return drivers.New(storeType, opts...)
}

func newChatStore(cfg *config.Config, backend session.Backend) *session.ChatStore {
	return session.NewChatStore(backend,
		session.WithKey(cfg.Storage.Key),
		session.WithHistoryLimit(cfg.History.MaxTokens, cfg.History.MaxMessages),
	)
}
