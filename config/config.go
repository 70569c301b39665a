// Package config loads widget settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/creastat/welfarechat"
	"github.com/creastat/welfarechat/session"
)

// EnvPrefix namespaces environment overrides, e.g. WELFARECHAT_STORAGE_DRIVER.
const EnvPrefix = "WELFARECHAT"

// LegacyEndpointEnv is the variable the web build used for the endpoint.
const LegacyEndpointEnv = "CHATBOT_ENDPOINT"

// Config represents the application configuration
type Config struct {
	Chat    ChatConfig    `mapstructure:"chat"`
	Storage StorageConfig `mapstructure:"storage"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
	Mock    MockConfig    `mapstructure:"mock"`
}

// ChatConfig holds the chat backend connection settings
type ChatConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// StorageConfig selects and configures the shared state backend
type StorageConfig struct {
	Driver       string                `mapstructure:"driver"`
	Key          string                `mapstructure:"key"`
	PollInterval time.Duration         `mapstructure:"poll_interval"`
	File         FileStorageConfig     `mapstructure:"file"`
	Redis        RedisStorageConfig    `mapstructure:"redis"`
	SQLite       SQLiteStorageConfig   `mapstructure:"sqlite"`
	Supabase     SupabaseStorageConfig `mapstructure:"supabase"`
}

type FileStorageConfig struct {
	Dir string `mapstructure:"dir"`
}

type RedisStorageConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	Channel  string        `mapstructure:"channel"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SQLiteStorageConfig struct {
	DSN  string `mapstructure:"dsn"`
	Path string `mapstructure:"path"`
}

type SupabaseStorageConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	Table  string `mapstructure:"table"`
}

// HistoryConfig bounds the persisted conversation. Zero disables a bound.
type HistoryConfig struct {
	MaxMessages int `mapstructure:"max_messages"`
	MaxTokens   int `mapstructure:"max_tokens"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MockConfig configures the local mock chat backend
type MockConfig struct {
	Addr    string        `mapstructure:"addr"`
	Answers string        `mapstructure:"answers"`
	Delay   time.Duration `mapstructure:"delay"`
}

// Load reads configuration. An explicit path must exist; without one a
// welfarechat.yaml in the working directory is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("welfarechat")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("chat.endpoint", EnvPrefix+"_CHAT_ENDPOINT", LegacyEndpointEnv); err != nil {
		return nil, fmt.Errorf("bind endpoint env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Chat.Endpoint = strings.TrimSpace(cfg.Chat.Endpoint)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("chat.endpoint", "http://localhost:8080/api/chatbot")
	v.SetDefault("chat.connect_timeout", "10s")

	v.SetDefault("storage.driver", string(session.StoreTypeMemory))
	v.SetDefault("storage.key", session.DefaultChatKey)
	v.SetDefault("storage.poll_interval", "1s")
	v.SetDefault("storage.file.dir", "./.welfarechat/state")
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "widget:")
	v.SetDefault("storage.redis.channel", "widget:changes")
	v.SetDefault("storage.redis.ttl", "0s")
	v.SetDefault("storage.sqlite.dsn", "")
	v.SetDefault("storage.sqlite.path", "./.welfarechat/state.db")
	v.SetDefault("storage.supabase.url", "")
	v.SetDefault("storage.supabase.api_key", "")
	v.SetDefault("storage.supabase.table", "widget_state")

	v.SetDefault("history.max_messages", 0)
	v.SetDefault("history.max_tokens", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("mock.addr", "127.0.0.1:8080")
	v.SetDefault("mock.answers", "")
	v.SetDefault("mock.delay", "80ms")
}

// Validate checks settings that no driver or client would catch later.
func (c *Config) Validate() error {
	if c.Chat.Endpoint == "" {
		return fmt.Errorf("%w: chat.endpoint is empty", welfarechat.ErrInvalidConfig)
	}
	if c.Chat.ConnectTimeout < 0 {
		return fmt.Errorf("%w: chat.connect_timeout must not be negative", welfarechat.ErrInvalidConfig)
	}
	if !session.StoreType(c.Storage.Driver).Valid() {
		return fmt.Errorf("%w: storage.driver %q", welfarechat.ErrInvalidStoreType, c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return fmt.Errorf("%w: storage.key is empty", welfarechat.ErrInvalidConfig)
	}
	if c.History.MaxMessages < 0 || c.History.MaxTokens < 0 {
		return fmt.Errorf("%w: history limits must not be negative", welfarechat.ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", welfarechat.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
