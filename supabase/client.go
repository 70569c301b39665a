// Package supabase stores widget state in a Supabase (PostgREST) table.
package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"

	"github.com/creastat/welfarechat/session"
)

// Client implements session.Backend using Supabase
type Client struct {
	client       *supabase.Client
	table        string
	source       string
	pollInterval time.Duration
}

// New creates a new Supabase client
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		client:       client,
		table:        cfg.Table,
		source:       uuid.NewString(),
		pollInterval: cfg.PollInterval,
	}, nil
}

// Get implements session.Backend.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	rec, found, err := c.fetch(ctx, key)
	if err != nil || !found || rec.Deleted {
		return "", false, err
	}
	return rec.Value, true, nil
}

// Set implements session.Backend.
func (c *Client) Set(ctx context.Context, key, value string) error {
	return c.upsert(key, value, false)
}

// Delete implements session.Backend.
// The row is kept as a tombstone so that pollers see the delete.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, found, err := c.fetch(ctx, key)
	if err != nil || !found {
		return err
	}
	return c.upsert(key, "", true)
}

// Watch implements session.Backend by polling the row's revision.
func (c *Client) Watch(ctx context.Context, key string, fn func(session.Change)) (func(), error) {
	return session.PollChanges(ctx, c.pollInterval, c.source, func(ctx context.Context) (session.Record, bool, error) {
		return c.fetch(ctx, key)
	}, fn)
}

// Close closes the Supabase client
func (c *Client) Close() error {
	// Supabase client doesn't require explicit close
	return nil
}

func (c *Client) upsert(key, value string, deleted bool) error {
	r := row{
		Key:       key,
		Value:     value,
		Deleted:   deleted,
		Writer:    c.source,
		Rev:       uuid.NewString(),
		UpdatedAt: time.Now().UTC(),
	}
	_, _, err := c.client.From(c.table).
		Upsert(r, "key", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to upsert widget state: %w", err)
	}
	return nil
}

// fetch retrieves the row for key. The PostgREST client has no context
// support; ctx is only checked before the call.
func (c *Client) fetch(ctx context.Context, key string) (session.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return session.Record{}, false, err
	}

	var rows []row
	_, err := c.client.From(c.table).
		Select("key,value,deleted,writer,rev", "", false).
		Eq("key", key).
		ExecuteTo(&rows)
	if err != nil {
		return session.Record{}, false, fmt.Errorf("failed to get widget state: %w", err)
	}
	if len(rows) == 0 {
		return session.Record{}, false, nil
	}

	r := rows[0]
	return session.Record{
		Key:     r.Key,
		Value:   r.Value,
		Deleted: r.Deleted,
		Writer:  r.Writer,
		Rev:     r.Rev,
	}, true, nil
}

// Compile-time check that Client implements session.Backend
var _ session.Backend = (*Client)(nil)
