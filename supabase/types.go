package supabase

import "time"

// DefaultTable is the table widget state rows live in.
const DefaultTable = "widget_state"

// Config holds Supabase connection configuration
type Config struct {
	URL          string
	APIKey       string
	Table        string        // Default: widget_state
	PollInterval time.Duration // Default: session.DefaultPollInterval
}

// row is the table layout. The table needs a unique constraint on key:
//
//	create table widget_state (
//	  key text primary key,
//	  value text not null default '',
//	  deleted boolean not null default false,
//	  writer text not null default '',
//	  rev text not null default '',
//	  updated_at timestamptz not null default now()
//	);
type row struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Deleted   bool      `json:"deleted"`
	Writer    string    `json:"writer"`
	Rev       string    `json:"rev"`
	UpdatedAt time.Time `json:"updated_at"`
}
