package session

// StoreType represents the type of backend driver.
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeFile     StoreType = "file"
	StoreTypeRedis    StoreType = "redis"
	StoreTypeSQLite   StoreType = "sqlite"
	StoreTypeSupabase StoreType = "supabase"
)

// Valid reports whether t names a known driver.
func (t StoreType) Valid() bool {
	switch t {
	case StoreTypeMemory, StoreTypeFile, StoreTypeRedis, StoreTypeSQLite, StoreTypeSupabase:
		return true
	}
	return false
}

// Change describes a write made by another backend instance.
type Change struct {
	Key string
	// Value is the new value, or nil when the key was removed.
	Value *string
	// Source identifies the writer.
	Source string
}

// Removed reports whether the change deleted the key.
func (c Change) Removed() bool {
	return c.Value == nil
}

// Record is the row layout shared by the table-backed drivers.
// Deletes are stored as tombstones so that watchers can see them.
type Record struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Deleted bool   `json:"deleted"`
	Writer  string `json:"writer"`
	Rev     string `json:"rev"`
}

// Change converts the record into a change notification.
func (r Record) Change() Change {
	c := Change{Key: r.Key, Source: r.Writer}
	if !r.Deleted {
		v := r.Value
		c.Value = &v
	}
	return c
}
