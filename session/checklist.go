package session

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// ChecklistKeyPrefix prefixes the per-service checklist keys.
const ChecklistKeyPrefix = "checklist:"

// CheckMap maps a document id to its completion flag.
type CheckMap map[string]bool

// AllDone reports whether every id in ids is checked. An empty id list is
// never done.
func (m CheckMap) AllDone(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !m[id] {
			return false
		}
	}
	return true
}

// ChecklistStore keeps the document checklist of each service.
// Like ChatStore it swallows storage failures.
type ChecklistStore struct {
	backend Backend
}

// NewChecklistStore creates a checklist store on top of backend.
func NewChecklistStore(backend Backend) *ChecklistStore {
	return &ChecklistStore{backend: backend}
}

// ChecklistKey returns the storage key of a service's checklist.
func ChecklistKey(serviceID string) string {
	return ChecklistKeyPrefix + serviceID
}

// Load returns the stored checklist. Missing or malformed data yields an
// empty map.
func (s *ChecklistStore) Load(ctx context.Context, serviceID string) CheckMap {
	key := ChecklistKey(serviceID)
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("component", "session").Str("key", key).Msg("checklist: load failed")
		return CheckMap{}
	}
	if !found {
		return CheckMap{}
	}
	m := CheckMap{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return CheckMap{}
	}
	return m
}

// Save writes the checklist and reports whether the write succeeded.
func (s *ChecklistStore) Save(ctx context.Context, serviceID string, m CheckMap) bool {
	key := ChecklistKey(serviceID)
	b, err := json.Marshal(m)
	if err != nil {
		log.Warn().Err(err).Str("component", "session").Str("key", key).Msg("checklist: encode failed")
		return false
	}
	if err := s.backend.Set(ctx, key, string(b)); err != nil {
		log.Warn().Err(err).Str("component", "session").Str("key", key).Msg("checklist: save failed")
		return false
	}
	return true
}

// Toggle flips one document and returns the updated checklist.
func (s *ChecklistStore) Toggle(ctx context.Context, serviceID, docID string) CheckMap {
	m := s.Load(ctx, serviceID)
	m[docID] = !m[docID]
	s.Save(ctx, serviceID, m)
	return m
}

// MarkAll replaces the checklist with every id checked.
func (s *ChecklistStore) MarkAll(ctx context.Context, serviceID string, ids []string) CheckMap {
	return s.setAll(ctx, serviceID, ids, true)
}

// ClearAll replaces the checklist with every id unchecked.
func (s *ChecklistStore) ClearAll(ctx context.Context, serviceID string, ids []string) CheckMap {
	return s.setAll(ctx, serviceID, ids, false)
}

func (s *ChecklistStore) setAll(ctx context.Context, serviceID string, ids []string, done bool) CheckMap {
	m := make(CheckMap, len(ids))
	for _, id := range ids {
		m[id] = done
	}
	s.Save(ctx, serviceID, m)
	return m
}
