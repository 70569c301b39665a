package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/creastat/welfarechat/message"
)

// DefaultChatKey is the key the chat widget snapshot is stored under.
const DefaultChatKey = "chatbotWidgetState"

// ChatState is the widget state that survives reloads and is shared with
// other widgets of the same origin.
type ChatState struct {
	Open       bool
	DraftInput string
	Messages   []message.Message
}

// persistedState is the stored JSON layout.
type persistedState struct {
	Open       bool               `json:"open"`
	InputValue string             `json:"inputValue"`
	Messages   []persistedMessage `json:"messages"`
}

// persistedMessage never carries the streaming flag: a reload cannot resume
// a live stream.
type persistedMessage struct {
	ID      string         `json:"id"`
	Sender  message.Sender `json:"sender"`
	Content string         `json:"content"`
	Tone    message.Tone   `json:"tone,omitempty"`
}

// EncodeChatState serializes st into the stored layout.
// Only the highlight tone is written.
func EncodeChatState(st ChatState) (string, error) {
	out := persistedState{
		Open:       st.Open,
		InputValue: st.DraftInput,
		Messages:   make([]persistedMessage, 0, len(st.Messages)),
	}
	for _, m := range st.Messages {
		pm := persistedMessage{ID: m.ID, Sender: m.Sender, Content: m.Content}
		if m.Highlighted() {
			pm.Tone = message.ToneHighlight
		}
		out.Messages = append(out.Messages, pm)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode chat state: %w", err)
	}
	return string(b), nil
}

// DecodeChatState parses a stored snapshot. It never fails: malformed
// documents yield the zero state and invalid message entries are dropped one
// by one. A nil raw value (key absent) also yields the zero state.
func DecodeChatState(raw *string) ChatState {
	var st ChatState
	if raw == nil {
		return st
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(*raw), &doc); err != nil {
		return st
	}

	st.Open = truthy(doc["open"])
	if s, ok := doc["inputValue"].(string); ok {
		st.DraftInput = s
	}
	st.Messages = sanitizeMessages(doc["messages"])
	return st
}

func sanitizeMessages(raw any) []message.Message {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]message.Message, 0, len(entries))
	for i, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		sender, _ := obj["sender"].(string)
		content, isString := obj["content"].(string)
		if !message.Sender(sender).Valid() || !isString {
			continue
		}

		m := message.Message{
			Sender:  message.Sender(sender),
			Content: content,
		}
		if id, ok := obj["id"].(string); ok && strings.TrimSpace(id) != "" {
			m.ID = id
		} else {
			m.ID = fmt.Sprintf("restored-%d", i)
		}
		if tone, _ := obj["tone"].(string); tone == string(message.ToneHighlight) {
			m.Tone = message.ToneHighlight
		}
		out = append(out, m)
	}
	return out
}

// truthy mirrors how the widget has always read the open flag.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// ChatStore persists ChatState under one key of a Backend.
// Storage failures are logged and swallowed; callers keep their in-memory
// state and carry on.
type ChatStore struct {
	backend      Backend
	key          string
	tokenLimit   int
	messageLimit int
}

// ChatStoreOption configures a ChatStore.
type ChatStoreOption func(*ChatStore)

// WithKey overrides DefaultChatKey.
func WithKey(key string) ChatStoreOption {
	return func(s *ChatStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithHistoryLimit bounds the number of messages and estimated tokens written
// per snapshot. Zero disables a bound.
func WithHistoryLimit(tokenLimit, messageLimit int) ChatStoreOption {
	return func(s *ChatStore) {
		s.tokenLimit = tokenLimit
		s.messageLimit = messageLimit
	}
}

// NewChatStore creates a store on top of backend.
func NewChatStore(backend Backend, opts ...ChatStoreOption) *ChatStore {
	s := &ChatStore{backend: backend, key: DefaultChatKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key.
func (s *ChatStore) Key() string {
	return s.key
}

// Save writes a snapshot of st.
// It returns false when the write failed; the error is only logged.
func (s *ChatStore) Save(ctx context.Context, st ChatState) bool {
	st.Messages = message.TrimHistory(st.Messages, s.tokenLimit, s.messageLimit)
	raw, err := EncodeChatState(st)
	if err != nil {
		log.Warn().Err(err).Str("component", "session").Str("key", s.key).Msg("chat store: encode failed")
		return false
	}
	if err := s.backend.Set(ctx, s.key, raw); err != nil {
		log.Warn().Err(err).Str("component", "session").Str("key", s.key).Msg("chat store: save failed")
		return false
	}
	return true
}

// Load reads the stored snapshot. Missing, unreadable or malformed snapshots
// yield the zero state. found reports whether a snapshot existed.
func (s *ChatStore) Load(ctx context.Context) (st ChatState, found bool) {
	raw, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		log.Warn().Err(err).Str("component", "session").Str("key", s.key).Msg("chat store: load failed")
		return ChatState{}, false
	}
	if !ok {
		return ChatState{}, false
	}
	return DecodeChatState(&raw), true
}

// OnExternalChange subscribes to snapshots written by other widgets.
// fn receives the new raw value, or nil when the key was removed.
func (s *ChatStore) OnExternalChange(ctx context.Context, fn func(raw *string)) (func(), error) {
	return s.backend.Watch(ctx, s.key, func(c Change) {
		if c.Removed() {
			log.Debug().Str("component", "chatstore").Str("key", s.key).Str("source", c.Source).Msg("snapshot removed elsewhere")
			fn(nil)
			return
		}
		fn(c.Value)
	})
}
