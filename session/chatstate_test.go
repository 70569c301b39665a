package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creastat/welfarechat/message"
	"github.com/creastat/welfarechat/session"
	"github.com/creastat/welfarechat/session/drivers"
)

func ptr(s string) *string { return &s }

func TestDecodeChatState_InvalidSenderKeepsOpen(t *testing.T) {
	st := session.DecodeChatState(ptr(`{"open":true,"messages":[{"sender":"bot","content":"x"}]}`))
	assert.True(t, st.Open)
	assert.Empty(t, st.Messages)
}

func TestDecodeChatState_PerEntryFiltering(t *testing.T) {
	raw := `{
		"open": false,
		"inputValue": "기초연금",
		"extra": 42,
		"messages": [
			{"id": "u1", "sender": "user", "content": "안녕하세요"},
			{"sender": "assistant", "content": "반갑습니다", "tone": "highlight", "isStreaming": true},
			{"id": "bad-sender", "sender": "system", "content": "x"},
			{"id": "bad-content", "sender": "user", "content": 7},
			"not an object",
			null,
			{"id": "  ", "sender": "assistant", "content": "", "tone": "loud"}
		]
	}`
	st := session.DecodeChatState(&raw)

	assert.False(t, st.Open)
	assert.Equal(t, "기초연금", st.DraftInput)
	require.Len(t, st.Messages, 3)

	assert.Equal(t, message.Message{ID: "u1", Sender: message.SenderUser, Content: "안녕하세요"}, st.Messages[0])
	assert.Equal(t, message.Message{ID: "restored-1", Sender: message.SenderAssistant, Content: "반갑습니다", Tone: message.ToneHighlight}, st.Messages[1],
		"missing id falls back to the raw index and streaming is always cleared")
	assert.Equal(t, "restored-6", st.Messages[2].ID)
	assert.False(t, st.Messages[2].HasTone(), "unknown tones are dropped")
}

func TestDecodeChatState_Malformed(t *testing.T) {
	cases := map[string]*string{
		"absent":          nil,
		"not json":        ptr("{open"),
		"array":           ptr(`[1,2]`),
		"null":            ptr(`null`),
		"messages object": ptr(`{"messages":{"id":"x"}}`),
		"inputValue type": ptr(`{"inputValue":5}`),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			st := session.DecodeChatState(raw)
			assert.False(t, st.Open)
			assert.Empty(t, st.DraftInput)
			assert.Empty(t, st.Messages)
		})
	}
}

func TestDecodeChatState_OpenTruthiness(t *testing.T) {
	assert.True(t, session.DecodeChatState(ptr(`{"open":1}`)).Open)
	assert.True(t, session.DecodeChatState(ptr(`{"open":"yes"}`)).Open)
	assert.False(t, session.DecodeChatState(ptr(`{"open":0}`)).Open)
	assert.False(t, session.DecodeChatState(ptr(`{"open":""}`)).Open)
}

func TestEncodeChatState_Layout(t *testing.T) {
	raw, err := session.EncodeChatState(session.ChatState{
		Open:       true,
		DraftInput: "draft",
		Messages: []message.Message{
			{ID: "u", Sender: message.SenderUser, Content: "q", Tone: message.ToneDefault},
			{ID: "a", Sender: message.SenderAssistant, Content: "fail", Tone: message.ToneHighlight, IsStreaming: true},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"open": true,
		"inputValue": "draft",
		"messages": [
			{"id": "u", "sender": "user", "content": "q"},
			{"id": "a", "sender": "assistant", "content": "fail", "tone": "highlight"}
		]
	}`, raw)
}

func TestChatStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := session.NewChatStore(drivers.NewMemoryBackend(nil))

	_, found := store.Load(ctx)
	require.False(t, found)

	want := session.ChatState{
		Open:       true,
		DraftInput: "다음 질문",
		Messages: []message.Message{
			{ID: "u1", Sender: message.SenderUser, Content: "기초연금 신청"},
			{ID: "a1", Sender: message.SenderAssistant, Content: "기초연금 신청"},
			{ID: "a2", Sender: message.SenderAssistant, Content: "oops", Tone: message.ToneHighlight},
		},
	}
	require.True(t, store.Save(ctx, want))

	got, found := store.Load(ctx)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestChatStore_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	store := session.NewChatStore(drivers.NewMemoryBackend(nil), session.WithHistoryLimit(0, 2), session.WithKey("custom"))
	assert.Equal(t, "custom", store.Key())

	store.Save(ctx, session.ChatState{Messages: []message.Message{
		{ID: "1", Sender: message.SenderUser, Content: "a"},
		{ID: "2", Sender: message.SenderAssistant, Content: "b"},
		{ID: "3", Sender: message.SenderUser, Content: "c"},
	}})
	got, _ := store.Load(ctx)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "2", got.Messages[0].ID)
}

// brokenBackend fails every operation, like disabled or full storage.
type brokenBackend struct{}

var errStorage = errors.New("quota exceeded")

func (brokenBackend) Get(context.Context, string) (string, bool, error) { return "", false, errStorage }
func (brokenBackend) Set(context.Context, string, string) error         { return errStorage }
func (brokenBackend) Delete(context.Context, string) error              { return errStorage }
func (brokenBackend) Watch(context.Context, string, func(session.Change)) (func(), error) {
	return nil, errStorage
}
func (brokenBackend) Close() error { return nil }

func TestChatStore_SwallowsStorageErrors(t *testing.T) {
	ctx := context.Background()
	store := session.NewChatStore(brokenBackend{})

	assert.False(t, store.Save(ctx, session.ChatState{Open: true}))
	st, found := store.Load(ctx)
	assert.False(t, found)
	assert.Equal(t, session.ChatState{}, st)
}

func TestChatStore_OnExternalChange(t *testing.T) {
	ctx := context.Background()
	origin := drivers.NewMemoryOrigin()
	defer origin.Close()
	backend1 := drivers.NewMemoryBackend(origin)
	tab1 := session.NewChatStore(backend1)
	tab2 := session.NewChatStore(drivers.NewMemoryBackend(origin))

	got := make(chan *string, 4)
	stop, err := tab2.OnExternalChange(ctx, func(raw *string) { got <- raw })
	require.NoError(t, err)
	defer stop()

	tab1.Save(ctx, session.ChatState{Open: true})
	raw := <-got
	require.NotNil(t, raw)
	assert.True(t, session.DecodeChatState(raw).Open)

	require.NoError(t, backend1.Delete(ctx, tab1.Key()))
	assert.Nil(t, <-got, "removal arrives as nil")
}
