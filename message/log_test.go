package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendUpdateRemove(t *testing.T) {
	var seen [][]Message
	l := NewLog(func(msgs []Message) { seen = append(seen, msgs) })

	require.NoError(t, l.Append(Message{ID: "u1", Sender: SenderUser, Content: "hi"}))
	require.NoError(t, l.Append(Message{ID: "a1", Sender: SenderAssistant, IsStreaming: true}))
	require.Len(t, seen, 2)

	require.True(t, l.Update("a1", Content("hel").WithStreaming(true)))
	require.True(t, l.Update("a1", Content("hello").WithStreaming(false)))

	m, ok := l.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "hello", m.Content)
	assert.False(t, m.IsStreaming)
	assert.False(t, m.HasTone())
	require.Len(t, seen, 4)
	assert.Equal(t, "hel", seen[2][1].Content, "observer receives the state right after each call")

	require.True(t, l.Remove("u1"))
	assert.Equal(t, []string{"a1"}, ids(l.Messages()))
}

func TestLog_DuplicateID(t *testing.T) {
	l := NewLog(nil)
	require.NoError(t, l.Append(Message{ID: "x", Sender: SenderUser}))
	err := l.Append(Message{ID: "x", Sender: SenderAssistant})
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, l.Len())
}

func TestLog_UpdateUnknownIDIsNoop(t *testing.T) {
	calls := 0
	l := NewLog(func([]Message) { calls++ })
	require.NoError(t, l.Append(Message{ID: "a", Sender: SenderAssistant}))
	require.True(t, l.Remove("a"))
	calls = 0

	assert.False(t, l.Update("a", Content("late")))
	assert.False(t, l.Remove("a"))
	assert.Zero(t, calls)
	assert.Zero(t, l.Len())
}

func TestLog_PatchPresence(t *testing.T) {
	l := NewLog(nil)
	require.NoError(t, l.Append(Message{ID: "a", Sender: SenderAssistant, Content: "keep", Tone: ToneHighlight}))

	require.True(t, l.Update("a", Patch{}.WithStreaming(true)))
	m, _ := l.Get("a")
	assert.Equal(t, "keep", m.Content)
	assert.True(t, m.Highlighted())
	assert.True(t, m.IsStreaming)
	assert.Equal(t, 1, l.StreamingCount())
	assert.True(t, l.Streaming())
}

func TestLog_MessagesIsACopy(t *testing.T) {
	l := NewLog(nil)
	require.NoError(t, l.Append(Message{ID: "a", Sender: SenderUser, Content: "x"}))
	msgs := l.Messages()
	msgs[0].Content = "mutated"
	m, _ := l.Get("a")
	assert.Equal(t, "x", m.Content)
}

func TestLog_ResetKeepsOrder(t *testing.T) {
	l := NewLog(nil)
	l.Reset([]Message{{ID: "3"}, {ID: "1"}, {ID: "2"}})
	assert.Equal(t, []string{"3", "1", "2"}, ids(l.Messages()))
}

func TestTrimHistory(t *testing.T) {
	h := []Message{
		{ID: "1", Content: strings.Repeat("a", 40)},
		{ID: "2", Content: strings.Repeat("b", 40)},
		{ID: "3", Content: strings.Repeat("c", 40)},
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids(TrimHistory(h, 0, 0)))
	assert.Equal(t, []string{"2", "3"}, ids(TrimHistory(h, 0, 2)))
	assert.Equal(t, []string{"3"}, ids(TrimHistory(h, 15, 0)))
	assert.Equal(t, []string{"3"}, ids(TrimHistory(h, 1, 0)), "newest message is always kept")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("기초"))
	assert.Equal(t, 0, EstimateTokens(""))
}

func ids(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
