package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creastat/welfarechat/config"
	"github.com/creastat/welfarechat/message"
	"github.com/creastat/welfarechat/mockbackend"
	"github.com/creastat/welfarechat/widget"
)

func TestTermRenderer_StreamsIncrementally(t *testing.T) {
	var buf bytes.Buffer
	r := newTermRenderer(&buf)

	user := message.Message{ID: "u", Sender: message.SenderUser, Content: "기초연금 신청"}
	step := func(content string, streaming bool) {
		r.Render(widget.View{Open: true, Messages: []message.Message{
			user,
			{ID: "a", Sender: message.SenderAssistant, Content: content, IsStreaming: streaming},
		}})
	}
	step("", true)
	step("기초", true)
	step("기초연금 신청", true)
	step("기초연금 신청", false)
	step("기초연금 신청", false)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "나 › 기초연금 신청\n"), "user line printed once")
	assert.Contains(t, out, "챗봇 › 기초연금 신청\n")
	assert.Equal(t, 1, strings.Count(out, "챗봇 ›"))
}

func TestTermRenderer_FailureAndCancel(t *testing.T) {
	var buf bytes.Buffer
	r := newTermRenderer(&buf)

	r.Render(widget.View{Open: true, Messages: []message.Message{
		{ID: "a", Sender: message.SenderAssistant, Content: "부분", IsStreaming: true},
	}})
	r.Render(widget.View{Open: true})
	assert.Contains(t, buf.String(), "(취소됨)")

	buf.Reset()
	r.Render(widget.View{Open: true, Messages: []message.Message{
		{ID: "b", Sender: message.SenderAssistant, Content: widget.FailureText, Tone: message.ToneHighlight},
	}})
	assert.Contains(t, buf.String(), widget.FailureText)
}

func testApp(t *testing.T, driver string) *app {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Driver = driver
	cfg.Storage.File.Dir = t.TempDir()
	return &app{cfg: cfg}
}

func TestRunChat_AgainstMockBackend(t *testing.T) {
	srv := httptest.NewServer(mockbackend.NewServer(nil, 0).Handler())
	defer srv.Close()

	a := testApp(t, "file")
	a.cfg.Chat.Endpoint = srv.URL + mockbackend.ChatPath

	var out bytes.Buffer
	in := strings.NewReader("기초연금 신청\n/reset\n주민등록 등본\n/quit\n")
	require.NoError(t, a.runChat(context.Background(), in, &out))

	text := out.String()
	assert.Contains(t, text, "기초연금은 만 65세 이상 어르신 중 소득인정액이 선정기준액 이하인 분이 신청할 수 있어요.")
	assert.Contains(t, text, "새 대화 시작")
	assert.Contains(t, text, "주민등록 등본은 정부24에서 온라인으로 발급받을 수 있어요.")

	// The conversation survives in the file store for the next run.
	backend, err := openBackend(a.cfg)
	require.NoError(t, err)
	defer backend.Close()
	st, found := newChatStore(a.cfg, backend).Load(context.Background())
	require.True(t, found)
	require.Len(t, st.Messages, 2, "reset cleared the first exchange")
	assert.Equal(t, "주민등록 등본", st.Messages[0].Content)
}

func TestChecklistCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	t.Setenv("WELFARECHAT_STORAGE_FILE_DIR", dir)

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--storage", "file", "--log-level", "error"}, args...))
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	assert.Contains(t, run("checklist", "list", "basic-pension"), "비어 있음")
	assert.Contains(t, run("checklist", "toggle", "basic-pension", "id-card"), "[x] id-card")

	out := run("checklist", "mark-all", "basic-pension", "id-card", "bankbook")
	assert.Contains(t, out, "[x] bankbook")
	assert.Contains(t, out, "모두 끝났어요")

	out = run("checklist", "clear-all", "basic-pension", "id-card", "bankbook")
	assert.Contains(t, out, "[ ] id-card")
	assert.NotContains(t, out, "모두 끝났어요")
}

func TestOpenBackend_Errors(t *testing.T) {
	a := testApp(t, "redis")
	_, err := openBackend(a.cfg)
	require.Error(t, err, "redis without an address")

	a.cfg.Storage.Driver = "sqlite"
	a.cfg.Storage.SQLite.Path = t.TempDir() + "/nested/state.db"
	b, err := openBackend(a.cfg)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}
