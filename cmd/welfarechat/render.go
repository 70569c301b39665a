package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/creastat/welfarechat/message"
	"github.com/creastat/welfarechat/widget"
)

var (
	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	highlightStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// termRenderer prints the conversation incrementally: new messages once,
// streamed answers as their text grows.
type termRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	printed map[string]string
	settled map[string]bool
	open    bool
	started bool
}

func newTermRenderer(out io.Writer) *termRenderer {
	return &termRenderer{
		out:     out,
		printed: make(map[string]string),
		settled: make(map[string]bool),
	}
}

func (r *termRenderer) Render(v widget.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || v.Open != r.open {
		r.started = true
		r.open = v.Open
		if v.Open {
			fmt.Fprintln(r.out, dimStyle.Render("[대화창 열림] "+v.Helper))
		} else {
			fmt.Fprintln(r.out, dimStyle.Render("[대화창 닫힘]"))
		}
	}

	// A reset or a shorter snapshot from elsewhere starts a fresh transcript.
	live := make(map[string]bool, len(v.Messages))
	for _, m := range v.Messages {
		live[m.ID] = true
	}
	for id := range r.printed {
		if !live[id] {
			if !r.settled[id] {
				fmt.Fprintln(r.out, dimStyle.Render(" (취소됨)"))
			}
			delete(r.printed, id)
			delete(r.settled, id)
		}
	}

	for _, m := range v.Messages {
		if r.settled[m.ID] {
			continue
		}
		switch m.Sender {
		case message.SenderUser:
			fmt.Fprintf(r.out, "%s %s\n", userLabelStyle.Render("나 ›"), m.Content)
			r.printed[m.ID] = m.Content
			r.settled[m.ID] = true
		case message.SenderAssistant:
			r.renderAssistant(m)
		}
	}
}

func (r *termRenderer) renderAssistant(m message.Message) {
	prev, seen := r.printed[m.ID]
	if !seen {
		fmt.Fprintf(r.out, "%s ", assistantLabelStyle.Render("챗봇 ›"))
	}

	switch {
	case m.Highlighted():
		if prev != "" {
			fmt.Fprintln(r.out)
		}
		fmt.Fprint(r.out, highlightStyle.Render(m.Content))
	case strings.HasPrefix(m.Content, prev):
		fmt.Fprint(r.out, m.Content[len(prev):])
	default:
		// Replaced rather than extended, e.g. the empty-answer notice.
		if prev != "" {
			fmt.Fprintln(r.out)
		}
		fmt.Fprint(r.out, m.Content)
	}
	r.printed[m.ID] = m.Content

	if !m.IsStreaming {
		fmt.Fprintln(r.out)
		r.settled[m.ID] = true
	}
}
