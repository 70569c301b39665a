package widget

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// RequestState is where a chat request is in its lifecycle.
type RequestState int

const (
	StateIdle RequestState = iota
	StateSent
	StateStreaming
	StateCompleted
	StateErrored
	StateCanceled
)

func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is an end state.
func (s RequestState) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateCanceled
}

// request is one in-flight question. Its fields are owned by the widget loop;
// the read goroutine only touches ctx and done.
type request struct {
	ctx           context.Context
	cancel        context.CancelFunc
	placeholderID string
	sessionID     int64
	question      string

	state RequestState
	text  strings.Builder

	done chan struct{}
}

func newRequest(parent context.Context, sessionID int64, question string) *request {
	ctx, cancel := context.WithCancel(parent)
	return &request{
		ctx:           ctx,
		cancel:        cancel,
		placeholderID: "assistant-" + uuid.NewString(),
		sessionID:     sessionID,
		question:      question,
		state:         StateIdle,
		done:          make(chan struct{}),
	}
}

// transition moves the request forward. End states are sticky.
func (r *request) transition(to RequestState) bool {
	if r.state.Terminal() {
		return false
	}
	r.state = to
	return true
}
