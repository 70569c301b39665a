// Package widget is the chat widget state owner. One Widget stands for one
// open tab: it keeps the conversation, streams answers into it and stays in
// sync with other widgets that share the same storage backend.
package widget

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/creastat/welfarechat/message"
	"github.com/creastat/welfarechat/session"
)

// Widget owns one ChatState. Public methods are safe for concurrent use;
// they run on the widget's loop and return once applied.
type Widget struct {
	loop     *Loop
	msgs     *message.Log
	ctrl     *controller
	store    *session.ChatStore
	sessions *session.Registry
	renderer Renderer

	// loop-confined
	ctx       context.Context // parent of every request
	storeCtx  context.Context // storage calls outlive ctx
	open      bool
	draft     string
	hydrating bool
	stopWatch func()
}

// Option configures a Widget.
type Option func(*Widget)

// WithRenderer sets the render surface.
func WithRenderer(r Renderer) Option {
	return func(w *Widget) {
		if r != nil {
			w.renderer = r
		}
	}
}

// WithRegistry sets the session id registry.
func WithRegistry(r *session.Registry) Option {
	return func(w *Widget) {
		if r != nil {
			w.sessions = r
		}
	}
}

// New creates a widget. Call Start before use and Shutdown when done.
func New(streamer Streamer, store *session.ChatStore, opts ...Option) *Widget {
	w := &Widget{
		loop:     NewLoop(),
		store:    store,
		sessions: session.NewRegistry(),
		renderer: nopRenderer{},
		ctx:      context.Background(),
		storeCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.msgs = message.NewLog(func([]message.Message) { w.changed() })
	w.ctrl = newController(w.loop, w.msgs, streamer)
	return w
}

// Start hydrates from the stored snapshot and subscribes to changes written
// by other widgets. Storage failures are logged and the widget carries on
// with an empty state.
//
// Cancelling ctx aborts the answer in flight and refuses later questions.
// Storage calls do not inherit the cancellation, so the final state is saved.
func (w *Widget) Start(ctx context.Context) {
	storeCtx := context.WithoutCancel(ctx)
	w.loop.Call(func() {
		w.ctx, w.storeCtx = ctx, storeCtx
		if st, found := w.store.Load(storeCtx); found {
			w.hydrate(st)
			return
		}
		w.render()
	})
	go w.abortOnDone(ctx)

	stop, err := w.store.OnExternalChange(ctx, func(raw *string) {
		st := session.DecodeChatState(raw)
		w.loop.Post(func() { w.hydrate(st) })
	})
	if err != nil {
		log.Warn().Err(err).Str("component", "widget").Str("key", w.store.Key()).Msg("subscribe to external changes")
		return
	}
	w.loop.Call(func() { w.stopWatch = stop })
}

func (w *Widget) abortOnDone(ctx context.Context) {
	select {
	case <-ctx.Done():
		w.loop.Call(func() {
			log.Debug().Err(ctx.Err()).Str("component", "widget").Msg("start context done")
			w.ctrl.cancel()
		})
	case <-w.loop.Done():
	}
}

// Open shows the widget.
func (w *Widget) Open() {
	w.loop.Call(func() {
		w.open = true
		w.changed()
	})
}

// Close hides the widget and aborts the answer in flight.
func (w *Widget) Close() {
	w.loop.Call(func() {
		w.open = false
		w.ctrl.cancel()
		w.changed()
	})
}

// SetDraft records the text typed so far.
func (w *Widget) SetDraft(s string) {
	w.loop.Call(func() {
		w.draft = s
		w.changed()
	})
}

// Submit asks text, superseding the answer in flight, and clears the draft.
// Blank input, or any input once the Start context is done, is ignored and
// Submit returns false.
func (w *Widget) Submit(text string) bool {
	var ok bool
	w.loop.Call(func() {
		if w.ctx.Err() != nil {
			return
		}
		ok = w.ctrl.submit(w.ctx, w.sessions.Current(), text)
		if ok {
			w.draft = ""
			w.changed()
		}
	})
	return ok
}

// Reset aborts the answer in flight, clears the conversation and the draft
// and starts a new backend session.
func (w *Widget) Reset() {
	w.loop.Call(func() {
		w.ctrl.cancel()
		w.draft = ""
		w.sessions.Reset()
		w.msgs.Reset(nil)
	})
}

// Shutdown aborts the answer in flight, unsubscribes from storage and stops
// the loop. The widget is unusable afterwards.
func (w *Widget) Shutdown() {
	w.loop.Call(func() {
		w.ctrl.cancel()
		if w.stopWatch != nil {
			w.stopWatch()
			w.stopWatch = nil
		}
	})
	w.loop.Stop()
	<-w.loop.Done()
	w.ctrl.wait()
}

// State returns a copy of the current ChatState.
func (w *Widget) State() session.ChatState {
	var st session.ChatState
	w.loop.Call(func() { st = w.snapshot() })
	return st
}

// Streaming reports whether an answer is in flight.
func (w *Widget) Streaming() bool {
	var v bool
	w.loop.Call(func() { v = w.ctrl.inFlight() })
	return v
}

// RequestState reports the state of the most recent request.
func (w *Widget) RequestState() RequestState {
	s := StateIdle
	w.loop.Call(func() { s = w.ctrl.lastState() })
	return s
}

// SessionID returns the backend session id currently in use.
func (w *Widget) SessionID() int64 {
	return w.sessions.Current()
}

// hydrate applies a snapshot written elsewhere. Saves are suppressed while
// it is applied so the snapshot is not echoed back; tasks queued after it
// persist as usual.
func (w *Widget) hydrate(st session.ChatState) {
	w.hydrating = true
	defer func() { w.hydrating = false }()
	if !st.Open {
		w.ctrl.cancel()
	}
	w.open = st.Open
	w.draft = st.DraftInput
	w.msgs.Reset(st.Messages)
}

// changed renders and, outside hydration, persists the current state.
func (w *Widget) changed() {
	w.render()
	if w.hydrating {
		return
	}
	w.store.Save(w.storeCtx, w.snapshot())
}

func (w *Widget) render() {
	msgs := w.msgs.Messages()
	w.renderer.Render(View{
		Open:      w.open,
		Draft:     w.draft,
		Messages:  msgs,
		Streaming: w.ctrl.inFlight(),
		Helper:    HelperText(len(msgs) > 0),
	})
}

func (w *Widget) snapshot() session.ChatState {
	return session.ChatState{
		Open:       w.open,
		DraftInput: w.draft,
		Messages:   w.msgs.Messages(),
	}
}
