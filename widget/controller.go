package widget

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/creastat/welfarechat/message"
	"github.com/creastat/welfarechat/stream"
)

// Messages shown in place of an answer.
const (
	EmptyAnswerText = "응답이 비어있어요. 다른 질문을 시도해 주세요."
	FailureText     = "챗봇 응답을 불러오지 못했어요. 잠시 후 다시 시도해 주세요."
)

// Streamer opens the answer stream for one question. Cancelling ctx must
// abort the request and any pending read on the returned body.
type Streamer interface {
	Stream(ctx context.Context, sessionID int64, text string) (io.ReadCloser, error)
}

// controller owns the request lifecycle. All methods except run must be
// called on the loop.
type controller struct {
	loop     *Loop
	log      *message.Log
	streamer Streamer

	active *request
	last   *request

	readers sync.WaitGroup
}

func newController(loop *Loop, msgs *message.Log, streamer Streamer) *controller {
	return &controller{loop: loop, log: msgs, streamer: streamer}
}

// submit starts a request for raw, superseding any request in flight.
// Blank input does nothing and returns false.
func (c *controller) submit(ctx context.Context, sessionID int64, raw string) bool {
	question := strings.TrimSpace(raw)
	if question == "" {
		return false
	}

	c.cancel()

	req := newRequest(ctx, sessionID, question)
	if err := c.log.Append(message.Message{
		ID:      "user-" + uuid.NewString(),
		Sender:  message.SenderUser,
		Content: question,
	}); err != nil {
		log.Error().Err(err).Str("component", "widget").Msg("append user message")
	}
	if err := c.log.Append(message.Message{
		ID:          req.placeholderID,
		Sender:      message.SenderAssistant,
		IsStreaming: true,
	}); err != nil {
		log.Error().Err(err).Str("component", "widget").Msg("append placeholder")
	}

	req.transition(StateSent)
	c.active, c.last = req, req

	c.readers.Add(1)
	go c.run(req)
	return true
}

// cancel aborts the active request and removes its placeholder. Nothing else
// is touched.
func (c *controller) cancel() {
	if c.active != nil {
		c.abort(c.active)
	}
}

// abort moves req to StateCanceled and drops its placeholder.
func (c *controller) abort(req *request) {
	if c.active == req {
		c.active = nil
	}
	req.cancel()
	if req.transition(StateCanceled) {
		c.log.Remove(req.placeholderID)
		log.Debug().Str("component", "widget").Str("placeholder", req.placeholderID).Msg("request canceled")
	}
}

func (c *controller) inFlight() bool {
	return c.active != nil
}

func (c *controller) lastState() RequestState {
	if c.last == nil {
		return StateIdle
	}
	return c.last.state
}

// wait blocks until every read goroutine has exited.
func (c *controller) wait() {
	c.readers.Wait()
}

// run reads the stream on its own goroutine and posts every outcome to the
// loop.
func (c *controller) run(req *request) {
	defer c.readers.Done()
	defer close(req.done)

	body, err := c.streamer.Stream(req.ctx, req.sessionID, req.question)
	if err != nil {
		c.post(req, func() { c.fail(req, err) })
		return
	}
	defer body.Close()

	r := stream.NewReader(body)
	for {
		delta, err := r.Next()
		if errors.Is(err, io.EOF) {
			c.post(req, func() { c.complete(req) })
			return
		}
		if err != nil {
			c.post(req, func() { c.fail(req, err) })
			return
		}
		c.post(req, func() { c.apply(req, delta) })
	}
}

// post runs fn on the loop while req is live. A request whose context was
// cancelled from outside, such as a parent going away, is aborted instead so
// it still reaches an end state.
func (c *controller) post(req *request, fn func()) {
	c.loop.Post(func() {
		if req.state.Terminal() {
			return
		}
		if req.ctx.Err() != nil {
			c.abort(req)
			return
		}
		fn()
	})
}

func (c *controller) apply(req *request, delta string) {
	req.transition(StateStreaming)
	req.text.WriteString(delta)
	c.log.Update(req.placeholderID, message.Content(req.text.String()).WithStreaming(true))
}

func (c *controller) complete(req *request) {
	text := req.text.String()
	if strings.TrimSpace(text) == "" {
		text = EmptyAnswerText
	}
	req.transition(StateCompleted)
	c.settle(req)
	c.log.Update(req.placeholderID, message.Content(text).WithStreaming(false))
}

func (c *controller) fail(req *request, err error) {
	log.Warn().Err(err).Str("component", "widget").Int64("session_id", req.sessionID).Msg("chat stream failed")
	req.transition(StateErrored)
	c.settle(req)
	c.log.Update(req.placeholderID, message.Content(FailureText).WithTone(message.ToneHighlight).WithStreaming(false))
}

func (c *controller) settle(req *request) {
	req.cancel()
	if c.active == req {
		c.active = nil
	}
}
