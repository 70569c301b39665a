package widget

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInOrder(t *testing.T) {
	l := NewLoop()
	defer l.Stop()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 100; i++ {
		require.True(t, l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	l.Call(func() {})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestLoop_PostFromTaskRunsNextTick(t *testing.T) {
	l := NewLoop()
	defer l.Stop()

	var order []string
	l.Call(func() {
		order = append(order, "task")
		l.Post(func() { order = append(order, "next tick") })
		order = append(order, "task end")
	})
	l.Call(func() {})
	assert.Equal(t, []string{"task", "task end", "next tick"}, order)
}

func TestLoop_StopDrainsQueued(t *testing.T) {
	l := NewLoop()
	block := make(chan struct{})
	ran := make(chan struct{})
	l.Post(func() { <-block })
	l.Post(func() { close(ran) })
	l.Stop()
	close(block)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task dropped")
	}
	<-l.Done()

	assert.False(t, l.Post(func() {}))
	assert.False(t, l.Call(func() {}))
}

func TestRequestState(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "unknown", RequestState(42).String())

	for _, s := range []RequestState{StateCompleted, StateErrored, StateCanceled} {
		assert.True(t, s.Terminal(), s.String())
	}
	for _, s := range []RequestState{StateIdle, StateSent, StateStreaming} {
		assert.False(t, s.Terminal(), s.String())
	}
}

func TestRequest_EndStatesAreSticky(t *testing.T) {
	r := newRequest(t.Context(), 1, "q")
	assert.True(t, r.transition(StateSent))
	assert.True(t, r.transition(StateStreaming))
	assert.True(t, r.transition(StateCanceled))
	assert.False(t, r.transition(StateCompleted))
	assert.Equal(t, StateCanceled, r.state)
}
