// Package message keeps the ordered chat log and applies in-place updates to
// the assistant message that is currently streaming.
package message

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateID is returned by Append when the id is already in the log.
var ErrDuplicateID = errors.New("duplicate message id")

// Observer is called after every mutation with a copy of the log.
type Observer func(msgs []Message)

// Log is an append-only ordered list of messages.
type Log struct {
	mu       sync.RWMutex
	msgs     []Message
	observer Observer
}

// NewLog creates an empty log. observer may be nil.
func NewLog(observer Observer) *Log {
	return &Log{observer: observer}
}

// Append adds msg at the end of the log.
func (l *Log) Append(msg Message) error {
	l.mu.Lock()
	if l.indexLocked(msg.ID) >= 0 {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, msg.ID)
	}
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()

	l.notify()
	return nil
}

// Update applies patch to the message with the given id.
// It returns false, without notifying, when the id is not in the log; an
// update racing a removal is expected and ignored.
func (l *Log) Update(id string, patch Patch) bool {
	l.mu.Lock()
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	patch.apply(&l.msgs[i])
	l.mu.Unlock()

	l.notify()
	return true
}

// Remove deletes the message with the given id.
func (l *Log) Remove(id string) bool {
	l.mu.Lock()
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return false
	}
	l.msgs = append(l.msgs[:i:i], l.msgs[i+1:]...)
	l.mu.Unlock()

	l.notify()
	return true
}

// Reset replaces the whole log, e.g. after hydration or a reset.
func (l *Log) Reset(msgs []Message) {
	l.mu.Lock()
	l.msgs = append([]Message(nil), msgs...)
	l.mu.Unlock()

	l.notify()
}

// Get returns the message with the given id.
func (l *Log) Get(id string) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := l.indexLocked(id)
	if i < 0 {
		return Message{}, false
	}
	return l.msgs[i], true
}

// Messages returns a copy of the log in arrival order.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.msgs...)
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}

// StreamingCount returns how many messages are still marked as streaming.
func (l *Log) StreamingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, m := range l.msgs {
		if m.IsStreaming {
			n++
		}
	}
	return n
}

// Streaming reports whether any message is still streaming.
func (l *Log) Streaming() bool {
	return l.StreamingCount() > 0
}

func (l *Log) indexLocked(id string) int {
	for i := range l.msgs {
		if l.msgs[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Log) notify() {
	l.mu.RLock()
	o := l.observer
	snapshot := append([]Message(nil), l.msgs...)
	l.mu.RUnlock()

	if o != nil {
		o(snapshot)
	}
}
