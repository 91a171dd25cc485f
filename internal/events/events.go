// Package events carries progress notifications from long-running index
// operations to whoever renders them. Emitting never blocks the producer.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

const (
	EmbeddingStart    Type = "EMBEDDING_START"
	EmbeddingProgress Type = "EMBEDDING_PROGRESS"
	EmbeddingEnd      Type = "EMBEDDING_END"
	EmbeddingError    Type = "EMBEDDING_ERROR"
	ItemError         Type = "ITEM_ERROR"
)

// Event is one progress notification. Processed and Total count documents.
type Event struct {
	Type      Type      `json:"type"`
	RunID     string    `json:"run_id"`
	Processed int       `json:"processed,omitempty"`
	Total     int       `json:"total,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Sink receives events. Implementations must not block.
type Sink interface {
	Emit(Event)
}

// NewRunID returns a fresh identifier for one operation.
func NewRunID() string {
	return uuid.NewString()
}

// Func adapts a function to a Sink. The function must return quickly.
type Func func(Event)

// Emit calls f.
func (f Func) Emit(e Event) { f(e) }

type discard struct{}

func (discard) Emit(Event) {}

// Discard drops every event.
var Discard Sink = discard{}

// Multi fans an event out to several sinks in order.
type Multi []Sink

// Emit forwards e to every non-nil sink.
func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Channel buffers events for a consumer goroutine. When the buffer is full
// the event is dropped and counted.
type Channel struct {
	ch      chan Event
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewChannel creates a channel sink with the given buffer size (minimum 1).
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan Event, size)}
}

// Emit enqueues e or drops it if the buffer is full or the sink is closed.
func (c *Channel) Emit(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.dropped.Add(1)
		return
	}
	select {
	case c.ch <- e:
	default:
		c.dropped.Add(1)
	}
}

// Events returns the receive side. It is closed by Close.
func (c *Channel) Events() <-chan Event { return c.ch }

// Dropped returns the number of events that did not fit.
func (c *Channel) Dropped() int64 { return c.dropped.Load() }

// Close stops accepting events and closes the receive side.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Emitter stamps events of one run before forwarding them.
type Emitter struct {
	sink  Sink
	runID string
	now   func() time.Time
}

// NewEmitter starts a run on sink. A nil sink discards.
func NewEmitter(sink Sink) *Emitter {
	if sink == nil {
		sink = Discard
	}
	return &Emitter{sink: sink, runID: NewRunID(), now: time.Now}
}

// RunID returns the run identifier carried by every event.
func (e *Emitter) RunID() string { return e.runID }

// Emit fills RunID and Time, then forwards ev.
func (e *Emitter) Emit(ev Event) {
	ev.RunID = e.runID
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}
	e.sink.Emit(ev)
}

// Start emits EMBEDDING_START.
func (e *Emitter) Start(total int) {
	e.Emit(Event{Type: EmbeddingStart, Total: total})
}

// Progress emits EMBEDDING_PROGRESS.
func (e *Emitter) Progress(processed, total int, itemID string) {
	e.Emit(Event{Type: EmbeddingProgress, Processed: processed, Total: total, ItemID: itemID})
}

// End emits EMBEDDING_END.
func (e *Emitter) End(processed, total int) {
	e.Emit(Event{Type: EmbeddingEnd, Processed: processed, Total: total})
}

// Fail emits EMBEDDING_ERROR for a failure scoped to itemID.
func (e *Emitter) Fail(itemID string, err error) {
	e.Emit(Event{Type: EmbeddingError, ItemID: itemID, Error: errString(err)})
}

// ItemFailed emits ITEM_ERROR for a document that could not be processed.
func (e *Emitter) ItemFailed(itemID string, err error) {
	e.Emit(Event{Type: ItemError, ItemID: itemID, Error: errString(err)})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
