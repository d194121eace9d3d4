// Package progress defines the event stream a long-running operation
// reports to its UI. Each operation emits exactly one Started event, any
// number of Progress events, and exactly one terminal event (Completed,
// Failed, or Cancelled), in that order.
package progress

import (
	"context"
	"errors"
	"sync"
)

// Kind identifies an event.
type Kind int

const (
	Started Kind = iota
	Progress
	Completed
	Failed
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Started:
		return "started"
	case Progress:
		return "progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether k ends an operation.
func (k Kind) Terminal() bool {
	return k == Completed || k == Failed || k == Cancelled
}

// Event is one progress notification. Fields not relevant to Kind are zero.
type Event struct {
	Kind     Kind
	TaskType string // Set on Started.
	Current  int
	Total    int
	Message  string
	Err      error // Set on Failed.
}

// Sink consumes events. Sinks may be called from multiple goroutines but an
// Emitter never calls its sink concurrently.
type Sink func(Event)

// Discard drops every event.
func Discard(Event) {}

// ChannelSink forwards events to ch. Sends block, so ch must be drained.
func ChannelSink(ch chan<- Event) Sink {
	return func(e Event) { ch <- e }
}

// Multi fans each event out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return func(e Event) {
		for _, s := range sinks {
			s(e)
		}
	}
}

// Emitter enforces the per-operation ordering contract on top of a Sink.
// Events before Start or after a terminal event are dropped. Safe for
// concurrent use.
type Emitter struct {
	mu       sync.Mutex
	sink     Sink
	taskType string
	started  bool
	done     bool
	tracker  Tracker
}

// NewEmitter returns an emitter for one operation of taskType.
func NewEmitter(taskType string, sink Sink) *Emitter {
	if sink == nil {
		sink = Discard
	}
	return &Emitter{sink: sink, taskType: taskType}
}

// Start emits Started with the expected item count. Only the first call has
// an effect.
func (e *Emitter) Start(total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	e.tracker = NewTracker(total)
	e.sink(Event{Kind: Started, TaskType: e.taskType, Total: total})
}

// Step advances the current count by one and emits Progress with msg.
func (e *Emitter) Step(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.done {
		return
	}
	e.tracker.Increment()
	e.tracker.SetMessage(msg)
	e.sink(e.progressEvent())
}

// Update sets the current count and emits Progress.
func (e *Emitter) Update(current int, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.done {
		return
	}
	e.tracker.Update(current, msg)
	e.sink(e.progressEvent())
}

// Complete emits Completed.
func (e *Emitter) Complete(msg string) {
	e.finish(Event{Kind: Completed, Message: msg})
}

// Fail emits Failed carrying err.
func (e *Emitter) Fail(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	e.finish(Event{Kind: Failed, Err: err, Message: msg})
}

// Cancel emits Cancelled.
func (e *Emitter) Cancel() {
	e.finish(Event{Kind: Cancelled})
}

// Finish picks the terminal event from err: nil completes, a context
// cancellation cancels, anything else fails.
func (e *Emitter) Finish(err error, msg string) {
	switch {
	case err == nil:
		e.Complete(msg)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		e.Cancel()
	default:
		e.Fail(err)
	}
}

func (e *Emitter) progressEvent() Event {
	ev := e.tracker.Event()
	ev.TaskType = e.taskType
	return ev
}

func (e *Emitter) finish(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	if !e.started {
		e.started = true
		e.sink(Event{Kind: Started, TaskType: e.taskType})
	}
	e.done = true
	ev.TaskType = e.taskType
	e.sink(ev)
}

// Done reports whether a terminal event has been emitted.
func (e *Emitter) Done() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}
