package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) sink(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []Kind {
	var out []Kind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestEmitter_Order(t *testing.T) {
	var r recorder
	e := NewEmitter("dedup", r.sink)

	e.Step("ignored before start")
	e.Start(2)
	e.Start(99)
	e.Step("a")
	e.Step("b")
	e.Complete("done")
	e.Step("ignored after end")
	e.Fail(errors.New("ignored"))

	assert.Equal(t, []Kind{Started, Progress, Progress, Completed}, r.kinds())
	assert.Equal(t, "dedup", r.events[0].TaskType)
	assert.Equal(t, 2, r.events[0].Total)
	assert.Equal(t, 2, r.events[2].Current)
	assert.Equal(t, "b", r.events[2].Message)
	assert.True(t, e.Done())
}

func TestEmitter_EveryEventCarriesTaskType(t *testing.T) {
	for _, end := range []func(*Emitter){
		func(e *Emitter) { e.Complete("ok") },
		func(e *Emitter) { e.Fail(errors.New("boom")) },
		func(e *Emitter) { e.Cancel() },
	} {
		var r recorder
		e := NewEmitter("zipwebp", r.sink)
		e.Start(1)
		e.Step("a.zip")
		e.Update(1, "a.zip")
		end(e)
		require.Len(t, r.events, 4)
		assert.True(t, r.events[3].Kind.Terminal())
		for _, ev := range r.events {
			assert.Equal(t, "zipwebp", ev.TaskType, ev.Kind.String())
		}
	}
}

func TestEmitter_TerminalWithoutStart(t *testing.T) {
	var r recorder
	e := NewEmitter("compress", r.sink)
	e.Cancel()
	assert.Equal(t, []Kind{Started, Cancelled}, r.kinds())
}

func TestEmitter_Finish(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, Completed},
		{context.Canceled, Cancelled},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), Cancelled},
		{errors.New("disk full"), Failed},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			var r recorder
			e := NewEmitter("x", r.sink)
			e.Start(0)
			e.Finish(tt.err, "msg")
			require.Len(t, r.events, 2)
			assert.Equal(t, tt.want, r.events[1].Kind)
			assert.True(t, r.events[1].Kind.Terminal())
		})
	}
}

func TestEmitter_ConcurrentSteps(t *testing.T) {
	var r recorder
	e := NewEmitter("batch", r.sink)
	e.Start(50)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Step("item")
		}()
	}
	wg.Wait()
	e.Complete("")

	require.Len(t, r.events, 52)
	assert.Equal(t, Started, r.events[0].Kind)
	assert.Equal(t, Completed, r.events[51].Kind)
	for i := 1; i <= 50; i++ {
		assert.Equal(t, i, r.events[i].Current, "progress is monotonic")
	}
}

func TestChannelAndMulti(t *testing.T) {
	ch := make(chan Event, 4)
	var r recorder
	e := NewEmitter("t", Multi(ChannelSink(ch), r.sink))
	e.Start(1)
	e.Complete("ok")
	close(ch)

	var got []Kind
	for ev := range ch {
		got = append(got, ev.Kind)
	}
	assert.Equal(t, []Kind{Started, Completed}, got)
	assert.Equal(t, got, r.kinds())
}

func TestTracker(t *testing.T) {
	tr := NewTracker(100)
	assert.Equal(t, 0.0, tr.Fraction())
	assert.Equal(t, 0, tr.Percent())

	tr.Update(50, "Half done")
	assert.Equal(t, 0.5, tr.Fraction())
	assert.Equal(t, 50, tr.Percent())
	assert.Equal(t, "Half done", tr.Message())

	tr.Increment()
	assert.Equal(t, 51, tr.Current())
	assert.Equal(t, Event{Kind: Progress, Current: 51, Total: 100, Message: "Half done"}, tr.Event())

	zero := NewTracker(0)
	assert.Equal(t, 0.0, zero.Fraction())
}
