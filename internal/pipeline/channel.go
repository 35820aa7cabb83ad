package pipeline

import (
	"context"
	"sync"
)

// ChannelListener is an in-process event source fed through Ingest. Close
// ends the stream once the queued events have been consumed.
type ChannelListener[E any] struct {
	events chan E
	once   sync.Once
}

func NewChannelListener[E any](queueSize int) *ChannelListener[E] {
	return &ChannelListener[E]{events: make(chan E, queueSize)}
}

// Ingest queues an event, blocking while the queue is full. It must not be
// called after Close.
func (c *ChannelListener[E]) Ingest(ctx context.Context, event E) error {
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChannelListener[E]) Close() {
	c.once.Do(func() { close(c.events) })
}

func (c *ChannelListener[E]) QueueDepth() int {
	return len(c.events)
}

func (c *ChannelListener[E]) NextEvent(ctx context.Context) (E, bool) {
	select {
	case e, ok := <-c.events:
		return e, ok
	case <-ctx.Done():
		var zero E
		return zero, false
	}
}

// SliceListener yields a fixed list of events and then ends.
func SliceListener[E any](events ...E) EventListener[E] {
	i := 0
	return ListenerFunc[E](func(ctx context.Context) (E, bool) {
		var zero E
		if ctx.Err() != nil || i >= len(events) {
			return zero, false
		}
		e := events[i]
		i++
		return e, true
	})
}
