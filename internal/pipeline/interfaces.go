package pipeline

import "context"

// EventListener yields the events of one source in order. NextEvent blocks
// until an event is available and reports false once the source has ended
// for good. A cancelled context ends the stream.
type EventListener[E any] interface {
	NextEvent(ctx context.Context) (E, bool)
}

// ListenerFunc adapts a plain function to EventListener.
type ListenerFunc[E any] func(ctx context.Context) (E, bool)

func (f ListenerFunc[E]) NextEvent(ctx context.Context) (E, bool) {
	return f(ctx)
}

// ListenerFactory constructs a listener from a job context. It fails on
// malformed connection parameters.
type ListenerFactory[C, E any] func(ctx context.Context, jobCtx C) (EventListener[E], error)
