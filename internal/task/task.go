package task

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRecv is reported when a task's goroutine vanished without producing a
// result, either by panicking or by calling runtime.Goexit.
var ErrRecv = errors.New("task completion signal lost")

// Handle is a single-shot completion signal for one spawned task.
type Handle struct {
	name string
	done chan struct{}
	once sync.Once
	err  error
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{})}
}

// Spawn runs fn on its own goroutine and returns the handle that fires when
// fn returns.
func Spawn(name string, fn func() error) *Handle {
	h := newHandle(name)
	go func() {
		returned := false
		defer func() {
			if returned {
				return
			}
			if r := recover(); r != nil {
				h.fire(fmt.Errorf("%w: %s panicked: %v", ErrRecv, name, r))
				return
			}
			h.fire(fmt.Errorf("%w: %s exited without result", ErrRecv, name))
		}()
		err := fn()
		returned = true
		h.fire(err)
	}()
	return h
}

// Completed returns a handle that has already fired successfully.
func Completed(name string) *Handle {
	h := newHandle(name)
	h.fire(nil)
	return h
}

// Failed returns a handle that has already fired with err.
func Failed(name string, err error) *Handle {
	h := newHandle(name)
	h.fire(err)
	return h
}

func (h *Handle) fire(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

func (h *Handle) Name() string {
	return h.name
}

// Done is closed once the task has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task result. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes and returns its result.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}
