package task

import "sync"

// WaitSet hands back handles in the order they fire. Every added handle is
// returned by Next exactly once.
type WaitSet struct {
	mu      sync.Mutex
	pending int
	fired   chan *Handle
}

func NewWaitSet(handles ...*Handle) *WaitSet {
	w := &WaitSet{fired: make(chan *Handle, len(handles))}
	for _, h := range handles {
		w.Add(h)
	}
	return w
}

func (w *WaitSet) Add(h *Handle) {
	if h == nil {
		return
	}
	w.mu.Lock()
	w.pending++
	w.mu.Unlock()

	go func() {
		<-h.Done()
		w.fired <- h
	}()
}

// Len is the number of handles not yet returned by Next.
func (w *WaitSet) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Next blocks until the first remaining handle fires and removes it from the
// set. It reports false once the set is empty.
func (w *WaitSet) Next() (*Handle, bool) {
	w.mu.Lock()
	if w.pending == 0 {
		w.mu.Unlock()
		return nil, false
	}
	w.mu.Unlock()

	h := <-w.fired

	w.mu.Lock()
	w.pending--
	w.mu.Unlock()
	return h, true
}
