// Package periodic provides a listener that emits a tick at a fixed
// interval.
package periodic

import (
	"context"
	"errors"
	"time"

	"blueprint-runner/internal/pipeline"
)

var ErrInvalidInterval = errors.New("interval must be positive")

// Tick is the Seq-th event of a periodic listener, starting at 1.
type Tick struct {
	Seq uint64
	At  time.Time
}

type Config struct {
	Interval time.Duration
	// Limit ends the stream after this many ticks. Zero means unbounded.
	Limit uint64
}

type Listener struct {
	ticker *time.Ticker
	limit  uint64
	seq    uint64
}

func NewListener(cfg Config) (*Listener, error) {
	if cfg.Interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Listener{ticker: time.NewTicker(cfg.Interval), limit: cfg.Limit}, nil
}

// Factory builds a listener from cfg inside Job.Init.
func Factory(_ context.Context, cfg Config) (pipeline.EventListener[Tick], error) {
	l, err := NewListener(cfg)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Listener) NextEvent(ctx context.Context) (Tick, bool) {
	if l.limit > 0 && l.seq >= l.limit {
		l.ticker.Stop()
		return Tick{}, false
	}
	select {
	case <-ctx.Done():
		l.ticker.Stop()
		return Tick{}, false
	case at := <-l.ticker.C:
		l.seq++
		return Tick{Seq: l.seq, At: at}, true
	}
}
