package pipeline

import (
	"sync/atomic"
	"time"
)

// Metrics counts what happened to events flowing through one or more event
// loops. A nil *Metrics is valid and records nothing.
type Metrics struct {
	received       uint64
	processed      uint64
	skipped        uint64
	decodeFailures uint64
	failed         uint64

	totalLatencyMS uint64
	startTime      time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) IncReceived() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.received, 1)
}

func (m *Metrics) IncProcessed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.processed, 1)
}

func (m *Metrics) IncSkipped() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.skipped, 1)
}

func (m *Metrics) IncDecodeFailures() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.decodeFailures, 1)
}

func (m *Metrics) IncFailed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.failed, 1)
}

func (m *Metrics) AddLatency(ms int64) {
	if m == nil || ms < 0 {
		return
	}
	atomic.AddUint64(&m.totalLatencyMS, uint64(ms))
}

func (m *Metrics) GetReceived() uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(&m.received)
}

func (m *Metrics) GetProcessed() uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(&m.processed)
}

func (m *Metrics) GetSkipped() uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(&m.skipped)
}

func (m *Metrics) GetDecodeFailures() uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(&m.decodeFailures)
}

func (m *Metrics) GetFailed() uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(&m.failed)
}

func (m *Metrics) AvgLatencyMS() float64 {
	if m == nil {
		return 0
	}
	processed := atomic.LoadUint64(&m.processed)
	if processed == 0 {
		return 0
	}
	total := atomic.LoadUint64(&m.totalLatencyMS)
	return float64(total) / float64(processed)
}

func (m *Metrics) EPS() float64 {
	if m == nil {
		return 0
	}
	secs := time.Since(m.startTime).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(m.GetProcessed()) / secs
}

func (m *Metrics) StartTime() time.Time {
	if m == nil {
		return time.Time{}
	}
	return m.startTime
}
