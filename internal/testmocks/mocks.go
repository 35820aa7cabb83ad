// Package testmocks holds fakes shared by the runner and pipeline tests.
package testmocks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"blueprint-runner/internal/config"
	"blueprint-runner/internal/pipeline"
	"blueprint-runner/internal/task"
)

// --- Mock Config ---
// Records registration calls and returns the configured results.
type MockConfig struct {
	mu          sync.Mutex
	Required    bool
	RequiredErr error
	RegisterErr error

	RequiresCalls int
	RegisterCalls int
}

func (c *MockConfig) RequiresRegistration(_ context.Context, _ *config.Environment) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RequiresCalls++
	return c.Required, c.RequiredErr
}

func (c *MockConfig) Register(_ context.Context, _ *config.Environment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RegisterCalls++
	return c.RegisterErr
}

// --- Mock Service ---
// Starts a task that sleeps for Runtime and then returns Err.
type MockService struct {
	Name     string
	Runtime  time.Duration
	Err      error
	StartErr error

	Started atomic.Int64
}

func (s *MockService) Start(_ context.Context) (*task.Handle, error) {
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	s.Started.Add(1)
	return task.Spawn(s.Name, func() error {
		time.Sleep(s.Runtime)
		return s.Err
	}), nil
}

// --- Counting Job ---
// Tracks Init calls and delegates to the wrapped job.
type CountingJob struct {
	pipeline.Job
	Inits atomic.Int64
}

func (j *CountingJob) Init(ctx context.Context) *task.Handle {
	j.Inits.Add(1)
	return j.Job.Init(ctx)
}

// --- Recorder ---
// Collects the inputs the execute stage saw, in order.
type Recorder[T any] struct {
	mu    sync.Mutex
	Items []T
}

func (r *Recorder[T]) Execute(_ context.Context, item T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items = append(r.Items, item)
	return item, nil
}

func (r *Recorder[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.Items))
	copy(out, r.Items)
	return out
}

// ErrForced is returned by FailingExec.
var ErrForced = errors.New("forced failure")

// FailingExec fails on every input.
func FailingExec[T any](_ context.Context, _ T) (T, error) {
	var zero T
	return zero, ErrForced
}
