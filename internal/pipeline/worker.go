package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"blueprint-runner/internal/task"
	"blueprint-runner/pkg/logger"
)

// Job is the uniform shape the runner drives every job through, whatever its
// event and stage types.
type Job interface {
	Name() string
	// Init starts the job's event loop and returns its completion signal.
	// A nil handle means the job declined to start.
	Init(ctx context.Context) *task.Handle
}

type jobOptions struct {
	log      *zap.SugaredLogger
	metrics  *Metrics
	disabled bool
}

type JobOption func(*jobOptions)

func WithLogger(log *zap.SugaredLogger) JobOption {
	return func(o *jobOptions) { o.log = log }
}

func WithMetrics(m *Metrics) JobOption {
	return func(o *jobOptions) { o.metrics = m }
}

// Disabled makes Init decline to start the job.
func Disabled() JobOption {
	return func(o *jobOptions) { o.disabled = true }
}

func applyJobOptions(opts []JobOption) jobOptions {
	var o jobOptions
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logger.OrNop(o.log)
	return o
}

// eventJob owns one listener plus its three stages until Init hands them to
// a spawned event loop.
type eventJob[E, P, O any] struct {
	name    string
	build   func(ctx context.Context) (EventListener[E], error)
	pre     Preprocessor[E, P]
	exec    Processor[P, O]
	post    Postprocessor[O]
	opts    jobOptions
	started atomic.Bool
}

// NewJob adapts a listener and its stages into a Job.
func NewJob[E, P, O any](
	name string,
	listener EventListener[E],
	pre Preprocessor[E, P],
	exec Processor[P, O],
	post Postprocessor[O],
	opts ...JobOption,
) Job {
	return &eventJob[E, P, O]{
		name: name,
		build: func(context.Context) (EventListener[E], error) {
			return listener, nil
		},
		pre:  pre,
		exec: exec,
		post: post,
		opts: applyJobOptions(opts),
	}
}

// NewJobFromFactory is like NewJob but constructs the listener from jobCtx
// when the job is initialised. A construction failure is reported through
// the job's completion signal.
func NewJobFromFactory[C, E, P, O any](
	name string,
	jobCtx C,
	factory ListenerFactory[C, E],
	pre Preprocessor[E, P],
	exec Processor[P, O],
	post Postprocessor[O],
	opts ...JobOption,
) Job {
	return &eventJob[E, P, O]{
		name: name,
		build: func(ctx context.Context) (EventListener[E], error) {
			return factory(ctx, jobCtx)
		},
		pre:  pre,
		exec: exec,
		post: post,
		opts: applyJobOptions(opts),
	}
}

func (j *eventJob[E, P, O]) Name() string {
	return j.name
}

func (j *eventJob[E, P, O]) Init(ctx context.Context) *task.Handle {
	log := j.opts.log.With("job", j.name)

	if j.opts.disabled {
		log.Infow("job disabled, not starting")
		return nil
	}
	if !j.started.CompareAndSwap(false, true) {
		log.Warnw("job already initialized")
		return nil
	}

	return task.Spawn(j.name, func() error {
		listener, err := j.build(ctx)
		if err != nil {
			log.Errorw("failed to construct event listener", "error", err)
			return fmt.Errorf("job %s: construct listener: %w", j.name, err)
		}
		x := NewExecutor(j.name, listener, j.pre, j.exec, j.post, j.opts.log, j.opts.metrics)
		return x.EventLoop(ctx)
	})
}
