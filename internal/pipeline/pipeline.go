package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blueprint-runner/pkg/logger"
)

// Executor drives one listener's events through preprocess, execute and
// postprocess. Stages run strictly one after the other; the next event is
// not fetched before the current one has left postprocess.
type Executor[E, P, O any] struct {
	name     string
	listener EventListener[E]
	pre      Preprocessor[E, P]
	exec     Processor[P, O]
	post     Postprocessor[O]
	log      *zap.SugaredLogger
	metrics  *Metrics
}

func NewExecutor[E, P, O any](
	name string,
	listener EventListener[E],
	pre Preprocessor[E, P],
	exec Processor[P, O],
	post Postprocessor[O],
	log *zap.SugaredLogger,
	metrics *Metrics,
) *Executor[E, P, O] {
	return &Executor[E, P, O]{
		name:     name,
		listener: listener,
		pre:      pre,
		exec:     exec,
		post:     post,
		log:      logger.OrNop(log).With("job", name),
		metrics:  metrics,
	}
}

func (x *Executor[E, P, O]) Name() string {
	return x.name
}

// EventLoop consumes events until the listener ends, returning
// ErrTermination, or until a stage fails with anything other than a
// BadArgumentDecodingError, returning a *ProcessorError.
func (x *Executor[E, P, O]) EventLoop(ctx context.Context) error {
	x.log.Infow("event loop started")

	for {
		event, ok := x.listener.NextEvent(ctx)
		if !ok {
			x.log.Infow("event loop exiting", "reason", "listener ended")
			return ErrTermination
		}
		x.metrics.IncReceived()

		if err := x.handle(ctx, event); err != nil {
			x.metrics.IncFailed()
			return err
		}
	}
}

func (x *Executor[E, P, O]) handle(ctx context.Context, event E) error {
	log := x.log.With("event_id", uuid.New().String())
	start := time.Now()

	input, ok, err := x.pre(ctx, event)
	switch {
	case err != nil && IsBadArgumentDecoding(err):
		x.metrics.IncDecodeFailures()
		log.Warnw("bad argument decoding, skipping event", "error", err)
		return nil
	case err != nil:
		log.Errorw("preprocess failed", "error", err)
		return &ProcessorError{Job: x.name, Stage: StagePreprocess, Err: err}
	case !ok:
		x.metrics.IncSkipped()
		log.Debugw("event filtered out")
		return nil
	}

	output, err := x.exec(ctx, input)
	if err != nil {
		log.Errorw("execute failed", "error", err)
		return &ProcessorError{Job: x.name, Stage: StageExecute, Err: err}
	}

	if err := x.post(ctx, output); err != nil {
		log.Errorw("postprocess failed", "error", err)
		return &ProcessorError{Job: x.name, Stage: StagePostprocess, Err: err}
	}

	latency := time.Since(start).Milliseconds()
	x.metrics.AddLatency(latency)
	x.metrics.IncProcessed()

	log.Debugw("event processed", "latency_ms", latency)
	return nil
}
