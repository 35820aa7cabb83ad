package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blueprint-runner/internal/config"
	"blueprint-runner/internal/pipeline"
	"blueprint-runner/internal/task"
	"blueprint-runner/pkg/logger"
)

// BlueprintRunner gates startup on protocol registration, then runs every
// job and background service concurrently until all of them have finished.
type BlueprintRunner struct {
	config   BlueprintConfig
	env      *config.Environment
	jobs     []pipeline.Job
	services []BackgroundService
	log      *zap.SugaredLogger
	ran      bool
}

type Option func(*BlueprintRunner)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *BlueprintRunner) { r.log = log }
}

func New(cfg BlueprintConfig, env *config.Environment, opts ...Option) *BlueprintRunner {
	r := &BlueprintRunner{config: cfg, env: env}
	for _, opt := range opts {
		opt(r)
	}
	r.log = logger.OrNop(r.log)
	return r
}

// Job appends a job. Jobs are initialised in the order they were added.
func (r *BlueprintRunner) Job(j pipeline.Job) *BlueprintRunner {
	r.jobs = append(r.jobs, j)
	return r
}

// BackgroundService appends a service. Services start, in order, before any
// job is initialised.
func (r *BlueprintRunner) BackgroundService(s BackgroundService) *BlueprintRunner {
	r.services = append(r.services, s)
	return r
}

// Run registers the operator if needed, starts all services and jobs, and
// blocks until every one of them has completed. Errors are only returned
// for failures before anything was started; failures of running tasks are
// logged and do not stop their siblings.
func (r *BlueprintRunner) Run(ctx context.Context) error {
	if r.ran {
		return ErrAlreadyRan
	}
	r.ran = true

	runID := uuid.New().String()
	log := r.log.With("run_id", runID)

	if err := r.registerIfNeeded(ctx, log); err != nil {
		return err
	}

	var handles []*task.Handle

	for i, svc := range r.services {
		h, err := svc.Start(ctx)
		if err != nil {
			log.Errorw("background service failed to start", "service", i, "error", err)
			return &StartError{Index: i, Err: err}
		}
		if h == nil {
			h = task.Completed(fmt.Sprintf("service-%d", i))
		}
		log.Infow("background service started", "service", h.Name())
		handles = append(handles, h)
	}
	r.services = nil

	for _, job := range r.jobs {
		h := job.Init(ctx)
		if h == nil {
			log.Infow("job declined to start", "job", job.Name())
			continue
		}
		log.Infow("job started", "job", job.Name())
		handles = append(handles, h)
	}
	r.jobs = nil

	waitSet := task.NewWaitSet(handles...)
	log.Infow("waiting for tasks", "count", waitSet.Len())

	for {
		h, ok := waitSet.Next()
		if !ok {
			break
		}
		err := h.Err()
		switch {
		case err == nil:
			log.Infow("task completed", "task", h.Name(), "remaining", waitSet.Len())
		case errors.Is(err, pipeline.ErrTermination):
			log.Infow("task terminated", "task", h.Name(), "remaining", waitSet.Len())
		default:
			log.Errorw("job or background service failed", "task", h.Name(), "remaining", waitSet.Len(), "error", err)
		}
	}

	log.Infow("all tasks finished")
	return nil
}

func (r *BlueprintRunner) registerIfNeeded(ctx context.Context, log *zap.SugaredLogger) error {
	required, err := r.config.RequiresRegistration(ctx, r.env)
	if err != nil {
		log.Errorw("registration check failed", "error", err)
		return err
	}
	if !required {
		log.Infow("operator already registered")
		return nil
	}

	log.Infow("operator not registered, registering")
	if err := r.config.Register(ctx, r.env); err != nil {
		log.Errorw("registration failed", "error", err)
		return err
	}
	log.Infow("operator registered")
	return nil
}
