package runner

import (
	"context"

	"blueprint-runner/internal/config"
	"blueprint-runner/internal/task"
)

// BlueprintConfig performs the one-time on-chain registration of the
// operator for one restaking protocol.
type BlueprintConfig interface {
	// RequiresRegistration reports whether the operator is not yet
	// registered.
	RequiresRegistration(ctx context.Context, env *config.Environment) (bool, error)
	Register(ctx context.Context, env *config.Environment) error
}

// BackgroundService is a long-running task that is not driven by events.
type BackgroundService interface {
	Start(ctx context.Context) (*task.Handle, error)
}

type BackgroundServiceFunc func(ctx context.Context) (*task.Handle, error)

func (f BackgroundServiceFunc) Start(ctx context.Context) (*task.Handle, error) {
	return f(ctx)
}

// NoRegistration is a BlueprintConfig for blueprints that never register.
type NoRegistration struct{}

func (NoRegistration) RequiresRegistration(context.Context, *config.Environment) (bool, error) {
	return false, nil
}

func (NoRegistration) Register(context.Context, *config.Environment) error {
	return nil
}
