package runner

import (
	"errors"
	"fmt"

	"blueprint-runner/internal/config"
	"blueprint-runner/internal/task"
)

var (
	// ErrRecv means a job or service vanished without reporting a result.
	ErrRecv = task.ErrRecv
	// ErrInvalidProtocol is matched by every *InvalidProtocolError.
	ErrInvalidProtocol = errors.New("invalid protocol")
	// ErrNotActiveOperator means the operator has no active stake delegation
	// profile and cannot register.
	ErrNotActiveOperator = errors.New("not an active operator")
	ErrAlreadyRan        = errors.New("runner already ran")
)

// InvalidProtocolError is returned when a registration adapter is handed an
// environment configured for another protocol.
type InvalidProtocolError struct {
	Expected config.Protocol
	Got      config.Protocol
}

func (e *InvalidProtocolError) Error() string {
	return fmt.Sprintf("invalid protocol: expected %s protocol, got %s", e.Expected, e.Got)
}

func (e *InvalidProtocolError) Is(target error) bool {
	return target == ErrInvalidProtocol
}

// ExpectProtocol returns the environment's settings as S, or an
// *InvalidProtocolError when they belong to another protocol.
func ExpectProtocol[S config.ProtocolSettings](env *config.Environment) (S, error) {
	var zero S
	if env == nil || env.Settings == nil {
		return zero, &InvalidProtocolError{Expected: zero.Protocol(), Got: ""}
	}
	s, ok := env.Settings.(S)
	if !ok {
		return zero, &InvalidProtocolError{Expected: zero.Protocol(), Got: env.Settings.Protocol()}
	}
	return s, nil
}

// StartError wraps a background service that failed to start.
type StartError struct {
	Index int
	Err   error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("background service %d failed to start: %v", e.Index, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
