package pipeline

import (
	"errors"
	"fmt"
)

// ErrTermination is returned by an event loop whose listener ran out of
// events. It ends the task like any other error but signals a clean stop.
var ErrTermination = errors.New("event listener terminated")

// BadArgumentDecodingError marks an event whose payload could not be decoded
// into job arguments. The event loop skips such events instead of stopping.
type BadArgumentDecodingError struct {
	Err error
}

func (e *BadArgumentDecodingError) Error() string {
	return fmt.Sprintf("bad argument decoding: %v", e.Err)
}

func (e *BadArgumentDecodingError) Unwrap() error {
	return e.Err
}

// BadArgumentDecoding wraps err so the event loop treats it as recoverable.
func BadArgumentDecoding(err error) error {
	return &BadArgumentDecodingError{Err: err}
}

// IsBadArgumentDecoding reports whether err carries a BadArgumentDecodingError.
func IsBadArgumentDecoding(err error) bool {
	var bad *BadArgumentDecodingError
	return errors.As(err, &bad)
}

// Stage names used in ProcessorError.
const (
	StagePreprocess  = "preprocess"
	StageExecute     = "execute"
	StagePostprocess = "postprocess"
)

// ProcessorError is the error that ends an event loop: a stage failed.
type ProcessorError struct {
	Job   string
	Stage string
	Err   error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("job %s: %s failed: %v", e.Job, e.Stage, e.Err)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}
