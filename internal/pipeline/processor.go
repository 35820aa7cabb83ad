package pipeline

import "context"

// Preprocessor turns a source event into job input. Returning ok == false
// filters the event out: no later stage runs for it.
type Preprocessor[E, P any] func(ctx context.Context, event E) (p P, ok bool, err error)

// Processor is the job body.
type Processor[P, O any] func(ctx context.Context, input P) (O, error)

// Postprocessor consumes the job output, typically by submitting it.
type Postprocessor[O any] func(ctx context.Context, output O) error

// PassThrough is a Preprocessor that forwards every event unchanged.
func PassThrough[E any](_ context.Context, event E) (E, bool, error) {
	return event, true, nil
}

// Discard is a Postprocessor that drops the output.
func Discard[O any](_ context.Context, _ O) error {
	return nil
}

// Chain runs the given postprocessors in order, stopping at the first error.
func Chain[O any](posts ...Postprocessor[O]) Postprocessor[O] {
	return func(ctx context.Context, output O) error {
		for _, post := range posts {
			if err := post(ctx, output); err != nil {
				return err
			}
		}
		return nil
	}
}
