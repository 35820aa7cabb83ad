package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blueprint-runner/internal/pipeline"
)

// JobResult is one persisted job output.
type JobResult struct {
	ID        string
	Job       string
	Output    json.RawMessage
	CreatedAt time.Time
}

type ResultStore interface {
	Store(ctx context.Context, results []JobResult) error
}

// Sink returns a postprocess stage that stores every output of job as JSON.
// A storage failure ends the job like any other postprocess error.
func Sink[O any](store ResultStore, job string) pipeline.Postprocessor[O] {
	return func(ctx context.Context, out O) error {
		data, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to marshal %s output: %w", job, err)
		}
		return store.Store(ctx, []JobResult{{
			ID:        uuid.New().String(),
			Job:       job,
			Output:    data,
			CreatedAt: time.Now().UTC(),
		}})
	}
}
