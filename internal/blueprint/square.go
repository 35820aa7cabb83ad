// Package blueprint is the example blueprint the daemon runs: it squares
// numbers arriving from a periodic counter or from the webhook.
package blueprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"

	"blueprint-runner/internal/listeners/periodic"
	"blueprint-runner/internal/pipeline"
)

var ErrOverflow = errors.New("square overflows uint64")

// Result is the output of the square job.
type Result struct {
	Input   uint64 `json:"input"`
	Squared uint64 `json:"squared"`
}

// TickToInput uses the tick sequence number as the job input.
func TickToInput(_ context.Context, t periodic.Tick) (uint64, bool, error) {
	return t.Seq, true, nil
}

type webhookEvent struct {
	N *uint64 `json:"n"`
}

// DecodeWebhook reads {"n": <uint64>}. Events without n are skipped; events
// that do not decode are reported as bad arguments.
func DecodeWebhook(_ context.Context, raw json.RawMessage) (uint64, bool, error) {
	var ev webhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return 0, false, pipeline.BadArgumentDecoding(err)
	}
	if ev.N == nil {
		return 0, false, nil
	}
	return *ev.N, true, nil
}

func Square(_ context.Context, n uint64) (Result, error) {
	hi, lo := bits.Mul64(n, n)
	if hi != 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrOverflow, n)
	}
	return Result{Input: n, Squared: lo}, nil
}
