package blueprint

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blueprint-runner/internal/listeners/periodic"
	"blueprint-runner/internal/pipeline"
)

func TestSquare(t *testing.T) {
	got, err := Square(context.Background(), 12)
	require.NoError(t, err)
	require.Equal(t, Result{Input: 12, Squared: 144}, got)

	_, err = Square(context.Background(), math.MaxUint32+1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestTickToInput(t *testing.T) {
	n, ok, err := TickToInput(context.Background(), periodic.Tick{Seq: 5, At: time.Now()})
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 5, n)
}

func TestDecodeWebhook(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    uint64
		ok      bool
		badArgs bool
	}{
		{name: "number", raw: `{"n":7}`, want: 7, ok: true},
		{name: "zero", raw: `{"n":0}`, want: 0, ok: true},
		{name: "missing n", raw: `{"m":1}`, ok: false},
		{name: "negative", raw: `{"n":-1}`, badArgs: true},
		{name: "not json", raw: `"seven"`, badArgs: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok, err := DecodeWebhook(context.Background(), json.RawMessage(tt.raw))
			if tt.badArgs {
				require.True(t, pipeline.IsBadArgumentDecoding(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, n)
		})
	}
}

func TestWebhookJobSkipsBadEvents(t *testing.T) {
	var results []Result
	collect := func(_ context.Context, r Result) error {
		results = append(results, r)
		return nil
	}
	listener := pipeline.SliceListener(
		json.RawMessage(`{"n":3}`),
		json.RawMessage(`garbage`),
		json.RawMessage(`{}`),
		json.RawMessage(`{"n":4}`),
	)
	m := pipeline.NewMetrics()
	x := pipeline.NewExecutor("webhook", listener, DecodeWebhook, Square, collect, nil, m)

	err := x.EventLoop(context.Background())

	require.ErrorIs(t, err, pipeline.ErrTermination)
	require.Equal(t, []Result{{Input: 3, Squared: 9}, {Input: 4, Squared: 16}}, results)
	require.EqualValues(t, 1, m.GetDecodeFailures())
	require.EqualValues(t, 1, m.GetSkipped())
}
