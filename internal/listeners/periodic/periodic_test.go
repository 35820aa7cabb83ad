package periodic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewListenerRejectsBadInterval(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		_, err := NewListener(Config{Interval: d})
		require.ErrorIs(t, err, ErrInvalidInterval)
	}
}

func TestListenerStopsAtLimit(t *testing.T) {
	l, err := NewListener(Config{Interval: time.Millisecond, Limit: 3})
	require.NoError(t, err)

	var seqs []uint64
	for {
		tick, ok := l.NextEvent(context.Background())
		if !ok {
			break
		}
		require.False(t, tick.At.IsZero())
		seqs = append(seqs, tick.Seq)
	}
	require.Equal(t, []uint64{1, 2, 3}, seqs)

	_, ok := l.NextEvent(context.Background())
	require.False(t, ok)
}

func TestListenerEndsOnCancel(t *testing.T) {
	l, err := NewListener(Config{Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := l.NextEvent(ctx)
	require.False(t, ok)
}

func TestFactory(t *testing.T) {
	l, err := Factory(context.Background(), Config{Interval: time.Millisecond, Limit: 1})
	require.NoError(t, err)

	tick, ok := l.NextEvent(context.Background())
	require.True(t, ok)
	require.EqualValues(t, 1, tick.Seq)

	_, err = Factory(context.Background(), Config{})
	require.ErrorIs(t, err, ErrInvalidInterval)
}
