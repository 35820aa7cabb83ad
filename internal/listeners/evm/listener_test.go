package evm_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/require"

	"blueprint-runner/internal/listeners/evm"
	"blueprint-runner/internal/pipeline"
)

const squaredABI = `[{"type":"event","name":"Squared","anonymous":false,"inputs":[
	{"name":"id","type":"uint64","indexed":true},
	{"name":"value","type":"uint256","indexed":false}]}]`

var contract = common.HexToAddress("0x00000000000000000000000000000000000000c1")

// fakeFilterer delivers logs through a subscription, then ends it with end.
type fakeFilterer struct {
	logs  []types.Log
	end   error
	query ethereum.FilterQuery
	err   error
}

func (f *fakeFilterer) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return f.logs, nil
}

func (f *fakeFilterer) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.query = q
	return event.NewSubscription(func(quit <-chan struct{}) error {
		for _, l := range f.logs {
			select {
			case ch <- l:
			case <-quit:
				return nil
			}
		}
		return f.end
	}), nil
}

func parsedABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(squaredABI))
	require.NoError(t, err)
	return parsed
}

func squaredLog(t *testing.T, a abi.ABI, id uint64, value int64) types.Log {
	t.Helper()
	ev := a.Events["Squared"]
	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(value))
	require.NoError(t, err)
	return types.Log{
		Address: contract,
		Topics:  []common.Hash{ev.ID, common.BigToHash(new(big.Int).SetUint64(id))},
		Data:    data,
	}
}

func drain(t *testing.T, l *evm.Listener) []evm.Event {
	t.Helper()
	var out []evm.Event
	for {
		ev, ok := l.NextEvent(context.Background())
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestListenerDecodesLogs(t *testing.T) {
	a := parsedABI(t)
	removed := squaredLog(t, a, 9, 81)
	removed.Removed = true
	f := &fakeFilterer{logs: []types.Log{squaredLog(t, a, 1, 1), removed, squaredLog(t, a, 2, 4)}}

	l, err := evm.NewListener(context.Background(), f, evm.Config{Address: contract, ABI: a, EventName: "Squared"}, nil)
	require.NoError(t, err)

	events := drain(t, l)
	require.Len(t, events, 2)
	require.Equal(t, "Squared", events[0].Name)
	require.EqualValues(t, 1, events[0].Fields["id"])
	require.Equal(t, 0, big.NewInt(4).Cmp(events[1].Fields["value"].(*big.Int)))

	require.Equal(t, []common.Address{contract}, f.query.Addresses)
	require.Equal(t, a.Events["Squared"].ID, f.query.Topics[0][0])
}

func TestListenerSurfacesUndecodableLog(t *testing.T) {
	a := parsedABI(t)
	bad := squaredLog(t, a, 1, 1)
	bad.Data = []byte{0x01}
	f := &fakeFilterer{logs: []types.Log{bad}}

	l, err := evm.NewListener(context.Background(), f, evm.Config{Address: contract, ABI: a, EventName: "Squared"}, nil)
	require.NoError(t, err)

	events := drain(t, l)
	require.Len(t, events, 1)
	require.Nil(t, events[0].Fields)

	_, ok, err := evm.RequireFields(context.Background(), events[0])
	require.False(t, ok)
	require.True(t, pipeline.IsBadArgumentDecoding(err))
}

func TestListenerEndsOnSubscriptionError(t *testing.T) {
	a := parsedABI(t)
	f := &fakeFilterer{logs: []types.Log{squaredLog(t, a, 1, 1)}, end: errors.New("connection reset")}

	l, err := evm.NewListener(context.Background(), f, evm.Config{Address: contract, ABI: a, EventName: "Squared"}, nil)
	require.NoError(t, err)

	require.Len(t, drain(t, l), 1)
}

func TestListenerEndsOnCancel(t *testing.T) {
	a := parsedABI(t)
	l, err := evm.NewListener(context.Background(), &fakeFilterer{}, evm.Config{Address: contract, ABI: a, EventName: "Squared"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := l.NextEvent(ctx)
	require.False(t, ok)
}

func TestNewListenerValidation(t *testing.T) {
	a := parsedABI(t)

	_, err := evm.NewListener(context.Background(), &fakeFilterer{}, evm.Config{ABI: a, EventName: "Squared"}, nil)
	require.ErrorIs(t, err, evm.ErrNoAddress)

	_, err = evm.NewListener(context.Background(), &fakeFilterer{}, evm.Config{Address: contract, ABI: a, EventName: "Cubed"}, nil)
	require.ErrorIs(t, err, evm.ErrUnknownEvent)

	subErr := errors.New("notifications not supported")
	_, err = evm.NewListener(context.Background(), &fakeFilterer{err: subErr}, evm.Config{Address: contract, ABI: a, EventName: "Squared"}, nil)
	require.ErrorIs(t, err, subErr)
}

func TestRequireFieldsPassesDecodedEvents(t *testing.T) {
	ev := evm.Event{Name: "Squared", Fields: map[string]interface{}{"id": uint64(1)}}

	got, ok, err := evm.RequireFields(context.Background(), ev)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ev, got)
}
