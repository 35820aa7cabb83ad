// Package evm provides a listener for the logs one contract emits for one
// ABI event.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"blueprint-runner/internal/pipeline"
	"blueprint-runner/pkg/logger"
)

const logBuffer = 128

var (
	ErrUnknownEvent = errors.New("event not in contract ABI")
	ErrNoAddress    = errors.New("contract address is zero")
)

// Event is a decoded contract log. Fields is nil when the log did not match
// the event's ABI.
type Event struct {
	Name   string
	Fields map[string]interface{}
	Log    types.Log
}

type Config struct {
	Address   common.Address
	ABI       abi.ABI
	EventName string
	// FromBlock is where the subscription starts; nil means the latest block.
	FromBlock *big.Int
}

type Listener struct {
	sub   ethereum.Subscription
	logs  chan types.Log
	errs  <-chan error
	abi   abi.ABI
	event abi.Event
	ended bool
	log   *zap.SugaredLogger
}

// NewListener subscribes to the configured event. The subscription lives
// until the stream ends or ctx passed to NextEvent is cancelled.
func NewListener(ctx context.Context, filterer ethereum.LogFilterer, cfg Config, log *zap.SugaredLogger) (*Listener, error) {
	if cfg.Address == (common.Address{}) {
		return nil, ErrNoAddress
	}
	event, ok := cfg.ABI.Events[cfg.EventName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, cfg.EventName)
	}

	query := ethereum.FilterQuery{
		FromBlock: cfg.FromBlock,
		Addresses: []common.Address{cfg.Address},
		Topics:    [][]common.Hash{{event.ID}},
	}
	logs := make(chan types.Log, logBuffer)
	sub, err := filterer.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s logs of %s: %w", event.Name, cfg.Address.Hex(), err)
	}

	return &Listener{
		sub:   sub,
		logs:  logs,
		errs:  sub.Err(),
		abi:   cfg.ABI,
		event: event,
		log: logger.OrNop(log).With(
			"listener", "evm",
			"contract", cfg.Address.Hex(),
			"event", event.Name,
		),
	}, nil
}

func (l *Listener) NextEvent(ctx context.Context) (Event, bool) {
	for {
		if l.ended {
			// drain logs delivered before the subscription ended
			select {
			case lg := <-l.logs:
				if ev, ok := l.accept(lg); ok {
					return ev, true
				}
				continue
			default:
				return Event{}, false
			}
		}

		select {
		case <-ctx.Done():
			l.sub.Unsubscribe()
			l.ended = true
			return Event{}, false
		case err := <-l.errs:
			if err != nil {
				l.log.Warnw("log subscription failed", "error", err)
			} else {
				l.log.Infow("log subscription closed")
			}
			l.sub.Unsubscribe()
			l.ended = true
		case lg := <-l.logs:
			if ev, ok := l.accept(lg); ok {
				return ev, true
			}
		}
	}
}

func (l *Listener) accept(lg types.Log) (Event, bool) {
	if lg.Removed {
		l.log.Debugw("skipping removed log", "tx", lg.TxHash.Hex(), "block", lg.BlockNumber)
		return Event{}, false
	}
	ev := Event{Name: l.event.Name, Log: lg}
	fields, err := l.decode(lg)
	if err != nil {
		l.log.Debugw("log does not match event ABI", "tx", lg.TxHash.Hex(), "error", err)
		return ev, true
	}
	ev.Fields = fields
	return ev, true
}

func (l *Listener) decode(lg types.Log) (map[string]interface{}, error) {
	if len(lg.Topics) == 0 || lg.Topics[0] != l.event.ID {
		return nil, fmt.Errorf("topic does not match %s", l.event.Sig)
	}
	fields := make(map[string]interface{})
	if err := l.abi.UnpackIntoMap(fields, l.event.Name, lg.Data); err != nil {
		return nil, err
	}
	var indexed abi.Arguments
	for _, arg := range l.event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
		return nil, err
	}
	return fields, nil
}

// RequireFields is a preprocess stage that rejects events whose log could
// not be decoded.
func RequireFields(_ context.Context, ev Event) (Event, bool, error) {
	if ev.Fields == nil {
		return Event{}, false, pipeline.BadArgumentDecoding(
			fmt.Errorf("%s log in tx %s does not match its ABI", ev.Name, ev.Log.TxHash.Hex()))
	}
	return ev, true, nil
}
