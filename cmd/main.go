package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"blueprint-runner/internal/api"
	"blueprint-runner/internal/blueprint"
	"blueprint-runner/internal/config"
	"blueprint-runner/internal/keystore"
	"blueprint-runner/internal/listeners/periodic"
	"blueprint-runner/internal/pipeline"
	"blueprint-runner/internal/protocol/eigenlayer"
	"blueprint-runner/internal/protocol/symbiotic"
	"blueprint-runner/internal/protocol/tangle"
	"blueprint-runner/internal/runner"
	"blueprint-runner/internal/storage"
	"blueprint-runner/pkg/logger"
	"blueprint-runner/pkg/validator"
)

var Version = "v0.0.0"

var errNoSubstrateClient = errors.New("tangle registration needs a substrate client, set SKIP_REGISTRATION or TEST_MODE")

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "log-mode",
		Usage:   "prod for JSON logs, anything else for console logs",
		EnvVars: []string{"LOG_MODE"},
	},
	&cli.StringFlag{
		Name:    "api-addr",
		Usage:   "listen address of the health, metrics and webhook server",
		EnvVars: []string{"API_ADDR"},
	},
	&cli.DurationFlag{
		Name:    "interval",
		Usage:   "period of the square job's counter",
		Value:   5 * time.Second,
		EnvVars: []string{"SQUARE_INTERVAL"},
	},
	&cli.Uint64Flag{
		Name:    "limit",
		Usage:   "stop the square job after this many ticks (0 = never)",
		EnvVars: []string{"SQUARE_LIMIT"},
	},
	&cli.BoolFlag{
		Name:    "webhook",
		Usage:   "square numbers POSTed to /events",
		EnvVars: []string{"WEBHOOK_ENABLED"},
	},
	&cli.StringFlag{
		Name:    "earnings-receiver",
		Usage:   "eigenlayer earnings receiver (defaults to the operator)",
		EnvVars: []string{"EARNINGS_RECEIVER_ADDRESS"},
	},
	&cli.StringFlag{
		Name:    "delegation-approver",
		Usage:   "eigenlayer delegation approver (defaults to none)",
		EnvVars: []string{"DELEGATION_APPROVER_ADDRESS"},
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp()
	app.Name = "blueprint-runner"
	app.Usage = "run blueprint jobs for a restaking operator"
	app.Version = Version
	app.Flags = flags
	app.Action = run

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	env, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if c.IsSet("log-mode") {
		env.LogProd = c.String("log-mode") == "prod"
	}
	if c.IsSet("api-addr") {
		env.API.Addr = c.String("api-addr")
	}

	log, err := logger.New(env.LogProd)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Infow("loaded configuration",
		"protocol", env.Protocol,
		"http_rpc", env.HTTPRPCEndpoint,
		"ws_rpc", env.WSRPCEndpoint,
		"keystore", env.KeystoreURI,
		"test_mode", env.TestMode,
		"skip_registration", env.SkipRegistration,
		"results_enabled", env.Results.Enabled(),
	)

	ks, err := keystore.Open(env.KeystoreURI)
	if err != nil {
		return err
	}
	if _, err := ks.ECDSA(); err != nil && env.TestMode {
		signer, err := ks.GenerateECDSA()
		if err != nil {
			return err
		}
		log.Warnw("no operator key found, using a throwaway key in test mode", "operator", signer.Address().Hex())
	}
	env.Keystore = ks

	bp, err := blueprintConfig(c, env, log)
	if err != nil {
		return err
	}

	ctx := c.Context
	squareMetrics := pipeline.NewMetrics()
	squarePost := []pipeline.Postprocessor[blueprint.Result]{logResult(log, "square")}
	var webhookPost []pipeline.Postprocessor[blueprint.Result]

	if env.Results.Enabled() {
		store, err := storage.NewMySQLStorage(env.Results.DSN(), log)
		if err != nil {
			return err
		}
		defer func() {
			_ = store.Close()
			log.Info("closed MySQL connection")
		}()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		squarePost = append(squarePost, storage.Sink[blueprint.Result](store, "square"))
		webhookPost = append(webhookPost, storage.Sink[blueprint.Result](store, "webhook"))
	}

	square := pipeline.NewJobFromFactory(
		"square",
		periodic.Config{Interval: c.Duration("interval"), Limit: c.Uint64("limit")},
		periodic.Factory,
		blueprint.TickToInput,
		blueprint.Square,
		pipeline.Chain(squarePost...),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(squareMetrics),
	)

	apiOpts := []api.Option{
		api.WithLogger(log),
		api.WithJobMetrics("square", squareMetrics),
	}

	webhookMetrics := pipeline.NewMetrics()
	webhookOpts := []pipeline.JobOption{pipeline.WithLogger(log), pipeline.WithMetrics(webhookMetrics)}
	ingest := pipeline.NewChannelListener[json.RawMessage](100)
	if c.Bool("webhook") {
		apiOpts = append(apiOpts, api.WithIngest(ingest), api.WithJobMetrics("webhook", webhookMetrics))
	} else {
		webhookOpts = append(webhookOpts, pipeline.Disabled())
	}
	webhook := pipeline.NewJob(
		"webhook",
		pipeline.EventListener[json.RawMessage](ingest),
		blueprint.DecodeWebhook,
		blueprint.Square,
		pipeline.Chain(append([]pipeline.Postprocessor[blueprint.Result]{logResult(log, "webhook")}, webhookPost...)...),
		webhookOpts...,
	)

	err = runner.New(bp, env, runner.WithLogger(log)).
		BackgroundService(api.NewServer(env.API, apiOpts...)).
		Job(square).
		Job(webhook).
		Run(ctx)
	if err != nil {
		log.Errorw("runner failed", "error", err)
		return err
	}
	log.Info("service stopped")
	return nil
}

func blueprintConfig(c *cli.Context, env *config.Environment, log *zap.SugaredLogger) (runner.BlueprintConfig, error) {
	switch env.Protocol {
	case config.ProtocolEigenlayer:
		var earnings, approver common.Address
		if signer, err := env.Keystore.ECDSA(); err == nil {
			earnings = signer.Address()
		}
		if s := c.String("earnings-receiver"); s != "" {
			a, err := validator.Address(s)
			if err != nil {
				return nil, fmt.Errorf("earnings receiver: %w", err)
			}
			earnings = a
		}
		if s := c.String("delegation-approver"); s != "" {
			a, err := validator.Address(s)
			if err != nil {
				return nil, fmt.Errorf("delegation approver: %w", err)
			}
			approver = a
		}
		return eigenlayer.New(earnings, approver, eigenlayer.WithLogger(log)), nil
	case config.ProtocolTangle:
		// no substrate RPC client is bundled
		if !env.SkipRegistration && !env.TestMode {
			return nil, errNoSubstrateClient
		}
		return tangle.New(nil, tangle.WithLogger(log)), nil
	case config.ProtocolSymbiotic:
		return symbiotic.New(symbiotic.WithLogger(log)), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedProtocol, env.Protocol)
	}
}

func logResult(log *zap.SugaredLogger, job string) pipeline.Postprocessor[blueprint.Result] {
	return func(_ context.Context, r blueprint.Result) error {
		log.Infow("job result", "job", job, "input", r.Input, "squared", r.Squared)
		return nil
	}
}
