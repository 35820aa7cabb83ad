package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"blueprint-runner/internal/config"
	"blueprint-runner/internal/pipeline"
	"blueprint-runner/internal/runner"
	"blueprint-runner/internal/task"
	"blueprint-runner/internal/testmocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testEnv() *config.Environment {
	return &config.Environment{
		HTTPRPCEndpoint: "http://127.0.0.1:8545",
		WSRPCEndpoint:   "ws://127.0.0.1:8546",
		KeystoreURI:     "memory",
		Protocol:        config.ProtocolTangle,
		Settings:        config.TangleSettings{BlueprintID: 1},
	}
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func loggedError(entry observer.LoggedEntry) error {
	for _, f := range entry.Context {
		if err, ok := f.Interface.(error); ok && f.Key == "error" {
			return err
		}
	}
	return nil
}

func TestRunProcessesEveryEventThenReturns(t *testing.T) {
	cfg := &testmocks.MockConfig{Required: false}
	rec := &testmocks.Recorder[int]{}
	job := pipeline.NewJob("square", pipeline.SliceListener(1, 2, 3), pipeline.PassThrough[int], rec.Execute, pipeline.Discard[int])

	err := runner.New(cfg, testEnv()).Job(job).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, rec.Snapshot())
	require.Equal(t, 1, cfg.RequiresCalls)
	require.Equal(t, 0, cfg.RegisterCalls)
}

func TestRunRegistersWhenRequired(t *testing.T) {
	cfg := &testmocks.MockConfig{Required: true}
	rec := &testmocks.Recorder[int]{}
	job := pipeline.NewJob("job", pipeline.SliceListener(1), pipeline.PassThrough[int], rec.Execute, pipeline.Discard[int])

	require.NoError(t, runner.New(cfg, testEnv()).Job(job).Run(context.Background()))
	require.Equal(t, 1, cfg.RegisterCalls)
	require.Equal(t, []int{1}, rec.Snapshot())
}

func TestRunReturnsRegistrationErrorWithoutStartingAnything(t *testing.T) {
	regErr := &runner.InvalidProtocolError{Expected: config.ProtocolEigenlayer, Got: config.ProtocolTangle}
	cfg := &testmocks.MockConfig{Required: true, RegisterErr: regErr}
	rec := &testmocks.Recorder[int]{}
	job := &testmocks.CountingJob{Job: pipeline.NewJob("job", pipeline.SliceListener(1, 2), pipeline.PassThrough[int], rec.Execute, pipeline.Discard[int])}
	svc := &testmocks.MockService{Name: "svc"}

	err := runner.New(cfg, testEnv()).Job(job).BackgroundService(svc).Run(context.Background())

	require.Same(t, regErr, err)
	require.ErrorIs(t, err, runner.ErrInvalidProtocol)
	require.EqualValues(t, 0, job.Inits.Load())
	require.EqualValues(t, 0, svc.Started.Load())
	require.Empty(t, rec.Snapshot())
}

func TestRunReturnsRequiresRegistrationError(t *testing.T) {
	checkErr := errors.New("rpc down")
	cfg := &testmocks.MockConfig{RequiredErr: checkErr}
	job := &testmocks.CountingJob{Job: pipeline.NewJob("job", pipeline.SliceListener(1), pipeline.PassThrough[int], (&testmocks.Recorder[int]{}).Execute, pipeline.Discard[int])}

	err := runner.New(cfg, testEnv()).Job(job).Run(context.Background())

	require.ErrorIs(t, err, checkErr)
	require.Equal(t, 0, cfg.RegisterCalls)
	require.EqualValues(t, 0, job.Inits.Load())
}

func TestRunToleratesFailingJob(t *testing.T) {
	log, logs := observedLogger()
	cfg := &testmocks.MockConfig{}
	recB := &testmocks.Recorder[int]{}
	jobA := pipeline.NewJob("a", pipeline.SliceListener(1, 2, 3), pipeline.PassThrough[int], testmocks.FailingExec[int], pipeline.Discard[int])
	jobB := pipeline.NewJob("b", pipeline.SliceListener(10, 20), pipeline.PassThrough[int], recB.Execute, pipeline.Discard[int])

	err := runner.New(cfg, testEnv(), runner.WithLogger(log)).Job(jobA).Job(jobB).Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, []int{10, 20}, recB.Snapshot())
	failures := logs.FilterMessage("job or background service failed").All()
	require.Len(t, failures, 1)
	require.Equal(t, "a", failures[0].ContextMap()["task"])
}

func TestRunFilteredEventIsNotExecuted(t *testing.T) {
	rec := &testmocks.Recorder[int]{}
	skipSecond := func(_ context.Context, n int) (int, bool, error) {
		return n, n != 2, nil
	}
	job := pipeline.NewJob("filter", pipeline.SliceListener(1, 2, 3), skipSecond, rec.Execute, pipeline.Discard[int])

	require.NoError(t, runner.New(runner.NoRegistration{}, testEnv()).Job(job).Run(context.Background()))
	require.Equal(t, []int{1, 3}, rec.Snapshot())
}

func TestRunWaitsForBackgroundServices(t *testing.T) {
	svc := &testmocks.MockService{Name: "svc", Runtime: 50 * time.Millisecond, Err: errors.New("service crashed")}
	rec := &testmocks.Recorder[int]{}
	job := pipeline.NewJob("job", pipeline.SliceListener(1), pipeline.PassThrough[int], rec.Execute, pipeline.Discard[int])

	start := time.Now()
	err := runner.New(runner.NoRegistration{}, testEnv()).BackgroundService(svc).Job(job).Run(context.Background())

	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.EqualValues(t, 1, svc.Started.Load())
}

func TestRunAbortsOnServiceStartFailure(t *testing.T) {
	startErr := errors.New("port in use")
	ok := &testmocks.MockService{Name: "ok"}
	bad := &testmocks.MockService{Name: "bad", StartErr: startErr}
	job := &testmocks.CountingJob{Job: pipeline.NewJob("job", pipeline.SliceListener(1), pipeline.PassThrough[int], (&testmocks.Recorder[int]{}).Execute, pipeline.Discard[int])}

	err := runner.New(runner.NoRegistration{}, testEnv()).BackgroundService(ok).BackgroundService(bad).Job(job).Run(context.Background())

	require.ErrorIs(t, err, startErr)
	var serr *runner.StartError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, 1, serr.Index)
	require.EqualValues(t, 0, job.Inits.Load())

	// let the service that did start finish before the leak check
	time.Sleep(10 * time.Millisecond)
}

func TestRunCountsDeclinedJobAsComplete(t *testing.T) {
	rec := &testmocks.Recorder[int]{}
	off := pipeline.NewJob("off", pipeline.SliceListener(1), pipeline.PassThrough[int], rec.Execute, pipeline.Discard[int], pipeline.Disabled())

	require.NoError(t, runner.New(runner.NoRegistration{}, testEnv()).Job(off).Run(context.Background()))
	require.Empty(t, rec.Snapshot())
}

func TestRunWithNothingToDo(t *testing.T) {
	require.NoError(t, runner.New(runner.NoRegistration{}, testEnv()).Run(context.Background()))
}

func TestRunSurvivesPanickingService(t *testing.T) {
	log, logs := observedLogger()
	svc := runner.BackgroundServiceFunc(func(context.Context) (*task.Handle, error) {
		return task.Spawn("panicky", func() error { panic("boom") }), nil
	})

	require.NoError(t, runner.New(runner.NoRegistration{}, testEnv(), runner.WithLogger(log)).BackgroundService(svc).Run(context.Background()))

	failures := logs.FilterMessage("job or background service failed").All()
	require.Len(t, failures, 1)
	require.ErrorIs(t, loggedError(failures[0]), runner.ErrRecv)
}

func TestRunOnlyOnce(t *testing.T) {
	r := runner.New(runner.NoRegistration{}, testEnv())

	require.NoError(t, r.Run(context.Background()))
	require.ErrorIs(t, r.Run(context.Background()), runner.ErrAlreadyRan)
}

func TestExpectProtocol(t *testing.T) {
	env := testEnv()

	s, err := runner.ExpectProtocol[config.TangleSettings](env)
	require.NoError(t, err)
	require.EqualValues(t, 1, s.BlueprintID)

	_, err = runner.ExpectProtocol[config.EigenlayerSettings](env)
	require.ErrorIs(t, err, runner.ErrInvalidProtocol)
	var perr *runner.InvalidProtocolError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, config.ProtocolEigenlayer, perr.Expected)
	require.Equal(t, config.ProtocolTangle, perr.Got)
}
