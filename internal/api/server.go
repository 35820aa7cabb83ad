// Package api serves the runner's health, metrics and webhook endpoints. The
// server runs as a background service of the blueprint runner.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"blueprint-runner/internal/config"
	"blueprint-runner/internal/pipeline"
	"blueprint-runner/internal/task"
	"blueprint-runner/pkg/logger"
)

const metricsNamespace = "blueprint"

type Server struct {
	cfg      config.APIConfig
	jobs     map[string]*pipeline.Metrics
	ingest   *pipeline.ChannelListener[json.RawMessage]
	registry *prometheus.Registry
	handler  http.Handler
	log      *zap.SugaredLogger

	startTime time.Time
	stopping  atomic.Bool
}

type Option func(*Server)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = log }
}

// WithJobMetrics publishes m under the job's name.
func WithJobMetrics(job string, m *pipeline.Metrics) Option {
	return func(s *Server) { s.jobs[job] = m }
}

// WithIngest accepts events on POST /events and /events/batch and feeds
// them to l. The server closes l once it has stopped serving.
func WithIngest(l *pipeline.ChannelListener[json.RawMessage]) Option {
	return func(s *Server) { s.ingest = l }
}

func NewServer(cfg config.APIConfig, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		jobs:      make(map[string]*pipeline.Metrics),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log).With("component", "api")

	s.registry.MustRegister(collectors.NewGoCollector())
	for _, name := range s.jobNames() {
		s.registerJobCollectors(name, s.jobs[name])
	}

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	s.handler = mux
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves until ctx is cancelled, then
// shuts down gracefully within the configured timeout. A bind failure is
// returned directly so the runner aborts startup.
func (s *Server) Start(ctx context.Context) (*task.Handle, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Infow("http server listening", "addr", ln.Addr().String())

	return task.Spawn("api", func() error {
		served := make(chan error, 1)
		go func() { served <- srv.Serve(ln) }()

		var serveErr error
		select {
		case serveErr = <-served:
			s.log.Errorw("server error", "error", serveErr)
		case <-ctx.Done():
			s.log.Infow("shutting down server")
		}
		s.stopping.Store(true)

		// in-flight handlers must finish before the ingest listener closes;
		// after a timed out shutdown the webhook job ends through ctx instead
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err == nil && s.ingest != nil {
			s.ingest.Close()
		}
		if serveErr == nil {
			serveErr = <-served
		}
		if err == nil && !errors.Is(serveErr, http.ErrServerClosed) {
			err = serveErr
		}
		if err != nil {
			s.log.Errorw("server shutdown error", "error", err)
			return err
		}
		s.log.Infow("server stopped")
		return nil
	}), nil
}

func (s *Server) jobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) registerJobCollectors(job string, m *pipeline.Metrics) {
	labels := prometheus.Labels{"job": job}
	counter := func(name, help string, get func() uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(get()) })
	}

	s.registry.MustRegister(
		counter("events_received_total", "Events read from the job's listener.", m.GetReceived),
		counter("events_processed_total", "Events that completed every stage.", m.GetProcessed),
		counter("events_skipped_total", "Events filtered out by preprocessing.", m.GetSkipped),
		counter("events_decode_failures_total", "Events whose arguments could not be decoded.", m.GetDecodeFailures),
		counter("events_failed_total", "Events whose processing ended the job.", m.GetFailed),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "processing_latency_avg_ms",
			Help:        "Average milliseconds from receipt to postprocessing.",
			ConstLabels: labels,
		}, m.AvgLatencyMS),
	)
}

func (s *Server) promHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}
