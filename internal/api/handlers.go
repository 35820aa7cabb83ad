package api

import (
	"encoding/json"
	"net/http"
	"time"
)

const maxBatch = 100

type BatchRequest struct {
	Events []json.RawMessage `json:"events"`
}

type JobMetrics struct {
	EventsReceived           uint64  `json:"events_received"`
	EventsProcessed          uint64  `json:"events_processed"`
	EventsSkipped            uint64  `json:"events_skipped"`
	DecodeFailures           uint64  `json:"decode_failures"`
	EventsFailed             uint64  `json:"events_failed"`
	AverageProcessingLatency float64 `json:"average_processing_latency"`
	EventsPerSecond          float64 `json:"events_per_second"`
}

type MetricsResponse struct {
	Jobs              map[string]JobMetrics `json:"jobs"`
	CurrentQueueDepth int                   `json:"current_queue_depth"`
	UptimeSeconds     int                   `json:"uptime_seconds"`
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/health", s.requestID(http.HandlerFunc(s.handleHealth)))
	mux.Handle("/metrics", s.requestID(http.HandlerFunc(s.handleMetrics)))
	mux.Handle("/metrics/prometheus", s.requestID(s.promHandler()))
	if s.ingest != nil {
		mux.Handle("/events", s.requestID(http.HandlerFunc(s.handleSingleEvent)))
		mux.Handle("/events/batch", s.requestID(http.HandlerFunc(s.handleBatchEvents)))
	}
}

func (s *Server) handleSingleEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := s.log.With("request_id", GetRequestID(r.Context()))

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		log.Warnw("request rejected", "method", r.Method, "path", r.URL.Path, "status", http.StatusMethodNotAllowed)
		return
	}
	if s.stopping.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	var ev json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		log.Warnw("invalid JSON body", "error", err, "status", http.StatusBadRequest)
		return
	}

	if err := s.ingest.Ingest(r.Context(), ev); err != nil {
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		log.Warnw("event not queued", "error", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	log.Infow("event accepted",
		"status", http.StatusAccepted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (s *Server) handleBatchEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := s.log.With("request_id", GetRequestID(r.Context()))

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		log.Warnw("invalid method for /events/batch",
			"method", r.Method, "path", r.URL.Path, "status", http.StatusMethodNotAllowed,
		)
		return
	}
	if s.stopping.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		log.Warnw("invalid JSON for /events/batch",
			"error", err, "status", http.StatusBadRequest,
		)
		return
	}

	if len(req.Events) > maxBatch {
		http.Error(w, "too many events (max 100)", http.StatusBadRequest)
		log.Warnw("batch rejected: too many events",
			"count", len(req.Events), "status", http.StatusBadRequest,
		)
		return
	}

	for i, ev := range req.Events {
		if err := s.ingest.Ingest(r.Context(), ev); err != nil {
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)
			log.Warnw("batch partially queued", "queued", i, "error", err)
			return
		}
	}

	w.WriteHeader(http.StatusAccepted)
	log.Infow("batch accepted",
		"count", len(req.Events),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("request_id", GetRequestID(r.Context()))

	healthy := !s.stopping.Load()
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	resp := map[string]bool{"healthy": healthy}
	_ = json.NewEncoder(w).Encode(resp)

	log.Debugw("health check", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "healthy", healthy)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	log := s.log.With("request_id", GetRequestID(r.Context()))

	resp := MetricsResponse{
		Jobs:          make(map[string]JobMetrics, len(s.jobs)),
		UptimeSeconds: int(time.Since(s.startTime).Seconds()),
	}
	for name, m := range s.jobs {
		resp.Jobs[name] = JobMetrics{
			EventsReceived:           m.GetReceived(),
			EventsProcessed:          m.GetProcessed(),
			EventsSkipped:            m.GetSkipped(),
			DecodeFailures:           m.GetDecodeFailures(),
			EventsFailed:             m.GetFailed(),
			AverageProcessingLatency: m.AvgLatencyMS(),
			EventsPerSecond:          m.EPS(),
		}
	}
	if s.ingest != nil {
		resp.CurrentQueueDepth = s.ingest.QueueDepth()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)

	log.Debugw("metrics requested",
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"jobs", len(resp.Jobs),
	)
}
