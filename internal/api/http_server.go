// Package api exposes a small operational HTTP surface: liveness probe,
// engine status, failed-operation inspection and replay, and Prometheus
// metrics. It is not the consumer API; consumers hold the engine directly.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"alarmsync/internal/config"
	"alarmsync/internal/models"
	"alarmsync/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type HTTPServer struct {
	cfg    config.APIConfig
	engine *service.Engine
	server *http.Server
	logger zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, engine *service.Engine, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:    cfg,
		engine: engine,
		logger: logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/api/v1/status", srv.handleStatus)
	mux.HandleFunc("/api/v1/failed", srv.handleFailed)
	mux.HandleFunc("/api/v1/failed/requeue", srv.handleRequeue)
	mux.HandleFunc("/api/v1/sync", srv.handleSync)
	mux.Handle("/metrics", promhttp.Handler())

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("ops API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := s.engine.Status()
	health := s.engine.Health()
	writeJSON(w, http.StatusOK, map[string]any{
		"sync":       statusPayload(status),
		"background": healthPayload(health),
	})
}

func (s *HTTPServer) handleFailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ops, err := s.engine.FailedOperations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list operations")
		return
	}

	out := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		entry := map[string]any{
			"id":          op.ID,
			"kind":        op.Kind,
			"attempts":    op.Attempts,
			"enqueued_at": op.EnqueuedAt,
			"updated_at":  op.UpdatedAt,
		}
		if op.LastError != nil {
			entry["last_error"] = *op.LastError
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"failed": out})
}

func (s *HTTPServer) handleRequeue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n, err := s.engine.RequeueFailed(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "requeue failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requeued": n})
}

func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.engine.ManualSync()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func statusPayload(s models.SyncStatus) map[string]any {
	out := map[string]any{
		"is_online":        s.IsOnline,
		"sync_in_progress": s.SyncInProgress,
		"pending_count":    s.PendingCount,
		"in_flight_count":  s.InFlightCount,
		"failed_count":     s.FailedCount,
	}
	if s.LastSync != nil {
		out["last_sync"] = s.LastSync
	}
	return out
}

func healthPayload(h models.BackgroundHealth) map[string]any {
	out := map[string]any{
		"initialized":             h.Initialized,
		"notification_permission": string(h.NotificationPermission),
		"scheduled_count":         h.ScheduledCount,
		"capabilities": map[string]bool{
			"alarm_processing": h.Capabilities.AlarmProcessing,
			"voice_playback":   h.Capabilities.VoicePlayback,
			"data_storage":     h.Capabilities.DataStorage,
			"background_sync":  h.Capabilities.BackgroundSync,
			"registered":       h.Capabilities.Registered,
		},
	}
	if h.LastHealthCheck != nil {
		out["last_health_check"] = h.LastHealthCheck
	}
	if h.Error != "" {
		out["error"] = h.Error
	}
	return out
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
