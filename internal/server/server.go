// Package server routes the HTTP surface of the service: delta intake,
// manual reconciliation triggers, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/delta"
	"github.com/roach88/mandaatsync/internal/logging"
)

// ErrInvalidConfig is returned by New for missing collaborators.
var ErrInvalidConfig = errors.New("server: invalid configuration")

// ManualQueue is the in-process queue fed by the immediate and manual routes.
type ManualQueue interface {
	Enqueue(items ...string) (int, error)
	AddManual(items ...string)
	MergeManual() (int, error)
}

// Options configures a Server.
type Options struct {
	Filter delta.Filter
	// Durable receives references from POST /delta.
	Durable delta.Sink
	// Queue receives references from POST /delta/immediate and manual triggers.
	Queue ManualQueue
	// Health reports whether the store is reachable.
	Health func(ctx context.Context) error
	// Metrics exposes GET /metrics when true.
	Metrics bool
	Logger  *logrus.Entry
}

// Server holds the router and the intake handlers.
type Server struct {
	router    *mux.Router
	durable   *delta.Intake
	immediate *delta.Intake
	opts      Options
}

// ReconcileRequest is the body of POST /mandatarissen/reconcile.
type ReconcileRequest struct {
	Mandatarissen []string `json:"mandatarissen"`
}

// ReconcileResponse reports how many references were queued.
type ReconcileResponse struct {
	Queued int `json:"queued"`
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Durable == nil || opts.Queue == nil {
		return nil, fmt.Errorf("%w: durable sink and queue are required", ErrInvalidConfig)
	}
	if opts.Health == nil {
		opts.Health = func(context.Context) error { return nil }
	}
	opts.Logger = logging.OrNop(opts.Logger)

	s := &Server{router: mux.NewRouter(), opts: opts}
	s.durable = delta.NewIntake(opts.Filter, opts.Durable, "durable", opts.Logger)
	s.immediate = delta.NewIntake(opts.Filter, func(_ context.Context, refs []string) error {
		_, err := opts.Queue.Enqueue(refs...)
		return err
	}, "immediate", opts.Logger)

	s.router.Handle("/delta", s.durable).Methods(http.MethodPost)
	s.router.Handle("/delta/immediate", s.immediate).Methods(http.MethodPost)
	s.router.HandleFunc("/mandatarissen/reconcile", s.reconcile).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	if opts.Metrics {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Wait blocks until background intake hand-offs have finished.
func (s *Server) Wait() {
	s.durable.Wait()
	s.immediate.Wait()
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	refs := make([]string, 0, len(req.Mandatarissen))
	for _, ref := range req.Mandatarissen {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		writeError(w, http.StatusBadRequest, "mandatarissen must list at least one reference")
		return
	}

	s.opts.Queue.AddManual(refs...)
	n, err := s.opts.Queue.MergeManual()
	if err != nil {
		s.opts.Logger.WithError(err).Error("server: manual reconcile rejected")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.opts.Logger.WithField("queued", n).Info("server: manual reconcile queued")
	writeJSON(w, http.StatusAccepted, ReconcileResponse{Queued: n})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Health(r.Context()); err != nil {
		s.opts.Logger.WithError(err).Warn("server: health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
