// Package web serves a read-only status surface for a running tracker: health, loop state,
// prometheus metrics and the latest debug overlay.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parallaxlab/headtrack/logging"
	"github.com/parallaxlab/headtrack/publish"
	"github.com/parallaxlab/headtrack/tracking"
)

// DefaultAddress is where the status server listens unless configured otherwise.
const DefaultAddress = "127.0.0.1:8080"

const shutdownTimeout = 5 * time.Second

// StatusSource is the part of a tracking.Loop readable off the loop goroutine.
type StatusSource interface {
	State() tracking.State
	Frames() uint64
	Last() tracking.Result
	LastPosition() (tracking.CameraPoint, bool)
}

// SnapshotSource provides the latest rendered overlay.
type SnapshotSource interface {
	Snapshot() ([]byte, uint64)
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	Session string           `json:"session"`
	State   string           `json:"state"`
	Frames  uint64           `json:"frames"`
	Outcome string           `json:"outcome,omitempty"`
	Last    *publish.Payload `json:"last"`
}

// Server is the status HTTP server.
type Server struct {
	address   string
	session   uuid.UUID
	status    StatusSource
	snapshots SnapshotSource
	gatherer  prometheus.Gatherer
	logger    logging.Logger
}

// NewServer returns a server for status. snapshots and gatherer may be nil, in which case their
// routes answer 404.
func NewServer(
	address string,
	session uuid.UUID,
	status StatusSource,
	snapshots SnapshotSource,
	gatherer prometheus.Gatherer,
	logger logging.Logger,
) *Server {
	if address == "" {
		address = DefaultAddress
	}
	return &Server{
		address:   address,
		session:   session,
		status:    status,
		snapshots: snapshots,
		gatherer:  gatherer,
		logger:    logger,
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.snapshots != nil {
		r.Get("/overlay.jpg", s.handleOverlay)
	}
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return errors.Wrapf(err, "cannot listen on %s", s.address)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Infow("status server listening", "address", listener.Addr().String(), "session", s.session.String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "status server failed")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "status server shutdown")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.status.State()
	code := http.StatusOK
	if state != tracking.StateRunning {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	//nolint:errcheck
	w.Write([]byte(state.String() + "\n"))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		Session: s.session.String(),
		State:   s.status.State().String(),
		Frames:  s.status.Frames(),
	}
	if s.status.Frames() > 0 {
		resp.Outcome = s.status.Last().Outcome.String()
	}
	if pt, ok := s.status.LastPosition(); ok {
		payload := publish.FromPoint(pt)
		resp.Last = &payload
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.CWarnw(r.Context(), "cannot write state response", "error", err)
	}
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	data, frames := s.snapshots.Snapshot()
	if len(data) == 0 {
		http.Error(w, "no frame rendered yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Count", strconv.FormatUint(frames, 10))
	//nolint:errcheck
	w.Write(data)
}
