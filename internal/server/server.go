// Package server is a small HTTP view over a project's daylight summary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/ChicagoDave/daylight/internal/archive"
	"github.com/ChicagoDave/daylight/internal/telemetry"
	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/errs"
	"github.com/ChicagoDave/daylight/pkg/pipeline"
	"github.com/ChicagoDave/daylight/pkg/summary"
)

// RunArchive stores written summaries and returns them by run ID.
type RunArchive interface {
	pipeline.Archiver
	Load(ctx context.Context, runID string) (*summary.Summary, error)
}

// Server serves the summary artifact of one project and can trigger runs.
type Server struct {
	cfg     *config.Config
	port    int
	log     *slog.Logger
	metrics *telemetry.Metrics
	archive RunArchive
	now     func() time.Time

	// running serializes runs; a second POST while one is active is refused.
	running sync.Mutex
}

// Options are the optional collaborators of a Server.
type Options struct {
	Log     *slog.Logger
	Metrics *telemetry.Metrics
	Archive RunArchive
	Now     func() time.Time
}

// New creates a server for a loaded project configuration.
func New(cfg *config.Config, port int, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := opts.Metrics
	if m == nil {
		m = telemetry.New()
	}
	return &Server{
		cfg:     cfg,
		port:    port,
		log:     log,
		metrics: m,
		archive: opts.Archive,
		now:     opts.Now,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/summary", s.metrics.WrapHandler("/api/summary", http.HandlerFunc(s.handleSummary))).Methods(http.MethodGet)
	api.Handle("/rooms", s.metrics.WrapHandler("/api/rooms", http.HandlerFunc(s.handleRooms))).Methods(http.MethodGet)
	api.Handle("/rooms/{label}", s.metrics.WrapHandler("/api/rooms/{label}", http.HandlerFunc(s.handleRoom))).Methods(http.MethodGet)
	api.Handle("/validation", s.metrics.WrapHandler("/api/validation", http.HandlerFunc(s.handleValidation))).Methods(http.MethodGet)
	api.Handle("/run", s.metrics.WrapHandler("/api/run", http.HandlerFunc(s.handleRun))).Methods(http.MethodPost)
	api.Handle("/runs/{id}", s.metrics.WrapHandler("/api/runs/{id}", http.HandlerFunc(s.handleArchivedRun))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}

// Start listens on the configured port until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	h := handlers.RecoveryHandler()(handlers.LoggingHandler(os.Stderr, s.Router()))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("daylight server starting", "addr", "http://localhost"+srv.Addr, "results", s.cfg.ResultsLocation)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSummary serves the artifact bytes as written.
func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	data, err := os.ReadFile(s.cfg.OutputPath())
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "", "no summary has been written yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data) //nolint:errcheck
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.readSummary(w)
	if !ok {
		return
	}
	rooms := sum.Rooms
	if r.URL.Query().Get("failing") == "true" {
		rooms = make([]summary.Room, 0, len(sum.Rooms))
		for _, room := range sum.Rooms {
			if !room.RoomPass {
				rooms = append(rooms, room)
			}
		}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.readSummary(w)
	if !ok {
		return
	}
	label := mux.Vars(r)["label"]
	room, found := sum.Room(label)
	if !found {
		writeError(w, http.StatusNotFound, "", fmt.Sprintf("no room %q in summary", label))
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleValidation(w http.ResponseWriter, _ *http.Request) {
	report, _, err := pipeline.Validate(s.cfg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, errs.Kind(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		writeError(w, http.StatusConflict, "", "a run is already in progress")
		return
	}
	defer s.running.Unlock()

	opts := pipeline.Options{Log: s.log, Now: s.now, Recorder: s.metrics}
	if s.archive != nil {
		opts.Archiver = s.archive
	}
	sum, err := pipeline.Run(r.Context(), s.cfg, opts)
	if err != nil && sum == nil {
		s.log.Error("run failed", "kind", errs.Kind(err), "err", err)
		var ce *errs.ConfigError
		if errors.As(err, &ce) && ce.Report != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  err.Error(),
				"kind":   errs.KindConfig,
				"report": ce.Report,
			})
			return
		}
		writeError(w, statusFor(err), errs.Kind(err), err.Error())
		return
	}
	if err != nil {
		// The artifact is written; only an export failed.
		s.log.Warn("run finished with export errors", "err", err)
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleArchivedRun serves a past run from the archive.
func (s *Server) handleArchivedRun(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, "", "no run archive is configured")
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "run id must be a UUID")
		return
	}
	sum, err := s.archive.Load(r.Context(), id.String())
	if errors.Is(err, archive.ErrNotFound) {
		writeError(w, http.StatusNotFound, "", fmt.Sprintf("run %s is not archived", id))
		return
	}
	if err != nil {
		s.log.Error("loading archived run failed", "run_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) readSummary(w http.ResponseWriter) (*summary.Summary, bool) {
	sum, err := summary.Read(s.cfg.OutputPath())
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "", "no summary has been written yet")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, errs.Kind(err), err.Error())
		return nil, false
	}
	return sum, true
}

func statusFor(err error) int {
	switch errs.Kind(err) {
	case errs.KindConfig, errs.KindInput, errs.KindMatch:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	body := map[string]string{"error": msg}
	if kind != "" {
		body["kind"] = kind
	}
	writeJSON(w, status, body)
}
