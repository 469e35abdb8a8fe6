// Package server exposes the queue and worker over HTTP. Progress
// streams out as server-sent events so a UI can follow a run live.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"evler_migrator/models"
	"evler_migrator/profiles"
	"evler_migrator/queue"
	"evler_migrator/storage"
)

// Archive is the read side of the migration archive. Nil disables the
// archive endpoints.
type Archive interface {
	ListMigrations(ctx context.Context, limit int) ([]storage.ArchivedMigration, error)
	GetMigration(ctx context.Context, jobID string) (*storage.ArchivedMigration, error)
	Stats(ctx context.Context) (storage.ArchiveStats, error)
}

type Server struct {
	store   *queue.Store
	worker  *queue.Worker
	archive Archive
	router  *mux.Router
}

func New(store *queue.Store, worker *queue.Worker, archive Archive) *Server {
	s := &Server{store: store, worker: worker, archive: archive}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/jobs", s.handleAddJobs).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleRemoveJob).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{id}/retry", s.handleRetryJob).Methods(http.MethodPost)

	api.HandleFunc("/worker/start", s.handleWorkerStart).Methods(http.MethodPost)
	api.HandleFunc("/worker/stop", s.handleWorkerStop).Methods(http.MethodPost)
	api.HandleFunc("/worker/status", s.handleWorkerStatus).Methods(http.MethodGet)

	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	api.HandleFunc("/profiles", s.handleProfiles).Methods(http.MethodGet)

	api.HandleFunc("/migrations", s.handleListMigrations).Methods(http.MethodGet)
	api.HandleFunc("/migrations/{id}", s.handleGetMigration).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	s.router = r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

type addJobsRequest struct {
	URLs []string `json:"urls"`
	URL  string   `json:"url"`
}

func (s *Server) handleAddJobs(w http.ResponseWriter, r *http.Request) {
	var req addJobsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	urls := req.URLs
	if req.URL != "" {
		urls = append(urls, req.URL)
	}
	jobs, err := s.store.AddMany(urls)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "add jobs: %v", err)
		return
	}
	if len(jobs) == 0 {
		writeError(w, http.StatusBadRequest, "no listing URLs given")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"added": jobs})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list jobs: %v", err)
		return
	}
	if jobs == nil {
		jobs = []*models.MigrationJob{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(mux.Vars(r)["id"])
	if errors.Is(err, queue.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get job: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	err := s.store.Remove(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, queue.ErrProcessing):
		writeError(w, http.StatusConflict, "job is being processed")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "remove job: %v", err)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
	}
}

func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Retry(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, queue.ErrProcessing):
		writeError(w, http.StatusConflict, "job is being processed")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "retry job: %v", err)
	default:
		writeJSON(w, http.StatusOK, job)
	}
}

type workerStartRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	DryRun    bool   `json:"dryRun"`
	MaxPhotos *int   `json:"maxPhotos"`
}

func (s *Server) handleWorkerStart(w http.ResponseWriter, r *http.Request) {
	var req workerStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	opts := models.RunOptions{DryRun: req.DryRun, MaxPhotos: -1}
	if req.MaxPhotos != nil {
		opts.MaxPhotos = *req.MaxPhotos
	}
	err := s.worker.Start(models.Credentials{Email: req.Email, Password: req.Password}, opts)
	if errors.Is(err, queue.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, "worker is already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "start worker: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": true})
}

func (s *Server) handleWorkerStop(w http.ResponseWriter, r *http.Request) {
	err := s.worker.Stop()
	if errors.Is(err, queue.ErrNotRunning) {
		writeError(w, http.StatusConflict, "worker is not running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stop worker: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stopping": true})
}

func (s *Server) handleWorkerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.worker.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "worker status: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleEvents streams worker events as SSE until the client hangs up.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, cancel := s.worker.Subscribe()
	defer cancel()

	writeEvent(w, queue.Event{Event: "connected"})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev queue.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("server: encode event: %v", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func (s *Server) handleListMigrations(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive is disabled")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit %q", raw)
			return
		}
		limit = n
	}
	migrations, err := s.archive.ListMigrations(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list migrations: %v", err)
		return
	}
	if migrations == nil {
		migrations = []storage.ArchivedMigration{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"migrations": migrations})
}

func (s *Server) handleGetMigration(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive is disabled")
		return
	}
	migration, err := s.archive.GetMigration(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get migration: %v", err)
		return
	}
	if migration == nil {
		writeError(w, http.StatusNotFound, "migration not found")
		return
	}
	writeJSON(w, http.StatusOK, migration)
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles.Summaries()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	status, err := s.worker.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "worker status: %v", err)
		return
	}
	response := map[string]any{"queue": status}
	if s.archive != nil {
		stats, err := s.archive.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "archive stats: %v", err)
			return
		}
		response["archive"] = stats
	}
	writeJSON(w, http.StatusOK, response)
}
