// Package api is the HTTP surface for runs: inspect them, trigger them, and
// answer waiting ones. Reads are open; everything that mutates a run sits
// behind the bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/fenwick-labs/scrivener/internal/google"
	"github.com/fenwick-labs/scrivener/internal/store"
)

// RunReader is the store surface the API reads runs from.
type RunReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
	ListRunsByCallID(ctx context.Context, callID string) ([]*store.Run, error)
	ListRecentRuns(ctx context.Context, limit int) ([]*store.Run, error)
}

// Engine is the run engine surface the API drives.
type Engine interface {
	Trigger(ctx context.Context, callID string) (*store.Run, bool, error)
	Execute(ctx context.Context, runID uuid.UUID) error
	SignalDocURL(ctx context.Context, runID uuid.UUID, docURL string) error
	SignalSectionReady(ctx context.Context, runID uuid.UUID) error
}

type Server struct {
	router *chi.Mux
	port   int
	runs   RunReader
	engine Engine
	logger *slog.Logger
}

func NewServer(port int, apiToken string, runs RunReader, engine Engine, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		runs:   runs,
		engine: engine,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Get("/{id}", s.getRun)
		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Post("/", s.createRun)
			r.Post("/{id}/signals/doc-url", s.signalDocURL)
			r.Post("/{id}/signals/section-ready", s.signalSectionReady)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

type runResponse struct {
	ID         string    `json:"id"`
	CallID     string    `json:"call_id"`
	State      string    `json:"state"`
	DocURL     string    `json:"doc_url,omitempty"`
	WaitReason string    `json:"wait_reason,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toRunResponse(r *store.Run) runResponse {
	return runResponse{
		ID:         r.ID.String(),
		CallID:     r.CallID,
		State:      string(r.State),
		DocURL:     r.DocURL,
		WaitReason: r.WaitReason,
		LastError:  r.LastError,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	var (
		runs []*store.Run
		err  error
	)

	if callID := r.URL.Query().Get("call_id"); callID != "" {
		runs, err = s.runs.ListRunsByCallID(r.Context(), callID)
	} else {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
		}
		runs, err = s.runs.ListRecentRuns(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out, "count": len(out)})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.respondRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallID string `json:"call_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CallID == "" {
		writeError(w, http.StatusBadRequest, "call_id is required")
		return
	}

	run, created, err := s.engine.Trigger(r.Context(), req.CallID)
	if err != nil {
		s.logger.Error("failed to start run", "call_id", req.CallID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start run")
		return
	}

	if !created {
		// The call already has a live run; hand it back instead.
		writeJSON(w, http.StatusOK, toRunResponse(run))
		return
	}

	go func() {
		_ = s.engine.Execute(context.Background(), run.ID)
	}()
	writeJSON(w, http.StatusAccepted, toRunResponse(run))
}

func (s *Server) signalDocURL(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	var req struct {
		DocURL string `json:"doc_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := google.DocIDFromURL(req.DocURL); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid doc_url: %v", err))
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.respondRunError(w, err)
		return
	}
	if run.State != store.StateWaitingDocURL {
		writeError(w, http.StatusConflict, fmt.Sprintf("run is %s, not waiting for a doc url", run.State))
		return
	}

	// The resumed run can take a while; answer now and let it continue.
	go func() {
		if err := s.engine.SignalDocURL(context.Background(), id, req.DocURL); err != nil {
			s.logger.Error("doc-url signal rejected", "run_id", id, "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) signalSectionReady(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.respondRunError(w, err)
		return
	}
	if run.State != store.StateWaitingSection {
		writeError(w, http.StatusConflict, fmt.Sprintf("run is %s, not waiting for a meeting block", run.State))
		return
	}

	go func() {
		if err := s.engine.SignalSectionReady(context.Background(), id); err != nil {
			s.logger.Error("section signal rejected", "run_id", id, "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) respondRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.logger.Error("failed to load run", "error", err)
	writeError(w, http.StatusInternalServerError, "failed to load run")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
