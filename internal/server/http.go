package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/callistoworks/parley/internal/negotiation"
	"github.com/callistoworks/parley/internal/observe"
	"github.com/callistoworks/parley/pkg/store"
	"github.com/callistoworks/parley/pkg/types"
)

// createRequest is the body of POST /v1/sessions.
type createRequest struct {
	// ID is optional; the server generates one when absent.
	ID   string     `json:"id,omitempty"`
	Kind types.Kind `json:"kind"`
}

// sessionResponse is the common session envelope. Prompt is present while the
// session is open.
type sessionResponse struct {
	Session *types.Session `json:"session"`
	Prompt  string         `json:"prompt,omitempty"`
}

// turnRequest is the body of POST /v1/sessions/{id}/turns.
type turnRequest struct {
	Response string `json:"response"`
}

// turnResponse reports one applied turn. Exactly one of NextPrompt and
// Outcome is set.
type turnResponse struct {
	Exchange   types.Exchange       `json:"exchange"`
	NextPrompt string               `json:"next_prompt,omitempty"`
	Outcome    *types.OutcomeResult `json:"outcome,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Routes builds the full HTTP handler: the session API, the live WebSocket
// endpoint, health probes and /metrics, all wrapped in the observability
// middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sessions", s.handleCreate)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handleGet)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handleDelete)
	mux.HandleFunc("POST /v1/sessions/{id}/turns", s.handleTurn)
	mux.HandleFunc("GET /v1/sessions/{id}/live", s.handleLive)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, prompt, err := s.sessions.Create(r.Context(), req.ID, req.Kind)
	switch {
	case errors.Is(err, negotiation.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrSessionExists):
		writeError(w, http.StatusConflict, "session already exists")
		return
	case err != nil:
		s.internalError(w, r, "create session", err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess, Prompt: prompt})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, prompt, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
		return
	case err != nil:
		s.internalError(w, r, "get session", err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Prompt: prompt})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.Delete(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
		return
	case err != nil:
		s.internalError(w, r, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, _, err := s.sessions.Advance(r.Context(), r.PathValue("id"), req.Response)
	if err != nil {
		s.writeTurnError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{
		Exchange:   res.Exchange,
		NextPrompt: res.NextPrompt,
		Outcome:    res.Outcome,
	})
}

// writeTurnError maps Advance failures onto HTTP statuses. Validation
// failures are 422 (the request parsed fine, the content is unusable);
// advancing a frozen session or losing the optimistic write race is 409.
func (s *Server) writeTurnError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, negotiation.ErrEmptyResponse),
		errors.Is(err, negotiation.ErrResponseTooLong):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, negotiation.ErrSessionResolved),
		errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.internalError(w, r, "advance session", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	observe.Logger(r.Context()).Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
