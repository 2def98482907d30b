// Package api provides HTTP API handlers for mudra session history.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/store"
)

// SessionHandler handles HTTP requests for session resources.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/sessions, /api/sessions/{id}, /api/sessions/{id}/dispatches
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "dispatches":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.dispatches(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Response types

type sessionResponse struct {
	ID         string  `json:"id"`
	Device     string  `json:"device"`
	DebounceMS int64   `json:"debounce_ms"`
	StartedAt  string  `json:"started_at"`
	EndedAt    *string `json:"ended_at"`
	Frames     int64   `json:"frames"`
	EndReason  string  `json:"end_reason,omitempty"`
	Dispatches int     `json:"dispatches"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type dispatchResponse struct {
	ID          int64  `json:"id"`
	Command     int    `json:"command"`
	FingerCount int    `json:"finger_count"`
	Reason      string `json:"reason"`
	Delivered   bool   `json:"delivered"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type listDispatchesResponse struct {
	SessionID  string             `json:"session_id"`
	Dispatches []dispatchResponse `json:"dispatches"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toSessionResponse converts a store.Session to a sessionResponse.
func toSessionResponse(s *store.Session, dispatches int) sessionResponse {
	resp := sessionResponse{
		ID:         s.ID,
		Device:     s.Device,
		DebounceMS: s.Debounce.Milliseconds(),
		StartedAt:  s.StartedAt.Format(time.RFC3339Nano),
		Frames:     s.Frames,
		EndReason:  s.EndReason,
		Dispatches: dispatches,
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(time.RFC3339Nano)
		resp.EndedAt = &ended
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions?limit=N and returns the most recent sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}

	for _, s := range sessions {
		n, err := h.store.Dispatches().CountBySession(s.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count dispatches")
			return
		}
		response.Sessions = append(response.Sessions, toSessionResponse(s, n))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} and returns a single session.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	n, err := h.store.Dispatches().CountBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count dispatches")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session, n))
}

// dispatches handles GET /api/sessions/{id}/dispatches.
func (h *SessionHandler) dispatches(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	records, err := h.store.Dispatches().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list dispatches")
		return
	}

	response := listDispatchesResponse{
		SessionID:  id,
		Dispatches: make([]dispatchResponse, 0, len(records)),
	}
	for _, d := range records {
		response.Dispatches = append(response.Dispatches, dispatchResponse{
			ID:          d.ID,
			Command:     int(d.Command),
			FingerCount: d.FingerCount,
			Reason:      d.Reason,
			Delivered:   d.Delivered,
			Error:       d.Error,
			CreatedAt:   d.CreatedAt.Format(time.RFC3339Nano),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/sessions/{id} and removes a session with its history.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Sessions().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
