package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/protocol"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// seed stores a finished session with two dispatches and a running one.
func seed(t *testing.T, s *store.Store) {
	t.Helper()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	finished := &store.Session{ID: "finished", Device: "/dev/ttyUSB0", Debounce: 300 * time.Millisecond, StartedAt: base}
	running := &store.Session{ID: "running", Device: "/dev/ttyUSB0", Debounce: 300 * time.Millisecond, StartedAt: base.Add(time.Hour)}

	for _, sess := range []*store.Session{finished, running} {
		if err := s.Sessions().Create(sess); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
	}
	if err := s.Sessions().Finish("finished", base.Add(time.Minute), 1800, "quit"); err != nil {
		t.Fatalf("failed to finish session: %v", err)
	}

	dispatches := []*store.Dispatch{
		{SessionID: "finished", Command: protocol.Command(102), FingerCount: 2, Reason: "changed", Delivered: true},
		{SessionID: "finished", Command: protocol.Neutral, Reason: "shutdown", Error: "write failed"},
	}
	for _, d := range dispatches {
		if err := s.Dispatches().Create(d); err != nil {
			t.Fatalf("failed to create dispatch: %v", err)
		}
	}
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	handler := NewSessionHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(response.Sessions))
	}
	if response.Sessions[0].ID != "running" {
		t.Errorf("expected newest session first, got %s", response.Sessions[0].ID)
	}
	if response.Sessions[0].EndedAt != nil {
		t.Error("running session should have no ended_at")
	}

	finished := response.Sessions[1]
	if finished.Dispatches != 2 {
		t.Errorf("expected 2 dispatches, got %d", finished.Dispatches)
	}
	if finished.EndedAt == nil || finished.EndReason != "quit" || finished.Frames != 1800 {
		t.Errorf("unexpected finished session %+v", finished)
	}
	if finished.DebounceMS != 300 {
		t.Errorf("expected debounce_ms 300, got %d", finished.DebounceMS)
	}
}

func TestSessionHandler_ListLimit(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	handler := NewSessionHandler(s)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCount  int
	}{
		{name: "limit one", query: "?limit=1", wantStatus: http.StatusOK, wantCount: 1},
		{name: "zero uses default", query: "?limit=0", wantStatus: http.StatusOK, wantCount: 2},
		{name: "not a number", query: "?limit=ten", wantStatus: http.StatusBadRequest},
		{name: "negative", query: "?limit=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions"+tt.query, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var response listSessionsResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(response.Sessions) != tt.wantCount {
				t.Errorf("expected %d sessions, got %d", tt.wantCount, len(response.Sessions))
			}
		})
	}
}

func TestSessionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	handler := NewSessionHandler(s)

	t.Run("existing session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/finished", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response sessionResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.ID != "finished" || response.Device != "/dev/ttyUSB0" {
			t.Errorf("unexpected session %+v", response)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}

		var response errorResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if response.Error != "Session not found" {
			t.Errorf("unexpected error message %q", response.Error)
		}
	})
}

func TestSessionHandler_Dispatches(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	handler := NewSessionHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/finished/dispatches", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listDispatchesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.SessionID != "finished" {
		t.Errorf("expected session_id finished, got %s", response.SessionID)
	}
	if len(response.Dispatches) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(response.Dispatches))
	}

	first, second := response.Dispatches[0], response.Dispatches[1]
	if first.Command != 102 || first.FingerCount != 2 || !first.Delivered || first.Reason != "changed" {
		t.Errorf("unexpected first dispatch %+v", first)
	}
	if second.Command != 100 || second.Delivered || second.Error != "write failed" {
		t.Errorf("unexpected second dispatch %+v", second)
	}

	t.Run("empty session returns empty list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/running/dispatches", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		var response listDispatchesResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if response.Dispatches == nil || len(response.Dispatches) != 0 {
			t.Errorf("expected empty dispatch list, got %v", response.Dispatches)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing/dispatches", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestSessionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	handler := NewSessionHandler(s)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/finished", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if _, err := s.Sessions().GetByID("finished"); err != store.ErrNotFound {
		t.Errorf("session should be deleted, got %v", err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/finished", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d on second delete, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSessionHandler_MethodsAndPaths(t *testing.T) {
	handler := NewSessionHandler(newTestStore(t))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/sessions", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/sessions/abc", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/sessions/abc/dispatches", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/sessions/abc/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
