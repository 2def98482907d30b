package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/protocol"
	"github.com/ayusman/mudra/internal/store"
)

type fakeStatus struct {
	status app.Status
}

func (f *fakeStatus) Status() app.Status { return f.status }

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_Status(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	provider := &fakeStatus{status: app.Status{
		SessionID:   "abc",
		Running:     true,
		State:       dispatch.HandTracked,
		HandPresent: true,
		Count:       3,
		LastCommand: protocol.Command(103),
		Device:      "/dev/ttyUSB0",
		Connected:   true,
		Frames:      42,
		FPS:         29.5,
		StartedAt:   started,
	}}
	s := New(Config{Status: provider})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	checks := map[string]interface{}{
		"session_id":   "abc",
		"state":        "tracking",
		"hand_present": true,
		"count":        float64(3),
		"last_command": float64(103),
		"connected":    true,
		"frames":       float64(42),
	}
	for key, want := range checks {
		if response[key] != want {
			t.Errorf("%s = %v, want %v", key, response[key], want)
		}
	}

	t.Run("rejects POST", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})

	t.Run("omits last_command before the first send", func(t *testing.T) {
		s := New(Config{Status: &fakeStatus{status: app.Status{State: dispatch.Idle}}})
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		if strings.Contains(rec.Body.String(), "last_command") {
			t.Errorf("unexpected last_command in %s", rec.Body.String())
		}
	})
}

func TestServer_Metrics(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mudra_transmit_errors_total") {
		t.Error("expected mudra metrics in the exposition")
	}
}

func TestServer_Sessions(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	if err := st.Sessions().Create(&store.Session{ID: "s1", Device: "offline"}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	s := New(Config{Store: st})

	for _, path := range []string{"/api/sessions", "/api/sessions/s1", "/api/sessions/s1/dispatches"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected status %d, got %d", path, http.StatusOK, rec.Code)
		}
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	paths := []string{"/api/nonexistent", "/api/status", "/api/sessions", "/api/events"}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		hub := NewEventHub()
		s := New(Config{Events: hub})

		if s == nil {
			t.Fatal("expected non-nil server")
		}

		if s.config.Events != hub {
			t.Error("expected event hub to be kept")
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})
}
