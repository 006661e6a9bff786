package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/meetpoint/internal/logging"
	"github.com/example/meetpoint/internal/resolver"
	"github.com/example/meetpoint/internal/session"
	"github.com/example/meetpoint/internal/solver"
	"github.com/example/meetpoint/internal/storage"
)

func newTestServer() *Server {
	svc := &session.Service{
		Store:    storage.NewMemoryStore(24 * time.Hour),
		Solver:   &solver.Service{MaxIterations: 3, ConvergenceThreshold: 0.1, Damping: 0.3},
		Resolver: &resolver.Service{},
	}
	return NewServer(logging.NewLogger("error"), svc, "http://localhost:8080")
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestCreateSessionEndpoint(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/sessions", map[string]any{"lat": -33.85, "lng": 151.21})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
		PinCode   string `json:"pin_code"`
		ShareURL  string `json:"share_url"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID == "" || len(resp.PinCode) != 4 || resp.Status != "waiting_for_b" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.ShareURL != "http://localhost:8080/session/"+resp.SessionID {
		t.Fatalf("unexpected share url %s", resp.ShareURL)
	}
}

func TestGetUnknownSessionIs404(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodGet, "/api/sessions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestJoinWrongPinIs403(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/sessions", map[string]any{"lat": -33.85, "lng": 151.21})
	var created struct {
		SessionID string `json:"session_id"`
		PinCode   string `json:"pin_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	wrong := "0000"
	if wrong == created.PinCode {
		wrong = "0001"
	}
	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/sessions/%s/join", created.SessionID),
		map[string]any{"pin": wrong, "lat": -33.88, "lng": 151.20})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestVoteBeforeVotingIs409(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/sessions", map[string]any{"lat": -33.85, "lng": 151.21})
	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/sessions/%s/vote", created.SessionID),
		map[string]any{"venue_id": "v", "voter": "partyA"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequestIDEchoedOnResponses(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}

	// without a caller-supplied id one is minted
	w = doJSON(t, s, http.MethodPost, "/api/sessions", map[string]any{"lat": -33.85, "lng": 151.21})
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestInvalidBodyIs400(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
