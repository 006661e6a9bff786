package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/meetpoint/internal/models"
	"github.com/example/meetpoint/internal/session"
	"github.com/example/meetpoint/internal/storage"
)

// Server is the thin HTTP pass-through over the session state machine. It
// owns no transition logic; it only maps the wire contracts onto service
// calls and sentinel errors onto status codes.
type Server struct {
	Sessions *session.Service
	BaseURL  string

	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(logger *slog.Logger, sessions *session.Service, baseURL string) *Server {
	s := &Server{Sessions: sessions, BaseURL: baseURL, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/sessions", s.handleCreate).Methods("POST")
	s.mux.HandleFunc("/api/sessions/{id}", s.handleGet).Methods("GET")
	s.mux.HandleFunc("/api/sessions/{id}/join", s.handleJoin).Methods("POST")
	s.mux.HandleFunc("/api/sessions/{id}/compute", s.handleCompute).Methods("POST")
	s.mux.HandleFunc("/api/sessions/{id}/vote", s.handleVote).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type createRequest struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
	Mode  string  `json:"mode"`
}

type createResponse struct {
	SessionID string `json:"session_id"`
	PinCode   string `json:"pin_code"`
	ShareURL  string `json:"share_url"`
	Status    string `json:"status"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, session.ErrInvalidInput)
		return
	}
	sess, err := s.Sessions.Create(r.Context(), session.CreateParams{
		Loc:   models.Coord{Lat: req.Lat, Lng: req.Lng},
		Label: req.Label,
		Mode:  models.TravelMode(req.Mode),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, createResponse{
		SessionID: sess.ID,
		PinCode:   sess.PinCode,
		ShareURL:  s.BaseURL + "/session/" + sess.ID,
		Status:    string(sess.Status),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

type joinRequest struct {
	Pin   string  `json:"pin"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, session.ErrInvalidInput)
		return
	}
	sess, err := s.Sessions.Join(r.Context(), mux.Vars(r)["id"], req.Pin,
		models.Coord{Lat: req.Lat, Lng: req.Lng}, req.Label)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Compute(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

type voteRequest struct {
	VenueID string `json:"venue_id"`
	Voter   string `json:"voter"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, session.ErrInvalidInput)
		return
	}
	snap, err := s.Sessions.Vote(r.Context(), mux.Vars(r)["id"], req.VenueID, models.VoterRole(req.Voter))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Expired bool   `json:"expired,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrExpired):
		status = http.StatusGone
		resp.Expired = true
	case errors.Is(err, session.ErrInvalidPin):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, session.ErrInvalidVenue):
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed", "path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()), "err", err)
		resp.Error = "internal error"
	}
	s.writeJSON(w, status, resp)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
