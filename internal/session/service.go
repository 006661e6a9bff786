package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/example/meetpoint/internal/geo"
	"github.com/example/meetpoint/internal/models"
	"github.com/example/meetpoint/internal/observability"
	"github.com/example/meetpoint/internal/resolver"
	"github.com/example/meetpoint/internal/solver"
	"github.com/example/meetpoint/internal/storage"
)

// EventSink receives lifecycle events. Publishing is best-effort; a failed
// publish never fails the operation that triggered it.
type EventSink interface {
	Publish(ctx context.Context, event string, s *models.Session) error
}

// Snapshot is everything a polling client sees: the session plus its owned
// venues and votes.
type Snapshot struct {
	Session *models.Session `json:"session"`
	Venues  []models.Venue  `json:"venues"`
	Votes   []models.Vote   `json:"votes"`
}

// Service is the only component with transition authority over session
// status. All guards run against the store's compare-and-swap primitives so
// two racing clients cannot both win a transition.
type Service struct {
	Store    storage.SessionStore
	Solver   *solver.Service
	Resolver *resolver.Service
	Events   EventSink
	Logger   *slog.Logger

	// DefaultMode is used when a create request names no travel mode.
	DefaultMode models.TravelMode
}

type CreateParams struct {
	Loc   models.Coord
	Label string
	Mode  models.TravelMode
}

// Create opens a session in waiting_for_b with a fresh 4-digit PIN.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Session, error) {
	if !geo.Valid(p.Loc) {
		return nil, fmt.Errorf("%w: bad coordinates", ErrInvalidInput)
	}
	if p.Mode == "" {
		p.Mode = s.DefaultMode
		if p.Mode == "" {
			p.Mode = models.ModeTransit
		}
	}
	if !p.Mode.Known() {
		return nil, fmt.Errorf("%w: unknown travel mode %q", ErrInvalidInput, p.Mode)
	}

	pin, err := newPin()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sess := &models.Session{
		ID:          uuid.NewString(),
		Status:      models.StatusWaitingForB,
		PinCode:     pin,
		PartyA:      p.Loc,
		PartyALabel: p.Label,
		Mode:        p.Mode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	observability.SessionsCreated.Inc()
	s.publish(ctx, "created", sess)
	return sess, nil
}

// Join sets the second party's location and advances the session to
// ready_to_compute. Exactly one of two racing joins succeeds; the loser
// observes ErrConflict. The PIN is checked before the coordinates so a
// wrong PIN fails regardless of payload validity.
func (s *Service) Join(ctx context.Context, id, pin string, loc models.Coord, label string) (*models.Session, error) {
	sess, err := s.Store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.PinCode != pin {
		observability.JoinsTotal.WithLabelValues("invalid_pin").Inc()
		return nil, ErrInvalidPin
	}
	if !geo.Valid(loc) {
		return nil, fmt.Errorf("%w: bad coordinates", ErrInvalidInput)
	}
	if sess.Status != models.StatusWaitingForB {
		observability.JoinsTotal.WithLabelValues("conflict").Inc()
		return nil, storage.ErrConflict
	}
	if err := s.Store.SetJoiner(ctx, id, loc, label); err != nil {
		if err == storage.ErrConflict {
			observability.JoinsTotal.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}
	observability.JoinsTotal.WithLabelValues("ok").Inc()

	sess, err = s.Store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "joined", sess)
	return sess, nil
}

// Compute runs the solver and resolver exactly once per session. Calling
// it while the session is computing, voting or completed is a no-op that
// returns the current record, so client retries are always safe. It never
// leaves the session stuck in computing: any failure after the swap reverts
// to ready_to_compute with a warning attached.
func (s *Service) Compute(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.Store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case models.StatusComputing, models.StatusVoting, models.StatusCompleted:
		return s.snapshot(ctx, id)
	case models.StatusWaitingForB:
		return nil, fmt.Errorf("waiting for second party: %w", storage.ErrConflict)
	}

	if err := s.Store.TransitionStatus(ctx, id, models.StatusReadyToCompute, models.StatusComputing); err != nil {
		if err == storage.ErrConflict {
			// lost the race; the winner's computation is underway
			observability.ComputesTotal.WithLabelValues("duplicate").Inc()
			return s.snapshot(ctx, id)
		}
		return nil, err
	}

	start := time.Now()
	defer func() { observability.ComputeDuration.Observe(time.Since(start).Seconds()) }()

	if sess.PartyB == nil {
		// cannot happen through Join, but the transition must not strand
		s.revert(ctx, id, "second location missing")
		return nil, fmt.Errorf("%w: joiner coordinates missing", ErrInvalidInput)
	}

	res := s.Solver.Solve(ctx, sess.PartyA, *sess.PartyB, sess.Mode)
	venues, resolveWarning := s.Resolver.Resolve(ctx, res.Point)
	warning := joinWarnings(res.Warning, resolveWarning)

	if len(venues) == 0 {
		warning = joinWarnings(warning, "no venues found near the midpoint")
		if err := s.Store.SetResult(ctx, id, res.Point, res.TravelTimeA, res.TravelTimeB, warning); err != nil {
			s.revert(ctx, id, "computation failed; retry")
			return nil, err
		}
		if err := s.Store.TransitionStatus(ctx, id, models.StatusComputing, models.StatusCompleted); err != nil {
			s.revert(ctx, id, "computation failed; retry")
			return nil, err
		}
		observability.ComputesTotal.WithLabelValues("no_venues").Inc()
		s.publishByID(ctx, "completed", id)
		return s.snapshot(ctx, id)
	}

	now := time.Now()
	for i := range venues {
		venues[i].ID = uuid.NewString()
		venues[i].SessionID = id
		venues[i].CreatedAt = now
	}
	if err := s.Store.SaveVenues(ctx, venues); err != nil {
		s.revert(ctx, id, "computation failed; retry")
		return nil, err
	}
	if err := s.Store.SetResult(ctx, id, res.Point, res.TravelTimeA, res.TravelTimeB, warning); err != nil {
		s.revert(ctx, id, "computation failed; retry")
		return nil, err
	}
	if err := s.Store.TransitionStatus(ctx, id, models.StatusComputing, models.StatusVoting); err != nil {
		s.revert(ctx, id, "computation failed; retry")
		return nil, err
	}
	observability.ComputesTotal.WithLabelValues("ok").Inc()
	s.publishByID(ctx, "computed", id)
	return s.snapshot(ctx, id)
}

// Vote records one party's pick; the latest vote per voter wins. Once both
// roles have voted the session resolves: agreement picks that venue,
// disagreement picks the better-ranked one, and either way the session
// completes.
func (s *Service) Vote(ctx context.Context, id, venueID string, voter models.VoterRole) (*Snapshot, error) {
	if !voter.Known() {
		return nil, fmt.Errorf("%w: unknown voter role %q", ErrInvalidInput, voter)
	}
	sess, err := s.Store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusVoting {
		return nil, fmt.Errorf("session is not voting: %w", storage.ErrConflict)
	}

	venues, err := s.Store.GetVenues(ctx, id)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Venue, len(venues))
	for _, v := range venues {
		byID[v.ID] = v
	}
	if _, ok := byID[venueID]; !ok {
		return nil, ErrInvalidVenue
	}

	if err := s.Store.UpsertVote(ctx, &models.Vote{
		ID:        uuid.NewString(),
		SessionID: id,
		VenueID:   venueID,
		Voter:     voter,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, err
	}
	observability.VotesTotal.Inc()

	votes, err := s.Store.GetVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	if winner, done := resolveWinner(votes, byID); done {
		if err := s.Store.SetWinner(ctx, id, winner); err != nil {
			return nil, err
		}
		err := s.Store.TransitionStatus(ctx, id, models.StatusVoting, models.StatusCompleted)
		switch err {
		case nil:
			s.publishByID(ctx, "completed", id)
		case storage.ErrConflict:
			// a concurrent vote already resolved to the same winner
		default:
			return nil, err
		}
	}
	return s.snapshot(ctx, id)
}

// Get returns the full client-visible state. Reads past the TTL surface
// storage.ErrExpired regardless of stored status.
func (s *Service) Get(ctx context.Context, id string) (*Snapshot, error) {
	return s.snapshot(ctx, id)
}

func (s *Service) snapshot(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.Store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	venues, err := s.Store.GetVenues(ctx, id)
	if err != nil {
		return nil, err
	}
	votes, err := s.Store.GetVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Session: sess, Venues: venues, Votes: votes}, nil
}

// resolveWinner applies the deterministic resolution rule once both roles
// have an effective vote: a unanimous pick wins outright, a split resolves
// to the venue with the better resolver rank.
func resolveWinner(votes []models.Vote, venues map[string]models.Venue) (string, bool) {
	var a, b *models.Vote
	for i := range votes {
		switch votes[i].Voter {
		case models.RolePartyA:
			a = &votes[i]
		case models.RolePartyB:
			b = &votes[i]
		}
	}
	if a == nil || b == nil {
		return "", false
	}
	if a.VenueID == b.VenueID {
		return a.VenueID, true
	}
	va, vb := venues[a.VenueID], venues[b.VenueID]
	if va.Rank != vb.Rank {
		if va.Rank < vb.Rank {
			return va.ID, true
		}
		return vb.ID, true
	}
	if va.ID < vb.ID {
		return va.ID, true
	}
	return vb.ID, true
}

// revert undoes the computing swap so the transition can be retried.
func (s *Service) revert(ctx context.Context, id, warning string) {
	if err := s.Store.TransitionStatus(ctx, id, models.StatusComputing, models.StatusReadyToCompute); err != nil {
		s.log().Error("failed to revert computing session", "session_id", id, "err", err)
		return
	}
	if err := s.Store.SetWarning(ctx, id, warning); err != nil {
		s.log().Error("failed to attach warning", "session_id", id, "err", err)
	}
	observability.ComputesTotal.WithLabelValues("reverted").Inc()
}

func (s *Service) publish(ctx context.Context, event string, sess *models.Session) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, event, sess); err != nil {
		s.log().Warn("lifecycle publish failed", "event", event, "session_id", sess.ID, "err", err)
	}
}

func (s *Service) publishByID(ctx context.Context, event, id string) {
	sess, err := s.Store.GetSession(ctx, id)
	if err != nil {
		return
	}
	s.publish(ctx, event, sess)
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func newPin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

func joinWarnings(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}
