package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meetpoint/internal/models"
)

func newSession(id string) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:        id,
		Status:    models.StatusWaitingForB,
		PinCode:   "1234",
		PartyA:    models.Coord{Lat: -33.85, Lng: 151.21},
		Mode:      models.ModeWalking,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	m := NewMemoryStore(time.Hour)
	if _, err := m.GetSession(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	m := NewMemoryStore(24 * time.Hour)
	s := newSession("s1")
	s.CreatedAt = time.Now().Add(-25 * time.Hour)
	s.Status = models.StatusVoting // expiry overrides any stored status
	if err := m.CreateSession(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetSession(context.Background(), "s1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := m.GetVenues(context.Background(), "s1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired for venues, got %v", err)
	}
	if _, err := m.GetVotes(context.Background(), "s1"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired for votes, got %v", err)
	}
	if err := m.TransitionStatus(context.Background(), "s1", models.StatusVoting, models.StatusCompleted); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired for transition, got %v", err)
	}
}

func TestMemoryStoreSetJoinerCAS(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Hour)
	if err := m.CreateSession(ctx, newSession("s1")); err != nil {
		t.Fatal(err)
	}
	if err := m.SetJoiner(ctx, "s1", models.Coord{Lat: -33.88, Lng: 151.20}, "home"); err != nil {
		t.Fatalf("first join: %v", err)
	}
	s, err := m.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != models.StatusReadyToCompute || s.PartyB == nil || s.PartyBLabel != "home" {
		t.Fatalf("joiner not stored atomically: %+v", s)
	}
	if err := m.SetJoiner(ctx, "s1", models.Coord{}, ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryStoreTransitionCAS(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Hour)
	s := newSession("s1")
	s.Status = models.StatusReadyToCompute
	if err := m.CreateSession(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := m.TransitionStatus(ctx, "s1", models.StatusReadyToCompute, models.StatusComputing); err != nil {
		t.Fatal(err)
	}
	// second swap from the same expected status must lose
	if err := m.TransitionStatus(ctx, "s1", models.StatusReadyToCompute, models.StatusComputing); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryStoreUpsertVoteSupersedes(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Hour)
	if err := m.CreateSession(ctx, newSession("s1")); err != nil {
		t.Fatal(err)
	}
	first := &models.Vote{ID: "v1", SessionID: "s1", VenueID: "venue-1", Voter: models.RolePartyA, CreatedAt: time.Now()}
	second := &models.Vote{ID: "v2", SessionID: "s1", VenueID: "venue-2", Voter: models.RolePartyA, CreatedAt: time.Now()}
	if err := m.UpsertVote(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := m.UpsertVote(ctx, second); err != nil {
		t.Fatal(err)
	}
	votes, err := m.GetVotes(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(votes) != 1 {
		t.Fatalf("expected 1 effective vote, got %d", len(votes))
	}
	if votes[0].VenueID != "venue-2" {
		t.Fatalf("latest vote should win, got %s", votes[0].VenueID)
	}
}

func TestMemoryStoreResultGroup(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Hour)
	if err := m.CreateSession(ctx, newSession("s1")); err != nil {
		t.Fatal(err)
	}
	tA, tB := 600, 660
	if err := m.SetResult(ctx, "s1", models.Coord{Lat: -33.86, Lng: 151.21}, &tA, &tB, "w"); err != nil {
		t.Fatal(err)
	}
	s, err := m.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Midpoint == nil || s.TravelTimeA == nil || s.TravelTimeB == nil {
		t.Fatalf("result fields must be set together: %+v", s)
	}
	if *s.TravelTimeA != 600 || *s.TravelTimeB != 660 || s.Warning != "w" {
		t.Fatalf("unexpected result: %+v", s)
	}
}
