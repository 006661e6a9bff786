package storage

import (
	"context"
	"errors"

	"github.com/example/meetpoint/internal/models"
)

var (
	// ErrNotFound: no record for the id.
	ErrNotFound = errors.New("not found")
	// ErrExpired: the session exists but its age exceeds the TTL. Returned
	// for any access past TTL regardless of the stored status.
	ErrExpired = errors.New("session expired")
	// ErrConflict: a compare-and-swap transition lost to a concurrent
	// writer. The caller observes the race instead of corrupting state.
	ErrConflict = errors.New("conflicting transition")
)

// SessionStore persists sessions with their owned venues and votes. Every
// status change goes through a compare-and-swap against the expected prior
// status; no call may silently overwrite a concurrently changed status.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// SetJoiner stores the joiner coordinate/label pair and advances
	// waiting_for_b to ready_to_compute in one atomic step.
	SetJoiner(ctx context.Context, id string, loc models.Coord, label string) error

	// TransitionStatus swaps from -> to, failing with ErrConflict when the
	// stored status is no longer `from`.
	TransitionStatus(ctx context.Context, id string, from, to models.SessionStatus) error

	// SetResult stores the midpoint, per-party travel times and warning as
	// one group once compute finishes.
	SetResult(ctx context.Context, id string, midpoint models.Coord, timeA, timeB *int, warning string) error

	// SetWarning attaches advisory text without touching status.
	SetWarning(ctx context.Context, id, warning string) error

	SetWinner(ctx context.Context, id, venueID string) error

	// SaveVenues stores the compute-time batch. Venues are immutable after
	// this call.
	SaveVenues(ctx context.Context, venues []models.Venue) error
	GetVenues(ctx context.Context, sessionID string) ([]models.Venue, error)

	// UpsertVote records a vote; a later vote from the same voter replaces
	// the earlier one.
	UpsertVote(ctx context.Context, v *models.Vote) error
	GetVotes(ctx context.Context, sessionID string) ([]models.Vote, error)
}
