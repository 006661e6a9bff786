package storage

import (
	"context"
	"sync"
	"time"

	"github.com/example/meetpoint/internal/models"
)

// MemoryStore keeps everything in process memory. It is the default
// backend for local runs and the reference implementation the Postgres
// store must agree with.
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]models.Session
	venues   map[string][]models.Venue
	votes    map[string]map[models.VoterRole]models.Vote
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]models.Session),
		venues:   make(map[string][]models.Venue),
		votes:    make(map[string]map[models.VoterRole]models.Vote),
		now:      time.Now,
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.liveSession(id)
	if err != nil {
		return nil, err
	}
	out := s
	return &out, nil
}

// liveSession is the TTL gate for every read path. Callers hold the lock.
func (m *MemoryStore) liveSession(id string) (models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	if m.now().Sub(s.CreatedAt) > m.ttl {
		return models.Session{}, ErrExpired
	}
	return s, nil
}

func (m *MemoryStore) SetJoiner(_ context.Context, id string, loc models.Coord, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.liveSession(id)
	if err != nil {
		return err
	}
	if s.Status != models.StatusWaitingForB {
		return ErrConflict
	}
	c := loc
	s.PartyB = &c
	s.PartyBLabel = label
	s.Status = models.StatusReadyToCompute
	s.UpdatedAt = m.now()
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) TransitionStatus(_ context.Context, id string, from, to models.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.liveSession(id)
	if err != nil {
		return err
	}
	if s.Status != from {
		return ErrConflict
	}
	s.Status = to
	s.UpdatedAt = m.now()
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) SetResult(_ context.Context, id string, midpoint models.Coord, timeA, timeB *int, warning string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.liveSession(id)
	if err != nil {
		return err
	}
	p := midpoint
	s.Midpoint = &p
	s.TravelTimeA = cloneInt(timeA)
	s.TravelTimeB = cloneInt(timeB)
	s.Warning = warning
	s.UpdatedAt = m.now()
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) SetWarning(_ context.Context, id, warning string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.liveSession(id)
	if err != nil {
		return err
	}
	s.Warning = warning
	s.UpdatedAt = m.now()
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) SetWinner(_ context.Context, id, venueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.liveSession(id)
	if err != nil {
		return err
	}
	s.WinnerVenueID = venueID
	s.UpdatedAt = m.now()
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) SaveVenues(_ context.Context, venues []models.Venue) error {
	if len(venues) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := venues[0].SessionID
	if _, err := m.liveSession(id); err != nil {
		return err
	}
	m.venues[id] = append([]models.Venue(nil), venues...)
	return nil
}

func (m *MemoryStore) GetVenues(_ context.Context, sessionID string) ([]models.Venue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, err := m.liveSession(sessionID); err != nil {
		return nil, err
	}
	return append([]models.Venue(nil), m.venues[sessionID]...), nil
}

func (m *MemoryStore) UpsertVote(_ context.Context, v *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.liveSession(v.SessionID); err != nil {
		return err
	}
	byRole := m.votes[v.SessionID]
	if byRole == nil {
		byRole = make(map[models.VoterRole]models.Vote, 2)
		m.votes[v.SessionID] = byRole
	}
	byRole[v.Voter] = *v
	return nil
}

func (m *MemoryStore) GetVotes(_ context.Context, sessionID string) ([]models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, err := m.liveSession(sessionID); err != nil {
		return nil, err
	}
	byRole := m.votes[sessionID]
	out := make([]models.Vote, 0, len(byRole))
	for _, v := range byRole {
		out = append(out, v)
	}
	return out, nil
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
