package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TravelMode selects the routing profile used for travel-time lookups.
type TravelMode string

const (
	ModeWalking TravelMode = "walking"
	ModeCycling TravelMode = "cycling"
	ModeDriving TravelMode = "driving"
	ModeTransit TravelMode = "transit"
)

func (m TravelMode) Known() bool {
	switch m {
	case ModeWalking, ModeCycling, ModeDriving, ModeTransit:
		return true
	}
	return false
}

// SessionStatus is a closed enumeration. A session only ever advances
// forward through the order below; expiry is derived from age on read and
// never stored as a status.
type SessionStatus string

const (
	StatusWaitingForB    SessionStatus = "waiting_for_b"
	StatusReadyToCompute SessionStatus = "ready_to_compute"
	StatusComputing      SessionStatus = "computing"
	StatusVoting         SessionStatus = "voting"
	StatusCompleted      SessionStatus = "completed"
)

var statusOrder = map[SessionStatus]int{
	StatusWaitingForB:    0,
	StatusReadyToCompute: 1,
	StatusComputing:      2,
	StatusVoting:         3,
	StatusCompleted:      4,
}

func (s SessionStatus) Known() bool {
	_, ok := statusOrder[s]
	return ok
}

// Before reports whether s precedes other in the session lifecycle.
func (s SessionStatus) Before(other SessionStatus) bool {
	return statusOrder[s] < statusOrder[other]
}

// VoterRole identifies which party a vote belongs to.
type VoterRole string

const (
	RolePartyA VoterRole = "partyA"
	RolePartyB VoterRole = "partyB"
)

func (r VoterRole) Known() bool { return r == RolePartyA || r == RolePartyB }

// Session is the shared record coordinating two parties toward one meeting
// point. Joiner fields and midpoint/travel-time fields are each set as an
// all-or-nothing group.
type Session struct {
	ID            string        `json:"id"`
	Status        SessionStatus `json:"status"`
	PinCode       string        `json:"pin_code"`
	PartyA        Coord         `json:"party_a"`
	PartyALabel   string        `json:"party_a_label,omitempty"`
	PartyB        *Coord        `json:"party_b,omitempty"`
	PartyBLabel   string        `json:"party_b_label,omitempty"`
	Midpoint      *Coord        `json:"midpoint,omitempty"`
	TravelTimeA   *int          `json:"travel_time_a,omitempty"` // seconds
	TravelTimeB   *int          `json:"travel_time_b,omitempty"` // seconds
	Mode          TravelMode    `json:"mode"`
	WinnerVenueID string        `json:"winner_venue_id,omitempty"`
	Warning       string        `json:"warning,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Venue is a candidate meeting spot, created once as a batch during compute
// and immutable afterwards. Rank preserves the resolver's deterministic
// ordering (0 = best) and doubles as the split-vote tie-breaker.
type Venue struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	PlaceID     string     `json:"place_id"`
	Name        string     `json:"name"`
	Address     string     `json:"address,omitempty"`
	Loc         Coord      `json:"loc"`
	Rating      float64    `json:"rating"`
	RatingCount int        `json:"rating_count"`
	PriceTier   string     `json:"price_tier,omitempty"`
	MapLink     string     `json:"map_link,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	Rank        int        `json:"rank"`
	Enrichment  Enrichment `json:"enrichment"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Enrichment is descriptive content beyond raw provider fields. All fields
// are optional; a venue with an empty Enrichment is still served.
type Enrichment struct {
	Description    string     `json:"description,omitempty"`
	CuisineTags    []string   `json:"cuisine_tags,omitempty"`
	VibeTags       []string   `json:"vibe_tags,omitempty"`
	BestFor        []string   `json:"best_for,omitempty"`
	SignatureDish  string     `json:"signature_dish,omitempty"`
	Sentiment      *Sentiment `json:"sentiment,omitempty"`
	StandoutDishes []string   `json:"standout_dishes,omitempty"`
	Summary        string     `json:"summary,omitempty"`
	Highlights     []string   `json:"highlights,omitempty"`
}

// Sentiment is a review-sentiment breakdown; the three shares sum to 1.
type Sentiment struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// Vote records one party's pick. At most one vote per (session, voter) is
// effective; a later vote supersedes the earlier one.
type Vote struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	VenueID   string    `json:"venue_id"`
	Voter     VoterRole `json:"voter"`
	CreatedAt time.Time `json:"created_at"`
}
