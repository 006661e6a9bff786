package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/meetpoint/internal/models"
)

// PostgresStore persists sessions in Postgres. Status transitions use a
// conditional UPDATE as the compare-and-swap: zero rows affected means the
// status moved under us.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewPostgresStore(dsn string, ttl time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, ttl: ttl}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sessions(id, status, pin_code, a_lat, a_lng, a_label, mode, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.Status, s.PinCode, s.PartyA.Lat, s.PartyA.Lng, nullString(s.PartyALabel), s.Mode, s.CreatedAt, s.UpdatedAt)
	return err
}

func (p *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, status, pin_code, a_lat, a_lng, a_label, b_lat, b_lng, b_label,
		        mid_lat, mid_lng, travel_time_a, travel_time_b, mode,
		        winner_venue_id, warning, created_at, updated_at
		 FROM sessions WHERE id = $1`, id)
	return p.scanSession(row)
}

func (p *PostgresStore) scanSession(row *sql.Row) (*models.Session, error) {
	var (
		s                      models.Session
		aLabel, bLabel         sql.NullString
		bLat, bLng             sql.NullFloat64
		midLat, midLng         sql.NullFloat64
		ttA, ttB               sql.NullInt64
		winnerVenueID, warning sql.NullString
	)
	err := row.Scan(&s.ID, &s.Status, &s.PinCode, &s.PartyA.Lat, &s.PartyA.Lng, &aLabel,
		&bLat, &bLng, &bLabel, &midLat, &midLng, &ttA, &ttB, &s.Mode,
		&winnerVenueID, &warning, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.PartyALabel = aLabel.String
	s.PartyBLabel = bLabel.String
	if bLat.Valid && bLng.Valid {
		s.PartyB = &models.Coord{Lat: bLat.Float64, Lng: bLng.Float64}
	}
	if midLat.Valid && midLng.Valid {
		s.Midpoint = &models.Coord{Lat: midLat.Float64, Lng: midLng.Float64}
	}
	if ttA.Valid {
		v := int(ttA.Int64)
		s.TravelTimeA = &v
	}
	if ttB.Valid {
		v := int(ttB.Int64)
		s.TravelTimeB = &v
	}
	s.WinnerVenueID = winnerVenueID.String
	s.Warning = warning.String

	if time.Since(s.CreatedAt) > p.ttl {
		return nil, ErrExpired
	}
	return &s, nil
}

// liveCheck gates venue/vote access on the owning session's TTL.
func (p *PostgresStore) liveCheck(ctx context.Context, sessionID string) error {
	var createdAt time.Time
	err := p.db.QueryRowContext(ctx, `SELECT created_at FROM sessions WHERE id = $1`, sessionID).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if time.Since(createdAt) > p.ttl {
		return ErrExpired
	}
	return nil
}

func (p *PostgresStore) SetJoiner(ctx context.Context, id string, loc models.Coord, label string) error {
	if err := p.liveCheck(ctx, id); err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE sessions SET b_lat=$1, b_lng=$2, b_label=$3, status=$4, updated_at=now()
		 WHERE id=$5 AND status=$6`,
		loc.Lat, loc.Lng, nullString(label), models.StatusReadyToCompute, id, models.StatusWaitingForB)
	if err != nil {
		return err
	}
	return p.casOutcome(ctx, res, id)
}

func (p *PostgresStore) TransitionStatus(ctx context.Context, id string, from, to models.SessionStatus) error {
	if err := p.liveCheck(ctx, id); err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE sessions SET status=$1, updated_at=now() WHERE id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return err
	}
	return p.casOutcome(ctx, res, id)
}

// casOutcome distinguishes a lost CAS from a vanished row.
func (p *PostgresStore) casOutcome(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = p.db.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

func (p *PostgresStore) SetResult(ctx context.Context, id string, midpoint models.Coord, timeA, timeB *int, warning string) error {
	if err := p.liveCheck(ctx, id); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE sessions SET mid_lat=$1, mid_lng=$2, travel_time_a=$3, travel_time_b=$4, warning=$5, updated_at=now()
		 WHERE id=$6`,
		midpoint.Lat, midpoint.Lng, nullInt(timeA), nullInt(timeB), nullString(warning), id)
	return err
}

func (p *PostgresStore) SetWarning(ctx context.Context, id, warning string) error {
	if err := p.liveCheck(ctx, id); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE sessions SET warning=$1, updated_at=now() WHERE id=$2`, nullString(warning), id)
	return err
}

func (p *PostgresStore) SetWinner(ctx context.Context, id, venueID string) error {
	if err := p.liveCheck(ctx, id); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE sessions SET winner_venue_id=$1, updated_at=now() WHERE id=$2`, venueID, id)
	return err
}

func (p *PostgresStore) SaveVenues(ctx context.Context, venues []models.Venue) error {
	if len(venues) == 0 {
		return nil
	}
	if err := p.liveCheck(ctx, venues[0].SessionID); err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	// a retried compute replaces the batch rather than accumulating orphans
	if _, err := tx.ExecContext(ctx, `DELETE FROM venues WHERE session_id = $1`, venues[0].SessionID); err != nil {
		return err
	}
	for _, v := range venues {
		enrichment, err := json.Marshal(v.Enrichment)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO venues(id, session_id, place_id, name, address, lat, lng, rating, rating_count,
			                    price_tier, map_link, categories, rank, enrichment, created_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			v.ID, v.SessionID, v.PlaceID, v.Name, nullString(v.Address), v.Loc.Lat, v.Loc.Lng,
			v.Rating, v.RatingCount, nullString(v.PriceTier), nullString(v.MapLink),
			pq.Array(v.Categories), v.Rank, enrichment, v.CreatedAt); err != nil {
			return fmt.Errorf("insert venue %s: %w", v.ID, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) GetVenues(ctx context.Context, sessionID string) ([]models.Venue, error) {
	if err := p.liveCheck(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, session_id, place_id, name, address, lat, lng, rating, rating_count,
		        price_tier, map_link, categories, rank, enrichment, created_at
		 FROM venues WHERE session_id = $1 ORDER BY rank`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Venue
	for rows.Next() {
		var (
			v                           models.Venue
			address, priceTier, mapLink sql.NullString
			enrichment                  []byte
		)
		if err := rows.Scan(&v.ID, &v.SessionID, &v.PlaceID, &v.Name, &address, &v.Loc.Lat, &v.Loc.Lng,
			&v.Rating, &v.RatingCount, &priceTier, &mapLink, pq.Array(&v.Categories),
			&v.Rank, &enrichment, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Address = address.String
		v.PriceTier = priceTier.String
		v.MapLink = mapLink.String
		if len(enrichment) > 0 {
			if err := json.Unmarshal(enrichment, &v.Enrichment); err != nil {
				return nil, fmt.Errorf("decode enrichment for venue %s: %w", v.ID, err)
			}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpsertVote(ctx context.Context, v *models.Vote) error {
	if err := p.liveCheck(ctx, v.SessionID); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO votes(id, session_id, venue_id, voter, created_at)
		 VALUES($1,$2,$3,$4,$5)
		 ON CONFLICT (session_id, voter)
		 DO UPDATE SET id=EXCLUDED.id, venue_id=EXCLUDED.venue_id, created_at=EXCLUDED.created_at`,
		v.ID, v.SessionID, v.VenueID, v.Voter, v.CreatedAt)
	return err
}

func (p *PostgresStore) GetVotes(ctx context.Context, sessionID string) ([]models.Vote, error) {
	if err := p.liveCheck(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, session_id, venue_id, voter, created_at FROM votes WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.SessionID, &v.VenueID, &v.Voter, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
