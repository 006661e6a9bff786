package resolver

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/example/meetpoint/internal/enrich"
	"github.com/example/meetpoint/internal/models"
	"github.com/example/meetpoint/internal/observability"
	"github.com/example/meetpoint/internal/places"
)

// Service turns a resolved point into a ranked, bounded venue list. It
// widens the search radius and finally relaxes the quality bars before
// giving up; an empty list is a valid outcome, not an error.
type Service struct {
	Places places.Client
	Enrich enrich.Client // optional

	InitialRadius    float64
	MaxRadius        float64
	RadiusMultiplier float64
	MinVenues        int
	MaxVenues        int

	MinRating         float64
	MinReviews        int
	RelaxedMinRating  float64
	RelaxedMinReviews int

	Categories []string

	Logger *slog.Logger
}

// Resolve searches around center and returns venues ranked best-first with
// Rank assigned, plus an advisory warning when the search degraded. Venue
// ids and session ownership are left for the caller to fill in.
func (s *Service) Resolve(ctx context.Context, center models.Coord) ([]models.Venue, string) {
	if s.Places == nil {
		return nil, "venue search unavailable"
	}

	var (
		hits    []places.Place
		warning string
	)
	for radius := s.InitialRadius; radius <= s.MaxRadius; radius = math.Round(radius * s.RadiusMultiplier) {
		found, err := s.search(ctx, center, radius, s.MinRating, s.MinReviews)
		if err != nil {
			s.log().Warn("place search failed", "radius_m", radius, "err", err)
			warning = "venue search was unavailable"
			break
		}
		hits = found
		if len(hits) >= s.MinVenues {
			break
		}
	}

	if len(hits) < s.MinVenues && warning == "" {
		// relaxed pass at the radius ceiling
		found, err := s.search(ctx, center, s.MaxRadius, s.RelaxedMinRating, s.RelaxedMinReviews)
		if err != nil {
			s.log().Warn("relaxed place search failed", "err", err)
			warning = "venue search was unavailable"
		} else {
			hits = found
			if len(hits) > 0 && len(hits) < s.MinVenues {
				warning = "fewer venues than usual matched nearby"
			}
		}
	}

	if len(hits) == 0 {
		return nil, warning
	}

	rank(hits)
	if len(hits) > s.MaxVenues {
		hits = hits[:s.MaxVenues]
	}

	enrichments := s.describe(ctx, hits)

	venues := make([]models.Venue, 0, len(hits))
	for i, p := range hits {
		v := models.Venue{
			PlaceID:     p.ID,
			Name:        p.Name,
			Address:     p.Address,
			Loc:         p.Loc,
			Rating:      p.Rating,
			RatingCount: p.RatingCount,
			PriceTier:   p.PriceTier,
			MapLink:     p.MapLink,
			Categories:  p.Categories,
			Rank:        i,
		}
		if e, ok := enrichments[p.Name]; ok {
			v.Enrichment = e
		}
		if v.Enrichment.Description == "" {
			v.Enrichment.Description = p.Summary
		}
		venues = append(venues, v)
	}
	return venues, warning
}

func (s *Service) search(ctx context.Context, center models.Coord, radius, minRating float64, minReviews int) ([]places.Place, error) {
	observability.ProviderCalls.WithLabelValues("places").Inc()
	found, err := s.Places.SearchNearby(ctx, places.Query{
		Center:       center,
		RadiusMeters: radius,
		Categories:   s.Categories,
		MinRating:    minRating,
		MinReviews:   minReviews,
	})
	if err != nil {
		observability.ProviderErrors.WithLabelValues("places").Inc()
	}
	return found, err
}

func (s *Service) describe(ctx context.Context, hits []places.Place) map[string]models.Enrichment {
	if s.Enrich == nil {
		return nil
	}
	observability.ProviderCalls.WithLabelValues("enrich").Inc()
	out, err := s.Enrich.Describe(ctx, hits)
	if err != nil {
		observability.ProviderErrors.WithLabelValues("enrich").Inc()
		if !errors.Is(err, enrich.ErrUnavailable) {
			s.log().Warn("enrichment failed", "err", err)
		}
		return nil
	}
	return out
}

// rank orders hits best-first by rating weighted by review volume. Ties
// fall back to review count and then place id so identical inputs always
// produce the same ordering.
func rank(hits []places.Place) {
	sort.SliceStable(hits, func(i, j int) bool {
		si, sj := score(hits[i]), score(hits[j])
		if si != sj {
			return si > sj
		}
		if hits[i].RatingCount != hits[j].RatingCount {
			return hits[i].RatingCount > hits[j].RatingCount
		}
		return hits[i].ID < hits[j].ID
	})
}

func score(p places.Place) float64 {
	count := p.RatingCount
	if count < 1 {
		count = 1
	}
	return p.Rating * math.Log10(float64(count))
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
