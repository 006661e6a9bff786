package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/example/meetpoint/internal/enrich"
	"github.com/example/meetpoint/internal/models"
	"github.com/example/meetpoint/internal/places"
)

type stubPlaces struct {
	fn      func(q places.Query) ([]places.Place, error)
	queries []places.Query
}

func (s *stubPlaces) SearchNearby(_ context.Context, q places.Query) ([]places.Place, error) {
	s.queries = append(s.queries, q)
	return s.fn(q)
}

type stubEnrich struct {
	out map[string]models.Enrichment
	err error
}

func (s *stubEnrich) Describe(context.Context, []places.Place) (map[string]models.Enrichment, error) {
	return s.out, s.err
}

func newService(p places.Client) *Service {
	return &Service{
		Places:            p,
		InitialRadius:     800,
		MaxRadius:         3000,
		RadiusMultiplier:  1.5,
		MinVenues:         5,
		MaxVenues:         8,
		MinRating:         4.0,
		MinReviews:        50,
		RelaxedMinRating:  3.8,
		RelaxedMinReviews: 30,
		Categories:        []string{"restaurant", "cafe"},
	}
}

func somePlaces(n int) []places.Place {
	out := make([]places.Place, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, places.Place{
			ID:          fmt.Sprintf("p%02d", i),
			Name:        fmt.Sprintf("Venue %d", i),
			Rating:      4.8 - float64(i)*0.1,
			RatingCount: 500 - i*10,
		})
	}
	return out
}

func TestResolveGrowsRadiusUntilEnough(t *testing.T) {
	stub := &stubPlaces{fn: func(q places.Query) ([]places.Place, error) {
		if q.RadiusMeters < 1800 {
			return somePlaces(2), nil
		}
		return somePlaces(6), nil
	}}
	venues, warning := newService(stub).Resolve(context.Background(), models.Coord{})
	if warning != "" {
		t.Fatalf("unexpected warning %q", warning)
	}
	if len(venues) != 6 {
		t.Fatalf("expected 6 venues, got %d", len(venues))
	}
	want := []float64{800, 1200, 1800}
	if len(stub.queries) != len(want) {
		t.Fatalf("expected %d searches, got %d", len(want), len(stub.queries))
	}
	for i, q := range stub.queries {
		if q.RadiusMeters != want[i] {
			t.Fatalf("search %d at radius %f, want %f", i, q.RadiusMeters, want[i])
		}
	}
}

func TestResolveRelaxesQualityBarAtCeiling(t *testing.T) {
	stub := &stubPlaces{fn: func(q places.Query) ([]places.Place, error) {
		if q.MinRating >= 4.0 {
			return somePlaces(1), nil
		}
		return somePlaces(3), nil
	}}
	venues, warning := newService(stub).Resolve(context.Background(), models.Coord{})
	if len(venues) != 3 {
		t.Fatalf("expected 3 venues, got %d", len(venues))
	}
	if warning == "" {
		t.Fatal("expected a short-results warning")
	}
	last := stub.queries[len(stub.queries)-1]
	if last.RadiusMeters != 3000 || last.MinRating != 3.8 || last.MinReviews != 30 {
		t.Fatalf("expected relaxed search at ceiling, got %+v", last)
	}
}

func TestResolveTruncatesAndRanksDeterministically(t *testing.T) {
	stub := &stubPlaces{fn: func(places.Query) ([]places.Place, error) {
		return somePlaces(12), nil
	}}
	svc := newService(stub)
	venues, _ := svc.Resolve(context.Background(), models.Coord{})
	if len(venues) != svc.MaxVenues {
		t.Fatalf("expected %d venues, got %d", svc.MaxVenues, len(venues))
	}
	for i, v := range venues {
		if v.Rank != i {
			t.Fatalf("venue %d has rank %d", i, v.Rank)
		}
	}
	// identical inputs, identical ordering
	again, _ := svc.Resolve(context.Background(), models.Coord{})
	for i := range venues {
		if venues[i].PlaceID != again[i].PlaceID {
			t.Fatalf("ordering not deterministic at %d: %s vs %s", i, venues[i].PlaceID, again[i].PlaceID)
		}
	}
}

func TestResolveRankTieBreaksOnPlaceID(t *testing.T) {
	twins := []places.Place{
		{ID: "b", Name: "B", Rating: 4.5, RatingCount: 100},
		{ID: "a", Name: "A", Rating: 4.5, RatingCount: 100},
	}
	stub := &stubPlaces{fn: func(places.Query) ([]places.Place, error) { return twins, nil }}
	venues, _ := newService(stub).Resolve(context.Background(), models.Coord{})
	if venues[0].PlaceID != "a" || venues[1].PlaceID != "b" {
		t.Fatalf("unexpected tie-break order: %s, %s", venues[0].PlaceID, venues[1].PlaceID)
	}
}

func TestResolveEmptyIsNotAnError(t *testing.T) {
	stub := &stubPlaces{fn: func(places.Query) ([]places.Place, error) { return nil, nil }}
	venues, _ := newService(stub).Resolve(context.Background(), models.Coord{})
	if len(venues) != 0 {
		t.Fatalf("expected no venues, got %d", len(venues))
	}
}

func TestResolveProviderFailureDegradesToEmpty(t *testing.T) {
	stub := &stubPlaces{fn: func(places.Query) ([]places.Place, error) {
		return nil, errors.New("timeout")
	}}
	venues, warning := newService(stub).Resolve(context.Background(), models.Coord{})
	if len(venues) != 0 {
		t.Fatalf("expected no venues, got %d", len(venues))
	}
	if warning == "" {
		t.Fatal("expected an unavailable warning")
	}
}

func TestResolveKeepsVenuesWhenEnrichmentUnavailable(t *testing.T) {
	stub := &stubPlaces{fn: func(places.Query) ([]places.Place, error) { return somePlaces(6), nil }}
	svc := newService(stub)
	svc.Enrich = &stubEnrich{err: enrich.ErrUnavailable}
	venues, _ := svc.Resolve(context.Background(), models.Coord{})
	if len(venues) != 6 {
		t.Fatalf("expected 6 venues, got %d", len(venues))
	}
	for _, v := range venues {
		if len(v.Enrichment.CuisineTags) != 0 || v.Enrichment.Summary != "" {
			t.Fatalf("expected empty enrichment for %s", v.Name)
		}
	}
}

func TestResolveAttachesEnrichment(t *testing.T) {
	stub := &stubPlaces{fn: func(places.Query) ([]places.Place, error) { return somePlaces(5), nil }}
	svc := newService(stub)
	svc.Enrich = &stubEnrich{out: map[string]models.Enrichment{
		"Venue 0": {CuisineTags: []string{"Japanese"}, Summary: "praised ramen"},
	}}
	venues, _ := svc.Resolve(context.Background(), models.Coord{})
	if venues[0].Name != "Venue 0" {
		t.Fatalf("unexpected top venue %s", venues[0].Name)
	}
	if venues[0].Enrichment.Summary != "praised ramen" {
		t.Fatalf("enrichment not attached: %+v", venues[0].Enrichment)
	}
}
