package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/meetpoint/internal/models"
)

func TestSearchNearbyFiltersQualityBars(t *testing.T) {
	var gotMask string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMask = r.Header.Get("X-Goog-FieldMask")
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		w.Write([]byte(`{"places": [
			{"id": "good", "displayName": {"text": "Good Cafe"}, "rating": 4.5, "userRatingCount": 120,
			 "location": {"latitude": -33.86, "longitude": 151.21}, "types": ["cafe"],
			 "reviews": [{"rating": 5, "text": {"text": "great flat white"}}]},
			{"id": "low-rating", "displayName": {"text": "Meh"}, "rating": 3.5, "userRatingCount": 200,
			 "location": {"latitude": -33.86, "longitude": 151.21}},
			{"id": "few-reviews", "displayName": {"text": "New Spot"}, "rating": 4.9, "userRatingCount": 8,
			 "location": {"latitude": -33.86, "longitude": 151.21}}
		]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key")
	out, err := c.SearchNearby(context.Background(), Query{
		Center:       models.Coord{Lat: -33.86, Lng: 151.21},
		RadiusMeters: 800,
		Categories:   []string{"restaurant", "cafe"},
		MinRating:    4.0,
		MinReviews:   50,
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotMask == "" {
		t.Fatal("field mask header missing")
	}
	if len(out) != 1 || out[0].ID != "good" {
		t.Fatalf("expected only the qualifying place, got %+v", out)
	}
	if len(out[0].Reviews) != 1 || out[0].Reviews[0].Text != "great flat white" {
		t.Fatalf("reviews not carried: %+v", out[0].Reviews)
	}
}

func TestSearchNearbyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "bad-key")
	if _, err := c.SearchNearby(context.Background(), Query{}); err == nil {
		t.Fatal("expected error")
	}
}
