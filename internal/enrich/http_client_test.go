package enrich

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/meetpoint/internal/places"
)

func TestDescribeParsesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"name": "Ichiban",
			"description": "Tiny ramen bar.",
			"cuisineTags": ["Japanese", "Ramen"],
			"sentiment": {"positive": 7, "neutral": 2, "negative": 1},
			"standoutDishes": ["Tonkotsu"],
			"reviewSummary": "Customers love the broth.",
			"highlights": ["Fast service"]
		}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key")
	out, err := c.Describe(context.Background(), []places.Place{{Name: "Ichiban", Rating: 4.6}})
	if err != nil {
		t.Fatal(err)
	}
	e, ok := out["Ichiban"]
	if !ok {
		t.Fatal("missing enrichment")
	}
	if e.Description != "Tiny ramen bar." || len(e.CuisineTags) != 2 {
		t.Fatalf("unexpected enrichment %+v", e)
	}
	if e.Sentiment == nil {
		t.Fatal("missing sentiment")
	}
	sum := e.Sentiment.Positive + e.Sentiment.Neutral + e.Sentiment.Negative
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("sentiment must sum to 1, got %f", sum)
	}
	if e.Sentiment.Positive < 0.69 || e.Sentiment.Positive > 0.71 {
		t.Fatalf("unexpected positive share %f", e.Sentiment.Positive)
	}
}

func TestDescribeUnavailableAfterRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key")
	_, err := c.Describe(context.Background(), []places.Place{{Name: "X"}})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
}

func TestDescribeEmptyInput(t *testing.T) {
	c := NewHTTPClient("http://unused", "")
	out, err := c.Describe(context.Background(), nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty map, got %v %v", out, err)
	}
}
