package geo

import (
	"math"
	"testing"

	"github.com/example/meetpoint/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(models.Coord{}, models.Coord{})
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineSydney(t *testing.T) {
	a := models.Coord{Lat: -33.8568, Lng: 151.2153}
	b := models.Coord{Lat: -33.8800, Lng: 151.2000}
	d := Haversine(a, b)
	// roughly 2.9km between the Opera House and Surry Hills
	if d < 2500 || d > 3500 {
		t.Fatalf("unexpected distance %f", d)
	}
}

func TestMidpoint(t *testing.T) {
	a := models.Coord{Lat: -33.8568, Lng: 151.2153}
	b := models.Coord{Lat: -33.8800, Lng: 151.2000}
	m := Midpoint(a, b)
	if math.Abs(m.Lat-(-33.8684)) > 1e-4 || math.Abs(m.Lng-151.20765) > 1e-4 {
		t.Fatalf("unexpected midpoint %+v", m)
	}
}

func TestPointAtClamps(t *testing.T) {
	a := models.Coord{Lat: 0, Lng: 0}
	b := models.Coord{Lat: 1, Lng: 1}
	if p := PointAt(a, b, -0.5); p != a {
		t.Fatalf("expected a, got %+v", p)
	}
	if p := PointAt(a, b, 1.5); p != b {
		t.Fatalf("expected b, got %+v", p)
	}
}

func TestValid(t *testing.T) {
	if !Valid(models.Coord{Lat: -33.8, Lng: 151.2}) {
		t.Fatal("expected valid")
	}
	if Valid(models.Coord{Lat: 91, Lng: 0}) || Valid(models.Coord{Lat: 0, Lng: 181}) {
		t.Fatal("expected invalid")
	}
}
